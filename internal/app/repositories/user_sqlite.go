package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/rs/zerolog"
	"github.com/supersix/academy/internal/app/models"
	"github.com/supersix/academy/internal/db"
	"github.com/supersix/academy/internal/pkg/apperrors"
	"github.com/supersix/academy/internal/pkg/dberrors"
)

// SQLiteUserRepository handles user rows in SQLite
type SQLiteUserRepository struct {
	db     *db.SQLiteDB
	sb     squirrel.StatementBuilderType
	logger zerolog.Logger
}

// NewSQLiteUserRepository creates a new SQLiteUserRepository
func NewSQLiteUserRepository(database *db.SQLiteDB, logger zerolog.Logger) *SQLiteUserRepository {
	return &SQLiteUserRepository{
		db:     database,
		logger: logger.With().Str("store", "sqlite_users").Logger(),
		sb:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question).RunWith(database.DB),
	}
}

// CreateUser inserts a new user row
func (r *SQLiteUserRepository) CreateUser(ctx context.Context, u *models.User) error {
	_, err := r.sb.Insert(usersTable).
		Columns(userColumns...).
		Values(u.ID, u.StudentID, string(u.RoleType), u.Name, NormalizeEmail(u.Email), u.Phone, u.PasswordHash,
			u.Branch, u.Address.District, u.Address.Tehsil, u.Address.Village, u.Address.Street,
			u.IsActive, toMillis(u.CreatedAt), toMillis(u.UpdatedAt)).
		ExecContext(ctx)
	if err != nil {
		switch {
		case dberrors.IsUniqueViolation(err, "users.email"):
			return apperrors.ErrEmailAlreadyExists
		case dberrors.IsUniqueViolation(err, "users.student_id"):
			r.logger.Warn().Str("studentID", derefString(u.StudentID)).Msg("Attempted to create user with duplicate student ID")
			return apperrors.ErrStudentIDAlreadyExists
		}
		r.logger.Error().Err(err).Str("userID", u.ID).Msg("Error executing create user query")
		return fmt.Errorf("error creating user: %w", err)
	}
	return nil
}

func (r *SQLiteUserRepository) getOne(ctx context.Context, where squirrel.Sqlizer) (*models.User, error) {
	row := r.sb.Select(userColumns...).
		From(usersTable).
		Where(where).
		Limit(1).
		QueryRowContext(ctx)

	u, err := scanSQLiteUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error retrieving user: %w", err)
	}
	return u, nil
}

// GetUserByID retrieves a user by ID
func (r *SQLiteUserRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

// GetUserByEmail retrieves a user by email
func (r *SQLiteUserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, squirrel.Eq{"email": NormalizeEmail(email)})
}

// EmailExists checks if an email already exists
func (r *SQLiteUserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var found int
	err := r.sb.Select("1").
		From(usersTable).
		Where(squirrel.Eq{"email": NormalizeEmail(email)}).
		Limit(1).
		QueryRowContext(ctx).
		Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("error checking email: %w", err)
	}
	return true, nil
}

// ListStudents returns a page of students ordered by signup time
func (r *SQLiteUserRepository) ListStudents(ctx context.Context, filter models.StudentFilter) ([]*models.User, int64, error) {
	where := studentWhere(filter, sqliteLike)

	var total int64
	if err := r.sb.Select("COUNT(*)").From(usersTable).Where(where).QueryRowContext(ctx).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("error counting students: %w", err)
	}

	rows, err := r.sb.Select(userColumns...).
		From(usersTable).
		Where(where).
		OrderBy("created_at ASC", "id ASC").
		Offset(filter.Offset).
		Limit(uint64(filter.Limit)).
		QueryContext(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("error listing students: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanSQLiteUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("error scanning student: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating students: %w", err)
	}
	return users, total, nil
}

func scanSQLiteUser(row squirrel.RowScanner) (*models.User, error) {
	var (
		u                    models.User
		role                 string
		studentID            sql.NullString
		createdAt, updatedAt int64
	)
	err := row.Scan(&u.ID, &studentID, &role, &u.Name, &u.Email, &u.Phone, &u.PasswordHash,
		&u.Branch, &u.Address.District, &u.Address.Tehsil, &u.Address.Village, &u.Address.Street,
		&u.IsActive, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if studentID.Valid {
		u.StudentID = &studentID.String
	}
	u.RoleType = models.RoleType(role)
	u.CreatedAt = fromMillis(createdAt)
	u.UpdatedAt = fromMillis(updatedAt)
	return &u, nil
}

var _ UserRepository = (*SQLiteUserRepository)(nil)
