package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/supersix/academy/internal/app/models"
	"github.com/supersix/academy/internal/db"
	"github.com/supersix/academy/internal/pkg/apperrors"
	"github.com/supersix/academy/internal/pkg/dberrors"
)

// PostgresUserRepository handles user rows in PostgreSQL
type PostgresUserRepository struct {
	db     *db.PostgresDB
	sb     squirrel.StatementBuilderType
	logger zerolog.Logger
}

// NewPostgresUserRepository creates a new PostgresUserRepository
func NewPostgresUserRepository(database *db.PostgresDB, logger zerolog.Logger) *PostgresUserRepository {
	return &PostgresUserRepository{
		db:     database,
		logger: logger.With().Str("store", "postgres_users").Logger(),
		sb:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// CreateUser inserts a new user row
func (r *PostgresUserRepository) CreateUser(ctx context.Context, u *models.User) error {
	query, args, err := r.sb.Insert(usersTable).
		Columns(userColumns...).
		Values(u.ID, u.StudentID, string(u.RoleType), u.Name, NormalizeEmail(u.Email), u.Phone, u.PasswordHash,
			u.Branch, u.Address.District, u.Address.Tehsil, u.Address.Village, u.Address.Street,
			u.IsActive, u.CreatedAt, u.UpdatedAt).
		ToSql()
	if err != nil {
		r.logger.Error().Err(err).Msg("Error building create user SQL")
		return fmt.Errorf("failed to build create user query: %w", err)
	}

	if _, err := r.db.Pool.Exec(ctx, query, args...); err != nil {
		switch {
		case dberrors.IsDuplicateConstraintError(err, "users_email_key"):
			return apperrors.ErrEmailAlreadyExists
		case dberrors.IsDuplicateConstraintError(err, "users_student_id_key"):
			r.logger.Warn().Str("studentID", derefString(u.StudentID)).Msg("Attempted to create user with duplicate student ID")
			return apperrors.ErrStudentIDAlreadyExists
		}
		r.logger.Error().Err(err).Str("userID", u.ID).Msg("Error executing create user query")
		return fmt.Errorf("error creating user: %w", err)
	}

	return nil
}

func (r *PostgresUserRepository) getOne(ctx context.Context, where squirrel.Sqlizer) (*models.User, error) {
	query, args, err := r.sb.Select(userColumns...).
		From(usersTable).
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get user query: %w", err)
	}

	u, err := scanPostgresUser(r.db.Pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error retrieving user: %w", err)
	}
	return u, nil
}

// GetUserByID retrieves a user by ID
func (r *PostgresUserRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

// GetUserByEmail retrieves a user by email
func (r *PostgresUserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, squirrel.Eq{"email": NormalizeEmail(email)})
}

// EmailExists checks if an email already exists
func (r *PostgresUserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	query, args, err := r.sb.Select("1").
		From(usersTable).
		Where(squirrel.Eq{"email": NormalizeEmail(email)}).
		Prefix("SELECT EXISTS (").
		Suffix(")").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build email exists query: %w", err)
	}

	var exists bool
	if err := r.db.Pool.QueryRow(ctx, query, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("error checking email: %w", err)
	}
	return exists, nil
}

// ListStudents returns a page of students ordered by signup time
func (r *PostgresUserRepository) ListStudents(ctx context.Context, filter models.StudentFilter) ([]*models.User, int64, error) {
	where := studentWhere(filter, pgLike)

	countQuery, countArgs, err := r.sb.Select("COUNT(*)").From(usersTable).Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count students query: %w", err)
	}
	var total int64
	if err := r.db.Pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("error counting students: %w", err)
	}

	query, args, err := r.sb.Select(userColumns...).
		From(usersTable).
		Where(where).
		OrderBy("created_at ASC", "id ASC").
		Offset(filter.Offset).
		Limit(uint64(filter.Limit)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list students query: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error listing students: %w", err)
	}
	users, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.User, error) {
		return scanPostgresUser(row)
	})
	if err != nil {
		return nil, 0, fmt.Errorf("error scanning students: %w", err)
	}
	return users, total, nil
}

func scanPostgresUser(row pgx.Row) (*models.User, error) {
	var (
		u    models.User
		role string
	)
	err := row.Scan(&u.ID, &u.StudentID, &role, &u.Name, &u.Email, &u.Phone, &u.PasswordHash,
		&u.Branch, &u.Address.District, &u.Address.Tehsil, &u.Address.Village, &u.Address.Street,
		&u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.RoleType = models.RoleType(role)
	return &u, nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

var _ UserRepository = (*PostgresUserRepository)(nil)
