package repositories

import (
	"context"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/supersix/academy/internal/app/models"
)

const usersTable = "users"

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	// CreateUser inserts u. Duplicate emails or student IDs map to
	// apperrors.ErrEmailAlreadyExists and apperrors.ErrStudentIDAlreadyExists.
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	// ListStudents returns one page of students and the total matching the filter
	ListStudents(ctx context.Context, filter models.StudentFilter) ([]*models.User, int64, error)
}

var userColumns = []string{
	"id", "student_id", "role_type", "name", "email", "phone", "password_hash",
	"branch", "district", "tehsil", "village", "street", "is_active", "created_at", "updated_at",
}

// NormalizeEmail lower-cases and trims an address before storage or lookup
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// studentWhere builds the roster predicate shared by the SQL stores. like is
// an escaped ILIKE on PostgreSQL and LIKE on SQLite.
func studentWhere(filter models.StudentFilter, like func(col, pattern string) squirrel.Sqlizer) squirrel.And {
	where := squirrel.And{squirrel.Eq{"role_type": string(models.RoleStudent)}}
	if filter.Branch != "" {
		where = append(where, squirrel.Eq{"branch": filter.Branch})
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + likeEscaper.Replace(search) + "%"
		where = append(where, squirrel.Or{
			like("name", pattern),
			like("email", pattern),
			like("student_id", pattern),
		})
	}
	return where
}

// likeEscaper makes %, _ and the escape character itself match literally
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func pgLike(col, pattern string) squirrel.Sqlizer {
	return squirrel.Expr(col+` ILIKE ? ESCAPE '\'`, pattern)
}

func sqliteLike(col, pattern string) squirrel.Sqlizer {
	// LIKE is case-insensitive for ASCII in SQLite
	return squirrel.Expr(col+` LIKE ? ESCAPE '\'`, pattern)
}

// matchesStudent applies the same predicate in memory
func matchesStudent(u *models.User, filter models.StudentFilter) bool {
	if !u.IsStudent() {
		return false
	}
	if filter.Branch != "" && u.Branch != filter.Branch {
		return false
	}
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	if search == "" {
		return true
	}
	studentID := ""
	if u.StudentID != nil {
		studentID = *u.StudentID
	}
	return strings.Contains(strings.ToLower(u.Name), search) ||
		strings.Contains(strings.ToLower(u.Email), search) ||
		strings.Contains(strings.ToLower(studentID), search)
}
