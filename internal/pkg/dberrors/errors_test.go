package dberrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsDuplicateConstraintError(t *testing.T) {
	err := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	assert.True(t, IsDuplicateConstraintError(err, "users_email_key"))
	assert.False(t, IsDuplicateConstraintError(err, "users_student_id_key"))
	assert.True(t, IsUniqueViolation(err, ""))
}

func TestIsRetryable_Postgres(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"40001", true},
		{"40P01", true},
		{"55P03", true},
		{"23505", false},
		{"42P01", false},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := fmt.Errorf("commit: %w", &pgconn.PgError{Code: tt.code})
			assert.Equal(t, tt.want, IsRetryable(err))
		})
	}
}

func TestIsRetryable_Other(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.False(t, IsRetryable(errors.New("connection refused")))
}

func TestIsUniqueViolation_MessageFallback(t *testing.T) {
	err := errors.New("constraint failed: UNIQUE constraint failed: users.email (2067)")

	assert.True(t, IsUniqueViolation(err, "users.email"))
	assert.False(t, IsUniqueViolation(err, "users.student_id"))
	assert.False(t, IsUniqueViolation(nil, ""))
}
