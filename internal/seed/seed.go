package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	appModels "github.com/supersix/academy/internal/app/models"
	appRepos "github.com/supersix/academy/internal/app/repositories"
	"github.com/supersix/academy/internal/pkg/apperrors"
	"github.com/supersix/academy/internal/pkg/auth"
)

// AdminAccount is the administrator created on first boot
type AdminAccount struct {
	Email    string
	Password string
	Name     string
}

// EnsureAdmin creates the administrator if it does not exist yet. Admins
// carry no student ID and never touch a branch counter. Without a password
// nothing is created.
func EnsureAdmin(ctx context.Context, userRepo appRepos.UserRepository, admin AdminAccount, lgr zerolog.Logger) error {
	if admin.Password == "" {
		lgr.Info().Msg("No admin password configured, skipping admin seed")
		return nil
	}

	email := appRepos.NormalizeEmail(admin.Email)
	exists, err := userRepo.EmailExists(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to check admin account: %w", err)
	}
	if exists {
		lgr.Debug().Str("email", email).Msg("Admin account already exists")
		return nil
	}

	hash, err := auth.HashPassword(admin.Password)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	now := time.Now().UTC()
	user := &appModels.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Name:         admin.Name,
		RoleType:     appModels.RoleAdmin,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := userRepo.CreateUser(ctx, user); err != nil {
		// Another instance seeded it first
		if errors.Is(err, apperrors.ErrEmailAlreadyExists) {
			return nil
		}
		return fmt.Errorf("failed to create admin account: %w", err)
	}

	lgr.Info().Str("email", email).Msg("Admin account created")
	return nil
}
