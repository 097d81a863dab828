package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/supersix/academy/internal/app/models"
	"github.com/supersix/academy/internal/app/models/dto"
	"github.com/supersix/academy/internal/app/repositories"
	"github.com/supersix/academy/internal/pkg/apperrors"
	"github.com/supersix/academy/internal/pkg/auth"
	"github.com/supersix/academy/internal/pkg/validation"
)

// AuthService handles signup, login and profile lookups
type AuthService struct {
	userRepo   repositories.UserRepository
	allocator  *StudentIDAllocator
	jwtService *auth.JWTService
	logger     zerolog.Logger
	bcryptCost int
	now        func() time.Time
}

// NewAuthService creates a new AuthService
func NewAuthService(
	userRepo repositories.UserRepository,
	allocator *StudentIDAllocator,
	jwtService *auth.JWTService,
	logger zerolog.Logger,
) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		allocator:  allocator,
		jwtService: jwtService,
		logger:     logger.With().Str("component", "auth_service").Logger(),
		bcryptCost: auth.BcryptCost,
		now:        time.Now,
	}
}

// validateSignup checks the form in the order the fields appear on it
func (s *AuthService) validateSignup(req *dto.SignupRequest) error {
	if !validation.ValidName(req.Name) {
		return apperrors.NewValidationError("name", "Name is required")
	}
	if !validation.ValidPhone(req.Phone) {
		return apperrors.NewValidationError("phone", "Phone number must be 10 digits")
	}
	if !validation.ValidEmail(req.Email) {
		return apperrors.NewValidationError("email", "Please enter a valid email")
	}
	if !validation.ValidPassword(req.Password) {
		return apperrors.NewValidationError("password",
			fmt.Sprintf("Password must be at least %d characters", validation.PasswordMinLength))
	}
	if req.Password != req.ConfirmPassword {
		return apperrors.NewValidationError("confirmPassword", "Passwords do not match")
	}
	if strings.TrimSpace(req.Branch) == "" {
		return apperrors.NewValidationError("branch", "Please select a branch")
	}
	if req.Address != nil {
		parts := []struct{ field, value string }{
			{"address.district", req.Address.District},
			{"address.tehsil", req.Address.Tehsil},
			{"address.village", req.Address.Village},
			{"address.street", req.Address.Street},
		}
		for _, p := range parts {
			if len([]rune(p.value)) > validation.AddressMaxLength {
				return apperrors.NewValidationError(p.field, "Address is too long")
			}
		}
	}
	return nil
}

// Signup registers a student. The student ID is allocated only after the
// form is valid and the email is free, so rejected signups never consume a
// number. If the account cannot be stored after allocation, the orphaned ID
// is logged and the error returned.
func (s *AuthService) Signup(ctx context.Context, req *dto.SignupRequest) (*dto.SignupResponse, error) {
	if err := s.validateSignup(req); err != nil {
		return nil, err
	}

	branch, err := s.allocator.Branches().Lookup(req.Branch)
	if err != nil {
		return nil, apperrors.NewCustomError(err, "Please select a valid branch").
			WithDetails(map[string]interface{}{"field": "branch"})
	}

	email := repositories.NormalizeEmail(req.Email)
	exists, err := s.userRepo.EmailExists(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("error checking if email exists: %w", err)
	}
	if exists {
		return nil, apperrors.ErrEmailAlreadyExists
	}

	studentID, err := s.allocator.AllocateStudentID(ctx, branch.Key)
	if err != nil {
		return nil, err
	}

	hash, err := auth.HashPasswordWithCost(req.Password, s.bcryptCost)
	if err != nil {
		s.logOrphan(studentID, email, err)
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	now := s.now().UTC()
	user := &models.User{
		ID:           uuid.NewString(),
		StudentID:    &studentID,
		Email:        email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(req.Name),
		Phone:        strings.TrimSpace(req.Phone),
		Branch:       branch.Key,
		RoleType:     models.RoleStudent,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if req.Address != nil {
		user.Address = models.Address{
			District: strings.TrimSpace(req.Address.District),
			Tehsil:   strings.TrimSpace(req.Address.Tehsil),
			Village:  strings.TrimSpace(req.Address.Village),
			Street:   strings.TrimSpace(req.Address.Street),
		}
	}

	if err := s.userRepo.CreateUser(ctx, user); err != nil {
		s.logOrphan(studentID, email, err)
		if errors.Is(err, apperrors.ErrEmailAlreadyExists) || errors.Is(err, apperrors.ErrStudentIDAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("user creation error: %w", err)
	}

	s.logger.Info().
		Str("userId", user.ID).
		Str("studentId", studentID).
		Str("branch", branch.Key).
		Msg("Student registered")

	token, err := s.generateTokenResponse(user)
	if err != nil {
		return nil, err
	}
	return &dto.SignupResponse{
		StudentID: studentID,
		User:      dto.NewUserProfile(user),
		Token:     *token,
	}, nil
}

// logOrphan records a student ID that was issued but never attached to an account
func (s *AuthService) logOrphan(studentID, email string, err error) {
	s.logger.Error().Err(err).
		Str("studentId", studentID).
		Str("email", email).
		Msg("Student ID allocated but account creation failed; ID is orphaned")
}

// Login authenticates a user
func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	if req.Password == "" {
		return nil, apperrors.NewValidationError("password", "Password is required")
	}

	user, err := s.userRepo.GetUserByEmail(ctx, repositories.NormalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		return nil, apperrors.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, apperrors.ErrAccountDisabled
	}

	token, err := s.generateTokenResponse(user)
	if err != nil {
		return nil, err
	}
	return &dto.LoginResponse{User: dto.NewUserProfile(user), Token: *token}, nil
}

// GetProfile retrieves user profile
func (s *AuthService) GetProfile(ctx context.Context, userID string) (*dto.UserProfile, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, apperrors.ErrUserNotFound
	}

	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get user information: %w", err)
	}

	profile := dto.NewUserProfile(user)
	return &profile, nil
}

func (s *AuthService) generateTokenResponse(user *models.User) (*dto.TokenResponse, error) {
	accessToken, expiresIn, err := s.jwtService.GenerateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("token generation error: %w", err)
	}

	return &dto.TokenResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   expiresIn,
	}, nil
}
