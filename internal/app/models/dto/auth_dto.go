package dto

import (
	"time"

	"github.com/supersix/academy/internal/app/models"
)

// LoginRequest represents login credentials
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AddressRequest is the optional postal address captured at signup
type AddressRequest struct {
	District string `json:"district" binding:"max=200"`
	Tehsil   string `json:"tehsil" binding:"max=200"`
	Village  string `json:"village" binding:"max=200"`
	Street   string `json:"street" binding:"max=200"`
}

// SignupRequest is a student's self-registration form
type SignupRequest struct {
	Name            string          `json:"name" binding:"required,max=100" example:"Asha Patil"`
	Email           string          `json:"email" binding:"required" example:"asha@example.com"`
	Phone           string          `json:"phone" binding:"required" example:"9876543210"`
	Password        string          `json:"password" binding:"required"`
	ConfirmPassword string          `json:"confirmPassword" binding:"required"`
	Branch          string          `json:"branch" binding:"required" example:"wardha"`
	Address         *AddressRequest `json:"address,omitempty"`
}

// TokenResponse represents JWT token information
type TokenResponse struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType" example:"Bearer"`
	ExpiresIn   int64  `json:"expiresIn"`
}

// SignupResponse is returned once the account exists
type SignupResponse struct {
	StudentID string        `json:"studentId" example:"WR0001"`
	User      UserProfile   `json:"user"`
	Token     TokenResponse `json:"token"`
}

// LoginResponse carries the token and the signed-in user
type LoginResponse struct {
	User  UserProfile   `json:"user"`
	Token TokenResponse `json:"token"`
}

// AddressResponse is a user's postal address
type AddressResponse struct {
	District string `json:"district,omitempty"`
	Tehsil   string `json:"tehsil,omitempty"`
	Village  string `json:"village,omitempty"`
	Street   string `json:"street,omitempty"`
}

// UserProfile is the public view of an account
type UserProfile struct {
	ID        string          `json:"id"`
	StudentID *string         `json:"studentId,omitempty" example:"WR0001"`
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	Phone     string          `json:"phone,omitempty"`
	Branch    string          `json:"branch,omitempty" example:"wardha"`
	Address   AddressResponse `json:"address"`
	RoleType  string          `json:"roleType" example:"STUDENT" enums:"STUDENT,ADMIN"`
	IsActive  bool            `json:"isActive"`
	CreatedAt time.Time       `json:"createdAt"`
}

// NewUserProfile converts a user model to its public view
func NewUserProfile(u *models.User) UserProfile {
	return UserProfile{
		ID:        u.ID,
		StudentID: u.StudentID,
		Name:      u.Name,
		Email:     u.Email,
		Phone:     u.Phone,
		Branch:    u.Branch,
		Address: AddressResponse{
			District: u.Address.District,
			Tehsil:   u.Address.Tehsil,
			Village:  u.Address.Village,
			Street:   u.Address.Street,
		},
		RoleType:  string(u.RoleType),
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}
