package models

import (
	"time"
)

// Address is the postal address captured at signup
type Address struct {
	District string `json:"district" db:"district" example:"Wardha"`
	Tehsil   string `json:"tehsil" db:"tehsil" example:"Hinganghat"`
	Village  string `json:"village" db:"village" example:"Pohana"`
	Street   string `json:"street" db:"street" example:"Main road"`
}

// User defines the user model based on the 'users' table
type User struct {
	ID           string    `json:"id" db:"id" example:"5f0c1c8e-7b2a-4a43-9a55-0f6f0f5e2d11"`
	StudentID    *string   `json:"studentId,omitempty" db:"student_id" example:"WR0001"` // nil for admins
	Email        string    `json:"email" db:"email" example:"student@example.com"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Name         string    `json:"name" db:"name" example:"Asha Patil"`
	Phone        string    `json:"phone" db:"phone" example:"9876543210"`
	Branch       string    `json:"branch,omitempty" db:"branch" example:"wardha"`
	Address      Address   `json:"address"`
	RoleType     RoleType  `json:"roleType" db:"role_type" example:"STUDENT"`
	IsActive     bool      `json:"isActive" db:"is_active" example:"true"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// IsStudent reports whether the account was created through signup
func (u *User) IsStudent() bool {
	return u.RoleType == RoleStudent
}

// StudentFilter narrows a roster listing
type StudentFilter struct {
	Branch string
	// Search matches name, email or student ID, case-insensitively
	Search string
	Offset uint64
	Limit  int
}
