package dto

import (
	"time"

	"github.com/supersix/academy/internal/app/models"
)

// StudentResponse is one row of the admin roster
type StudentResponse struct {
	ID        string          `json:"id"`
	StudentID string          `json:"studentId" example:"WR0001"`
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	Phone     string          `json:"phone"`
	Branch    string          `json:"branch" example:"wardha"`
	Address   AddressResponse `json:"address"`
	IsActive  bool            `json:"isActive"`
	CreatedAt time.Time       `json:"createdAt"`
}

// StudentListResponse is a page of the roster
type StudentListResponse struct {
	Students   []StudentResponse `json:"students"`
	Pagination PaginationInfo    `json:"pagination"`
}

// NewStudentResponse converts a student user to a roster row
func NewStudentResponse(u *models.User) StudentResponse {
	resp := StudentResponse{
		ID:     u.ID,
		Name:   u.Name,
		Email:  u.Email,
		Phone:  u.Phone,
		Branch: u.Branch,
		Address: AddressResponse{
			District: u.Address.District,
			Tehsil:   u.Address.Tehsil,
			Village:  u.Address.Village,
			Street:   u.Address.Street,
		},
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
	if u.StudentID != nil {
		resp.StudentID = *u.StudentID
	}
	return resp
}
