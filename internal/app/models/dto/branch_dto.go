package dto

import (
	"time"

	"github.com/supersix/academy/internal/app/models"
)

// BranchResponse describes a branch students can enrol at
type BranchResponse struct {
	Key  string `json:"key" example:"wardha"`
	Code string `json:"code" example:"WR"`
	Name string `json:"name" example:"Wardha"`
}

// BranchSummary reports how many IDs a branch has issued
type BranchSummary struct {
	BranchResponse
	Issued        int64      `json:"issued" example:"42"`
	LastStudentID string     `json:"lastStudentId,omitempty" example:"WR0042"`
	UpdatedAt     *time.Time `json:"updatedAt,omitempty"`
}

// NewBranchResponse converts a branch model
func NewBranchResponse(b models.Branch) BranchResponse {
	return BranchResponse{Key: b.Key, Code: b.Code, Name: b.Name}
}
