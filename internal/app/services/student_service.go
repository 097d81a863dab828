package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/supersix/academy/internal/app/models"
	"github.com/supersix/academy/internal/app/models/dto"
	"github.com/supersix/academy/internal/app/repositories"
	"github.com/supersix/academy/internal/pkg/helpers"
)

// StudentService defines the interface for the admin roster
type StudentService interface {
	ListBranches() []dto.BranchResponse
	ListStudents(ctx context.Context, branch, search string, page, size int) (*dto.StudentListResponse, error)
	BranchSummaries(ctx context.Context) ([]dto.BranchSummary, error)
}

// studentServiceImpl implements StudentService
type studentServiceImpl struct {
	userRepo  repositories.UserRepository
	counters  repositories.CounterStore
	allocator *StudentIDAllocator
	logger    zerolog.Logger
}

// NewStudentService creates a new StudentService
func NewStudentService(
	userRepo repositories.UserRepository,
	counters repositories.CounterStore,
	allocator *StudentIDAllocator,
	logger zerolog.Logger,
) StudentService {
	return &studentServiceImpl{
		userRepo:  userRepo,
		counters:  counters,
		allocator: allocator,
		logger:    logger.With().Str("component", "student_service").Logger(),
	}
}

// ListBranches returns the branches offered at signup
func (s *studentServiceImpl) ListBranches() []dto.BranchResponse {
	branches := s.allocator.Branches().All()
	out := make([]dto.BranchResponse, 0, len(branches))
	for _, b := range branches {
		out = append(out, dto.NewBranchResponse(b))
	}
	return out
}

// ListStudents returns a page of students, optionally for one branch
func (s *studentServiceImpl) ListStudents(ctx context.Context, branch, search string, page, size int) (*dto.StudentListResponse, error) {
	filter := models.StudentFilter{Search: strings.TrimSpace(search)}
	if strings.TrimSpace(branch) != "" {
		b, err := s.allocator.Branches().Lookup(branch)
		if err != nil {
			return nil, err
		}
		filter.Branch = b.Key
	}
	filter.Offset, filter.Limit = helpers.CalculateOffsetLimit(page, size)

	users, total, err := s.userRepo.ListStudents(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}

	students := make([]dto.StudentResponse, 0, len(users))
	for _, u := range users {
		students = append(students, dto.NewStudentResponse(u))
	}

	s.logger.Debug().
		Str("branch", filter.Branch).
		Int("count", len(students)).
		Int64("total", total).
		Msg("Listed students")

	return &dto.StudentListResponse{
		Students:   students,
		Pagination: helpers.NewPaginationInfo(total, page, filter.Limit),
	}, nil
}

// BranchSummaries reports how many IDs every branch has issued. Branches
// that never issued one are listed with zero.
func (s *studentServiceImpl) BranchSummaries(ctx context.Context) ([]dto.BranchSummary, error) {
	counters, err := s.counters.ListCounters(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list branch counters: %w", err)
	}
	byBranch := make(map[string]models.BranchCounter, len(counters))
	for _, c := range counters {
		byBranch[c.Branch] = c
	}

	registry := s.allocator.Branches()
	branches := registry.All()
	out := make([]dto.BranchSummary, 0, len(branches))
	for _, b := range branches {
		summary := dto.BranchSummary{BranchResponse: dto.NewBranchResponse(b)}
		if c, ok := byBranch[b.Key]; ok && c.Count > 0 {
			updatedAt := c.UpdatedAt
			summary.Issued = c.Count
			summary.LastStudentID = registry.Format(b, c.Count)
			summary.UpdatedAt = &updatedAt
		}
		out = append(out, summary)
	}
	return out, nil
}
