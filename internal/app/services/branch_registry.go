package services

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/supersix/academy/internal/app/models"
	"github.com/supersix/academy/internal/config"
	"github.com/supersix/academy/internal/pkg/apperrors"
)

// BranchRegistry is the closed set of branches and their ID format
type BranchRegistry struct {
	branches []models.Branch
	byKey    map[string]models.Branch
	byCode   map[string]models.Branch
	width    int
}

// NewBranchRegistry builds a registry from configuration. width is the
// minimum number of digits after the branch code.
func NewBranchRegistry(branches []config.BranchConfig, width int) (*BranchRegistry, error) {
	if width < 1 {
		return nil, fmt.Errorf("student ID width must be positive, got %d", width)
	}

	r := &BranchRegistry{
		byKey:  make(map[string]models.Branch, len(branches)),
		byCode: make(map[string]models.Branch, len(branches)),
		width:  width,
	}
	for _, bc := range branches {
		b := models.Branch{
			Key:  strings.ToLower(strings.TrimSpace(bc.Key)),
			Code: strings.ToUpper(strings.TrimSpace(bc.Code)),
			Name: strings.TrimSpace(bc.Name),
		}
		if b.Key == "" || b.Code == "" {
			return nil, fmt.Errorf("branch key and code are required")
		}
		if b.Name == "" {
			b.Name = strings.ToUpper(b.Key[:1]) + b.Key[1:]
		}
		if _, dup := r.byKey[b.Key]; dup {
			return nil, fmt.Errorf("branch %q declared twice", b.Key)
		}
		if _, dup := r.byCode[b.Code]; dup {
			return nil, fmt.Errorf("branch code %q declared twice", b.Code)
		}
		r.branches = append(r.branches, b)
		r.byKey[b.Key] = b
		r.byCode[b.Code] = b
	}
	if len(r.branches) == 0 {
		return nil, fmt.Errorf("at least one branch is required")
	}
	return r, nil
}

// Lookup resolves a client-supplied branch key, ignoring case and surrounding space
func (r *BranchRegistry) Lookup(key string) (models.Branch, error) {
	b, ok := r.byKey[strings.ToLower(strings.TrimSpace(key))]
	if !ok {
		return models.Branch{}, fmt.Errorf("%w: %q", apperrors.ErrInvalidBranch, key)
	}
	return b, nil
}

// All returns the branches in configuration order
func (r *BranchRegistry) All() []models.Branch {
	out := make([]models.Branch, len(r.branches))
	copy(out, r.branches)
	return out
}

// Format renders the student ID for the n-th enrolment at b, e.g. WR0001.
// Numbers wider than the configured width are written in full.
func (r *BranchRegistry) Format(b models.Branch, n int64) string {
	return fmt.Sprintf("%s%0*d", b.Code, r.width, n)
}

// Parse splits a student ID into its branch and sequence number
func (r *BranchRegistry) Parse(studentID string) (models.Branch, int64, error) {
	id := strings.ToUpper(strings.TrimSpace(studentID))
	split := strings.IndexFunc(id, func(c rune) bool { return c >= '0' && c <= '9' })
	if split <= 0 {
		return models.Branch{}, 0, fmt.Errorf("%w: %q", apperrors.ErrInvalidStudentID, studentID)
	}

	b, ok := r.byCode[id[:split]]
	if !ok {
		return models.Branch{}, 0, fmt.Errorf("%w: unknown branch code in %q", apperrors.ErrInvalidStudentID, studentID)
	}
	digits := id[split:]
	if len(digits) < r.width {
		return models.Branch{}, 0, fmt.Errorf("%w: %q", apperrors.ErrInvalidStudentID, studentID)
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || n < 1 {
		return models.Branch{}, 0, fmt.Errorf("%w: %q", apperrors.ErrInvalidStudentID, studentID)
	}
	return b, n, nil
}
