package repositories

import (
	"context"
	"sync"

	"github.com/supersix/academy/internal/app/models"
	"github.com/supersix/academy/internal/pkg/apperrors"
)

// MemoryUserRepository is the in-process user store used by the memory driver and tests
type MemoryUserRepository struct {
	mu        sync.RWMutex
	order     []string
	byID      map[string]*models.User
	byEmail   map[string]string
	byStudent map[string]string
}

// NewMemoryUserRepository creates an empty MemoryUserRepository
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		byID:      make(map[string]*models.User),
		byEmail:   make(map[string]string),
		byStudent: make(map[string]string),
	}
}

func cloneUser(u *models.User) *models.User {
	c := *u
	if u.StudentID != nil {
		id := *u.StudentID
		c.StudentID = &id
	}
	return &c
}

// CreateUser stores a copy of u
func (r *MemoryUserRepository) CreateUser(ctx context.Context, u *models.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	email := NormalizeEmail(u.Email)
	if _, ok := r.byEmail[email]; ok {
		return apperrors.ErrEmailAlreadyExists
	}
	if u.StudentID != nil {
		if _, ok := r.byStudent[*u.StudentID]; ok {
			return apperrors.ErrStudentIDAlreadyExists
		}
	}

	stored := cloneUser(u)
	stored.Email = email
	r.byID[stored.ID] = stored
	r.byEmail[email] = stored.ID
	if stored.StudentID != nil {
		r.byStudent[*stored.StudentID] = stored.ID
	}
	r.order = append(r.order, stored.ID)
	return nil
}

// GetUserByID retrieves a user by ID
func (r *MemoryUserRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	return cloneUser(u), nil
}

// GetUserByEmail retrieves a user by email
func (r *MemoryUserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	id, ok := r.byEmail[NormalizeEmail(email)]
	r.mu.RUnlock()
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	return r.GetUserByID(ctx, id)
}

// EmailExists checks if an email already exists
func (r *MemoryUserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byEmail[NormalizeEmail(email)]
	return ok, nil
}

// ListStudents returns a page of students in insertion order
func (r *MemoryUserRepository) ListStudents(ctx context.Context, filter models.StudentFilter) ([]*models.User, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*models.User
	for _, id := range r.order {
		if u := r.byID[id]; matchesStudent(u, filter) {
			matched = append(matched, u)
		}
	}

	total := int64(len(matched))
	start := int(filter.Offset)
	if start > len(matched) {
		start = len(matched)
	}
	end := len(matched)
	if filter.Limit > 0 && start+filter.Limit < end {
		end = start + filter.Limit
	}

	page := make([]*models.User, 0, end-start)
	for _, u := range matched[start:end] {
		page = append(page, cloneUser(u))
	}
	return page, total, nil
}

var _ UserRepository = (*MemoryUserRepository)(nil)
