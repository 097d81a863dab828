package repositories

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/supersix/academy/internal/app/models"
	"github.com/supersix/academy/internal/pkg/apperrors"
)

func newStudent(name, email, branch, studentID string, createdAt time.Time) *models.User {
	id := studentID
	return &models.User{
		ID:           uuid.NewString(),
		StudentID:    &id,
		Email:        email,
		PasswordHash: "hash",
		Name:         name,
		Phone:        "9876543210",
		Branch:       branch,
		Address:      models.Address{District: "Wardha", Tehsil: "Hinganghat", Village: "Pohana", Street: "Main road"},
		RoleType:     models.RoleStudent,
		IsActive:     true,
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}
}

func TestUserRepositories(t *testing.T) {
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	for _, be := range backends() {
		t.Run(be.name, func(t *testing.T) {
			t.Run("create and fetch", func(t *testing.T) {
				repo := be.open(t).UserRepository
				ctx := context.Background()

				u := newStudent("Asha Patil", "Asha@Example.com ", "wardha", "WR0001", base)
				require.NoError(t, repo.CreateUser(ctx, u))

				byEmail, err := repo.GetUserByEmail(ctx, "asha@example.com")
				require.NoError(t, err)
				assert.Equal(t, u.ID, byEmail.ID)
				require.NotNil(t, byEmail.StudentID)
				assert.Equal(t, "WR0001", *byEmail.StudentID)
				assert.Equal(t, "asha@example.com", byEmail.Email)
				assert.Equal(t, models.RoleStudent, byEmail.RoleType)
				assert.Equal(t, "Pohana", byEmail.Address.Village)
				assert.True(t, byEmail.IsActive)
				assert.True(t, base.Equal(byEmail.CreatedAt))

				byID, err := repo.GetUserByID(ctx, u.ID)
				require.NoError(t, err)
				assert.Equal(t, byEmail.Email, byID.Email)

				exists, err := repo.EmailExists(ctx, "ASHA@example.com")
				require.NoError(t, err)
				assert.True(t, exists)
			})

			t.Run("missing user", func(t *testing.T) {
				repo := be.open(t).UserRepository
				ctx := context.Background()

				_, err := repo.GetUserByID(ctx, uuid.NewString())
				assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
				_, err = repo.GetUserByEmail(ctx, "nobody@example.com")
				assert.ErrorIs(t, err, apperrors.ErrUserNotFound)

				exists, err := repo.EmailExists(ctx, "nobody@example.com")
				require.NoError(t, err)
				assert.False(t, exists)
			})

			t.Run("duplicates are rejected", func(t *testing.T) {
				repo := be.open(t).UserRepository
				ctx := context.Background()

				require.NoError(t, repo.CreateUser(ctx, newStudent("A", "a@example.com", "wardha", "WR0001", base)))

				err := repo.CreateUser(ctx, newStudent("B", "A@example.com", "wardha", "WR0002", base))
				assert.ErrorIs(t, err, apperrors.ErrEmailAlreadyExists)

				err = repo.CreateUser(ctx, newStudent("C", "c@example.com", "wardha", "WR0001", base))
				assert.ErrorIs(t, err, apperrors.ErrStudentIDAlreadyExists)
			})

			t.Run("admins have no student ID", func(t *testing.T) {
				repo := be.open(t).UserRepository
				ctx := context.Background()

				admin := &models.User{
					ID: uuid.NewString(), Email: "admin@example.com", PasswordHash: "hash", Name: "Admin",
					RoleType: models.RoleAdmin, IsActive: true, CreatedAt: base, UpdatedAt: base,
				}
				require.NoError(t, repo.CreateUser(ctx, admin))

				got, err := repo.GetUserByEmail(ctx, "admin@example.com")
				require.NoError(t, err)
				assert.Nil(t, got.StudentID)
				assert.Equal(t, models.RoleAdmin, got.RoleType)

				students, total, err := repo.ListStudents(ctx, models.StudentFilter{Limit: 10})
				require.NoError(t, err)
				assert.Empty(t, students)
				assert.Equal(t, int64(0), total)
			})

			t.Run("list students filters and paginates", func(t *testing.T) {
				repo := be.open(t).UserRepository
				ctx := context.Background()

				for i := 1; i <= 5; i++ {
					u := newStudent(fmt.Sprintf("Wardha Student %d", i), fmt.Sprintf("w%d@example.com", i),
						"wardha", fmt.Sprintf("WR%04d", i), base.Add(time.Duration(i)*time.Minute))
					require.NoError(t, repo.CreateUser(ctx, u))
				}
				require.NoError(t, repo.CreateUser(ctx, newStudent("Nagpur Kid", "n1@example.com", "nagpur", "NG0001", base)))

				page, total, err := repo.ListStudents(ctx, models.StudentFilter{Branch: "wardha", Offset: 2, Limit: 2})
				require.NoError(t, err)
				assert.Equal(t, int64(5), total)
				require.Len(t, page, 2)
				assert.Equal(t, "WR0003", *page[0].StudentID)
				assert.Equal(t, "WR0004", *page[1].StudentID)

				found, total, err := repo.ListStudents(ctx, models.StudentFilter{Search: "ng0001", Limit: 10})
				require.NoError(t, err)
				assert.Equal(t, int64(1), total)
				require.Len(t, found, 1)
				assert.Equal(t, "Nagpur Kid", found[0].Name)

				all, total, err := repo.ListStudents(ctx, models.StudentFilter{Limit: 100})
				require.NoError(t, err)
				assert.Equal(t, int64(6), total)
				assert.Len(t, all, 6)
			})

			t.Run("search wildcards match literally", func(t *testing.T) {
				repo := be.open(t).UserRepository
				ctx := context.Background()

				require.NoError(t, repo.CreateUser(ctx, newStudent("Ravi Kale", "ravi_kale@example.com", "wardha", "WR0001", base)))
				require.NoError(t, repo.CreateUser(ctx, newStudent("Meena Rao", "meena@example.com", "wardha", "WR0002", base.Add(time.Minute))))
				require.NoError(t, repo.CreateUser(ctx, newStudent("Sunil 100% Joshi", `sunil\j@example.com`, "nagpur", "NG0001", base.Add(2*time.Minute))))

				tests := []struct {
					search string
					want   []string
				}{
					{search: "_", want: []string{"WR0001"}},
					{search: "%", want: []string{"NG0001"}},
					{search: `\`, want: []string{"NG0001"}},
					{search: "r%o", want: nil},
					{search: "a_k", want: nil},
					{search: "i_k", want: []string{"WR0001"}},
				}
				for _, tt := range tests {
					found, total, err := repo.ListStudents(ctx, models.StudentFilter{Search: tt.search, Limit: 10})
					require.NoError(t, err, tt.search)
					var ids []string
					for _, u := range found {
						ids = append(ids, *u.StudentID)
					}
					assert.Equal(t, tt.want, ids, tt.search)
					assert.Equal(t, int64(len(tt.want)), total, tt.search)
				}
			})
		})
	}
}
