package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/supersix/academy/internal/app/migrations"
	"github.com/supersix/academy/internal/app/models"
	"github.com/supersix/academy/internal/app/repositories"
	"github.com/supersix/academy/internal/db"
	"github.com/supersix/academy/internal/pkg/apperrors"
	"golang.org/x/sync/errgroup"
)

var errDiskGone = errors.New("disk gone")

// faultyStore injects failures in front of a real counter store
type faultyStore struct {
	repositories.CounterStore
	// conflicts is the number of attempts to reject before delegating
	conflicts atomic.Int32
	// failGet makes every read inside a transaction fail
	failGet bool
	// failAfterSet makes the transaction fail after the write is staged
	failAfterSet bool
	calls        atomic.Int32
}

type faultyTx struct {
	repositories.CounterTx
	store *faultyStore
}

func (s *faultyStore) RunCounterTransaction(ctx context.Context, branch string, fn repositories.CounterTxFn) error {
	s.calls.Add(1)
	if s.conflicts.Load() > 0 {
		s.conflicts.Add(-1)
		return repositories.ErrCounterConflict
	}
	return s.CounterStore.RunCounterTransaction(ctx, branch, func(ctx context.Context, tx repositories.CounterTx) error {
		if err := fn(ctx, &faultyTx{CounterTx: tx, store: s}); err != nil {
			return err
		}
		if s.failAfterSet {
			return errDiskGone
		}
		return nil
	})
}

func (tx *faultyTx) Get(ctx context.Context) (models.BranchCounter, bool, error) {
	if tx.store.failGet {
		return models.BranchCounter{}, false, errDiskGone
	}
	return tx.CounterTx.Get(ctx)
}

func newTestAllocator(t *testing.T, store repositories.CounterStore, maxAttempts int) *StudentIDAllocator {
	t.Helper()
	return NewStudentIDAllocator(store, newTestRegistry(t), RetryPolicy{MaxAttempts: maxAttempts}, zerolog.Nop())
}

func openSQLiteCounterStore(t *testing.T) repositories.CounterStore {
	t.Helper()
	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "academy.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	require.NoError(t, migrations.ApplySQLite(context.Background(), database.DB, migrations.SQLiteFS()))
	return repositories.NewSQLiteCounterStore(database, zerolog.Nop())
}

func counterStores() map[string]func(t *testing.T) repositories.CounterStore {
	return map[string]func(t *testing.T) repositories.CounterStore{
		"memory": func(*testing.T) repositories.CounterStore { return repositories.NewMemoryCounterStore() },
		"sqlite": openSQLiteCounterStore,
	}
}

func assertCount(t *testing.T, store repositories.CounterStore, branch string, want int64) {
	t.Helper()
	counter, err := store.GetCounter(context.Background(), branch)
	require.NoError(t, err)
	assert.Equal(t, want, counter.Count)
}

func TestAllocateStudentID_Sequential(t *testing.T) {
	for name, open := range counterStores() {
		t.Run(name, func(t *testing.T) {
			store := open(t)
			allocator := newTestAllocator(t, store, 3)
			ctx := context.Background()

			id, err := allocator.AllocateStudentID(ctx, "wardha")
			require.NoError(t, err)
			assert.Equal(t, "WR0001", id)

			id, err = allocator.AllocateStudentID(ctx, "Wardha")
			require.NoError(t, err)
			assert.Equal(t, "WR0002", id)

			id, err = allocator.AllocateStudentID(ctx, "akola")
			require.NoError(t, err)
			assert.Equal(t, "AK0001", id, "branches count independently")

			count, err := allocator.CurrentCount(ctx, "wardha")
			require.NoError(t, err)
			assert.Equal(t, int64(2), count)
		})
	}
}

func TestAllocateStudentID_ContinuesExistingCounter(t *testing.T) {
	store := repositories.NewMemoryCounterStore()
	ctx := context.Background()

	err := store.RunCounterTransaction(ctx, "nagpur", func(ctx context.Context, tx repositories.CounterTx) error {
		if _, _, err := tx.Get(ctx); err != nil {
			return err
		}
		return tx.Set(41)
	})
	require.NoError(t, err)

	id, err := newTestAllocator(t, store, 3).AllocateStudentID(ctx, "nagpur")
	require.NoError(t, err)
	assert.Equal(t, "NG0042", id)
	assertCount(t, store, "nagpur", 42)
}

func TestAllocateStudentID_Concurrent(t *testing.T) {
	for name, open := range counterStores() {
		t.Run(name, func(t *testing.T) {
			store := open(t)
			allocator := newTestAllocator(t, store, 5)
			const callers = 50

			var (
				mu  sync.Mutex
				ids []string
			)
			g, ctx := errgroup.WithContext(context.Background())
			for i := 0; i < callers; i++ {
				g.Go(func() error {
					id, err := allocator.AllocateStudentID(ctx, "wardha")
					if err != nil {
						return err
					}
					mu.Lock()
					ids = append(ids, id)
					mu.Unlock()
					return nil
				})
			}
			require.NoError(t, g.Wait())

			sort.Strings(ids)
			require.Len(t, ids, callers)
			for i, id := range ids {
				assert.Equal(t, fmt.Sprintf("WR%04d", i+1), id)
			}
			assertCount(t, store, "wardha", callers)
		})
	}
}

func TestAllocateStudentID_InvalidBranch(t *testing.T) {
	inner := repositories.NewMemoryCounterStore()
	store := &faultyStore{CounterStore: inner}
	allocator := newTestAllocator(t, store, 3)

	id, err := allocator.AllocateStudentID(context.Background(), "pune")
	assert.Empty(t, id)
	assert.ErrorIs(t, err, apperrors.ErrInvalidBranch)
	assert.Equal(t, apperrors.KindInvalidBranch, apperrors.AllocationKindOf(err))
	assert.Equal(t, int32(0), store.calls.Load(), "storage must not be touched")

	counters, err := inner.ListCounters(context.Background())
	require.NoError(t, err)
	assert.Empty(t, counters)
}

func TestAllocateStudentID_StorageFault(t *testing.T) {
	tests := []struct {
		name  string
		store func(inner repositories.CounterStore) *faultyStore
	}{
		{
			name: "read fails",
			store: func(inner repositories.CounterStore) *faultyStore {
				return &faultyStore{CounterStore: inner, failGet: true}
			},
		},
		{
			name: "commit fails",
			store: func(inner repositories.CounterStore) *faultyStore {
				return &faultyStore{CounterStore: inner, failAfterSet: true}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inner := repositories.NewMemoryCounterStore()
			store := tt.store(inner)
			allocator := newTestAllocator(t, store, 5)

			id, err := allocator.AllocateStudentID(context.Background(), "butibori")
			assert.Empty(t, id)
			assert.ErrorIs(t, err, apperrors.ErrStorageFault)
			assert.ErrorIs(t, err, errDiskGone)
			assert.Equal(t, int32(1), store.calls.Load(), "storage faults are not retried")
			assertCount(t, inner, "butibori", 0)

			// The next successful call still starts at one
			id, err = newTestAllocator(t, inner, 1).AllocateStudentID(context.Background(), "butibori")
			require.NoError(t, err)
			assert.Equal(t, "BR0001", id)
		})
	}
}

func TestAllocateStudentID_ConflictsExhausted(t *testing.T) {
	inner := repositories.NewMemoryCounterStore()
	store := &faultyStore{CounterStore: inner}
	store.conflicts.Store(100)
	allocator := newTestAllocator(t, store, 3)

	_, err := allocator.AllocateStudentID(context.Background(), "wardha")
	assert.ErrorIs(t, err, apperrors.ErrAllocationConflict)
	assert.ErrorIs(t, err, repositories.ErrCounterConflict)

	var allocErr *apperrors.AllocationError
	require.ErrorAs(t, err, &allocErr)
	assert.Equal(t, 3, allocErr.Attempts)
	assert.Equal(t, "wardha", allocErr.Branch)
	assert.Equal(t, int32(3), store.calls.Load())
	assertCount(t, inner, "wardha", 0)
}

func TestAllocateStudentID_ConflictThenSuccess(t *testing.T) {
	inner := repositories.NewMemoryCounterStore()
	store := &faultyStore{CounterStore: inner}
	store.conflicts.Store(2)
	allocator := newTestAllocator(t, store, 3)

	id, err := allocator.AllocateStudentID(context.Background(), "wardha")
	require.NoError(t, err)
	assert.Equal(t, "WR0001", id)
	assert.Equal(t, int32(3), store.calls.Load())
	assertCount(t, inner, "wardha", 1)
}

func TestAllocateStudentID_Cancelled(t *testing.T) {
	store := repositories.NewMemoryCounterStore()
	allocator := newTestAllocator(t, store, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := allocator.AllocateStudentID(ctx, "akola")
	assert.ErrorIs(t, err, apperrors.ErrStorageFault)
	assert.Equal(t, apperrors.KindStorageFault, apperrors.AllocationKindOf(err))
	assertCount(t, store, "akola", 0)
}

func TestCurrentCount_InvalidBranch(t *testing.T) {
	allocator := newTestAllocator(t, repositories.NewMemoryCounterStore(), 1)
	_, err := allocator.CurrentCount(context.Background(), "pune")
	assert.ErrorIs(t, err, apperrors.ErrInvalidBranch)
}
