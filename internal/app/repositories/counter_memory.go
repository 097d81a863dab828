package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/supersix/academy/internal/app/models"
)

// MemoryCounterStore keeps counters in process. Each branch has its own
// lock, held for the whole transaction, so branches never contend.
type MemoryCounterStore struct {
	mu      sync.Mutex
	entries map[string]*memoryCounter
	now     func() time.Time
}

type memoryCounter struct {
	mu      sync.Mutex
	counter models.BranchCounter
	exists  bool
}

type memoryCounterTx struct {
	counterStage
	entry *memoryCounter
}

// NewMemoryCounterStore creates an empty in-memory counter store
func NewMemoryCounterStore() *MemoryCounterStore {
	return &MemoryCounterStore{
		entries: make(map[string]*memoryCounter),
		now:     time.Now,
	}
}

func (s *MemoryCounterStore) entry(branch string) *memoryCounter {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[branch]
	if !ok {
		e = &memoryCounter{counter: models.BranchCounter{Branch: branch}}
		s.entries[branch] = e
	}
	return e
}

// RunCounterTransaction runs fn while holding the branch lock
func (s *MemoryCounterStore) RunCounterTransaction(ctx context.Context, branch string, fn CounterTxFn) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e := s.entry(branch)
	e.mu.Lock()
	defer e.mu.Unlock()

	tx := &memoryCounterTx{counterStage: counterStage{branch: branch}, entry: e}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	// Cancellation before the write leaves the record untouched
	if err := ctx.Err(); err != nil {
		return err
	}

	if tx.dirty {
		e.counter.Count = tx.next
		e.counter.UpdatedAt = s.now().UTC()
		e.exists = true
	}
	return nil
}

func (tx *memoryCounterTx) Get(ctx context.Context) (models.BranchCounter, bool, error) {
	if err := ctx.Err(); err != nil {
		return models.BranchCounter{}, false, err
	}
	counter := tx.entry.counter
	tx.observe(counter, tx.entry.exists)
	return counter, tx.entry.exists, nil
}

// GetCounter returns the last committed count for branch
func (s *MemoryCounterStore) GetCounter(ctx context.Context, branch string) (models.BranchCounter, error) {
	if err := ctx.Err(); err != nil {
		return models.BranchCounter{}, err
	}

	s.mu.Lock()
	e, ok := s.entries[branch]
	s.mu.Unlock()
	if !ok {
		return models.BranchCounter{Branch: branch}, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.counter, nil
}

// ListCounters returns every counter that has issued at least one ID
func (s *MemoryCounterStore) ListCounters(ctx context.Context) ([]models.BranchCounter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	entries := make([]*memoryCounter, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	s.mu.Unlock()

	counters := make([]models.BranchCounter, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		if e.exists {
			counters = append(counters, e.counter)
		}
		e.mu.Unlock()
	}

	sort.Slice(counters, func(i, j int) bool { return counters[i].Branch < counters[j].Branch })
	return counters, nil
}

var _ CounterStore = (*MemoryCounterStore)(nil)
