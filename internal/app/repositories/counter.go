package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/supersix/academy/internal/app/models"
)

var (
	// ErrCounterConflict means the transaction lost a race for the counter
	// record and nothing was written. Replaying the transaction is safe.
	ErrCounterConflict = errors.New("branch counter modified concurrently")
	// ErrCounterNotRead is returned by Set when Get was not called first
	ErrCounterNotRead = errors.New("branch counter must be read before it is written")
	// ErrCounterRegression is returned by Set when the new count is not above the read one
	ErrCounterRegression = errors.New("branch counter can only move forward")
)

// CounterTx is the view of one branch counter inside a transaction
type CounterTx interface {
	// Get returns the current record. exists is false when the branch has
	// never issued an ID; the returned count is then zero.
	Get(ctx context.Context) (counter models.BranchCounter, exists bool, err error)
	// Set stages the new count. It is written only if the transaction commits.
	Set(count int64) error
}

// CounterTxFn is the body of a counter transaction. Returning an error
// discards any staged write.
type CounterTxFn func(ctx context.Context, tx CounterTx) error

// CounterStore persists one counter record per branch
type CounterStore interface {
	// RunCounterTransaction runs one attempt of an atomic read-modify-write on
	// the branch's record. A lost race is reported as ErrCounterConflict.
	RunCounterTransaction(ctx context.Context, branch string, fn CounterTxFn) error
	// GetCounter is a point read for display; it must not feed a write
	GetCounter(ctx context.Context, branch string) (models.BranchCounter, error)
	// ListCounters returns every persisted counter ordered by branch
	ListCounters(ctx context.Context) ([]models.BranchCounter, error)
}

// counterStage tracks the read and the staged write of a CounterTx. Each
// store embeds it and applies the stage on commit.
type counterStage struct {
	branch  string
	read    bool
	existed bool
	current int64
	next    int64
	dirty   bool
	logger  zerolog.Logger
}

func (s *counterStage) observe(counter models.BranchCounter, exists bool) {
	s.read = true
	s.existed = exists
	s.current = counter.Count
}

// conflict reports that the compare-and-swap write matched no row
func (s *counterStage) conflict() error {
	s.logger.Debug().
		Str("branch", s.branch).
		Int64("expected", s.current).
		Bool("existed", s.existed).
		Msg("Branch counter changed under transaction")
	return ErrCounterConflict
}

// Set stages count for the commit
func (s *counterStage) Set(count int64) error {
	if !s.read {
		return ErrCounterNotRead
	}
	if count <= s.current {
		return fmt.Errorf("%w: branch %q at %d, got %d", ErrCounterRegression, s.branch, s.current, count)
	}
	s.next = count
	s.dirty = true
	return nil
}
