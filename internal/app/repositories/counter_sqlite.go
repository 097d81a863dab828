package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/rs/zerolog"
	"github.com/supersix/academy/internal/app/models"
	"github.com/supersix/academy/internal/db"
	"github.com/supersix/academy/internal/pkg/dberrors"
)

// SQLiteCounterStore keeps branch counters in SQLite. Transactions are
// opened IMMEDIATE so the write lock is held from the first read.
type SQLiteCounterStore struct {
	db     *db.SQLiteDB
	sb     squirrel.StatementBuilderType
	now    func() time.Time
	logger zerolog.Logger
}

// NewSQLiteCounterStore creates a new SQLiteCounterStore
func NewSQLiteCounterStore(database *db.SQLiteDB, logger zerolog.Logger) *SQLiteCounterStore {
	return &SQLiteCounterStore{
		db:     database,
		sb:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
		now:    time.Now,
		logger: logger.With().Str("store", "sqlite_counters").Logger(),
	}
}

type sqliteCounterTx struct {
	counterStage
	tx  *sql.Tx
	sb  squirrel.StatementBuilderType
	now time.Time
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// RunCounterTransaction runs fn in an IMMEDIATE transaction and writes the
// staged count with a compare-and-swap on the value fn read
func (s *SQLiteCounterStore) RunCounterTransaction(ctx context.Context, branch string, fn CounterTxFn) error {
	err := s.db.WithTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		ctr := &sqliteCounterTx{
			counterStage: counterStage{branch: branch, logger: s.logger},
			tx:           tx,
			sb:           s.sb,
			now:          s.now(),
		}
		if err := fn(ctx, ctr); err != nil {
			return err
		}
		return ctr.flush(ctx)
	})
	if err != nil && !errors.Is(err, ErrCounterConflict) && dberrors.IsRetryable(err) {
		return fmt.Errorf("%w: %v", ErrCounterConflict, err)
	}
	return err
}

func (c *sqliteCounterTx) Get(ctx context.Context) (models.BranchCounter, bool, error) {
	var (
		counter   models.BranchCounter
		updatedAt int64
	)
	err := c.sb.Select("branch", "count", "updated_at").
		From(branchCountersTable).
		Where(squirrel.Eq{"branch": c.branch}).
		RunWith(c.tx).
		QueryRowContext(ctx).
		Scan(&counter.Branch, &counter.Count, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		counter = models.BranchCounter{Branch: c.branch}
		c.observe(counter, false)
		return counter, false, nil
	}
	if err != nil {
		return models.BranchCounter{}, false, fmt.Errorf("error reading branch counter: %w", err)
	}

	counter.UpdatedAt = fromMillis(updatedAt)
	c.observe(counter, true)
	return counter, true, nil
}

func (c *sqliteCounterTx) flush(ctx context.Context) error {
	if !c.dirty {
		return nil
	}

	var (
		result sql.Result
		err    error
	)
	if c.existed {
		result, err = c.sb.Update(branchCountersTable).
			Set("count", c.next).
			Set("updated_at", toMillis(c.now)).
			Where(squirrel.Eq{"branch": c.branch, "count": c.current}).
			RunWith(c.tx).
			ExecContext(ctx)
	} else {
		result, err = c.sb.Insert(branchCountersTable).
			Columns("branch", "count", "updated_at").
			Values(c.branch, c.next, toMillis(c.now)).
			Suffix("ON CONFLICT (branch) DO NOTHING").
			RunWith(c.tx).
			ExecContext(ctx)
	}
	if err != nil {
		return fmt.Errorf("error writing branch counter: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading affected rows: %w", err)
	}
	if affected != 1 {
		return c.conflict()
	}
	return nil
}

// GetCounter returns the committed counter for branch, zero if absent
func (s *SQLiteCounterStore) GetCounter(ctx context.Context, branch string) (models.BranchCounter, error) {
	var (
		counter   models.BranchCounter
		updatedAt int64
	)
	err := s.sb.Select("branch", "count", "updated_at").
		From(branchCountersTable).
		Where(squirrel.Eq{"branch": branch}).
		RunWith(s.db.DB).
		QueryRowContext(ctx).
		Scan(&counter.Branch, &counter.Count, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.BranchCounter{Branch: branch}, nil
	}
	if err != nil {
		return models.BranchCounter{}, fmt.Errorf("error reading branch counter: %w", err)
	}
	counter.UpdatedAt = fromMillis(updatedAt)
	return counter, nil
}

// ListCounters returns all persisted counters ordered by branch
func (s *SQLiteCounterStore) ListCounters(ctx context.Context) ([]models.BranchCounter, error) {
	rows, err := s.sb.Select("branch", "count", "updated_at").
		From(branchCountersTable).
		OrderBy("branch").
		RunWith(s.db.DB).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing branch counters: %w", err)
	}
	defer rows.Close()

	var counters []models.BranchCounter
	for rows.Next() {
		var (
			c         models.BranchCounter
			updatedAt int64
		)
		if err := rows.Scan(&c.Branch, &c.Count, &updatedAt); err != nil {
			return nil, fmt.Errorf("error scanning branch counter: %w", err)
		}
		c.UpdatedAt = fromMillis(updatedAt)
		counters = append(counters, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating branch counters: %w", err)
	}
	return counters, nil
}

var _ CounterStore = (*SQLiteCounterStore)(nil)
