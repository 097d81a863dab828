package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/supersix/academy/internal/app/models"
	"github.com/supersix/academy/internal/db"
	"github.com/supersix/academy/internal/pkg/dberrors"
)

const branchCountersTable = "branch_counters"

// PostgresCounterStore keeps branch counters in PostgreSQL. Existing rows are
// locked with SELECT ... FOR UPDATE; first writes race on the primary key.
type PostgresCounterStore struct {
	db     *db.PostgresDB
	sb     squirrel.StatementBuilderType
	logger zerolog.Logger
}

// NewPostgresCounterStore creates a new PostgresCounterStore
func NewPostgresCounterStore(database *db.PostgresDB, logger zerolog.Logger) *PostgresCounterStore {
	return &PostgresCounterStore{
		db:     database,
		sb:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		logger: logger.With().Str("store", "postgres_counters").Logger(),
	}
}

type postgresCounterTx struct {
	counterStage
	tx pgx.Tx
	sb squirrel.StatementBuilderType
}

// RunCounterTransaction runs fn in a transaction and writes the staged count
// with a compare-and-swap on the value fn read
func (s *PostgresCounterStore) RunCounterTransaction(ctx context.Context, branch string, fn CounterTxFn) error {
	err := s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		ctr := &postgresCounterTx{counterStage: counterStage{branch: branch, logger: s.logger}, tx: tx, sb: s.sb}
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

func (c *postgresCounterTx) Get(ctx context.Context) (models.BranchCounter, bool, error) {
	query, args, err := c.sb.Select("branch", "count", "updated_at").
		From(branchCountersTable).
		Where(squirrel.Eq{"branch": c.branch}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return models.BranchCounter{}, false, fmt.Errorf("failed to build counter select query: %w", err)
	}

	var counter models.BranchCounter
	err = c.tx.QueryRow(ctx, query, args...).Scan(&counter.Branch, &counter.Count, &counter.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		counter = models.BranchCounter{Branch: c.branch}
		c.observe(counter, false)
		return counter, false, nil
	}
	if err != nil {
		return models.BranchCounter{}, false, fmt.Errorf("error reading branch counter: %w", err)
	}

	c.observe(counter, true)
	return counter, true, nil
}

func (c *postgresCounterTx) flush(ctx context.Context) error {
	if !c.dirty {
		return nil
	}

	var (
		query string
		args  []interface{}
		err   error
	)
	if c.existed {
		query, args, err = c.sb.Update(branchCountersTable).
			Set("count", c.next).
			Set("updated_at", squirrel.Expr("NOW()")).
			Where(squirrel.Eq{"branch": c.branch, "count": c.current}).
			ToSql()
	} else {
		query, args, err = c.sb.Insert(branchCountersTable).
			Columns("branch", "count", "updated_at").
			Values(c.branch, c.next, squirrel.Expr("NOW()")).
			Suffix("ON CONFLICT (branch) DO NOTHING").
			ToSql()
	}
	if err != nil {
		return fmt.Errorf("failed to build counter write query: %w", err)
	}

	tag, err := c.tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("error writing branch counter: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return c.conflict()
	}
	return nil
}

// GetCounter returns the committed counter for branch, zero if absent
func (s *PostgresCounterStore) GetCounter(ctx context.Context, branch string) (models.BranchCounter, error) {
	query, args, err := s.sb.Select("branch", "count", "updated_at").
		From(branchCountersTable).
		Where(squirrel.Eq{"branch": branch}).
		ToSql()
	if err != nil {
		return models.BranchCounter{}, fmt.Errorf("failed to build counter select query: %w", err)
	}

	var counter models.BranchCounter
	err = s.db.Pool.QueryRow(ctx, query, args...).Scan(&counter.Branch, &counter.Count, &counter.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.BranchCounter{Branch: branch}, nil
	}
	if err != nil {
		return models.BranchCounter{}, fmt.Errorf("error reading branch counter: %w", err)
	}
	return counter, nil
}

// ListCounters returns all persisted counters ordered by branch
func (s *PostgresCounterStore) ListCounters(ctx context.Context) ([]models.BranchCounter, error) {
	query, args, err := s.sb.Select("branch", "count", "updated_at").
		From(branchCountersTable).
		OrderBy("branch").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build counter list query: %w", err)
	}

	rows, err := s.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing branch counters: %w", err)
	}

	counters, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.BranchCounter, error) {
		var c models.BranchCounter
		err := row.Scan(&c.Branch, &c.Count, &c.UpdatedAt)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("error scanning branch counters: %w", err)
	}
	return counters, nil
}

var _ CounterStore = (*PostgresCounterStore)(nil)
