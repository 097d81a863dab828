package repositories

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/supersix/academy/internal/app/models"
	"github.com/supersix/academy/internal/db"
	"golang.org/x/sync/errgroup"
)

// increment is one replayed read-modify-write, as the allocator does it
func increment(ctx context.Context, store CounterStore, branch string) (int64, error) {
	for {
		var next int64
		err := store.RunCounterTransaction(ctx, branch, func(ctx context.Context, tx CounterTx) error {
			counter, _, err := tx.Get(ctx)
			if err != nil {
				return err
			}
			next = counter.Count + 1
			return tx.Set(next)
		})
		if errors.Is(err, ErrCounterConflict) {
			continue
		}
		return next, err
	}
}

func TestCounterStores(t *testing.T) {
	for _, be := range backends() {
		t.Run(be.name, func(t *testing.T) {
			t.Run("absent record reads as zero", func(t *testing.T) {
				store := be.open(t).CounterStore
				ctx := context.Background()

				err := store.RunCounterTransaction(ctx, "wardha", func(ctx context.Context, tx CounterTx) error {
					counter, exists, err := tx.Get(ctx)
					require.NoError(t, err)
					assert.False(t, exists)
					assert.Equal(t, int64(0), counter.Count)
					return nil
				})
				require.NoError(t, err)

				counter, err := store.GetCounter(ctx, "wardha")
				require.NoError(t, err)
				assert.Equal(t, int64(0), counter.Count)

				counters, err := store.ListCounters(ctx)
				require.NoError(t, err)
				assert.Empty(t, counters, "a read-only transaction must not create the record")
			})

			t.Run("sequential increments", func(t *testing.T) {
				store := be.open(t).CounterStore
				ctx := context.Background()

				for want := int64(1); want <= 3; want++ {
					got, err := increment(ctx, store, "nagpur")
					require.NoError(t, err)
					assert.Equal(t, want, got)
				}

				counter, err := store.GetCounter(ctx, "nagpur")
				require.NoError(t, err)
				assert.Equal(t, int64(3), counter.Count)
				assert.False(t, counter.UpdatedAt.IsZero())
			})

			t.Run("set requires a prior read", func(t *testing.T) {
				store := be.open(t).CounterStore
				ctx := context.Background()

				err := store.RunCounterTransaction(ctx, "akola", func(ctx context.Context, tx CounterTx) error {
					return tx.Set(10)
				})
				assert.ErrorIs(t, err, ErrCounterNotRead)

				counter, err := store.GetCounter(ctx, "akola")
				require.NoError(t, err)
				assert.Equal(t, int64(0), counter.Count)
			})

			t.Run("set cannot move backwards", func(t *testing.T) {
				store := be.open(t).CounterStore
				ctx := context.Background()
				_, err := increment(ctx, store, "akola")
				require.NoError(t, err)

				err = store.RunCounterTransaction(ctx, "akola", func(ctx context.Context, tx CounterTx) error {
					if _, _, err := tx.Get(ctx); err != nil {
						return err
					}
					return tx.Set(1)
				})
				assert.ErrorIs(t, err, ErrCounterRegression)
			})

			t.Run("body error discards the staged write", func(t *testing.T) {
				store := be.open(t).CounterStore
				ctx := context.Background()
				_, err := increment(ctx, store, "butibori")
				require.NoError(t, err)

				boom := errors.New("boom")
				err = store.RunCounterTransaction(ctx, "butibori", func(ctx context.Context, tx CounterTx) error {
					counter, _, err := tx.Get(ctx)
					if err != nil {
						return err
					}
					if err := tx.Set(counter.Count + 1); err != nil {
						return err
					}
					return boom
				})
				assert.ErrorIs(t, err, boom)

				counter, err := store.GetCounter(ctx, "butibori")
				require.NoError(t, err)
				assert.Equal(t, int64(1), counter.Count)
			})

			t.Run("cancelled context writes nothing", func(t *testing.T) {
				store := be.open(t).CounterStore
				ctx, cancel := context.WithCancel(context.Background())
				cancel()

				_, err := increment(ctx, store, "wardha")
				assert.Error(t, err)

				counter, err := store.GetCounter(context.Background(), "wardha")
				require.NoError(t, err)
				assert.Equal(t, int64(0), counter.Count)
			})

			t.Run("concurrent increments are unique and gap free", func(t *testing.T) {
				store := be.open(t).CounterStore
				ctx := context.Background()
				const workers = 25

				var (
					mu  sync.Mutex
					got []int64
				)
				g, gctx := errgroup.WithContext(ctx)
				for i := 0; i < workers; i++ {
					g.Go(func() error {
						n, err := increment(gctx, store, "wardha")
						if err != nil {
							return err
						}
						mu.Lock()
						got = append(got, n)
						mu.Unlock()
						return nil
					})
				}
				require.NoError(t, g.Wait())

				sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
				for i, n := range got {
					assert.Equal(t, int64(i+1), n)
				}
				counter, err := store.GetCounter(ctx, "wardha")
				require.NoError(t, err)
				assert.Equal(t, int64(workers), counter.Count)
			})

			t.Run("branches are independent and listed in order", func(t *testing.T) {
				store := be.open(t).CounterStore
				ctx := context.Background()

				for i := 0; i < 3; i++ {
					_, err := increment(ctx, store, "wardha")
					require.NoError(t, err)
				}
				_, err := increment(ctx, store, "akola")
				require.NoError(t, err)

				counters, err := store.ListCounters(ctx)
				require.NoError(t, err)
				require.Len(t, counters, 2)
				assert.Equal(t, "akola", counters[0].Branch)
				assert.Equal(t, int64(1), counters[0].Count)
				assert.Equal(t, "wardha", counters[1].Branch)
				assert.Equal(t, int64(3), counters[1].Count)
			})
		})
	}
}

func TestCounterStage_Set(t *testing.T) {
	stage := counterStage{branch: "wardha"}
	assert.ErrorIs(t, stage.Set(1), ErrCounterNotRead)

	stage.observe(models.BranchCounter{Branch: "wardha", Count: 4}, true)
	assert.ErrorIs(t, stage.Set(4), ErrCounterRegression)
	require.NoError(t, stage.Set(5))
	assert.True(t, stage.dirty)
	assert.Equal(t, int64(5), stage.next)
}

func TestCounterStage_ConflictLogsToStoreLogger(t *testing.T) {
	var buf bytes.Buffer
	stage := counterStage{branch: "nagpur", logger: zerolog.New(&buf)}
	stage.observe(models.BranchCounter{Branch: "nagpur", Count: 41}, true)

	assert.ErrorIs(t, stage.conflict(), ErrCounterConflict)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "nagpur", entry["branch"])
	assert.Equal(t, float64(41), entry["expected"])
}

func TestSQLiteCounterStore_UsesInjectedLogger(t *testing.T) {
	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "academy.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	var buf bytes.Buffer
	store := NewSQLiteCounterStore(database, zerolog.New(&buf))
	store.logger.Info().Msg("ready")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "sqlite_counters", entry["store"])
}
