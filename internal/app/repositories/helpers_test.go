package repositories

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/supersix/academy/internal/app/migrations"
	"github.com/supersix/academy/internal/db"
)

// backend builds a fresh, empty set of repositories for one test
type backend struct {
	name string
	open func(t *testing.T) *Repositories
}

func openSQLiteRepositories(t *testing.T) *Repositories {
	t.Helper()
	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "academy.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	require.NoError(t, migrations.ApplySQLite(context.Background(), database.DB, migrations.SQLiteFS()))
	return NewSQLiteRepositories(database, zerolog.Nop())
}

func openPostgresRepositories(t *testing.T) *Repositories {
	t.Helper()
	dsn := os.Getenv("ACADEMY_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("ACADEMY_TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	database, err := db.ConnectPostgres(ctx, dsn, 10, 0, "")
	require.NoError(t, err)
	t.Cleanup(database.Close)

	require.NoError(t, migrations.NewMigrator(database.Pool, zerolog.Nop()).MigrateFS(ctx, migrations.PostgresFS()))
	_, err = database.Pool.Exec(ctx, "TRUNCATE branch_counters, users")
	require.NoError(t, err)
	return NewPostgresRepositories(database, zerolog.Nop())
}

func backends() []backend {
	return []backend{
		{name: "memory", open: func(*testing.T) *Repositories { return NewMemoryRepositories() }},
		{name: "sqlite", open: openSQLiteRepositories},
		{name: "postgres", open: openPostgresRepositories},
	}
}
