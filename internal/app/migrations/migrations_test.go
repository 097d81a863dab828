package migrations

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/supersix/academy/internal/db"
)

func openSQLite(t *testing.T) *db.SQLiteDB {
	t.Helper()
	sqliteDB, err := db.OpenSQLite(filepath.Join(t.TempDir(), "migrations.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqliteDB.Close() })
	return sqliteDB
}

func TestExtractUpMigration(t *testing.T) {
	content := "-- +migrate Up\nCREATE TABLE a (id INTEGER);\n-- +migrate Down\nDROP TABLE a;\n"
	assert.Equal(t, "\nCREATE TABLE a (id INTEGER);\n", ExtractUpMigration(content))
	assert.Equal(t, "SELECT 1;", ExtractUpMigration("SELECT 1;"))
}

func TestMigrationVersion(t *testing.T) {
	assert.Equal(t, "001", MigrationVersion("001_init.sql"))
	assert.Equal(t, "002", MigrationVersion("postgres/002_users.sql"))
}

func TestEmbeddedFilesAreListed(t *testing.T) {
	pg, err := SQLFiles(PostgresFS())
	require.NoError(t, err)
	assert.Contains(t, pg, "001_init.sql")

	lite, err := SQLFiles(SQLiteFS())
	require.NoError(t, err)
	assert.Contains(t, lite, "001_init.sql")
}

func TestApplySQLite_EmbeddedSchemaIsIdempotent(t *testing.T) {
	sqliteDB := openSQLite(t)
	ctx := context.Background()

	require.NoError(t, ApplySQLite(ctx, sqliteDB.DB, SQLiteFS()))
	require.NoError(t, ApplySQLite(ctx, sqliteDB.DB, SQLiteFS()))

	var tables int
	require.NoError(t, sqliteDB.DB.QueryRow(
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('branch_counters', 'users')`,
	).Scan(&tables))
	assert.Equal(t, 2, tables)
}

func TestApplySQLite_SkipsRecordedFilesAndOrdersByName(t *testing.T) {
	sqliteDB := openSQLite(t)
	ctx := context.Background()

	fsys := fstest.MapFS{
		"002_seed.sql": {Data: []byte("INSERT INTO things (name) VALUES ('second');")},
		"001_init.sql": {Data: []byte("-- +migrate Up\nCREATE TABLE things (name TEXT);\n-- +migrate Down\nDROP TABLE things;")},
		"README.md":    {Data: []byte("ignored")},
	}
	require.NoError(t, ApplySQLite(ctx, sqliteDB.DB, fsys))
	require.NoError(t, ApplySQLite(ctx, sqliteDB.DB, fsys))

	var rows int
	require.NoError(t, sqliteDB.DB.QueryRow(`SELECT COUNT(*) FROM things`).Scan(&rows))
	assert.Equal(t, 1, rows)
}
