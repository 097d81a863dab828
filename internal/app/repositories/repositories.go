package repositories

import (
	"github.com/rs/zerolog"
	"github.com/supersix/academy/internal/db"
)

// Repositories holds all the repository instances
type Repositories struct {
	CounterStore   CounterStore
	UserRepository UserRepository
}

// NewPostgresRepositories wires every repository to a PostgreSQL pool
func NewPostgresRepositories(database *db.PostgresDB, logger zerolog.Logger) *Repositories {
	return &Repositories{
		CounterStore:   NewPostgresCounterStore(database, logger),
		UserRepository: NewPostgresUserRepository(database, logger),
	}
}

// NewSQLiteRepositories wires every repository to a SQLite handle
func NewSQLiteRepositories(database *db.SQLiteDB, logger zerolog.Logger) *Repositories {
	return &Repositories{
		CounterStore:   NewSQLiteCounterStore(database, logger),
		UserRepository: NewSQLiteUserRepository(database, logger),
	}
}

// NewMemoryRepositories returns process-local repositories
func NewMemoryRepositories() *Repositories {
	return &Repositories{
		CounterStore:   NewMemoryCounterStore(),
		UserRepository: NewMemoryUserRepository(),
	}
}
