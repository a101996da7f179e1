package db

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/angelajfisher/webex-mate/internal/log"
)

const poolSize = 4

// DatabasePool persists local notifications. A zero DatabasePool (Enabled false) turns every
// operation into a no-op so the timeline stays purely in memory.
type DatabasePool struct {
	Enabled bool
	pool    *sqlitex.Pool
}

// Checks for an existing SQLite database at the given path and creates one if it does not already exist
func InitializeDatabase(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("could not get info on file '%s': %w", path, err)
	}

	// create intermediate folders
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("could not create intermediate folders: %w", err)
	}

	// create the new database file
	conn, err := sqlite.OpenConn(path, sqlite.OpenReadWrite, sqlite.OpenCreate)
	if err != nil {
		return fmt.Errorf("could not create new database file: %w", err)
	}
	conn.Close()

	return nil
}

// NewDatabasePool opens a connection pool on an initialized and migrated database.
func NewDatabasePool(path string) (DatabasePool, error) {
	pool, err := sqlitex.NewPool(filepath.Clean(path), sqlitex.PoolOptions{
		Flags:    sqlite.OpenReadWrite | sqlite.OpenWAL,
		PoolSize: poolSize,
	})
	if err != nil {
		return DatabasePool{}, fmt.Errorf("could not open database pool: %w", err)
	}

	logger := log.WithComponent("db")
	logger.Info().Str("path", path).Msg("database ready")
	return DatabasePool{Enabled: true, pool: pool}, nil
}

// Open initializes, migrates and pools the database at path in one step.
func Open(path string) (DatabasePool, error) {
	cleaned := filepath.Clean(path)

	if err := InitializeDatabase(cleaned); err != nil {
		return DatabasePool{}, fmt.Errorf("could not create database: %w", err)
	}
	if err := MakeMigrations(cleaned); err != nil {
		return DatabasePool{}, fmt.Errorf("could not make database migrations: %w", err)
	}

	return NewDatabasePool(cleaned)
}

func (db DatabasePool) Close() error {
	if !db.Enabled || db.pool == nil {
		return nil
	}
	return db.pool.Close()
}
