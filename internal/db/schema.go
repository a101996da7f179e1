package db

import (
	"context"
	"fmt"
	"path/filepath"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitemigration"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/angelajfisher/webex-mate/internal/log"
)

// Updates database schema as needed
func MakeMigrations(path string) error {
	schema := []string{`
		CREATE TABLE IF NOT EXISTS notifications (
			id TEXT PRIMARY KEY,
			channel_id TEXT NOT NULL,
			user_id TEXT NOT NULL DEFAULT '',
			message TEXT NOT NULL,
			type TEXT NOT NULL DEFAULT 'system_ephemeral',
			created_at INTEGER NOT NULL
		);
	`, `
		CREATE INDEX IF NOT EXISTS notifications_channel
			ON notifications (channel_id, created_at);
	`}

	logger := log.WithComponent("db")

	pool := sqlitemigration.NewPool(
		filepath.Clean(path),
		sqlitemigration.Schema{Migrations: schema},
		sqlitemigration.Options{
			Flags: sqlite.OpenReadWrite | sqlite.OpenCreate,
			PrepareConn: func(conn *sqlite.Conn) error {
				// Enable foreign keys
				return sqlitex.ExecuteTransient(conn, "PRAGMA foreign_keys = ON;", nil)
			},
			OnError: func(e error) {
				logger.Error().Err(e).Msg("could not make database migrations")
			},
		})
	defer pool.Close()

	// Migrations are blocking, so use a new connection as an indicator for their completion before closing the pool
	conn, err := pool.Get(context.TODO())
	if err != nil {
		return fmt.Errorf("could not open connection to database: %w", err)
	}
	pool.Put(conn)

	return nil
}
