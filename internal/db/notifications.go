package db

import (
	"context"
	"fmt"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/angelajfisher/webex-mate/internal/log"
	"github.com/angelajfisher/webex-mate/internal/types"
)

// SaveNotification stores a posted notification and reports whether a row was written. Failures are
// logged, not returned: posting to the local timeline never fails from the caller's point of view. A
// repeated ID is ignored.
func (db DatabasePool) SaveNotification(n types.Notification) bool {
	if !db.Enabled {
		return false
	}
	logger := log.WithComponent("db")

	conn, err := db.pool.Take(context.TODO())
	if err != nil {
		logger.Error().Err(err).Msg("could not get new connection from database")
		return false
	}
	defer db.pool.Put(conn)

	err = sqlitex.Execute(conn, `
		INSERT OR IGNORE INTO notifications (
			id,
			channel_id,
			user_id,
			message,
			type,
			created_at
		) VALUES (
			?, ?, ?, ?, ?, ?
		);`,
		&sqlitex.ExecOptions{
			Args: []any{
				n.ID,
				n.ChannelID,
				n.UserID,
				n.Message,
				n.Type,
				n.CreatedAt.UnixMilli(),
			},
		})
	if err != nil {
		logger.Error().Err(err).Str("notification_id", n.ID).Msg("could not save notification to database")
		return false
	}
	if conn.Changes() == 0 {
		logger.Warn().Str("notification_id", n.ID).Msg("notification already stored, new copy not saved")
		return false
	}
	return true
}

// ChannelNotifications returns up to limit of the most recent notifications in a channel, oldest first.
func (db DatabasePool) ChannelNotifications(ctx context.Context, channelID string, limit int) ([]types.Notification, error) {
	if !db.Enabled {
		return nil, nil
	}

	conn, err := db.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not get new connection from database: %w", err)
	}
	defer db.pool.Put(conn)

	var found []types.Notification
	err = sqlitex.Execute(conn, `
		SELECT id, channel_id, user_id, message, type, created_at
		FROM (
			SELECT * FROM notifications
			WHERE channel_id = ?
			ORDER BY created_at DESC, id DESC
			LIMIT ?
		)
		ORDER BY created_at ASC, id ASC;`,
		&sqlitex.ExecOptions{
			Args: []any{channelID, limit},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				found = append(found, types.Notification{
					ID:        stmt.ColumnText(0),
					ChannelID: stmt.ColumnText(1),
					UserID:    stmt.ColumnText(2),
					Message:   stmt.ColumnText(3),
					Type:      stmt.ColumnText(4),
					CreatedAt: time.UnixMilli(stmt.ColumnInt64(5)),
				})
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("could not load notifications for channel %s: %w", channelID, err)
	}

	return found, nil
}
