package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelajfisher/webex-mate/internal/types"
)

func openTestDB(t *testing.T) DatabasePool {
	t.Helper()

	pool, err := Open(filepath.Join(t.TempDir(), "nested", "webexmate.sqlite3"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Close() })
	return pool
}

func TestSaveAndLoadNotifications(t *testing.T) {
	pool := openTestDB(t)
	base := time.UnixMilli(1_700_000_000_000)

	for i, msg := range []string{"first", "second", "third"} {
		pool.SaveNotification(types.Notification{
			ID:        "webexPlugin" + msg,
			ChannelID: "C42",
			UserID:    "u1",
			Message:   msg,
			Type:      types.NotificationTypeSystemEphemeral,
			CreatedAt: base.Add(time.Duration(i) * time.Millisecond),
		})
	}
	pool.SaveNotification(types.Notification{ID: "other", ChannelID: "C7", Message: "elsewhere", CreatedAt: base})

	got, err := pool.ChannelNotifications(context.Background(), "C42", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "second", got[0].Message)
	assert.Equal(t, "third", got[1].Message)
	assert.Equal(t, base.Add(2*time.Millisecond), got[1].CreatedAt)
	assert.Equal(t, types.NotificationTypeSystemEphemeral, got[1].Type)
}

func TestSaveNotificationIgnoresDuplicateID(t *testing.T) {
	pool := openTestDB(t)
	n := types.Notification{ID: "webexPlugin1", ChannelID: "C42", Message: "once", CreatedAt: time.Now()}

	assert.True(t, pool.SaveNotification(n))
	n.Message = "twice"
	assert.False(t, pool.SaveNotification(n))

	got, err := pool.ChannelNotifications(context.Background(), "C42", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "once", got[0].Message)
}

func TestMigrationsAreRepeatable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.sqlite3")

	require.NoError(t, InitializeDatabase(path))
	require.NoError(t, MakeMigrations(path))
	require.NoError(t, MakeMigrations(path))
}

func TestDisabledPoolIsNoop(t *testing.T) {
	pool := DatabasePool{Enabled: false}

	pool.SaveNotification(types.Notification{ID: "x", ChannelID: "C1"})
	got, err := pool.ChannelNotifications(context.Background(), "C1", 10)

	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, pool.Close())
}
