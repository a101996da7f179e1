// Package timeline is the local message timeline: notifications posted here appear in a channel's
// view without a round trip to the messaging server.
package timeline

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/angelajfisher/webex-mate/internal/db"
	"github.com/angelajfisher/webex-mate/internal/types"
)

const defaultChannelLimit = 200

// Watcher is called synchronously for every posted notification.
type Watcher func(types.Notification)

type Timeline struct {
	posts        map[string][]types.Notification // map[channelID]posts, oldest first
	channelLimit int
	watchers     map[uint64]Watcher
	nextWatcher  uint64
	mu           sync.RWMutex

	database db.DatabasePool
	log      zerolog.Logger
}

// New returns a timeline that also writes through to the database when it is enabled.
func New(database db.DatabasePool, logger zerolog.Logger) *Timeline {
	return &Timeline{
		posts:        make(map[string][]types.Notification),
		channelLimit: defaultChannelLimit,
		watchers:     make(map[uint64]Watcher),
		database:     database,
		log:          logger,
	}
}

// Post inserts the notification into its channel. It never fails: persistence errors are logged.
func (t *Timeline) Post(n types.Notification) {
	if n.Type == "" {
		n.Type = types.NotificationTypeSystemEphemeral
	}

	t.mu.Lock()
	channelPosts := append(t.posts[n.ChannelID], n)
	if len(channelPosts) > t.channelLimit {
		channelPosts = channelPosts[len(channelPosts)-t.channelLimit:]
	}
	t.posts[n.ChannelID] = channelPosts
	watchers := t.sortedWatchers()
	t.mu.Unlock()

	t.database.SaveNotification(n)

	t.log.Debug().Str("channel_id", n.ChannelID).Str("notification_id", n.ID).Msg("posted local notification")

	for _, w := range watchers {
		w(n)
	}
}

// Channel returns the channel's notifications, oldest first. A channel with nothing in memory is
// loaded from the database, so notifications from an earlier run are still shown.
func (t *Timeline) Channel(ctx context.Context, channelID string) ([]types.Notification, error) {
	t.mu.RLock()
	inMemory := append([]types.Notification(nil), t.posts[channelID]...)
	t.mu.RUnlock()

	if len(inMemory) > 0 || !t.database.Enabled {
		return inMemory, nil
	}

	return t.database.ChannelNotifications(ctx, channelID, t.channelLimit)
}

// Watch registers a watcher and returns the function that removes it.
func (t *Timeline) Watch(w Watcher) (cancel func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.nextWatcher++
	id := t.nextWatcher
	t.watchers[id] = w

	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		delete(t.watchers, id)
	}
}

// must be called with t.mu held
func (t *Timeline) sortedWatchers() []Watcher {
	ids := make([]uint64, 0, len(t.watchers))
	for id := range t.watchers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	watchers := make([]Watcher, 0, len(ids))
	for _, id := range ids {
		watchers = append(watchers, t.watchers[id])
	}
	return watchers
}
