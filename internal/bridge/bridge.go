// Package bridge reacts to the plugin's "account connected" push event by refreshing the session and
// telling the user they can start a meeting.
package bridge

import (
	"context"
	"math"

	"github.com/rs/zerolog"

	"github.com/angelajfisher/webex-mate/internal/metrics"
	"github.com/angelajfisher/webex-mate/internal/push"
	"github.com/angelajfisher/webex-mate/internal/state"
	"github.com/angelajfisher/webex-mate/internal/types"
)

type StatusQuerier interface {
	QueryStatus(ctx context.Context) (types.SessionState, error)
}

type ReadyNotifier interface {
	NotifyMeetingReady(channelID string, userID string)
}

type Config struct {
	EventName string // full push event name, e.g. custom_webex_oauth_success
	Session   StatusQuerier
	Notifier  ReadyNotifier
	State     *state.Store
	Logger    zerolog.Logger
}

type Bridge struct {
	eventName string
	session   StatusQuerier
	notifier  ReadyNotifier
	state     *state.Store
	log       zerolog.Logger
}

func New(cfg Config) *Bridge {
	return &Bridge{
		eventName: cfg.EventName,
		session:   cfg.Session,
		notifier:  cfg.Notifier,
		state:     cfg.State,
		log:       cfg.Logger,
	}
}

func (b *Bridge) EventName() string {
	return b.eventName
}

// HandleEvent refreshes the session and posts the ready notification when the event reports success.
// Events without data, or with a falsy success flag, are ignored. Both effects run on every delivery,
// duplicates included. A failed refresh does not stop the notification; its error is returned after.
func (b *Bridge) HandleEvent(ctx context.Context, ev push.Event) error {
	if ev.Data == nil || !truthy(ev.Data["success"]) {
		metrics.PushEventsTotal.WithLabelValues(ev.Name, "ignored").Inc()
		b.log.Debug().Str("event", ev.Name).Int64("seq", ev.Seq).Msg("ignoring push event without success")
		return nil
	}
	metrics.PushEventsTotal.WithLabelValues(ev.Name, "refresh").Inc()

	_, err := b.session.QueryStatus(ctx)
	if err != nil {
		b.log.Error().Err(err).Msg("could not refresh session after account connected")
	}

	st := b.state.Snapshot()
	b.notifier.NotifyMeetingReady(st.CurrentChannelID, st.CurrentUserID)
	b.log.Info().Str("channel_id", st.CurrentChannelID).Msg("account connected, meeting ready")

	return err
}

// Attach subscribes the bridge to its event on the hub. Handler errors are logged; ctx bounds the
// session refresh each delivery triggers.
func (b *Bridge) Attach(ctx context.Context, hub *push.Hub) *push.Subscription {
	return hub.Subscribe(b.eventName, func(ev push.Event) {
		if err := b.HandleEvent(ctx, ev); err != nil {
			b.log.Warn().Err(err).Str("event", ev.Name).Msg("push event handled with errors")
		}
	})
}

// truthy follows the loose truthiness the plugin's payloads assume: false, 0, NaN, "" and null are
// false, everything else is true.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case float64:
		return x != 0 && !math.IsNaN(x)
	case int:
		return x != 0
	case int64:
		return x != 0
	case string:
		return x != ""
	default:
		return true
	}
}
