// Package coordinator runs start meeting requests and turns their outcomes into state changes and
// channel notifications.
package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/angelajfisher/webex-mate/internal/client"
	"github.com/angelajfisher/webex-mate/internal/metrics"
	"github.com/angelajfisher/webex-mate/internal/provider"
	"github.com/angelajfisher/webex-mate/internal/state"
	"github.com/angelajfisher/webex-mate/internal/types"
)

// MeetingClient sends the start meeting request.
type MeetingClient interface {
	StartMeeting(ctx context.Context, req client.StartMeetingRequest) (*client.StartMeetingResponse, error)
}

// Poster inserts a notification into the local timeline.
type Poster interface {
	Post(n types.Notification)
}

type Config struct {
	Client     MeetingClient
	State      *state.Store
	Timeline   Poster
	ConnectURL string
	Logger     zerolog.Logger
	Now        func() time.Time // defaults to time.Now
}

type Coordinator struct {
	client     MeetingClient
	state      *state.Store
	timeline   Poster
	connectURL string
	log        zerolog.Logger
	now        func() time.Time

	idMu       sync.Mutex
	lastMillis int64
	sameMillis int // posts already made in lastMillis
}

func New(cfg Config) *Coordinator {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Coordinator{
		client:     cfg.Client,
		state:      cfg.State,
		timeline:   cfg.Timeline,
		connectURL: cfg.ConnectURL,
		log:        cfg.Logger,
		now:        now,
	}
}

// RequestMeeting sends exactly one start meeting request.
//
// A transport failure is returned as an error and changes nothing. A provider error is not an error:
// it is classified, dispatched (so the prompt can react), posted into the channel, and returned as a
// ProviderError result. A success is recorded for the channel and returned; the plugin server posts
// the meeting message itself, so nothing is posted locally. The session is never touched.
func (c *Coordinator) RequestMeeting(
	ctx context.Context,
	channelID string,
	personal bool,
	topic string,
	meetingID int,
) (types.MeetingAttemptResult, error) {
	res, err := c.client.StartMeeting(ctx, client.StartMeetingRequest{
		ChannelID: channelID,
		Personal:  personal,
		Topic:     topic,
		MeetingID: meetingID,
	})
	if err != nil {
		metrics.MeetingRequestsTotal.WithLabelValues("transport_error").Inc()
		return types.MeetingAttemptResult{}, fmt.Errorf("could not start meeting in channel %s: %w", channelID, err)
	}

	if res.Failed() {
		result := types.MeetingAttemptResult{
			Outcome:   types.OutcomeProviderError,
			ChannelID: channelID,
			Message:   res.Error,
			Kind:      provider.Classify(res.Error),
		}
		metrics.MeetingRequestsTotal.WithLabelValues(result.Outcome.String()).Inc()
		c.log.Info().
			Str("channel_id", channelID).
			Str("kind", result.Kind.String()).
			Str("message", res.Error).
			Msg("provider rejected meeting request")

		c.state.Dispatch(state.MeetingRequestFailed{ChannelID: channelID, Message: res.Error})
		c.post(channelID, c.state.Snapshot().CurrentUserID, res.Error, "provider_error")

		return result, nil
	}

	meeting := *res.Meeting
	metrics.MeetingRequestsTotal.WithLabelValues(types.OutcomeSuccess.String()).Inc()
	c.log.Info().Str("channel_id", channelID).Str("meeting_id", meeting.ID).Msg("meeting started")
	c.state.Dispatch(state.MeetingCreated{Meeting: meeting})

	return types.MeetingAttemptResult{
		Outcome:   types.OutcomeSuccess,
		ChannelID: channelID,
		Meeting:   meeting,
	}, nil
}

// StartMeeting is the channel header action: a personal meeting with no topic.
func (c *Coordinator) StartMeeting(ctx context.Context, channelID string) (types.MeetingAttemptResult, error) {
	return c.RequestMeeting(ctx, channelID, true, "", 0)
}

// NotifyMeetingReady tells the user in the channel that their account is linked.
func (c *Coordinator) NotifyMeetingReady(channelID string, userID string) {
	c.post(channelID, userID, provider.MeetingReadyMessage, "meeting_ready")
}

// BeginConnect returns the OAuth connect URL and closes the prompt, since the hand-off has started.
func (c *Coordinator) BeginConnect() string {
	c.state.Dispatch(state.PromptCloseRequested{})
	return c.connectURL
}

func (c *Coordinator) ConnectURL() string {
	return c.connectURL
}

func (c *Coordinator) post(channelID string, userID string, message string, kind string) {
	now := c.now()
	c.timeline.Post(types.Notification{
		ID:        c.nextID(now),
		ChannelID: channelID,
		UserID:    userID,
		Message:   message,
		Type:      types.NotificationTypeSystemEphemeral,
		CreatedAt: now,
	})
	metrics.NotificationsPostedTotal.WithLabelValues(kind).Inc()
}

func (c *Coordinator) nextID(t time.Time) string {
	c.idMu.Lock()
	defer c.idMu.Unlock()

	ms := t.UnixMilli()
	if ms == c.lastMillis {
		c.sameMillis++
	} else {
		c.lastMillis, c.sameMillis = ms, 0
	}
	return NotificationID(t, c.sameMillis)
}

// NotificationID derives a local notification id from the posting time. seq tells apart posts made
// in the same millisecond; the first one has no suffix.
func NotificationID(t time.Time, seq int) string {
	if seq == 0 {
		return fmt.Sprintf("%s%d", provider.NotificationIDPrefix, t.UnixMilli())
	}
	return fmt.Sprintf("%s%d-%d", provider.NotificationIDPrefix, t.UnixMilli(), seq)
}

// Reduce tracks the host context (current user and channel) and the latest meeting started in each
// channel, which surfaces offer as a join link.
func Reduce(st state.AppState, ev state.Event) state.AppState {
	switch e := ev.(type) {
	case state.MeetingCreated:
		st = st.WithMeeting(e.Meeting)
	case state.ChannelSelected:
		st.CurrentChannelID = e.ChannelID
	case state.UserIdentified:
		st.CurrentUserID = e.UserID
	case state.SessionConnected,
		state.SessionDisconnected,
		state.ProfileLoaded,
		state.PromptOpenRequested,
		state.PromptCloseRequested,
		state.MeetingRequestFailed:
	}
	return st
}
