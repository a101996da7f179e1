// Package session owns the "is this user linked to Webex" state.
package session

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/angelajfisher/webex-mate/internal/client"
	"github.com/angelajfisher/webex-mate/internal/metrics"
	"github.com/angelajfisher/webex-mate/internal/state"
	"github.com/angelajfisher/webex-mate/internal/types"
)

// StatusClient issues the "am I connected" query.
type StatusClient interface {
	GetConnected(ctx context.Context) (*client.ConnectedResponse, error)
}

// ProfileClient looks up the Webex profile linked to a host user.
type ProfileClient interface {
	GetProviderUser(ctx context.Context, userID string) (*types.ProviderUserProfile, error)
}

type Store struct {
	client StatusClient
	state  *state.Store
	log    zerolog.Logger
}

func NewStore(c StatusClient, s *state.Store, logger zerolog.Logger) *Store {
	return &Store{client: c, state: s, log: logger}
}

// QueryStatus asks the plugin once and replaces the session with the answer. Transport errors are
// returned without touching the state.
func (s *Store) QueryStatus(ctx context.Context) (types.SessionState, error) {
	res, err := s.client.GetConnected(ctx)
	if err != nil {
		metrics.SessionQueriesTotal.WithLabelValues("error").Inc()
		return s.Snapshot(), err
	}

	if !res.Active() {
		metrics.SessionQueriesTotal.WithLabelValues("disconnected").Inc()
		if res != nil && res.Error != "" {
			s.log.Debug().Str("reason", res.Error).Msg("no active Webex session")
		}
		s.state.Dispatch(state.SessionDisconnected{})
		return types.Disconnected(), nil
	}

	metrics.SessionQueriesTotal.WithLabelValues("connected").Inc()
	s.log.Info().Str("webex_user_id", res.User.ID).Msg("Webex account connected")
	s.state.Dispatch(state.SessionConnected{User: res.User, Session: res.Session})

	return types.Connected(res.User, res.Session), nil
}

// MarkUnauthorized clears the session. Calling it repeatedly has the same effect as calling it once.
func (s *Store) MarkUnauthorized() {
	s.state.Dispatch(state.SessionDisconnected{})
}

// Profile returns the linked Webex profile. When the status answer carried no display name and the
// host user is known, the plugin's user lookup fills it in.
func (s *Store) Profile(ctx context.Context) (*types.ProviderUserProfile, error) {
	snap := s.state.Snapshot()
	if !snap.Session.Connected {
		return nil, nil
	}
	current := snap.Session.User
	if current != nil && current.DisplayName != "" {
		return current, nil
	}

	profiles, ok := s.client.(ProfileClient)
	if !ok || snap.CurrentUserID == "" {
		return current, nil
	}
	user, err := profiles.GetProviderUser(ctx, snap.CurrentUserID)
	if err != nil {
		return current, fmt.Errorf("could not load Webex profile: %w", err)
	}
	if user == nil {
		return current, nil
	}

	s.state.Dispatch(state.ProfileLoaded{User: user})
	return user, nil
}

func (s *Store) Snapshot() types.SessionState {
	return s.state.Snapshot().Session
}

// Reduce is the session reducer. Only the two session events change it.
func Reduce(st state.AppState, ev state.Event) state.AppState {
	switch e := ev.(type) {
	case state.SessionConnected:
		st.Session = types.Connected(e.User, e.Session)
	case state.SessionDisconnected:
		st.Session = types.Disconnected()
	case state.ProfileLoaded:
		if st.Session.Connected && e.User != nil {
			st.Session = types.Connected(e.User, st.Session.Session)
		}
	case state.PromptOpenRequested,
		state.PromptCloseRequested,
		state.MeetingRequestFailed,
		state.MeetingCreated,
		state.ChannelSelected,
		state.UserIdentified:
	}
	return st
}
