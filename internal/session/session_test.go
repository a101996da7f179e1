package session

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelajfisher/webex-mate/internal/client"
	"github.com/angelajfisher/webex-mate/internal/state"
	"github.com/angelajfisher/webex-mate/internal/types"
)

type reply struct {
	res *client.ConnectedResponse
	err error
}

type fakeStatusClient struct {
	replies []reply
	calls   int
}

func (f *fakeStatusClient) GetConnected(context.Context) (*client.ConnectedResponse, error) {
	r := f.replies[f.calls]
	f.calls++
	return r.res, r.err
}

func linked(id string) *client.ConnectedResponse {
	return &client.ConnectedResponse{
		User:    &types.ProviderUserProfile{ID: id},
		Session: &types.ProviderSessionInfo{UserID: "u-" + id},
	}
}

func newTestStore(replies ...reply) (*Store, *state.Store, *fakeStatusClient) {
	fc := &fakeStatusClient{replies: replies}
	st := state.NewStore(Reduce)
	return NewStore(fc, st, zerolog.New(io.Discard)), st, fc
}

func TestQueryStatusFollowsLatestResponse(t *testing.T) {
	errBoom := errors.New("boom")
	s, _, fc := newTestStore(
		reply{res: linked("a")},
		reply{res: nil},
		reply{err: errBoom},
		reply{res: linked("b")},
		reply{res: &client.ConnectedResponse{Error: "Webex account not connected"}},
	)

	got, err := s.QueryStatus(context.Background())
	require.NoError(t, err)
	assert.True(t, got.Connected)
	assert.Equal(t, "a", s.Snapshot().User.ID)

	got, err = s.QueryStatus(context.Background())
	require.NoError(t, err)
	assert.False(t, got.Connected)
	assert.Equal(t, types.Disconnected(), s.Snapshot())

	// A transport failure propagates and leaves the last successful answer in place.
	_, err = s.QueryStatus(context.Background())
	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, types.Disconnected(), s.Snapshot())

	got, err = s.QueryStatus(context.Background())
	require.NoError(t, err)
	assert.True(t, got.Connected)
	assert.Equal(t, "b", s.Snapshot().User.ID)
	assert.Equal(t, "u-b", s.Snapshot().Session.UserID)

	got, err = s.QueryStatus(context.Background())
	require.NoError(t, err)
	assert.False(t, got.Connected)
	assert.Nil(t, s.Snapshot().User)
	assert.Nil(t, s.Snapshot().Session)

	assert.Equal(t, 5, fc.calls)
}

func TestQueryStatusBroadcastsTransitions(t *testing.T) {
	s, st, _ := newTestStore(reply{res: linked("a")}, reply{res: nil})

	var events []string
	st.Subscribe(func(ev state.Event, snap state.AppState) {
		events = append(events, state.Name(ev))
		// Listeners observe the state produced by the event.
		_, connected := ev.(state.SessionConnected)
		assert.Equal(t, connected, snap.Session.Connected)
	})

	_, _ = s.QueryStatus(context.Background())
	_, _ = s.QueryStatus(context.Background())

	assert.Equal(t, []string{"session_connected", "session_disconnected"}, events)
}

func TestQueryStatusWithoutProfileIsDisconnected(t *testing.T) {
	s, _, _ := newTestStore(reply{res: &client.ConnectedResponse{User: &types.ProviderUserProfile{ID: "a"}}})

	got, err := s.QueryStatus(context.Background())
	require.NoError(t, err)
	assert.False(t, got.Connected)
	assert.Nil(t, s.Snapshot().User)
}

func TestMarkUnauthorizedIsIdempotent(t *testing.T) {
	s, _, _ := newTestStore(reply{res: linked("a")})

	_, err := s.QueryStatus(context.Background())
	require.NoError(t, err)
	require.True(t, s.Snapshot().Connected)

	s.MarkUnauthorized()
	once := s.Snapshot()
	s.MarkUnauthorized()

	assert.False(t, once.Connected)
	assert.Equal(t, once, s.Snapshot())
	assert.Equal(t, types.Disconnected(), s.Snapshot())
}

func TestSnapshotHasNoSideEffects(t *testing.T) {
	s, st, fc := newTestStore()

	calls := 0
	st.Subscribe(func(state.Event, state.AppState) { calls++ })

	_ = s.Snapshot()
	_ = s.Snapshot()

	assert.Equal(t, 0, calls)
	assert.Equal(t, 0, fc.calls)
}

type fakeProfileClient struct {
	fakeStatusClient
	profile *types.ProviderUserProfile
	err     error
	lookups []string
}

func (f *fakeProfileClient) GetProviderUser(_ context.Context, userID string) (*types.ProviderUserProfile, error) {
	f.lookups = append(f.lookups, userID)
	return f.profile, f.err
}

func identify(st state.AppState, ev state.Event) state.AppState {
	if e, ok := ev.(state.UserIdentified); ok {
		st.CurrentUserID = e.UserID
	}
	return st
}

func newProfileStore(fc *fakeProfileClient) (*Store, *state.Store) {
	st := state.NewStore(Reduce, identify)
	st.Dispatch(state.UserIdentified{UserID: "u1"})
	return NewStore(fc, st, zerolog.New(io.Discard)), st
}

func TestProfileFillsMissingDisplayName(t *testing.T) {
	fc := &fakeProfileClient{
		fakeStatusClient: fakeStatusClient{replies: []reply{{res: linked("a")}}},
		profile:          &types.ProviderUserProfile{ID: "a", DisplayName: "Ada"},
	}
	s, _ := newProfileStore(fc)

	_, err := s.QueryStatus(context.Background())
	require.NoError(t, err)

	got, err := s.Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.DisplayName)
	assert.Equal(t, "Ada", s.Snapshot().DisplayName())
	assert.Equal(t, "u-a", s.Snapshot().Session.UserID, "the session info is kept")

	_, err = s.Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, fc.lookups)
}

func TestProfileDisconnectedSkipsLookup(t *testing.T) {
	fc := &fakeProfileClient{profile: &types.ProviderUserProfile{ID: "a", DisplayName: "Ada"}}
	s, _ := newProfileStore(fc)

	got, err := s.Profile(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Empty(t, fc.lookups)
}

func TestProfileLookupError(t *testing.T) {
	errBoom := errors.New("boom")
	fc := &fakeProfileClient{
		fakeStatusClient: fakeStatusClient{replies: []reply{{res: linked("a")}}},
		err:              errBoom,
	}
	s, _ := newProfileStore(fc)

	_, err := s.QueryStatus(context.Background())
	require.NoError(t, err)

	got, err := s.Profile(context.Background())
	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, "a", got.ID)
	assert.Empty(t, s.Snapshot().User.DisplayName)
}

func TestProfileLoadedIgnoredWhenDisconnected(t *testing.T) {
	st := Reduce(state.AppState{Session: types.Disconnected()}, state.ProfileLoaded{User: &types.ProviderUserProfile{ID: "a"}})
	assert.False(t, st.Session.Connected)
	assert.Nil(t, st.Session.User)
}
