package state

import (
	"maps"
	"sync"

	"github.com/angelajfisher/webex-mate/internal/types"
)

// AppState is everything the surfaces render from. Meetings is copy-on-write: reducers must
// replace the map rather than mutate it, so snapshots stay valid after later dispatches.
type AppState struct {
	Session          types.SessionState
	Prompt           types.Visibility
	Meetings         map[string]types.Meeting // map[channelID]latest meeting
	CurrentUserID    string
	CurrentChannelID string
}

// Meeting returns the latest meeting started in the channel, if any.
func (s AppState) Meeting(channelID string) (types.Meeting, bool) {
	m, ok := s.Meetings[channelID]
	return m, ok
}

// WithMeeting returns a copy of the state with the meeting recorded for its channel.
func (s AppState) WithMeeting(m types.Meeting) AppState {
	meetings := make(map[string]types.Meeting, len(s.Meetings)+1)
	maps.Copy(meetings, s.Meetings)
	meetings[m.ChannelID] = m
	s.Meetings = meetings
	return s
}

// Reducer computes the next state for one event. Reducers run in registration order.
type Reducer func(AppState, Event) AppState

// Store is the single state container of the client. Every Dispatch applies its event before it
// returns; listeners see the applied events one at a time, in the order they were applied.
type Store struct {
	reducers  []Reducer
	listeners *listeners

	mu        sync.Mutex
	state     AppState
	pending   []applied
	notifying bool
}

type applied struct {
	event Event
	state AppState
}

func NewStore(reducers ...Reducer) *Store {
	return &Store{
		reducers:  reducers,
		listeners: newListeners(),
		state:     AppState{Session: types.Disconnected(), Prompt: types.Hidden},
	}
}

// Dispatch applies the event on the caller's goroutine and notifies listeners. When listeners are
// already being notified (by another goroutine, or because this is a dispatch from inside a listener),
// the notification is queued for the active notifier and Dispatch returns once the event is applied.
func (s *Store) Dispatch(ev Event) {
	if ev == nil {
		return
	}

	s.mu.Lock()
	current := s.state
	for _, reduce := range s.reducers {
		current = reduce(current, ev)
	}
	s.state = current
	s.pending = append(s.pending, applied{event: ev, state: current})
	if s.notifying {
		s.mu.Unlock()
		return
	}
	s.notifying = true

	for len(s.pending) > 0 {
		next := s.pending[0]
		s.pending[0] = applied{}
		s.pending = s.pending[1:]
		s.mu.Unlock()

		s.listeners.notify(next.event, next.state)

		s.mu.Lock()
	}

	s.pending = nil
	s.notifying = false
	s.mu.Unlock()
}

// Snapshot returns the current state. It has no side effects.
func (s *Store) Snapshot() AppState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Subscribe registers a listener called after every applied event.
func (s *Store) Subscribe(l Listener) *Subscription {
	return s.listeners.add(l)
}
