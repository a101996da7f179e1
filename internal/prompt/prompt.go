// Package prompt decides whether the "connect your Webex account" prompt is shown.
//
// The prompt is a long-lived toggle with two states, Hidden (initial) and Visible:
//
//	PromptOpenRequested          -> Visible
//	PromptCloseRequested         -> Hidden
//	MeetingRequestFailed(msg)    -> Visible when msg is the account-not-connected sentinel, else unchanged
//	SessionConnected             -> Hidden
//	anything else                -> unchanged
package prompt

import (
	"github.com/angelajfisher/webex-mate/internal/provider"
	"github.com/angelajfisher/webex-mate/internal/state"
	"github.com/angelajfisher/webex-mate/internal/types"
)

// Next returns the visibility after one event.
func Next(current types.Visibility, ev state.Event) types.Visibility {
	switch e := ev.(type) {
	case state.PromptOpenRequested:
		return types.Visible
	case state.PromptCloseRequested:
		return types.Hidden
	case state.MeetingRequestFailed:
		if provider.IsAccountNotConnected(e.Message) {
			return types.Visible
		}
		return current
	case state.SessionConnected:
		return types.Hidden
	case state.SessionDisconnected,
		state.ProfileLoaded,
		state.MeetingCreated,
		state.ChannelSelected,
		state.UserIdentified:
		return current
	}
	return current
}

// Reduce is the prompt reducer registered with the state store.
func Reduce(st state.AppState, ev state.Event) state.AppState {
	st.Prompt = Next(st.Prompt, ev)
	return st
}

// Controller is the command side used by surfaces.
type Controller struct {
	state *state.Store
}

func NewController(s *state.Store) *Controller {
	return &Controller{state: s}
}

func (c *Controller) Open() {
	c.state.Dispatch(state.PromptOpenRequested{})
}

func (c *Controller) Close() {
	c.state.Dispatch(state.PromptCloseRequested{})
}

func (c *Controller) Visible() bool {
	return c.state.Snapshot().Prompt == types.Visible
}
