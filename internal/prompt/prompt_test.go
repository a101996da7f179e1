package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/angelajfisher/webex-mate/internal/state"
	"github.com/angelajfisher/webex-mate/internal/types"
)

func TestNext(t *testing.T) {
	tests := []struct {
		name    string
		current types.Visibility
		event   state.Event
		want    types.Visibility
	}{
		{"open from hidden", types.Hidden, state.PromptOpenRequested{}, types.Visible},
		{"open when visible", types.Visible, state.PromptOpenRequested{}, types.Visible},
		{"close", types.Visible, state.PromptCloseRequested{}, types.Hidden},
		{"not connected error", types.Hidden, state.MeetingRequestFailed{ChannelID: "C42", Message: "Webex account not connected"}, types.Visible},
		{"other error keeps hidden", types.Hidden, state.MeetingRequestFailed{ChannelID: "C42", Message: "rate limited"}, types.Hidden},
		{"other error keeps visible", types.Visible, state.MeetingRequestFailed{ChannelID: "C42", Message: "rate limited"}, types.Visible},
		{"session connected", types.Visible, state.SessionConnected{}, types.Hidden},
		{"session disconnected", types.Visible, state.SessionDisconnected{}, types.Visible},
		{"meeting created", types.Visible, state.MeetingCreated{}, types.Visible},
		{"channel selected", types.Hidden, state.ChannelSelected{ChannelID: "C1"}, types.Hidden},
		{"user identified", types.Visible, state.UserIdentified{UserID: "u1"}, types.Visible},
		{"profile loaded", types.Visible, state.ProfileLoaded{}, types.Visible},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Next(tt.current, tt.event))
		})
	}
}

func TestControllerLaterEventWins(t *testing.T) {
	s := state.NewStore(Reduce)
	c := NewController(s)

	assert.False(t, c.Visible())

	c.Open()
	assert.True(t, c.Visible())

	s.Dispatch(state.SessionConnected{})
	assert.False(t, c.Visible())

	c.Open()
	c.Close()
	assert.False(t, c.Visible())
}
