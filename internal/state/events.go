package state

import "github.com/angelajfisher/webex-mate/internal/types"

// Event is the closed set of state transitions. Only types in this file implement it; reducers
// switch over every variant explicitly.
type Event interface {
	eventName() string
}

// SessionConnected replaces the session with a linked account.
type SessionConnected struct {
	User    *types.ProviderUserProfile
	Session *types.ProviderSessionInfo
}

// SessionDisconnected clears the session. Sent for an unlinked status response and for any 401.
type SessionDisconnected struct{}

// PromptOpenRequested is an explicit user request to show the connect prompt.
type PromptOpenRequested struct{}

// PromptCloseRequested is an explicit dismissal, or the start of the OAuth hand-off.
type PromptCloseRequested struct{}

// ProfileLoaded fills in the linked Webex profile. It has no effect unless the session is connected.
type ProfileLoaded struct {
	User *types.ProviderUserProfile
}

// MeetingRequestFailed carries a provider-side error returned for a start meeting request.
type MeetingRequestFailed struct {
	ChannelID string
	Message   string
}

// MeetingCreated records a meeting the provider started.
type MeetingCreated struct {
	Meeting types.Meeting
}

// ChannelSelected is sent by a surface when the user switches to a channel.
type ChannelSelected struct {
	ChannelID string
}

// UserIdentified is sent once the host user behind this client is known.
type UserIdentified struct {
	UserID string
}

func (SessionConnected) eventName() string     { return "session_connected" }
func (SessionDisconnected) eventName() string  { return "session_disconnected" }
func (ProfileLoaded) eventName() string        { return "profile_loaded" }
func (PromptOpenRequested) eventName() string  { return "prompt_open_requested" }
func (PromptCloseRequested) eventName() string { return "prompt_close_requested" }
func (MeetingRequestFailed) eventName() string { return "meeting_request_failed" }
func (MeetingCreated) eventName() string       { return "meeting_created" }
func (ChannelSelected) eventName() string      { return "channel_selected" }
func (UserIdentified) eventName() string       { return "user_identified" }

// Name returns a stable identifier for logging and metrics labels.
func Name(ev Event) string {
	if ev == nil {
		return "none"
	}
	return ev.eventName()
}
