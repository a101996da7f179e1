package types

import "time"

const (
	NotificationTypeSystemEphemeral = "system_ephemeral"
)

// Meeting is a provider meeting started from a channel.
type Meeting struct {
	ID        string `json:"id"`
	Link      string `json:"link"`
	Topic     string `json:"topic,omitempty"`
	Personal  bool   `json:"personal"`
	ChannelID string `json:"channel_id"`
}

type Outcome int

// The zero Outcome is OutcomeUnknown, so a result returned next to an error never reads as success.
const (
	OutcomeUnknown Outcome = iota
	OutcomeSuccess
	OutcomeProviderError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeUnknown:
		return "unknown"
	case OutcomeSuccess:
		return "success"
	case OutcomeProviderError:
		return "provider_error"
	}
	return "unknown"
}

type ErrorKind int

const (
	ErrorKindOther ErrorKind = iota
	ErrorKindAccountNotConnected
)

func (k ErrorKind) String() string {
	if k == ErrorKindAccountNotConnected {
		return "account_not_connected"
	}
	return "other"
}

// MeetingAttemptResult is the outcome of one start meeting request. It is never persisted.
type MeetingAttemptResult struct {
	Outcome   Outcome
	ChannelID string

	// Set on OutcomeSuccess
	Meeting Meeting

	// Set on OutcomeProviderError
	Message string
	Kind    ErrorKind
}

func (r MeetingAttemptResult) Succeeded() bool {
	return r.Outcome == OutcomeSuccess
}

// Notification is a message inserted into the local view of a channel without a server write.
type Notification struct {
	ID        string    `json:"id"`
	ChannelID string    `json:"channel_id"`
	UserID    string    `json:"user_id"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"create_at"`
}
