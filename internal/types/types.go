package types

import (
	"encoding/json"
	"time"
)

// ProviderUserProfile is the Webex profile of the linked account as reported by the plugin.
// Raw keeps the original payload so surfaces can read fields this struct does not model.
type ProviderUserProfile struct {
	ID          string          `json:"id"`
	Type        string          `json:"type,omitempty"`
	Emails      []string        `json:"emails,omitempty"`
	DisplayName string          `json:"display_name,omitempty"`
	FirstName   string          `json:"first_name,omitempty"`
	LastName    string          `json:"last_name,omitempty"`
	Nickname    string          `json:"nickname,omitempty"`
	Avatar      string          `json:"avatar,omitempty"`
	Timezone    string          `json:"timezone,omitempty"`
	Roles       []string        `json:"roles,omitempty"`
	OrgID       string          `json:"org_id,omitempty"`
	Raw         json.RawMessage `json:"-"`
}

// ProviderSessionInfo is the plugin-side OAuth session of the current user.
type ProviderSessionInfo struct {
	UserID string          `json:"user_id"`
	Token  SessionToken    `json:"token"`
	Raw    json.RawMessage `json:"-"`
}

type SessionToken struct {
	AccessToken  string    `json:"access_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
}

// SessionState is the current user's link to the meeting provider.
// Connected implies User and Session are set; a disconnected state carries neither.
type SessionState struct {
	Connected bool
	User      *ProviderUserProfile
	Session   *ProviderSessionInfo
}

// Disconnected returns the empty, unlinked session state.
func Disconnected() SessionState {
	return SessionState{}
}

// Connected builds a linked session state. A missing profile or session yields the disconnected state.
func Connected(user *ProviderUserProfile, session *ProviderSessionInfo) SessionState {
	if user == nil || session == nil {
		return Disconnected()
	}
	return SessionState{Connected: true, User: user, Session: session}
}

// DisplayName is the best human readable name for the linked account, or "" when disconnected.
func (s SessionState) DisplayName() string {
	if !s.Connected || s.User == nil {
		return ""
	}
	switch {
	case s.User.DisplayName != "":
		return s.User.DisplayName
	case s.User.Nickname != "":
		return s.User.Nickname
	case len(s.User.Emails) > 0:
		return s.User.Emails[0]
	}
	return s.User.ID
}

type Visibility bool

const (
	Hidden  Visibility = false
	Visible Visibility = true
)

func (v Visibility) String() string {
	if v {
		return "visible"
	}
	return "hidden"
}
