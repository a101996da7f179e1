package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/angelajfisher/webex-mate/internal/types"
)

// ConnectedResponse is the plugin's answer to "am I connected". A nil response means the body was
// empty or falsy.
type ConnectedResponse struct {
	Connected *bool
	User      *types.ProviderUserProfile
	Session   *types.ProviderSessionInfo
	// Error is set when the plugin answered with an error payload instead of a session.
	Error string
}

// Active reports whether the payload describes a linked account.
func (r *ConnectedResponse) Active() bool {
	if r == nil || r.Error != "" {
		return false
	}
	if r.Connected != nil && !*r.Connected {
		return false
	}
	return r.User != nil && r.Session != nil
}

type StartMeetingRequest struct {
	ChannelID string `json:"channel_id"`
	Personal  bool   `json:"personal"`
	Topic     string `json:"topic"`
	MeetingID int    `json:"meeting_id"`
}

// StartMeetingResponse holds either the started meeting or the provider's error message.
type StartMeetingResponse struct {
	Meeting *types.Meeting
	Error   string
}

func (r *StartMeetingResponse) Failed() bool {
	return r.Meeting == nil
}

// GetConnected asks the plugin whether the current user has linked a Webex account.
func (c *Client) GetConnected(ctx context.Context) (*ConnectedResponse, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/connected", nil)
	if err != nil {
		return nil, err
	}

	status, body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	fields, err := decodeObject(status, body)
	if err != nil || fields == nil {
		return nil, err
	}

	res := &ConnectedResponse{}
	if msg, failed := errorMessage(fields); failed {
		res.Error = msg
		return res, nil
	}

	if raw, ok := fields["connected"]; ok {
		var connected bool
		if err = json.Unmarshal(raw, &connected); err != nil {
			return nil, fmt.Errorf("%w: connected flag: %w", ErrMalformedResponse, err)
		}
		res.Connected = &connected
	}

	if res.User, err = decodeUser(fields["user"]); err != nil {
		return nil, err
	}
	if res.Session, err = decodeSession(fields["session"]); err != nil {
		return nil, err
	}

	return res, nil
}

// StartMeeting asks the plugin to start a meeting in the channel. Provider-side failures come back as
// a response with Error set, not as an error.
func (c *Client) StartMeeting(ctx context.Context, payload StartMeetingRequest) (*StartMeetingResponse, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/api/v1/meetings", payload)
	if err != nil {
		return nil, err
	}

	status, body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	fields, err := decodeObject(status, body)
	if err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: empty start meeting response (status %d)", ErrMalformedResponse, status)
	}

	if msg, failed := errorMessage(fields); failed {
		return &StartMeetingResponse{Error: msg}, nil
	}

	// The plugin server wraps the meeting as {"meeting": {...}}.
	if nested, ok := fields["meeting"]; ok && !isNull(nested) {
		if err = json.Unmarshal(nested, &fields); err != nil {
			return nil, fmt.Errorf("%w: meeting: %w", ErrMalformedResponse, err)
		}
	}

	meeting, err := decodeMeeting(fields)
	if err != nil {
		return nil, err
	}
	if meeting.ChannelID == "" {
		meeting.ChannelID = payload.ChannelID
	}

	return &StartMeetingResponse{Meeting: meeting}, nil
}

// GetProviderUser loads the Webex profile linked to a host user.
func (c *Client) GetProviderUser(ctx context.Context, userID string) (*types.ProviderUserProfile, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/api/v1/user", map[string]string{"user_id": userID})
	if err != nil {
		return nil, err
	}

	status, body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	fields, err := decodeObject(status, body)
	if err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, nil
	}
	if msg, failed := errorMessage(fields); failed {
		return nil, fmt.Errorf("could not load Webex user: %s", msg)
	}

	return decodeUser(bytes.TrimSpace(body))
}

// CurrentUserID asks the host which user the token belongs to.
func (c *Client) CurrentUserID(ctx context.Context) (string, error) {
	req, err := c.newRequestURL(ctx, http.MethodGet, c.siteURL+"/api/v4/users/me", nil)
	if err != nil {
		return "", err
	}

	status, body, err := c.do(req)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("could not identify current user: status %d", status)
	}

	var me struct {
		ID string `json:"id"`
	}
	if err = json.Unmarshal(body, &me); err != nil {
		return "", fmt.Errorf("%w: current user: %w", ErrMalformedResponse, err)
	}
	if me.ID == "" {
		return "", fmt.Errorf("%w: current user has no id", ErrMalformedResponse)
	}

	return me.ID, nil
}

// decodeObject returns nil for falsy bodies (empty, null, false, 0, "").
func decodeObject(status int, body []byte) (map[string]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	switch string(trimmed) {
	case "", "null", "false", "0", `""`:
		return nil, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, fmt.Errorf("%w: status %d: %w", ErrMalformedResponse, status, err)
	}
	return fields, nil
}

// errorMessage understands both {"error": "message"} and {"error": true, "message": "..."}.
func errorMessage(fields map[string]json.RawMessage) (string, bool) {
	raw, ok := fields["error"]
	if !ok || isNull(raw) {
		return "", false
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		if text == "" {
			return "", false
		}
		return text, true
	}

	var flag bool
	if err := json.Unmarshal(raw, &flag); err == nil && !flag {
		return "", false
	}

	var message string
	if m, ok := fields["message"]; ok && !isNull(m) {
		// a message that is not a string is passed on verbatim
		if err := json.Unmarshal(m, &message); err != nil {
			message = string(bytes.TrimSpace(m))
		}
	}
	if message == "" {
		message = "unknown error"
		if s, ok := fields["status_code"]; ok {
			message += " (status " + string(s) + ")"
		}
	}
	return message, true
}

func decodeUser(raw json.RawMessage) (*types.ProviderUserProfile, error) {
	if len(raw) == 0 || isNull(raw) {
		return nil, nil
	}
	var user types.ProviderUserProfile
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("%w: user: %w", ErrMalformedResponse, err)
	}
	user.Raw = append(json.RawMessage(nil), raw...)
	return &user, nil
}

func decodeSession(raw json.RawMessage) (*types.ProviderSessionInfo, error) {
	if len(raw) == 0 || isNull(raw) {
		return nil, nil
	}
	var session types.ProviderSessionInfo
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("%w: session: %w", ErrMalformedResponse, err)
	}
	session.Raw = append(json.RawMessage(nil), raw...)
	return &session, nil
}

func decodeMeeting(fields map[string]json.RawMessage) (*types.Meeting, error) {
	var m types.Meeting

	m.ID = stringField(fields, "id")
	if m.ID == "" {
		return nil, fmt.Errorf("%w: meeting has no id", ErrMalformedResponse)
	}
	m.Link = stringField(fields, "link", "meeting_url", "meeting_link")
	m.Topic = stringField(fields, "topic", "meeting_topic")
	m.ChannelID = stringField(fields, "channel_id")

	for _, key := range []string{"personal", "meeting_personal"} {
		raw, ok := fields[key]
		if !ok || isNull(raw) {
			continue
		}
		if err := json.Unmarshal(raw, &m.Personal); err != nil {
			return nil, fmt.Errorf("%w: meeting %s: %w", ErrMalformedResponse, key, err)
		}
		break
	}

	return &m, nil
}

// stringField returns the first present key as a string; numeric ids are formatted.
func stringField(fields map[string]json.RawMessage, keys ...string) string {
	for _, key := range keys {
		raw, ok := fields[key]
		if !ok || isNull(raw) {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
		var n json.Number
		if err := json.Unmarshal(raw, &n); err == nil {
			if i, err := n.Int64(); err == nil {
				return strconv.FormatInt(i, 10)
			}
			return n.String()
		}
	}
	return ""
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}
