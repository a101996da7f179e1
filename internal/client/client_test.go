package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{SiteURL: srv.URL, Token: "tkn", Logger: zerolog.New(io.Discard)})
	require.NoError(t, err)
	return c
}

func TestNewValidatesSiteURL(t *testing.T) {
	_, err := New(Config{SiteURL: "not a url"})
	assert.Error(t, err)

	c, err := New(Config{SiteURL: "https://chat.example.com/"})
	require.NoError(t, err)
	assert.Equal(t, "https://chat.example.com/plugins/webex", c.BaseURL())
	assert.Equal(t, "https://chat.example.com/plugins/webex/oauth2/connect", c.ConnectURL())
}

func TestGetConnected(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantNil    bool
		wantActive bool
		wantErr    error
		wantError  string
	}{
		{
			name:       "linked account",
			status:     http.StatusOK,
			body:       `{"user":{"id":"wx1","display_name":"Ada"},"session":{"user_id":"u1"}}`,
			wantActive: true,
		},
		{
			name:       "explicit connected flag",
			status:     http.StatusOK,
			body:       `{"connected":true,"user":{"id":"wx1"},"session":{"user_id":"u1"}}`,
			wantActive: true,
		},
		{
			name:   "connected false",
			status: http.StatusOK,
			body:   `{"connected":false,"user":null,"session":null}`,
		},
		{
			name:    "null body",
			status:  http.StatusOK,
			body:    `null`,
			wantNil: true,
		},
		{
			name:    "empty body",
			status:  http.StatusOK,
			body:    ``,
			wantNil: true,
		},
		{
			name:      "not connected error payload",
			status:    http.StatusUnauthorized,
			body:      `{"error":true,"message":"Webex account not connected","status_code":401}`,
			wantError: "Webex account not connected",
		},
		{
			name:    "html error page",
			status:  http.StatusBadGateway,
			body:    `<html>bad gateway</html>`,
			wantErr: ErrMalformedResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, "/plugins/webex/connected", r.URL.Path)
				assert.Equal(t, "XMLHttpRequest", r.Header.Get("X-Requested-With"))
				assert.Equal(t, "Bearer tkn", r.Header.Get("Authorization"))
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			res, err := c.GetConnected(context.Background())
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)

			if tt.wantNil {
				assert.Nil(t, res)
				assert.False(t, res.Active())
				return
			}
			require.NotNil(t, res)
			assert.Equal(t, tt.wantActive, res.Active())
			assert.Equal(t, tt.wantError, res.Error)
		})
	}
}

func TestGetConnectedKeepsRawPayload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"user":{"id":"wx1","custom":"x"},"session":{"user_id":"u1","token":{"access_token":"a"}}}`))
	})

	res, err := c.GetConnected(context.Background())
	require.NoError(t, err)
	require.True(t, res.Active())
	assert.JSONEq(t, `{"id":"wx1","custom":"x"}`, string(res.User.Raw))
	assert.Equal(t, "a", res.Session.Token.AccessToken)
}

func TestUnauthorizedHook(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":true,"message":"Not authorized","status_code":401}`))
	})

	calls := 0
	c.OnUnauthorized(func() { calls++ })

	res, err := c.GetConnected(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Active())
	assert.Equal(t, 1, calls)

	_, err = c.StartMeeting(context.Background(), StartMeetingRequest{ChannelID: "C1"})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c, err := New(Config{SiteURL: srv.URL, Logger: zerolog.New(io.Discard)})
	require.NoError(t, err)

	_, err = c.GetConnected(context.Background())
	require.ErrorIs(t, err, ErrTransport)

	_, err = c.StartMeeting(context.Background(), StartMeetingRequest{ChannelID: "C1"})
	require.ErrorIs(t, err, ErrTransport)
}

func TestStartMeeting(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantErr     error
		wantFailed  bool
		wantMessage string
		wantID      string
		wantLink    string
		wantChannel string
	}{
		{
			name:        "flat meeting",
			body:        `{"id":"m1","link":"https://wx/m1","topic":"Sync","personal":true}`,
			wantID:      "m1",
			wantLink:    "https://wx/m1",
			wantChannel: "C42",
		},
		{
			name:        "nested meeting from plugin server",
			body:        `{"meeting":{"id":"m2","meeting_url":"https://chat/plugins/webex/meetings/m2","channel_id":"C7"}}`,
			wantID:      "m2",
			wantLink:    "https://chat/plugins/webex/meetings/m2",
			wantChannel: "C7",
		},
		{
			name:        "numeric id",
			body:        `{"id":12345,"link":"https://wx/12345"}`,
			wantID:      "12345",
			wantLink:    "https://wx/12345",
			wantChannel: "C42",
		},
		{
			name:        "error string",
			body:        `{"error":"rate limited"}`,
			wantFailed:  true,
			wantMessage: "rate limited",
		},
		{
			name:        "error flag with message",
			body:        `{"error":true,"message":"Webex account not connected","status_code":401}`,
			wantFailed:  true,
			wantMessage: "Webex account not connected",
		},
		{
			name:        "error flag with non-string message",
			body:        `{"error":true,"message":{"detail":"quota"}}`,
			wantFailed:  true,
			wantMessage: `{"detail":"quota"}`,
		},
		{
			name:        "null personal",
			body:        `{"id":"m3","personal":null}`,
			wantID:      "m3",
			wantChannel: "C42",
		},
		{
			name:    "malformed personal",
			body:    `{"id":"m4","personal":"yes"}`,
			wantErr: ErrMalformedResponse,
		},
		{
			name:    "no id",
			body:    `{"topic":"x"}`,
			wantErr: ErrMalformedResponse,
		},
		{
			name:    "empty body",
			body:    ``,
			wantErr: ErrMalformedResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/plugins/webex/api/v1/meetings", r.URL.Path)

				var req map[string]any
				require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.Equal(t, "C42", req["channel_id"])
				assert.Equal(t, true, req["personal"])
				assert.Equal(t, "", req["topic"])
				assert.Equal(t, float64(0), req["meeting_id"])

				_, _ = w.Write([]byte(tt.body))
			})

			res, err := c.StartMeeting(context.Background(), StartMeetingRequest{ChannelID: "C42", Personal: true})
			if tt.wantErr != nil {
				require.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)

			assert.Equal(t, tt.wantFailed, res.Failed())
			if tt.wantFailed {
				assert.Equal(t, tt.wantMessage, res.Error)
				return
			}
			assert.Equal(t, tt.wantID, res.Meeting.ID)
			assert.Equal(t, tt.wantLink, res.Meeting.Link)
			assert.Equal(t, tt.wantChannel, res.Meeting.ChannelID)
		})
	}
}

func TestGetProviderUser(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/plugins/webex/api/v1/user", r.URL.Path)
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "u1", req["user_id"])
		_, _ = w.Write([]byte(`{"id":"wx1","display_name":"Ada Lovelace","emails":["ada@example.com"]}`))
	})

	user, err := c.GetProviderUser(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "Ada Lovelace", user.DisplayName)
	assert.Equal(t, []string{"ada@example.com"}, user.Emails)
}

func TestCurrentUserID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v4/users/me", r.URL.Path)
		assert.Equal(t, "Bearer tkn", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"id":"u1","username":"ada"}`))
	})

	id, err := c.CurrentUserID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u1", id)
}

func TestCurrentUserIDRejected(t *testing.T) {
	var cleared bool
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	c.OnUnauthorized(func() { cleared = true })

	_, err := c.CurrentUserID(context.Background())
	require.Error(t, err)
	assert.True(t, cleared)
}
