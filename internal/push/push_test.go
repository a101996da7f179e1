package push

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestHubDeliversInSubscriptionOrder(t *testing.T) {
	hub := NewHub(zerolog.New(io.Discard))

	var order []string
	hub.Subscribe("custom_webex_oauth_success", func(Event) { order = append(order, "first") })
	hub.Subscribe("custom_webex_oauth_success", func(Event) { order = append(order, "second") })
	hub.Subscribe("hello", func(Event) { order = append(order, "other") })

	n := hub.Publish(Event{Name: "custom_webex_oauth_success", Data: map[string]any{"success": true}})

	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestHubCancel(t *testing.T) {
	hub := NewHub(zerolog.New(io.Discard))

	var calls int
	sub := hub.Subscribe("evt", func(Event) { calls++ })

	hub.Publish(Event{Name: "evt"})
	sub.Cancel()
	sub.Cancel()
	hub.Publish(Event{Name: "evt"})

	assert.Equal(t, 1, calls)
	assert.Zero(t, hub.Publish(Event{Name: "evt"}))
}

func TestWebSocketURL(t *testing.T) {
	tests := []struct {
		site    string
		want    string
		wantErr bool
	}{
		{site: "https://chat.example.com", want: "wss://chat.example.com/api/v4/websocket"},
		{site: "http://localhost:8065/", want: "ws://localhost:8065/api/v4/websocket"},
		{site: "https://example.com/mm", want: "wss://example.com/mm/api/v4/websocket"},
		{site: "ftp://example.com", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.site, func(t *testing.T) {
			got, err := WebSocketURL(tt.site)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewWebSocketSourceRejectsHTTPURL(t *testing.T) {
	_, err := NewWebSocketSource(SourceConfig{URL: "https://chat.example.com"}, NewHub(zerolog.Nop()))
	require.Error(t, err)
}

// hostServer accepts websocket connections, checks the auth challenge, then writes frames. The first
// dropFirst connections are closed right after the challenge.
func hostServer(t *testing.T, token string, dropFirst int32, frames ...string) *httptest.Server {
	t.Helper()

	var conns atomic.Int32
	upgrader := websocket.Upgrader{}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+token {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var challenge authChallenge
		if err := conn.ReadJSON(&challenge); err != nil {
			return
		}
		if challenge.Action != "authentication_challenge" || challenge.Data["token"] != token {
			return
		}

		if conns.Add(1) <= dropFirst {
			return
		}

		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		// hold the connection open until the client goes away
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWebSocketSourcePublishesEvents(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	srv := hostServer(t, "tkn", 0,
		`{"seq_reply":1,"status":"OK"}`,
		`not json`,
		`{"event":"custom_webex_oauth_success","data":{"success":true},"seq":4}`,
	)
	defer srv.Close()

	hub := NewHub(zerolog.New(io.Discard))
	got := make(chan Event, 1)
	sub := hub.Subscribe("custom_webex_oauth_success", func(ev Event) { got <- ev })
	defer sub.Cancel()

	src, err := NewWebSocketSource(SourceConfig{
		URL:     wsURL(srv),
		Token:   "tkn",
		Backoff: 10 * time.Millisecond,
		Logger:  zerolog.New(io.Discard),
	}, hub)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- src.Run(ctx) }()

	select {
	case ev := <-got:
		assert.Equal(t, int64(4), ev.Seq)
		assert.Equal(t, true, ev.Data["success"])
	case <-time.After(3 * time.Second):
		t.Fatal("event was not published")
	}

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run() didn't return after cancel")
	}
}

func TestWebSocketSourceReconnects(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	srv := hostServer(t, "tkn", 2, `{"event":"custom_webex_oauth_success","data":{"success":true},"seq":1}`)
	defer srv.Close()

	hub := NewHub(zerolog.New(io.Discard))
	got := make(chan Event, 1)
	hub.Subscribe("custom_webex_oauth_success", func(ev Event) { got <- ev })

	src, err := NewWebSocketSource(SourceConfig{
		URL:     wsURL(srv),
		Token:   "tkn",
		Backoff: 10 * time.Millisecond,
		Logger:  zerolog.New(io.Discard),
	}, hub)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- src.Run(ctx) }()

	select {
	case <-got:
	case <-time.After(3 * time.Second):
		t.Fatal("source did not reconnect")
	}

	cancel()
	require.NoError(t, <-errCh)
}

func TestWebSocketSourceUnauthorized(t *testing.T) {
	srv := hostServer(t, "right", 0)
	defer srv.Close()

	src, err := NewWebSocketSource(SourceConfig{URL: wsURL(srv), Token: "wrong", Logger: zerolog.Nop()}, NewHub(zerolog.Nop()))
	require.NoError(t, err)

	err = src.session(context.Background())
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestWebSocketSourceRunStopsOnRejectedToken(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	srv := hostServer(t, "right", 0)
	defer srv.Close()

	src, err := NewWebSocketSource(SourceConfig{
		URL:     wsURL(srv),
		Token:   "wrong",
		Backoff: 10 * time.Millisecond,
		Logger:  zerolog.Nop(),
	}, NewHub(zerolog.Nop()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- src.Run(ctx) }()

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, ErrUnauthorized)
	case <-time.After(3 * time.Second):
		t.Fatal("Run() kept redialing with a rejected token")
	}
}
