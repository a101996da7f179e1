package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/angelajfisher/webex-mate/internal/metrics"
)

const (
	websocketPath  = "/api/v4/websocket"
	defaultBackoff = 5 * time.Second
)

var ErrUnauthorized = errors.New("push channel rejected the token")

type SourceConfig struct {
	URL     string // ws:// or wss:// address of the host websocket
	Token   string
	Backoff time.Duration // delay between reconnects, defaults to 5s
	Dialer  *websocket.Dialer
	Logger  zerolog.Logger
}

// WebSocketSource reads events from the host websocket and publishes them to a Hub.
type WebSocketSource struct {
	url     string
	token   string
	backoff time.Duration
	dialer  *websocket.Dialer
	hub     *Hub
	log     zerolog.Logger
	seq     int64
}

func NewWebSocketSource(cfg SourceConfig, hub *Hub) (*WebSocketSource, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid push channel URL: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("invalid push channel URL scheme %q", u.Scheme)
	}

	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = defaultBackoff
	}
	dialer := cfg.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	return &WebSocketSource{
		url:     u.String(),
		token:   cfg.Token,
		backoff: backoff,
		dialer:  dialer,
		hub:     hub,
		log:     cfg.Logger,
	}, nil
}

// WebSocketURL derives the host websocket address from the site URL.
func WebSocketURL(siteURL string) (string, error) {
	u, err := url.Parse(siteURL)
	if err != nil {
		return "", fmt.Errorf("invalid site URL: %w", err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("invalid site URL scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + websocketPath

	return u.String(), nil
}

// Run keeps a connection open until ctx is cancelled, reconnecting after a fixed delay whenever the
// connection drops. It returns nil once ctx is done, and ErrUnauthorized as soon as the host rejects
// the token.
func (s *WebSocketSource) Run(ctx context.Context) error {
	for {
		err := s.session(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, ErrUnauthorized) {
			return err
		}
		s.log.Warn().Err(err).Dur("retry_in", s.backoff).Msg("push channel disconnected")

		timer := time.NewTimer(s.backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

type authChallenge struct {
	Seq    int64             `json:"seq"`
	Action string            `json:"action"`
	Data   map[string]string `json:"data"`
}

func (s *WebSocketSource) session(ctx context.Context) error {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+s.token)

	conn, resp, err := s.dialer.DialContext(ctx, s.url, header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			metrics.UnauthorizedTotal.Inc()
			return ErrUnauthorized
		}
		return fmt.Errorf("could not connect to push channel: %w", err)
	}

	done := make(chan struct{})
	defer close(done)
	defer conn.Close()

	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	s.seq++
	err = conn.WriteJSON(authChallenge{
		Seq:    s.seq,
		Action: "authentication_challenge",
		Data:   map[string]string{"token": s.token},
	})
	if err != nil {
		return fmt.Errorf("could not authenticate push channel: %w", err)
	}

	s.log.Info().Str("url", s.url).Msg("push channel connected")

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("could not read from push channel: %w", err)
		}

		var ev Event
		if err := json.Unmarshal(msg, &ev); err != nil {
			s.log.Warn().Err(err).Msg("skipping malformed push frame")
			continue
		}
		// replies to our own requests carry no event name
		if ev.Name == "" {
			continue
		}

		s.hub.Publish(ev)
	}
}
