// Package client talks to the Webex plugin's REST API on the messaging host.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/angelajfisher/webex-mate/internal/metrics"
	"github.com/angelajfisher/webex-mate/internal/provider"
)

const defaultTimeout = 10 * time.Second

var (
	// ErrTransport wraps network failures; the request never produced a response.
	ErrTransport = errors.New("plugin request failed")
	// ErrMalformedResponse wraps responses whose body could not be understood.
	ErrMalformedResponse = errors.New("malformed plugin response")
)

type Config struct {
	SiteURL    string // e.g. https://chat.example.com
	PluginID   string // defaults to provider.DefaultPluginID
	Token      string // host personal access token, sent as a bearer token
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

type Client struct {
	siteURL        string
	baseURL        string
	pluginID       string
	token          string
	http           *http.Client
	log            zerolog.Logger
	onUnauthorized atomic.Pointer[func()]
}

func New(cfg Config) (*Client, error) {
	site, err := url.Parse(strings.TrimRight(cfg.SiteURL, "/"))
	if err != nil || site.Scheme == "" || site.Host == "" {
		return nil, fmt.Errorf("invalid site URL %q", cfg.SiteURL)
	}

	pluginID := cfg.PluginID
	if pluginID == "" {
		pluginID = provider.DefaultPluginID
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		siteURL:  site.String(),
		baseURL:  site.String() + "/plugins/" + pluginID,
		pluginID: pluginID,
		token:    cfg.Token,
		http:     httpClient,
		log:      cfg.Logger,
	}, nil
}

// BaseURL is the plugin root every request path is appended to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) SiteURL() string {
	return c.siteURL
}

func (c *Client) PluginID() string {
	return c.pluginID
}

// ConnectURL is where the user starts the OAuth flow in a browser.
func (c *Client) ConnectURL() string {
	return c.baseURL + "/oauth2/connect"
}

// OnUnauthorized sets the hook run for every 401 response, before the body is decoded.
func (c *Client) OnUnauthorized(fn func()) {
	c.onUnauthorized.Store(&fn)
}

func (c *Client) newRequest(ctx context.Context, method string, path string, payload any) (*http.Request, error) {
	return c.newRequestURL(ctx, method, c.baseURL+path, payload)
}

func (c *Client) newRequestURL(ctx context.Context, method string, target string, payload any) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("could not encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("could not build request: %w", err)
	}

	_, offset := time.Now().Zone()
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("X-Timezone-Offset", strconv.Itoa(-offset/60))
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	return req, nil
}

// do sends the request and returns the raw body. Every status code yields a body; only network
// failures and unreadable bodies are errors.
func (c *Client) do(req *http.Request) (int, []byte, error) {
	startTime := time.Now()

	res, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %s %s: %w", ErrTransport, req.Method, req.URL.Path, err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusUnauthorized:
		metrics.UnauthorizedTotal.Inc()
		c.log.Info().Str("path", req.URL.Path).Msg("plugin rejected credentials; clearing session")
		if fn := c.onUnauthorized.Load(); fn != nil && *fn != nil {
			(*fn)()
		}
	case http.StatusForbidden:
		c.log.Warn().Str("path", req.URL.Path).Msg("permission denied by plugin")
	}

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return res.StatusCode, nil, fmt.Errorf("%w: could not read response body: %w", ErrTransport, err)
	}

	c.log.Debug().
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Int("status", res.StatusCode).
		Dur("elapsed", time.Since(startTime)).
		Msg("plugin request")

	return res.StatusCode, data, nil
}
