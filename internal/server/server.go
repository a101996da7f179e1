package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/angelajfisher/webex-mate/internal/orchestrator"
)

type Config struct {
	DevMode  bool
	Port     string
	BaseURL  string
	CertFile string
	KeyFile  string
	Secret   string // push event signing secret; the events endpoint is disabled when empty

	// AccessToken is the bearer token every surface route requires. Only dev mode may leave it empty.
	AccessToken string

	Orchestrator *orchestrator.Orchestrator
	Logger       zerolog.Logger

	server *http.Server
}

func Start(sc *Config) error {
	sc.server = &http.Server{
		Addr:              sc.Port,
		Handler:           http.TimeoutHandler(sc.routes(), 15*time.Second, "Oops, timed out!"),
		ReadTimeout:       2 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       30 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}

	sc.Logger.Info().Str("addr", sc.Port).Str("base_url", sc.BaseURL).Msg("HTTP surface starting")

	var err error
	if sc.DevMode {
		err = sc.server.ListenAndServe()
	} else {
		err = sc.server.ListenAndServeTLS(sc.CertFile, sc.KeyFile)
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("could not start HTTP surface: %w", err)
	}

	return nil
}

func Stop(sc *Config) error {
	if sc.server == nil {
		return nil
	}

	sc.Logger.Info().Msg("HTTP surface shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := sc.server.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("could not shutdown server gracefully: %w", err)
	}

	return nil
}

func (sc *Config) routes() http.Handler {
	router := http.NewServeMux()

	router.HandleFunc("GET "+sc.BaseURL+"/status", sc.requireToken(sc.handleStatus))
	router.HandleFunc("POST "+sc.BaseURL+"/prompt/open", sc.requireToken(sc.handlePromptOpen))
	router.HandleFunc("POST "+sc.BaseURL+"/prompt/close", sc.requireToken(sc.handlePromptClose))
	router.HandleFunc("POST "+sc.BaseURL+"/channels/{channelID}/meetings", sc.requireToken(sc.handleStartMeeting))
	router.HandleFunc("GET "+sc.BaseURL+"/channels/{channelID}/posts", sc.requireToken(sc.handleChannelPosts))
	router.HandleFunc("POST "+sc.BaseURL+"/channels/{channelID}/select", sc.requireToken(sc.handleSelectChannel))
	// opened from a browser link, so it cannot carry a header; it only closes the prompt and redirects
	router.HandleFunc("GET "+sc.BaseURL+"/oauth2/connect", sc.handleConnect)
	router.Handle("GET "+sc.BaseURL+"/metrics", promhttp.Handler())
	if sc.Secret != "" {
		router.HandleFunc("POST "+sc.BaseURL+"/events", sc.handleEvents)
	}

	return sc.logRequests(router)
}

func (sc *Config) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()
		next.ServeHTTP(w, r)
		sc.Logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(startTime)).
			Msg("request served")
	})
}

func (sc *Config) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		sc.Logger.Warn().Err(err).Msg("could not write response")
	}
}

type errorResponse struct {
	Error      bool   `json:"error"`
	Message    string `json:"message"`
	StatusCode int    `json:"status_code"`
}

func (sc *Config) writeError(w http.ResponseWriter, status int, message string) {
	sc.writeJSON(w, status, errorResponse{Error: true, Message: message, StatusCode: status})
}
