package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/angelajfisher/webex-mate/internal/state"
	"github.com/angelajfisher/webex-mate/internal/types"
)

type statusResponse struct {
	Connected        bool                       `json:"connected"`
	DisplayName      string                     `json:"display_name,omitempty"`
	User             *types.ProviderUserProfile `json:"user,omitempty"`
	PromptVisible    bool                       `json:"prompt_visible"`
	CurrentChannelID string                     `json:"current_channel_id,omitempty"`
	CurrentUserID    string                     `json:"current_user_id,omitempty"`
	ConnectURL       string                     `json:"connect_url"`
}

// Status reports the session and prompt. With ?refresh=true the plugin is asked first. A connected
// session without a display name gets its profile looked up.
func (sc *Config) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("refresh") == "true" {
		if _, err := sc.Orchestrator.Session.QueryStatus(r.Context()); err != nil {
			sc.Logger.Warn().Err(err).Msg("could not refresh session status")
			sc.writeError(w, http.StatusBadGateway, "could not reach the Webex plugin")
			return
		}
	}

	if _, err := sc.Orchestrator.Session.Profile(r.Context()); err != nil {
		sc.Logger.Warn().Err(err).Msg("could not load Webex profile")
	}

	snap := sc.Orchestrator.State.Snapshot()
	sc.writeJSON(w, http.StatusOK, statusResponse{
		Connected:        snap.Session.Connected,
		DisplayName:      snap.Session.DisplayName(),
		User:             snap.Session.User,
		PromptVisible:    snap.Prompt == types.Visible,
		CurrentChannelID: snap.CurrentChannelID,
		CurrentUserID:    snap.CurrentUserID,
		ConnectURL:       sc.Orchestrator.Meetings.ConnectURL(),
	})
}

func (sc *Config) handlePromptOpen(w http.ResponseWriter, _ *http.Request) {
	sc.Orchestrator.Prompt.Open()
	w.WriteHeader(http.StatusNoContent)
}

func (sc *Config) handlePromptClose(w http.ResponseWriter, _ *http.Request) {
	sc.Orchestrator.Prompt.Close()
	w.WriteHeader(http.StatusNoContent)
}

// Connect starts the OAuth hand-off in the browser.
func (sc *Config) handleConnect(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, sc.Orchestrator.Meetings.BeginConnect(), http.StatusFound)
}

type meetingRequest struct {
	Personal  *bool  `json:"personal"`
	Topic     string `json:"topic"`
	MeetingID int    `json:"meeting_id"`
}

type meetingResponse struct {
	Outcome    string         `json:"outcome"`
	Meeting    *types.Meeting `json:"meeting,omitempty"`
	Message    string         `json:"message,omitempty"`
	Kind       string         `json:"kind,omitempty"`
	ConnectURL string         `json:"connect_url,omitempty"`
}

// StartMeeting runs one meeting request for the channel. An empty body is the channel header action:
// a personal meeting with no topic. Provider errors are a normal response; only transport failures
// are reported as 502.
func (sc *Config) handleStartMeeting(w http.ResponseWriter, r *http.Request) {
	channelID := r.PathValue("channelID")

	req := meetingRequest{}
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil && !errors.Is(err, io.EOF) {
		sc.writeError(w, http.StatusBadRequest, "invalid meeting request body")
		return
	}
	personal := true
	if req.Personal != nil {
		personal = *req.Personal
	}

	res, err := sc.Orchestrator.Meetings.RequestMeeting(r.Context(), channelID, personal, req.Topic, req.MeetingID)
	if err != nil {
		sc.Logger.Error().Err(err).Str("channel_id", channelID).Msg("meeting request failed")
		sc.writeError(w, http.StatusBadGateway, "could not reach the Webex plugin")
		return
	}

	out := meetingResponse{Outcome: res.Outcome.String()}
	if res.Succeeded() {
		out.Meeting = &res.Meeting
	} else {
		out.Message = res.Message
		out.Kind = res.Kind.String()
		if res.Kind == types.ErrorKindAccountNotConnected {
			out.ConnectURL = sc.Orchestrator.Meetings.ConnectURL()
		}
	}

	sc.writeJSON(w, http.StatusOK, out)
}

func (sc *Config) handleChannelPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := sc.Orchestrator.Timeline.Channel(r.Context(), r.PathValue("channelID"))
	if err != nil {
		sc.Logger.Error().Err(err).Msg("could not load channel posts")
		sc.writeError(w, http.StatusInternalServerError, "could not load channel posts")
		return
	}
	if posts == nil {
		posts = []types.Notification{}
	}

	sc.writeJSON(w, http.StatusOK, posts)
}

// SelectChannel moves the host context to the channel, where connect notifications are posted.
func (sc *Config) handleSelectChannel(w http.ResponseWriter, r *http.Request) {
	sc.Orchestrator.State.Dispatch(state.ChannelSelected{ChannelID: r.PathValue("channelID")})
	w.WriteHeader(http.StatusNoContent)
}
