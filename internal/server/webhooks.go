package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"

	"github.com/angelajfisher/webex-mate/internal/push"
)

const SignatureHeader = "X-Webex-Mate-Signature"

const maxEventBody = 64 << 10

type eventAck struct {
	Delivered int `json:"delivered"`
}

// handleEvents accepts push events relayed over HTTP. The body is a host websocket frame signed with
// the shared secret: hex(HMAC-SHA256(secret, body)).
func (sc *Config) handleEvents(w http.ResponseWriter, r *http.Request) {
	reqBody, err := io.ReadAll(io.LimitReader(r.Body, maxEventBody))
	if err != nil {
		sc.Logger.Warn().Err(err).Msg("could not read push event")
		sc.writeError(w, http.StatusBadRequest, "could not read body")
		return
	}

	if !ValidSignature(sc.Secret, reqBody, r.Header.Get(SignatureHeader)) {
		sc.Logger.Warn().Str("remote", r.RemoteAddr).Msg("push event rejected: bad signature")
		sc.writeError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	var ev push.Event
	if err = json.Unmarshal(reqBody, &ev); err != nil || ev.Name == "" {
		sc.writeError(w, http.StatusBadRequest, "invalid push event")
		return
	}

	sc.Logger.Info().Str("event", ev.Name).Int64("seq", ev.Seq).Msg("push event received")
	delivered := sc.Orchestrator.Hub.Publish(ev)

	sc.writeJSON(w, http.StatusAccepted, eventAck{Delivered: delivered})
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) string {
	hasher := hmac.New(sha256.New, []byte(secret))
	hasher.Write(body)
	return hex.EncodeToString(hasher.Sum(nil))
}

func ValidSignature(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	return hmac.Equal([]byte(Sign(secret, body)), []byte(signature))
}
