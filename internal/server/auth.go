package server

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// requireToken guards a surface route with the shared bearer token. With no token configured (dev
// mode only) every request passes.
func (sc *Config) requireToken(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sc.AccessToken != "" && !ValidBearer(sc.AccessToken, r.Header.Get("Authorization")) {
			sc.Logger.Warn().Str("remote", r.RemoteAddr).Str("path", r.URL.Path).Msg("request rejected: bad token")
			w.Header().Set("WWW-Authenticate", `Bearer realm="webex-mate"`)
			sc.writeError(w, http.StatusUnauthorized, "invalid or missing token")
			return
		}
		next(w, r)
	}
}

// ValidBearer reports whether the Authorization header carries the expected token.
func ValidBearer(token string, header string) bool {
	given, ok := strings.CutPrefix(header, "Bearer ")
	if token == "" || !ok || given == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(given), []byte(token)) == 1
}
