// Package auth enforces a shared bearer token on the API.
package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/NSF-Swift/satellite-overhead/internal/httputil"
)

// Config holds authentication configuration. Auth is enabled whenever a
// token is set.
type Config struct {
	Token string
}

// Enabled reports whether requests must carry the token.
func (c Config) Enabled() bool {
	return c.Token != ""
}

// exemptPaths are always public: probes and scraping.
var exemptPaths = map[string]bool{
	"/healthz": true,
	"/readyz":  true,
	"/metrics": true,
}

// Middleware returns an HTTP middleware that enforces Bearer token auth
// on non-exempt paths when auth is enabled.
func Middleware(cfg Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled() || exemptPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")

			if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(cfg.Token)) != 1 {
				w.Header().Set("WWW-Authenticate", "Bearer")
				httputil.WriteError(w, http.StatusUnauthorized, "unauthorized", nil)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
