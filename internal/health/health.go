// Package health serves liveness and readiness probes.
package health

import "net/http"

// Healthz returns 200 "ok\n" while the process is serving.
func Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok\n"))
}

// ReadyFunc returns nil when the service can take work.
type ReadyFunc func() error

// Readyz returns 200 "ready\n" when ready reports nil, otherwise 503 with the
// reason.
func Readyz(ready ReadyFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		if err := ready(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("not ready: " + err.Error() + "\n"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready\n"))
	}
}
