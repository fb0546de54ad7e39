package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name       string
		token      string
		path       string
		header     string
		wantStatus int
	}{
		{"disabled", "", "/api/v1/runs", "", http.StatusNoContent},
		{"missing header", "s3cret", "/api/v1/runs", "", http.StatusUnauthorized},
		{"wrong scheme", "s3cret", "/api/v1/runs", "Basic s3cret", http.StatusUnauthorized},
		{"wrong token", "s3cret", "/api/v1/runs", "Bearer nope", http.StatusUnauthorized},
		{"valid", "s3cret", "/api/v1/windows", "Bearer s3cret", http.StatusNoContent},
		{"healthz exempt", "s3cret", "/healthz", "", http.StatusNoContent},
		{"readyz exempt", "s3cret", "/readyz", "", http.StatusNoContent},
		{"metrics exempt", "s3cret", "/metrics", "", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := Middleware(Config{Token: tt.token})(ok)
			r := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}
