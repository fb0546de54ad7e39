// Package api serves the interference search over HTTP.
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/NSF-Swift/satellite-overhead/internal/auth"
	"github.com/NSF-Swift/satellite-overhead/internal/catalog"
	"github.com/NSF-Swift/satellite-overhead/internal/engine"
	"github.com/NSF-Swift/satellite-overhead/internal/health"
	"github.com/NSF-Swift/satellite-overhead/internal/httputil"
	"github.com/NSF-Swift/satellite-overhead/internal/interference"
	"github.com/NSF-Swift/satellite-overhead/internal/metrics"
	"github.com/NSF-Swift/satellite-overhead/internal/models"
	"github.com/NSF-Swift/satellite-overhead/internal/report"
	"github.com/NSF-Swift/satellite-overhead/internal/store"
)

const (
	// DefaultMaxSamples bounds the time grid of one request.
	DefaultMaxSamples = 86400

	defaultMaxRunsPerClient = 2
	defaultMaxRuns          = 16
)

// Options configures the server.
type Options struct {
	Addr       string
	Facility   models.Facility
	Settings   engine.RuntimeSettings // defaults for requests that omit them
	RunTimeout time.Duration
	MaxSamples int

	// MaxConcurrency caps the workers one request may ask for. Defaults to
	// the larger of Settings.Concurrency and GOMAXPROCS.
	MaxConcurrency int

	// Concurrent runs accepted per client IP and in total.
	MaxRunsPerClient int
	MaxRuns          int

	TrustProxy bool
	Auth       auth.Config

	// Strategy, when set, quantifies every main-beam window.
	Strategy interference.Strategy

	// Publisher is optional; when set every saved run is published to Topic.
	Publisher report.Publisher
	Topic     string
	QoS       byte
}

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	opts       Options
	catalogs   *catalog.Store
	runs       *store.Store
	finder     *engine.Finder
	limiter    *runLimiter
	logger     *slog.Logger
}

// NewServer creates a configured HTTP server.
func NewServer(opts Options, logger *slog.Logger, catalogs *catalog.Store, runs *store.Store, provider engine.PositionProvider) *Server {
	if opts.MaxSamples <= 0 {
		opts.MaxSamples = DefaultMaxSamples
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = max(opts.Settings.Concurrency, runtime.GOMAXPROCS(0))
	}
	if opts.MaxRunsPerClient <= 0 {
		opts.MaxRunsPerClient = defaultMaxRunsPerClient
	}
	if opts.MaxRuns <= 0 {
		opts.MaxRuns = defaultMaxRuns
	}
	s := &Server{
		opts:     opts,
		catalogs: catalogs,
		runs:     runs,
		finder:   engine.NewFinder(provider, logger),
		limiter:  newRunLimiter(opts.MaxRunsPerClient, opts.MaxRuns),
		logger:   logger.With("component", "api"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", health.Readyz(s.ready))
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /api/v1/catalog", s.catalogHandler)
	mux.HandleFunc("POST /api/v1/windows", s.windowsHandler)
	mux.HandleFunc("GET /api/v1/runs", s.listRunsHandler)
	mux.HandleFunc("GET /api/v1/runs/{id}", s.getRunHandler)
	mux.HandleFunc("GET /api/v1/runs/{id}/report", s.runReportHandler)

	// Build middleware chain: metrics -> logging -> auth -> mux.
	var handler http.Handler = mux
	handler = auth.Middleware(opts.Auth)(handler)
	handler = loggingMiddleware(s.logger, opts.TrustProxy)(handler)
	handler = metrics.Middleware(handler)

	s.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      opts.RunTimeout + 10*time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// HTTPServer returns the underlying *http.Server for external control (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Handler returns the full middleware chain, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

var errNoCatalog = errors.New("catalog not loaded")

func (s *Server) ready() error {
	if s.catalogs.Get() == nil {
		return errNoCatalog
	}
	return nil
}

// probePath returns true for health/readiness probe paths that should not log at INFO.
func probePath(path string) bool {
	return path == "/healthz" || path == "/readyz"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(logger *slog.Logger, trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sr, r)

			level := slog.LevelInfo
			if probePath(r.URL.Path) {
				level = slog.LevelDebug
			}

			logger.Log(r.Context(), level, "request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", strconv.Itoa(sr.statusCode),
				"duration_ms", time.Since(start).Milliseconds(),
				"remote_ip", httputil.ClientIP(r, trustProxy),
			)
		})
	}
}
