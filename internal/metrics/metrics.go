// Package metrics holds the Prometheus collectors for engine runs and the
// HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sopp_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sopp_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sopp_engine_runs_total",
			Help: "Engine runs by outcome (ok, failed, cancelled).",
		},
		[]string{"outcome"},
	)

	runDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sopp_engine_run_duration_seconds",
			Help:    "Wall time of one engine run.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
		},
	)

	objectsScanned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sopp_engine_objects_scanned_total",
			Help: "Objects whose full time grid was scanned.",
		},
	)

	objectFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sopp_engine_object_failures_total",
			Help: "Objects reported as failed, by reason.",
		},
		[]string{"reason"},
	)

	windowsFound = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sopp_engine_windows_total",
			Help: "Windows emitted, by kind.",
		},
		[]string{"kind"},
	)

	catalogObjects = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sopp_catalog_objects",
			Help: "Tracked objects in the loaded catalog.",
		},
	)

	catalogAgeSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sopp_catalog_age_seconds",
			Help: "Seconds since the catalog was loaded.",
		},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpDurationSeconds)
	prometheus.MustRegister(runsTotal)
	prometheus.MustRegister(runDurationSeconds)
	prometheus.MustRegister(objectsScanned)
	prometheus.MustRegister(objectFailures)
	prometheus.MustRegister(windowsFound)
	prometheus.MustRegister(catalogObjects)
	prometheus.MustRegister(catalogAgeSeconds)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveRun records one finished engine run.
func ObserveRun(outcome string, d time.Duration) {
	runsTotal.WithLabelValues(outcome).Inc()
	runDurationSeconds.Observe(d.Seconds())
}

// AddScanned counts objects whose scan completed.
func AddScanned(n int) {
	objectsScanned.Add(float64(n))
}

// IncObjectFailure counts one failed object.
func IncObjectFailure(reason string) {
	objectFailures.WithLabelValues(reason).Inc()
}

// AddWindows counts emitted windows of one kind.
func AddWindows(kind string, n int) {
	windowsFound.WithLabelValues(kind).Add(float64(n))
}

// SetCatalogObjects sets the catalog size gauge.
func SetCatalogObjects(n int) {
	catalogObjects.Set(float64(n))
}

// SetCatalogAge sets the catalog age gauge.
func SetCatalogAge(seconds float64) {
	catalogAgeSeconds.Set(seconds)
}

// normalizeRoute maps a request path onto a fixed label set so that run IDs
// and scanner traffic do not create unbounded series.
func normalizeRoute(path string) string {
	switch path {
	case "/", "/healthz", "/readyz", "/metrics", "/api/v1/windows", "/api/v1/runs", "/api/v1/catalog":
		return path
	}
	if rest, ok := strings.CutPrefix(path, "/api/v1/runs/"); ok {
		id, report := strings.CutSuffix(rest, "/report")
		if id != "" && !strings.Contains(id, "/") {
			if report {
				return "/api/v1/runs/{id}/report"
			}
			return "/api/v1/runs/{id}"
		}
	}
	return "other"
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		route := normalizeRoute(r.URL.Path)
		httpRequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(rw.statusCode)).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}
