package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/NSF-Swift/satellite-overhead/internal/antenna"
	"github.com/NSF-Swift/satellite-overhead/internal/engine"
	"github.com/NSF-Swift/satellite-overhead/internal/frequency"
	"github.com/NSF-Swift/satellite-overhead/internal/httputil"
	"github.com/NSF-Swift/satellite-overhead/internal/interference"
	"github.com/NSF-Swift/satellite-overhead/internal/models"
	"github.com/NSF-Swift/satellite-overhead/internal/report"
	"github.com/NSF-Swift/satellite-overhead/internal/store"
)

const defaultListLimit = 50

// windowsRequest is the body of POST /api/v1/windows.
type windowsRequest struct {
	Begin     time.Time             `json:"begin"`
	End       time.Time             `json:"end"`
	Frequency models.FrequencyRange `json:"frequency"`
	Antenna   antenna.Pointing      `json:"antenna"`
	Runtime   runtimeRequest        `json:"runtime"`
}

// runtimeRequest overrides the server's default settings field by field.
type runtimeRequest struct {
	Concurrency int      `json:"concurrency,omitempty"`
	Resolution  string   `json:"resolution,omitempty"` // Go duration, e.g. "10s"
	MinAltitude *float64 `json:"min_altitude,omitempty"`
}

// apply overlays r on base. A requested concurrency above maxWorkers is
// lowered to it.
func (r runtimeRequest) apply(base engine.RuntimeSettings, maxWorkers int) (engine.RuntimeSettings, error) {
	out := base
	if r.Concurrency != 0 {
		out.Concurrency = min(r.Concurrency, maxWorkers)
	}
	if r.Resolution != "" {
		d, err := time.ParseDuration(r.Resolution)
		if err != nil {
			return out, &engine.ConfigurationError{Field: "runtime.resolution", Msg: "not a duration", Err: err}
		}
		out.Resolution = d
	}
	if r.MinAltitude != nil {
		out.MinAltitude = *r.MinAltitude
	}
	return out, out.Validate()
}

func (s *Server) windowsHandler(w http.ResponseWriter, r *http.Request) {
	var req windowsRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	cat := s.catalogs.Get()
	if cat == nil {
		httputil.WriteError(w, http.StatusServiceUnavailable, errNoCatalog.Error(), nil)
		return
	}

	settings, err := req.Runtime.apply(s.opts.Settings, s.opts.MaxConcurrency)
	if err != nil {
		s.writeRunError(w, err)
		return
	}
	if req.Frequency.Bandwidth < 0 {
		s.writeRunError(w, &engine.ConfigurationError{Field: "frequency.bandwidth", Msg: "must not be negative"})
		return
	}
	res := models.Reservation{
		Facility:  s.opts.Facility,
		Window:    models.TimeWindow{Begin: req.Begin, End: req.End},
		Frequency: req.Frequency,
	}

	grid, err := engine.GridFor(res, settings)
	if err != nil {
		s.writeRunError(w, err)
		return
	}
	if grid.Len() > s.opts.MaxSamples {
		httputil.WriteError(w, http.StatusBadRequest, "time grid too large; shorten the window or raise the resolution",
			map[string]any{"samples": grid.Len(), "max_samples": s.opts.MaxSamples})
		return
	}

	path, err := antenna.Build(r.Context(), req.Antenna, grid, s.opts.Facility, nil)
	if err != nil {
		s.writeRunError(w, err)
		return
	}
	objects := frequency.Filter(cat.Objects, req.Frequency)

	ip := httputil.ClientIP(r, s.opts.TrustProxy)
	if !s.limiter.acquire(ip) {
		w.Header().Set("Retry-After", "5")
		httputil.WriteError(w, http.StatusTooManyRequests, "too many concurrent runs", nil)
		return
	}
	defer s.limiter.release(ip)

	ctx := r.Context()
	if s.opts.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.RunTimeout)
		defer cancel()
	}

	mainBeam, horizon, err := s.finder.FindAll(ctx, objects, res, path, settings)
	cancelled := false
	if err != nil {
		if !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
			s.writeRunError(w, err)
			return
		}
		cancelled = true
	}

	rec := store.NewRecord(res, settings, mainBeam, horizon, cancelled)
	if s.opts.Strategy != nil {
		levels, err := interference.AssessWindows(s.opts.Strategy, mainBeam.Windows, path, res.Frequency.Frequency)
		if err != nil {
			s.logger.Warn("interference assessment incomplete", "run_id", rec.ID, "error", err)
		}
		rec.SetInterference(levels)
	}
	if err := s.runs.Save(rec); err != nil {
		s.logger.Error("saving run failed", "run_id", rec.ID, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "could not save run", nil)
		return
	}
	s.logger.Info("run saved",
		"run_id", rec.ID,
		"objects", len(objects),
		"main_beam_windows", len(rec.MainBeam),
		"horizon_windows", len(rec.Horizon),
		"failures", len(rec.Failures),
		"cancelled", cancelled,
	)
	s.publish(context.WithoutCancel(r.Context()), rec)

	httputil.WriteJSON(w, http.StatusCreated, rec)
}

func (s *Server) publish(ctx context.Context, rec store.Record) {
	if s.opts.Publisher == nil {
		return
	}
	sent, err := report.PublishReport(ctx, s.opts.Publisher, s.opts.Topic, s.opts.QoS, report.New(rec))
	if err != nil {
		s.logger.Warn("publishing run failed", "run_id", rec.ID, "sent", sent, "error", err)
		return
	}
	s.logger.Debug("run published", "run_id", rec.ID, "messages", sent)
}

// writeRunError maps engine errors onto status codes.
func (s *Server) writeRunError(w http.ResponseWriter, err error) {
	var cfgErr *engine.ConfigurationError
	if errors.As(err, &cfgErr) {
		httputil.WriteError(w, http.StatusBadRequest, err.Error(), map[string]any{"field": cfgErr.Field})
		return
	}
	s.logger.Error("run failed", "error", err)
	httputil.WriteError(w, http.StatusInternalServerError, err.Error(), nil)
}

func (s *Server) listRunsHandler(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			httputil.WriteError(w, http.StatusBadRequest, "limit must be a positive integer", nil)
			return
		}
		limit = n
	}
	runs, err := s.runs.List(limit)
	if err != nil {
		s.logger.Error("listing runs failed", "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "could not list runs", nil)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) lookupRun(w http.ResponseWriter, r *http.Request) (store.Record, bool) {
	id := r.PathValue("id")
	rec, err := s.runs.Get(id)
	if errors.Is(err, store.ErrNotFound) {
		httputil.WriteError(w, http.StatusNotFound, "run not found", map[string]any{"id": id})
		return store.Record{}, false
	}
	if err != nil {
		s.logger.Error("reading run failed", "run_id", id, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "could not read run", nil)
		return store.Record{}, false
	}
	return rec, true
}

func (s *Server) getRunHandler(w http.ResponseWriter, r *http.Request) {
	if rec, ok := s.lookupRun(w, r); ok {
		httputil.WriteJSON(w, http.StatusOK, rec)
	}
}

// runReportHandler returns the pass summary, as text with ?format=text.
func (s *Server) runReportHandler(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.lookupRun(w, r)
	if !ok {
		return
	}
	rep := report.New(rec)
	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		report.WriteText(w, rep)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rep)
}

type catalogResponse struct {
	Source        string    `json:"source"`
	LoadedAt      time.Time `json:"loaded_at"`
	AgeSeconds    float64   `json:"age_seconds"`
	EpochMin      time.Time `json:"epoch_min"`
	EpochMax      time.Time `json:"epoch_max"`
	Objects       int       `json:"objects"`
	WithFrequency int       `json:"with_frequency"`
}

func (s *Server) catalogHandler(w http.ResponseWriter, r *http.Request) {
	cat := s.catalogs.Get()
	if cat == nil {
		httputil.WriteError(w, http.StatusServiceUnavailable, errNoCatalog.Error(), nil)
		return
	}
	withFreq := 0
	for _, o := range cat.Objects {
		if o.Frequency != nil {
			withFreq++
		}
	}
	httputil.WriteJSON(w, http.StatusOK, catalogResponse{
		Source:        cat.Source,
		LoadedAt:      cat.LoadedAt,
		AgeSeconds:    s.catalogs.AgeSeconds(),
		EpochMin:      cat.Epochs.Min,
		EpochMax:      cat.Epochs.Max,
		Objects:       len(cat.Objects),
		WithFrequency: withFreq,
	})
}
