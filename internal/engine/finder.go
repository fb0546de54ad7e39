package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/NSF-Swift/satellite-overhead/internal/metrics"
	"github.com/NSF-Swift/satellite-overhead/internal/models"
	"github.com/NSF-Swift/satellite-overhead/internal/timegrid"
)

// Finder runs window searches against one PositionProvider. It is safe for
// concurrent use; each call is an independent run.
type Finder struct {
	provider PositionProvider
	logger   *slog.Logger
}

// NewFinder creates a Finder.
func NewFinder(provider PositionProvider, logger *slog.Logger) *Finder {
	return &Finder{provider: provider, logger: logger.With("component", "engine")}
}

// GridFor returns the sampling grid of a reservation, so callers can build an
// antenna path aligned with it.
func GridFor(res models.Reservation, settings RuntimeSettings) (timegrid.Grid, error) {
	if err := settings.Validate(); err != nil {
		return timegrid.Grid{}, err
	}
	grid, err := timegrid.Generate(res.Window.Begin, res.Window.End, settings.Resolution)
	if err != nil {
		return timegrid.Grid{}, &ConfigurationError{Field: "reservation.window", Msg: "cannot sample window", Err: err}
	}
	return grid, nil
}

// FindMainBeamCrossings returns the windows during which each object is inside
// the main beam of the antenna following path.
func (f *Finder) FindMainBeamCrossings(ctx context.Context, objects []models.TrackedObject, res models.Reservation,
	path []models.PositionTime, settings RuntimeSettings) (Result, error) {
	mainBeam, _, err := f.FindAll(ctx, objects, res, path, settings)
	return mainBeam, err
}

// FindAboveHorizon returns the windows during which each object is at or
// above settings.MinAltitude.
func (f *Finder) FindAboveHorizon(ctx context.Context, objects []models.TrackedObject, res models.Reservation,
	path []models.PositionTime, settings RuntimeSettings) (Result, error) {
	_, horizon, err := f.FindAll(ctx, objects, res, path, settings)
	return horizon, err
}

// FindAll computes both result sets from a single scan of the grid.
//
// Configuration and timestamp errors return empty Results. When ctx ends
// mid-run the Results hold every object that completed, the rest are listed
// as failures, and the context error is returned.
func (f *Finder) FindAll(ctx context.Context, objects []models.TrackedObject, res models.Reservation,
	path []models.PositionTime, settings RuntimeSettings) (mainBeam, horizon Result, err error) {
	grid, err := GridFor(res, settings)
	if err != nil {
		return Result{}, Result{}, err
	}
	if err := alignPath(grid, path); err != nil {
		return Result{}, Result{}, err
	}
	if bw := res.Facility.Beamwidth; bw <= 0 || bw > 360 {
		return Result{}, Result{}, &ConfigurationError{Field: "facility.beamwidth", Msg: "must be within (0, 360]"}
	}

	start := time.Now()
	f.logger.Info("run started",
		"objects", len(objects),
		"samples", grid.Len(),
		"workers", min(settings.Concurrency, len(objects)),
	)

	slots, err := f.run(ctx, objects, scan{
		grid:        grid,
		path:        path,
		beamRadius:  res.Facility.BeamRadius(),
		minAltitude: settings.MinAltitude,
	}, settings.Concurrency)
	if err != nil {
		metrics.ObserveRun("failed", time.Since(start))
		f.logger.Error("run aborted", "error", err)
		return Result{}, Result{}, err
	}

	mainBeam = merge(objects, slots, MainBeam)
	horizon = merge(objects, slots, Horizon)
	f.record(slots, mainBeam, horizon)

	elapsed := time.Since(start)
	if ctxErr := ctx.Err(); ctxErr != nil {
		metrics.ObserveRun("cancelled", elapsed)
		f.logger.Warn("run cancelled", "failures", len(mainBeam.Failures), "duration_ms", elapsed.Milliseconds())
		return mainBeam, horizon, ctxErr
	}

	metrics.ObserveRun("ok", elapsed)
	f.logger.Info("run complete",
		"main_beam_windows", len(mainBeam.Windows),
		"horizon_windows", len(horizon.Windows),
		"failures", len(mainBeam.Failures),
		"duration_ms", elapsed.Milliseconds(),
	)
	return mainBeam, horizon, nil
}

// alignPath checks that the antenna path has one sample per grid instant.
func alignPath(grid timegrid.Grid, path []models.PositionTime) error {
	if len(path) != grid.Len() {
		return &ConfigurationError{
			Field: "antenna",
			Msg:   fmt.Sprintf("path has %d samples, time grid has %d", len(path), grid.Len()),
		}
	}
	for i, t := range grid.Times {
		if !path[i].Time.Equal(t) {
			return &TimestampMismatchError{Index: i, Want: t, Got: path[i].Time}
		}
	}
	return nil
}

func (f *Finder) record(slots []slot, mainBeam, horizon Result) {
	scanned := 0
	for _, s := range slots {
		if s.done && s.err == nil {
			scanned++
		}
	}
	metrics.AddScanned(scanned)
	metrics.AddWindows(MainBeam.String(), len(mainBeam.Windows))
	metrics.AddWindows(Horizon.String(), len(horizon.Windows))
	for _, fl := range mainBeam.Failures {
		metrics.IncObjectFailure(failureReason(fl.Err))
	}
}
