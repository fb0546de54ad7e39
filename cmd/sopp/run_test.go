package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NSF-Swift/satellite-overhead/internal/antenna"
	"github.com/NSF-Swift/satellite-overhead/internal/config"
	"github.com/NSF-Swift/satellite-overhead/internal/engine"
	"github.com/NSF-Swift/satellite-overhead/internal/logging"
	"github.com/NSF-Swift/satellite-overhead/internal/models"
	"github.com/NSF-Swift/satellite-overhead/internal/recurrence"
	"github.com/NSF-Swift/satellite-overhead/internal/report"
	"github.com/NSF-Swift/satellite-overhead/internal/store"
	"github.com/NSF-Swift/satellite-overhead/internal/tle"
)

var t0 = time.Date(2026, 6, 1, 2, 0, 0, 0, time.UTC)

// boresight keeps every object on the antenna's boresight.
var boresight = engine.ProviderFunc(func(_ context.Context, _ models.TrackedObject, t time.Time) (models.PositionTime, error) {
	return models.PositionTime{Time: t, Position: models.Position{Altitude: 45, Azimuth: 180}}, nil
})

func testReservation(begin time.Time) models.Reservation {
	return models.Reservation{
		Facility: models.Facility{Name: "HCRO", Beamwidth: 3},
		Window:   models.TimeWindow{Begin: begin, End: begin.Add(10 * time.Second)},
	}
}

func newTestRunner(t *testing.T, format string) (*runner, *bytes.Buffer, *report.FakePublisher) {
	t.Helper()
	runs, err := store.Open("", 0, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { runs.Close() })

	var out bytes.Buffer
	pub := report.NewFakePublisher()
	return &runner{
		finder: engine.NewFinder(boresight, logging.Discard()),
		runs:   runs,
		pub:    pub,
		topic:  "sopp/windows",
		out:    &out,
		format: format,
		logger: logging.Discard(),
	}, &out, pub
}

var staticPointing = antenna.Pointing{Static: &models.Position{Altitude: 45, Azimuth: 180}}

func TestRunnerEvaluatesEveryReservation(t *testing.T) {
	r, out, pub := newTestRunner(t, "text")
	objects := []models.TrackedObject{{ID: 1, Name: "SAT-1"}, {ID: 2, Name: "SAT-2"}}
	reservations := []models.Reservation{testReservation(t0), testReservation(t0.Add(24 * time.Hour))}

	recs, err := r.runAll(context.Background(), objects, reservations, staticPointing, engine.DefaultRuntimeSettings())
	require.NoError(t, err)
	require.Len(t, recs, 2)
	for _, rec := range recs {
		assert.Len(t, rec.MainBeam, 2)
		assert.Len(t, rec.Horizon, 2)
		assert.False(t, rec.Cancelled)
	}

	assert.Equal(t, 2, strings.Count(out.String(), "Main beam crossings: 2"))
	assert.Len(t, pub.Messages, 8)

	saved, err := r.runs.List(0)
	require.NoError(t, err)
	assert.Len(t, saved, 2)
}

func TestRunnerJSONOutput(t *testing.T) {
	r, out, _ := newTestRunner(t, "json")
	_, err := r.runAll(context.Background(), []models.TrackedObject{{ID: 1}},
		[]models.Reservation{testReservation(t0)}, staticPointing, engine.DefaultRuntimeSettings())
	require.NoError(t, err)
	assert.Contains(t, out.String(), `"main_beam": [`)
}

func TestRunnerStopsOnCancellation(t *testing.T) {
	r, _, _ := newTestRunner(t, "text")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reservations := []models.Reservation{testReservation(t0), testReservation(t0.Add(time.Hour))}
	recs, err := r.runAll(ctx, []models.TrackedObject{{ID: 1}}, reservations, staticPointing, engine.DefaultRuntimeSettings())
	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, recs, 1, "second reservation never starts")
	assert.True(t, recs[0].Cancelled)
	assert.Len(t, recs[0].Failures, 1)
}

func TestRunnerConfigurationError(t *testing.T) {
	r, out, _ := newTestRunner(t, "text")
	recs, err := r.runAll(context.Background(), nil, []models.Reservation{testReservation(t0)},
		antenna.Pointing{}, engine.DefaultRuntimeSettings())

	var cfgErr *engine.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "antenna", cfgErr.Field)
	assert.Empty(t, recs)
	assert.Empty(t, out.String())
}

func TestReservationsFor(t *testing.T) {
	t.Setenv("SOPP_CONFIG", "")
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Reservation = models.TimeWindow{Begin: t0, End: t0.Add(time.Hour)}

	got, err := reservationsFor(cfg)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, cfg.Reservation, got[0].Window)

	cfg.Recurrence = &recurrence.Rule{Schedule: "0 2 * * *", Count: 3}
	got, err = reservationsFor(cfg)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, t0.Add(48*time.Hour), got[2].Window.Begin)
}

func TestCatalogPath(t *testing.T) {
	t.Setenv("SOPP_CONFIG", "")
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Catalog.CacheDir = t.TempDir()

	_, err = catalogPath(cfg)
	assert.ErrorContains(t, err, "sopp tle fetch")

	saved, err := tle.NewCache(cfg.Catalog.CacheDir, 2).Save([]byte("x"), t0)
	require.NoError(t, err)
	got, err := catalogPath(cfg)
	require.NoError(t, err)
	assert.Equal(t, saved, got)

	cfg.Catalog.TLEFile = "explicit.tle"
	got, err = catalogPath(cfg)
	require.NoError(t, err)
	assert.Equal(t, "explicit.tle", got)
}

const issTLE = `ISS (ZARYA)
1 25544U 98067A   24100.50000000  .00016717  00000-0  10270-3 0  9009
2 25544  51.6400 100.0000 0001000   0.0000   0.0000 15.50000000    01
`

func TestRunCommand(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "iss.tle"), []byte(issTLE), 0o644))
	cfgPath := filepath.Join(dir, "sopp.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
facility:
  name: HCRO
  coordinates:
    latitude: 40.8178
    longitude: -121.4695
  elevation: 986
reservation:
  begin: 2024-04-09T12:00:00Z
  end: 2024-04-09T12:10:00Z
runtime:
  resolution: 10s
antenna:
  static:
    altitude: 90
    azimuth: 0
catalog:
  tle_file: iss.tle
`), 0o644))
	t.Setenv("SOPP_CONFIG", "")
	t.Setenv("SOPP_TLE_FILE", "")

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"--config", cfgPath, "--log-level", "error", "run", "--tle", filepath.Join(dir, "iss.tle"), "--save=false"})
	require.NoError(t, root.Execute(), out.String())
	assert.Contains(t, out.String(), "Run ")
	assert.Contains(t, out.String(), "at HCRO")
	assert.Contains(t, out.String(), "Main beam crossings:")
}

func TestRunCommandRejectsFormat(t *testing.T) {
	t.Setenv("SOPP_CONFIG", "")
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"run", "--format", "xml"})
	assert.ErrorContains(t, root.Execute(), "unknown format")
}
