package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NSF-Swift/satellite-overhead/internal/geometry"
	"github.com/NSF-Swift/satellite-overhead/internal/models"
	"github.com/NSF-Swift/satellite-overhead/internal/timegrid"
)

var (
	testLogger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	t0         = time.Date(2026, 3, 1, 4, 0, 0, 0, time.UTC)
	boresight  = models.Position{Altitude: 45, Azimuth: 180}
	offBeam    = models.Position{Altitude: 55, Azimuth: 180} // 10° from boresight
)

// script returns the position of object id at grid index i.
type script func(id, i int) (models.Position, error)

func scripted(step time.Duration, at script) PositionProvider {
	return ProviderFunc(func(ctx context.Context, obj models.TrackedObject, t time.Time) (models.PositionTime, error) {
		pos, err := at(obj.ID, int(t.Sub(t0)/step))
		return models.PositionTime{Time: t, Position: pos}, err
	})
}

func reservation(samples int, step time.Duration) models.Reservation {
	return models.Reservation{
		Facility: models.Facility{Name: "test", Beamwidth: 3},
		Window:   models.TimeWindow{Begin: t0, End: t0.Add(time.Duration(samples-1) * step)},
	}
}

func settings(workers int, step time.Duration) RuntimeSettings {
	return RuntimeSettings{Concurrency: workers, Resolution: step}
}

func staticPath(t *testing.T, res models.Reservation, s RuntimeSettings, pos models.Position) []models.PositionTime {
	t.Helper()
	grid, err := GridFor(res, s)
	require.NoError(t, err)
	path := make([]models.PositionTime, grid.Len())
	for i, tm := range grid.Times {
		path[i] = models.PositionTime{Time: tm, Position: pos}
	}
	return path
}

func objects(ids ...int) []models.TrackedObject {
	out := make([]models.TrackedObject, len(ids))
	for i, id := range ids {
		out[i] = models.TrackedObject{ID: id, Name: fmt.Sprintf("OBJ-%d", id)}
	}
	return out
}

func TestEmptyPopulation(t *testing.T) {
	res := reservation(6, time.Minute)
	s := settings(4, time.Minute)
	f := NewFinder(scripted(time.Minute, func(int, int) (models.Position, error) {
		t.Fatal("provider called for empty population")
		return models.Position{}, nil
	}), testLogger)

	mb, hz, err := f.FindAll(context.Background(), nil, res, staticPath(t, res, s, boresight), s)
	require.NoError(t, err)
	assert.Empty(t, mb.Windows)
	assert.Empty(t, mb.Failures)
	assert.Empty(t, hz.Windows)
	assert.Empty(t, hz.Failures)
}

func TestWholeWindowInBeam(t *testing.T) {
	const samples = 11
	res := reservation(samples, 30*time.Second)
	s := settings(1, 30*time.Second)
	f := NewFinder(scripted(30*time.Second, func(int, int) (models.Position, error) {
		return boresight, nil
	}), testLogger)

	got, err := f.FindMainBeamCrossings(context.Background(), objects(7), res, staticPath(t, res, s, boresight), s)
	require.NoError(t, err)
	require.Len(t, got.Windows, 1)
	assert.Len(t, got.Windows[0].Positions, samples)
	assert.Equal(t, 7, got.Windows[0].Object.ID)
	assert.Equal(t, res.Window.End, got.Windows[0].End())
}

// TestMiddleSamplesScenario: a 5-minute window sampled every minute, with the
// object on boresight only at samples 2, 3 and 4.
func TestMiddleSamplesScenario(t *testing.T) {
	res := reservation(6, time.Minute)
	s := settings(1, time.Minute)
	f := NewFinder(scripted(time.Minute, func(_, i int) (models.Position, error) {
		if i >= 2 && i <= 4 {
			return boresight, nil
		}
		return offBeam, nil
	}), testLogger)

	got, err := f.FindMainBeamCrossings(context.Background(), objects(1), res, staticPath(t, res, s, boresight), s)
	require.NoError(t, err)
	require.Len(t, got.Windows, 1)

	var times []time.Time
	for _, p := range got.Windows[0].Positions {
		times = append(times, p.Time)
	}
	want := []time.Time{t0.Add(2 * time.Minute), t0.Add(3 * time.Minute), t0.Add(4 * time.Minute)}
	if diff := cmp.Diff(want, times); diff != "" {
		t.Errorf("window times mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, got.Failures)
}

func TestFailureTruncatesWindow(t *testing.T) {
	res := reservation(6, time.Minute)
	s := settings(2, time.Minute)
	f := NewFinder(scripted(time.Minute, func(id, i int) (models.Position, error) {
		if id == 1 && i == 3 {
			return models.Position{}, errors.New("sgp4 diverged")
		}
		return boresight, nil
	}), testLogger)

	got, err := f.FindMainBeamCrossings(context.Background(), objects(1, 2, 3), res, staticPath(t, res, s, boresight), s)
	require.NoError(t, err)

	require.Len(t, got.Windows, 3)
	assert.Equal(t, 1, got.Windows[0].Object.ID)
	assert.Len(t, got.Windows[0].Positions, 3)
	assert.Equal(t, t0.Add(2*time.Minute), got.Windows[0].End())
	assert.Len(t, got.Windows[1].Positions, 6)
	assert.Len(t, got.Windows[2].Positions, 6)

	require.Len(t, got.Failures, 1)
	assert.Equal(t, 0, got.Failures[0].Index)
	var perr *PositionResolutionError
	require.ErrorAs(t, got.Failures[0].Err, &perr)
	assert.Equal(t, 1, perr.ObjectID)
	assert.Equal(t, t0.Add(3*time.Minute), perr.Time)
}

func TestFailureStopsProviderCalls(t *testing.T) {
	res := reservation(10, time.Second)
	s := settings(1, time.Second)
	var calls atomic.Int32
	f := NewFinder(scripted(time.Second, func(_, i int) (models.Position, error) {
		calls.Add(1)
		if i == 1 {
			return models.Position{}, errors.New("bad elements")
		}
		return boresight, nil
	}), testLogger)

	got, err := f.FindAboveHorizon(context.Background(), objects(9), res, staticPath(t, res, s, boresight), s)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	require.Len(t, got.Failures, 1)
}

// windowPattern builds a deterministic mix of hits, misses and failures per
// object so that concurrency changes would show up as diffs.
func windowPattern(id, i int) (models.Position, error) {
	switch {
	case id%7 == 0 && i == 15:
		return models.Position{}, fmt.Errorf("object %d diverged", id)
	case (i+id)%5 < 2:
		return offBeam, nil
	case (i*id)%11 == 0:
		return models.Position{Altitude: -5, Azimuth: 10}, nil
	default:
		return boresight, nil
	}
}

type failureKey struct {
	Index  int
	Reason string
}

func failureKeys(fs []Failure) []failureKey {
	keys := make([]failureKey, len(fs))
	for i, f := range fs {
		keys[i] = failureKey{Index: f.Index, Reason: f.Reason()}
	}
	return keys
}

func TestConcurrencyDeterminism(t *testing.T) {
	const samples = 40
	res := reservation(samples, time.Second)
	ids := make([]int, 50)
	for i := range ids {
		ids[i] = 100 - i
	}
	pop := objects(ids...)
	provider := scripted(time.Second, windowPattern)

	var baseMB, baseHZ Result
	for _, workers := range []int{1, 2, 8} {
		s := settings(workers, time.Second)
		f := NewFinder(provider, testLogger)
		mb, hz, err := f.FindAll(context.Background(), pop, res, staticPath(t, res, s, boresight), s)
		require.NoError(t, err)

		if workers == 1 {
			baseMB, baseHZ = mb, hz
			require.NotEmpty(t, mb.Windows)
			require.NotEmpty(t, mb.Failures)
			continue
		}
		if diff := cmp.Diff(baseMB.Windows, mb.Windows); diff != "" {
			t.Errorf("workers=%d main beam windows differ (-1 +%d):\n%s", workers, workers, diff)
		}
		if diff := cmp.Diff(baseHZ.Windows, hz.Windows); diff != "" {
			t.Errorf("workers=%d horizon windows differ:\n%s", workers, diff)
		}
		if diff := cmp.Diff(failureKeys(baseMB.Failures), failureKeys(mb.Failures)); diff != "" {
			t.Errorf("workers=%d failures differ:\n%s", workers, diff)
		}
	}
}

func TestWindowsAreContiguousAndOrdered(t *testing.T) {
	const step = 5 * time.Second
	res := reservation(60, step)
	s := settings(3, step)
	ids := []int{3, 1, 4, 15, 9, 2, 6}
	f := NewFinder(scripted(step, windowPattern), testLogger)

	mb, hz, err := f.FindAll(context.Background(), objects(ids...), res, staticPath(t, res, s, boresight), s)
	require.NoError(t, err)

	for _, r := range []Result{mb, hz} {
		lastIndex := -1
		for _, w := range r.Windows {
			require.NotEmpty(t, w.Positions)
			assert.GreaterOrEqual(t, w.Index, lastIndex, "windows out of input order")
			lastIndex = w.Index
			assert.Equal(t, ids[w.Index], w.Object.ID)
			for k := 1; k < len(w.Positions); k++ {
				assert.Equal(t, step, w.Positions[k].Time.Sub(w.Positions[k-1].Time),
					"gap inside window of object %d", w.Object.ID)
			}
		}
	}
}

func TestBoundaryInclusive(t *testing.T) {
	res := reservation(3, time.Second)
	s := RuntimeSettings{Concurrency: 1, Resolution: time.Second, MinAltitude: 10}
	f := NewFinder(scripted(time.Second, func(id, i int) (models.Position, error) {
		switch id {
		case 1:
			return models.Position{Altitude: 10, Azimuth: 90}, nil // exactly at minimum altitude
		default:
			return models.Position{Altitude: 46.5, Azimuth: 180}, nil // exactly beamwidth/2 off
		}
	}), testLogger)

	mb, hz, err := f.FindAll(context.Background(), objects(1, 2), res, staticPath(t, res, s, boresight), s)
	require.NoError(t, err)

	require.Len(t, hz.Windows, 2)
	assert.Len(t, hz.Windows[0].Positions, 3)
	require.Len(t, mb.Windows, 1)
	assert.Equal(t, 2, mb.Windows[0].Object.ID)
	assert.Len(t, mb.Windows[0].Positions, 3)
}

func TestBelowHorizonNeverInBeam(t *testing.T) {
	res := reservation(4, time.Second)
	s := RuntimeSettings{Concurrency: 1, Resolution: time.Second, MinAltitude: 20}
	low := models.Position{Altitude: 5, Azimuth: 0}
	f := NewFinder(scripted(time.Second, func(int, int) (models.Position, error) { return low, nil }), testLogger)

	mb, hz, err := f.FindAll(context.Background(), objects(1), res, staticPath(t, res, s, low), s)
	require.NoError(t, err)
	assert.Empty(t, mb.Windows)
	assert.Empty(t, hz.Windows)
}

func TestPanicIsolatedToShard(t *testing.T) {
	res := reservation(5, time.Second)
	s := settings(2, time.Second)
	f := NewFinder(scripted(time.Second, func(id, i int) (models.Position, error) {
		if id == 10 && i == 1 {
			panic("corrupt element set")
		}
		return boresight, nil
	}), testLogger)

	// Shards: [10, 11] and [12, 13].
	got, err := f.FindMainBeamCrossings(context.Background(), objects(10, 11, 12, 13), res, staticPath(t, res, s, boresight), s)
	require.NoError(t, err)

	require.Len(t, got.Failures, 2)
	for i, fl := range got.Failures {
		assert.Equal(t, i, fl.Index)
		var wf *WorkerFailure
		require.ErrorAs(t, fl.Err, &wf)
		assert.Equal(t, 0, wf.Shard)
	}
	require.Len(t, got.Windows, 2)
	assert.Equal(t, 12, got.Windows[0].Object.ID)
	assert.Equal(t, 13, got.Windows[1].Object.ID)
}

func TestProviderTimestampMismatchIsFatal(t *testing.T) {
	res := reservation(5, time.Second)
	s := settings(2, time.Second)
	f := NewFinder(ProviderFunc(func(ctx context.Context, obj models.TrackedObject, tm time.Time) (models.PositionTime, error) {
		if obj.ID == 3 && tm.Equal(t0.Add(2*time.Second)) {
			tm = tm.Add(time.Millisecond)
		}
		return models.PositionTime{Time: tm, Position: boresight}, nil
	}), testLogger)

	_, _, err := f.FindAll(context.Background(), objects(1, 2, 3, 4), res, staticPath(t, res, s, boresight), s)
	var mismatch *TimestampMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 2, mismatch.Index)
	assert.Equal(t, 3, mismatch.ObjectID)
	assert.ErrorIs(t, err, geometry.ErrTimestampMismatch)
}

func TestCancellationDiscardsInFlight(t *testing.T) {
	res := reservation(5, time.Second)
	s := settings(1, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := NewFinder(scripted(time.Second, func(id, i int) (models.Position, error) {
		if id == 3 && i == 2 {
			cancel()
		}
		return boresight, nil
	}), testLogger)

	got, err := f.FindMainBeamCrossings(ctx, objects(1, 2, 3, 4), res, staticPath(t, res, s, boresight), s)
	require.ErrorIs(t, err, context.Canceled)

	require.Len(t, got.Windows, 2)
	assert.Equal(t, 1, got.Windows[0].Object.ID)
	assert.Equal(t, 2, got.Windows[1].Object.ID)

	require.Len(t, got.Failures, 2)
	for i, fl := range got.Failures {
		assert.Equal(t, i+2, fl.Index)
		assert.ErrorIs(t, fl.Err, context.Canceled)
	}
}

func TestConfigurationErrors(t *testing.T) {
	good := reservation(5, time.Second)
	goodSettings := settings(1, time.Second)
	path := staticPath(t, good, goodSettings, boresight)

	shifted := make([]models.PositionTime, len(path))
	copy(shifted, path)
	shifted[3].Time = shifted[3].Time.Add(time.Second)

	reversed := good
	reversed.Window.Begin, reversed.Window.End = good.Window.End, good.Window.Begin

	noBeam := good
	noBeam.Facility.Beamwidth = 0

	tests := []struct {
		name     string
		res      models.Reservation
		settings RuntimeSettings
		path     []models.PositionTime
		check    func(t *testing.T, err error)
	}{
		{"zero resolution", good, settings(1, 0), path, isConfigError("runtime.resolution")},
		{"zero concurrency", good, settings(0, time.Second), path, isConfigError("runtime.concurrency")},
		{"reversed window", reversed, goodSettings, path, func(t *testing.T, err error) {
			isConfigError("reservation.window")(t, err)
			assert.ErrorIs(t, err, timegrid.ErrInvalidWindow)
		}},
		{"short path", good, goodSettings, path[:4], isConfigError("antenna")},
		{"zero beamwidth", noBeam, goodSettings, path, isConfigError("facility.beamwidth")},
		{"shifted path", good, goodSettings, shifted, func(t *testing.T, err error) {
			var mismatch *TimestampMismatchError
			require.ErrorAs(t, err, &mismatch)
			assert.Equal(t, 3, mismatch.Index)
		}},
	}

	f := NewFinder(scripted(time.Second, func(int, int) (models.Position, error) {
		t.Fatal("provider called despite invalid configuration")
		return models.Position{}, nil
	}), testLogger)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := f.FindAll(context.Background(), objects(1), tt.res, tt.path, tt.settings)
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func isConfigError(field string) func(*testing.T, error) {
	return func(t *testing.T, err error) {
		t.Helper()
		var cfgErr *ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, field, cfgErr.Field)
	}
}

func TestPartition(t *testing.T) {
	tests := []struct {
		n, workers int
		want       []shard
	}{
		{0, 4, nil},
		{3, 8, []shard{{0, 1}, {1, 2}, {2, 3}}},
		{10, 3, []shard{{0, 4}, {4, 7}, {7, 10}}},
		{4, 1, []shard{{0, 4}}},
	}
	for _, tt := range tests {
		got := partition(tt.n, tt.workers)
		if diff := cmp.Diff(tt.want, got, cmp.AllowUnexported(shard{})); diff != "" {
			t.Errorf("partition(%d, %d) mismatch (-want +got):\n%s", tt.n, tt.workers, diff)
		}
	}
}

func TestOverheadWindowHelpers(t *testing.T) {
	w := OverheadWindow{Positions: []models.PositionTime{
		{Time: t0, Position: models.Position{Altitude: 20}},
		{Time: t0.Add(time.Second), Position: models.Position{Altitude: 40}},
		{Time: t0.Add(2 * time.Second), Position: models.Position{Altitude: 30}},
	}}
	assert.Equal(t, 2*time.Second, w.Duration())
	assert.Equal(t, 40.0, w.Peak().Position.Altitude)
	assert.Equal(t, t0.Add(time.Second), w.Peak().Time)
}
