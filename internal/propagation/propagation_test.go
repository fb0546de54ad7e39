package propagation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/NSF-Swift/satellite-overhead/internal/engine"
	"github.com/NSF-Swift/satellite-overhead/internal/models"
	"github.com/NSF-Swift/satellite-overhead/internal/tle"
)

const (
	issLine1 = "1 25544U 98067A   24100.50000000  .00016717  00000-0  10270-3 0  9009"
	issLine2 = "2 25544  51.6400 100.0000 0001000   0.0000   0.0000 15.50000000    01"

	starlinkLine1 = "1 44713U 19074A   24100.50000000  .00001000  00000-0  10000-4 0  9998"
	starlinkLine2 = "2 44713  53.0000 200.0000 0001500  90.0000 270.0000 15.06000000    07"
)

var (
	testLogger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	greenBank  = models.Facility{
		Name:        "GBT",
		Coordinates: models.Coordinates{Latitude: 38.4331, Longitude: -79.8397},
		ElevationM:  807,
		Beamwidth:   3,
	}
	iss = models.TrackedObject{
		ID:       25544,
		Name:     "ISS (ZARYA)",
		Elements: tle.Entry{NORADID: 25544, Line1: issLine1, Line2: issLine2},
	}
	target = time.Date(2024, 4, 10, 12, 0, 0, 0, time.UTC)
)

func TestPropagateISS(t *testing.T) {
	prop, err := NewSGP4Propagator(iss.Elements)
	if err != nil {
		t.Fatalf("NewSGP4Propagator failed: %v", err)
	}

	teme, err := prop.Propagate(target)
	if err != nil {
		t.Fatalf("Propagate failed: %v", err)
	}
	// ~420 km above a 6371 km Earth.
	if mag := teme.Norm(); mag < 6500 || mag > 7000 {
		t.Errorf("TEME position magnitude = %.1f km, expected ~6791 km (ISS orbit)", mag)
	}
}

func TestPropagateSubSecond(t *testing.T) {
	prop, err := NewSGP4Propagator(iss.Elements)
	if err != nil {
		t.Fatal(err)
	}
	a, _ := prop.Propagate(target)
	mid, _ := prop.Propagate(target.Add(500 * time.Millisecond))
	b, _ := prop.Propagate(target.Add(time.Second))

	// At ~7.7 km/s the midpoint must sit between the whole-second samples.
	if d := math.Abs(mid.X - (a.X+b.X)/2); d > 0.05 {
		t.Errorf("midpoint X off by %.3f km", d)
	}
	if mid == a {
		t.Error("sub-second offset ignored")
	}
}

func TestInvalidElements(t *testing.T) {
	tests := []struct {
		name         string
		line1, line2 string
	}{
		{"garbage", "invalid line 1", "invalid line 2"},
		{"swapped", issLine2, issLine1},
		{"mixed objects", issLine1, starlinkLine2},
		{"corrupt mean motion", issLine1, "2 25544  51.6400 100.0000 0001000   0.0000   0.0000 15.5000X000    01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewSGP4Propagator(tle.Entry{NORADID: 1, Line1: tt.line1, Line2: tt.line2}); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestProviderPosition(t *testing.T) {
	p := NewProvider(greenBank, testLogger)

	for i := 0; i < 90; i++ {
		at := target.Add(time.Duration(i) * time.Minute)
		pt, err := p.PositionAt(context.Background(), iss, at)
		if err != nil {
			t.Fatalf("PositionAt(%v): %v", at, err)
		}
		if !pt.Time.Equal(at) {
			t.Fatalf("sample time = %v, want %v", pt.Time, at)
		}
		pos := pt.Position
		if pos.Altitude < -90 || pos.Altitude > 90 {
			t.Errorf("altitude %.2f out of range", pos.Altitude)
		}
		if pos.Azimuth < 0 || pos.Azimuth >= 360 {
			t.Errorf("azimuth %.2f out of range", pos.Azimuth)
		}
		// Range to a 420 km orbit: ~400 km overhead up to ~13,200 km at the antipode.
		if pos.DistanceKm < 300 || pos.DistanceKm > 13500 {
			t.Errorf("range %.1f km implausible", pos.DistanceKm)
		}
	}
	if got := p.Cached(); got != 1 {
		t.Errorf("Cached = %d, want 1", got)
	}
}

func TestProviderCachesInitError(t *testing.T) {
	p := NewProvider(greenBank, testLogger)
	bad := models.TrackedObject{ID: 99999, Elements: tle.Entry{Line1: "short", Line2: "short"}}

	_, err1 := p.PositionAt(context.Background(), bad, target)
	_, err2 := p.PositionAt(context.Background(), bad, target.Add(time.Second))
	if err1 == nil || err2 == nil {
		t.Fatal("expected errors for bad elements")
	}
	if err1.Error() != err2.Error() {
		t.Errorf("errors differ: %v / %v", err1, err2)
	}
	if got := p.Cached(); got != 1 {
		t.Errorf("Cached = %d, want 1", got)
	}
}

func TestProviderCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewProvider(greenBank, testLogger).PositionAt(ctx, iss, target); err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestProviderConcurrent(t *testing.T) {
	p := NewProvider(greenBank, testLogger)
	starlink := models.TrackedObject{ID: 44713, Elements: tle.Entry{Line1: starlinkLine1, Line2: starlinkLine2}}

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			obj := iss
			if w%2 == 1 {
				obj = starlink
			}
			for i := 0; i < 20; i++ {
				if _, err := p.PositionAt(context.Background(), obj, target.Add(time.Duration(i)*time.Second)); err != nil {
					t.Errorf("worker %d: %v", w, err)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	if got := p.Cached(); got != 2 {
		t.Errorf("Cached = %d, want 2", got)
	}
}

// withChecksum replaces the last column of a data line with its mod-10 sum.
func withChecksum(line string) string {
	sum := 0
	for _, c := range line[:68] {
		switch {
		case c >= '0' && c <= '9':
			sum += int(c - '0')
		case c == '-':
			sum++
		}
	}
	return line[:68] + fmt.Sprint(sum%10)
}

func TestProviderRetainAcrossReloads(t *testing.T) {
	p := NewProvider(greenBank, testLogger)

	for day := 100; day < 105; day++ {
		obj := iss
		obj.Elements.Line1 = withChecksum(fmt.Sprintf("%s%03d%s", issLine1[:20], day, issLine1[23:]))
		if _, err := p.PositionAt(context.Background(), obj, target); err != nil {
			t.Fatalf("day %d: %v", day, err)
		}

		// A reload carrying only the new elements.
		p.Retain([]models.TrackedObject{obj})
		if got := p.Cached(); got != 1 {
			t.Fatalf("after reload %d: Cached = %d, want 1", day, got)
		}
	}

	if dropped := p.Retain(nil); dropped != 1 {
		t.Errorf("Retain(nil) dropped %d, want 1", dropped)
	}
	if got := p.Cached(); got != 0 {
		t.Errorf("Cached = %d, want 0", got)
	}
}

func TestFinderIsolatesCorruptElements(t *testing.T) {
	corrupt := models.TrackedObject{
		ID:   25545,
		Name: "CORRUPT",
		Elements: tle.Entry{
			Line1: "1 25545U 98067A   24100.50000000  .00016717  00000-0  10270-3 0  9000",
			Line2: "2 25545  51.6400 100.0000 0001000   0.0000   0.0000 15.5000X000    02",
		},
	}
	starlink := models.TrackedObject{ID: 44713, Name: "STARLINK-1007", Elements: tle.Entry{Line1: starlinkLine1, Line2: starlinkLine2}}
	objects := []models.TrackedObject{iss, corrupt, starlink}

	res := models.Reservation{
		Facility: greenBank,
		Window:   models.TimeWindow{Begin: target, End: target.Add(30 * time.Minute)},
	}
	// Every object is above -90 degrees, so each healthy object yields one
	// window spanning the whole grid.
	settings := engine.RuntimeSettings{Concurrency: 3, Resolution: time.Minute, MinAltitude: -90}
	grid, err := engine.GridFor(res, settings)
	if err != nil {
		t.Fatal(err)
	}
	path := make([]models.PositionTime, grid.Len())
	for i, at := range grid.Times {
		path[i] = models.PositionTime{Time: at, Position: models.Position{Altitude: 45, Azimuth: 180}}
	}

	f := engine.NewFinder(NewProvider(greenBank, testLogger), testLogger)
	_, horizon, err := f.FindAll(context.Background(), objects, res, path, settings)
	if err != nil {
		t.Fatalf("FindAll: %v", err)
	}

	if len(horizon.Windows) != 2 {
		t.Fatalf("got %d windows, want 2", len(horizon.Windows))
	}
	for i, want := range []int{25544, 44713} {
		w := horizon.Windows[i]
		if w.Object.ID != want || len(w.Positions) != grid.Len() {
			t.Errorf("window %d = object %d with %d samples, want %d with %d", i, w.Object.ID, len(w.Positions), want, grid.Len())
		}
	}

	if len(horizon.Failures) != 1 || horizon.Failures[0].Object.ID != 25545 {
		t.Fatalf("failures = %+v, want only 25545", horizon.Failures)
	}
	var posErr *engine.PositionResolutionError
	if !errors.As(horizon.Failures[0].Err, &posErr) {
		t.Errorf("failure err = %T, want *engine.PositionResolutionError", horizon.Failures[0].Err)
	}
}
