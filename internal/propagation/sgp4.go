// Package propagation places catalog objects in a facility's sky using the
// SGP4 model from github.com/joshuaferrara/go-satellite.
package propagation

import (
	"fmt"
	"strings"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/NSF-Swift/satellite-overhead/internal/tle"
	"github.com/NSF-Swift/satellite-overhead/internal/transform"
)

// SGP4Propagator wraps one initialized satellite record. Propagate takes the
// record by value, so one propagator can be shared across goroutines.
type SGP4Propagator struct {
	sat     satellite.Satellite
	noradID int
}

// NewSGP4Propagator initializes SGP4 from an element set.
//
// The lines are fully validated first; go-satellite calls log.Fatal on any
// field it cannot parse.
func NewSGP4Propagator(e tle.Entry) (*SGP4Propagator, error) {
	if err := tle.ValidateLines(e.Line1, e.Line2); err != nil {
		return nil, fmt.Errorf("invalid TLE for NORAD %d: %w", e.NORADID, err)
	}

	sat := satellite.TLEToSat(strings.TrimSpace(e.Line1), strings.TrimSpace(e.Line2), satellite.GravityWGS84)
	if sat.Error != 0 {
		return nil, fmt.Errorf("sgp4 init failed for NORAD %d: code=%d %s", e.NORADID, sat.Error, sat.ErrorStr)
	}
	return &SGP4Propagator{sat: sat, noradID: e.NORADID}, nil
}

// Propagate returns the TEME position in km at t.
//
// go-satellite only accepts whole seconds, so the sub-second remainder is
// covered by advancing along the velocity vector.
func (p *SGP4Propagator) Propagate(t time.Time) (transform.Vector, error) {
	t = t.UTC()
	pos, vel := satellite.Propagate(p.sat, t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())

	frac := float64(t.Nanosecond()) / 1e9
	teme := transform.Vector{
		X: pos.X + vel.X*frac,
		Y: pos.Y + vel.Y*frac,
		Z: pos.Z + vel.Z*frac,
	}

	// Propagate does not surface SGP4 error codes; a decayed or diverged
	// orbit shows up as NaN or an implausible radius.
	if !teme.Finite() {
		return transform.Vector{}, fmt.Errorf("sgp4 propagation failed for NORAD %d: output is NaN/Inf", p.noradID)
	}
	if mag := teme.Norm(); mag < 6200.0 || mag > 50000.0 {
		return transform.Vector{}, fmt.Errorf("sgp4 propagation failed for NORAD %d: unreasonable position magnitude %.1f km", p.noradID, mag)
	}
	return teme, nil
}
