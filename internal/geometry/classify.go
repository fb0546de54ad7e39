// Package geometry classifies one object sample against the antenna
// boresight at the same instant.
package geometry

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/NSF-Swift/satellite-overhead/internal/models"
)

// edgeTolerance absorbs acos rounding so that an object sitting exactly on
// the beam edge is still counted. Altitude is compared exactly.
const edgeTolerance = 1e-9 // degrees

// ErrTimestampMismatch means the antenna and object samples were taken at
// different instants.
var ErrTimestampMismatch = errors.New("antenna and object timestamps differ")

// Sample is one classified object position.
type Sample struct {
	models.PositionTime
	Separation float64 // degrees between boresight and object
	Horizon    bool    // object altitude >= minimum altitude
	MainBeam   bool    // Horizon and Separation <= beam radius
}

// Separation returns the great-circle angle in degrees between two
// horizontal directions, using the spherical law of cosines.
func Separation(a, b models.Position) float64 {
	altA := a.Altitude * math.Pi / 180
	altB := b.Altitude * math.Pi / 180
	dAz := (a.Azimuth - b.Azimuth) * math.Pi / 180

	c := math.Sin(altA)*math.Sin(altB) + math.Cos(altA)*math.Cos(altB)*math.Cos(dAz)
	// Rounding can push c just outside [-1, 1].
	if c > 1 {
		c = 1
	} else if c < -1 {
		c = -1
	}
	return math.Acos(c) * 180 / math.Pi
}

// Classify evaluates an object sample against the antenna sample taken at
// the same instant. beamRadius is half the beamwidth. Both thresholds are
// inclusive.
func Classify(antenna, object models.PositionTime, beamRadius, minAltitude float64) (Sample, error) {
	if !antenna.Time.Equal(object.Time) {
		return Sample{}, fmt.Errorf("%w: antenna=%s object=%s", ErrTimestampMismatch,
			antenna.Time.UTC().Format(time.RFC3339Nano), object.Time.UTC().Format(time.RFC3339Nano))
	}

	sep := Separation(antenna.Position, object.Position)
	horizon := object.Position.Altitude >= minAltitude

	return Sample{
		PositionTime: object,
		Separation:   sep,
		Horizon:      horizon,
		MainBeam:     horizon && sep <= beamRadius+edgeTolerance,
	}, nil
}
