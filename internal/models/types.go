// Package models holds the value types shared by the catalog, antenna,
// propagation and engine packages.
package models

import (
	"fmt"
	"time"

	"github.com/NSF-Swift/satellite-overhead/internal/tle"
)

// DefaultBeamwidth is the facility beamwidth in degrees when none is configured.
const DefaultBeamwidth = 3.0

// Position is a topocentric direction relative to the facility.
type Position struct {
	Altitude   float64 `json:"altitude" yaml:"altitude"`                           // degrees, 0 = horizon, 90 = zenith
	Azimuth    float64 `json:"azimuth" yaml:"azimuth"`                             // degrees, 0 = North, clockwise
	DistanceKm float64 `json:"distance_km,omitempty" yaml:"distance_km,omitempty"` // 0 when unknown
}

// PositionTime is a Position at one instant.
type PositionTime struct {
	Time     time.Time `json:"time" yaml:"time"`
	Position Position  `json:"position" yaml:"position"`
}

// TimeWindow is a half-open interval of time.
type TimeWindow struct {
	Begin time.Time `json:"begin" yaml:"begin"`
	End   time.Time `json:"end" yaml:"end"`
}

// Duration returns End - Begin.
func (w TimeWindow) Duration() time.Duration {
	return w.End.Sub(w.Begin)
}

// Overlaps reports whether w and o share any instant.
func (w TimeWindow) Overlaps(o TimeWindow) bool {
	return w.Begin.Before(o.End) && w.End.After(o.Begin)
}

// Coordinates is a geodetic location in degrees.
type Coordinates struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
}

// Facility describes the radio telescope.
type Facility struct {
	Name        string      `json:"name" yaml:"name"`
	Coordinates Coordinates `json:"coordinates" yaml:"coordinates"`
	ElevationM  float64     `json:"elevation_m" yaml:"elevation"`
	Beamwidth   float64     `json:"beamwidth" yaml:"beamwidth"` // degrees, full width of the main beam
}

// BeamRadius returns half the beamwidth.
func (f Facility) BeamRadius() float64 {
	return f.Beamwidth / 2
}

// FrequencyRange is a band given by its center and total width, in MHz.
type FrequencyRange struct {
	Frequency float64 `json:"frequency" yaml:"frequency"`
	Bandwidth float64 `json:"bandwidth" yaml:"bandwidth"`
	Status    string  `json:"status,omitempty" yaml:"status,omitempty"`
}

// Low returns the lower band edge in MHz.
func (r FrequencyRange) Low() float64 { return r.Frequency - r.Bandwidth/2 }

// High returns the upper band edge in MHz.
func (r FrequencyRange) High() float64 { return r.Frequency + r.Bandwidth/2 }

// Overlaps reports whether the two bands intersect. A zero-width band is
// treated as a single frequency, so touching edges count.
func (r FrequencyRange) Overlaps(o FrequencyRange) bool {
	if r.Bandwidth == 0 || o.Bandwidth == 0 {
		return r.Low() <= o.High() && r.High() >= o.Low()
	}
	return r.Low() < o.High() && r.High() > o.Low()
}

// Reservation is one scheduled observation.
type Reservation struct {
	Facility  Facility       `json:"facility"`
	Window    TimeWindow     `json:"window"`
	Frequency FrequencyRange `json:"frequency"`
}

// TrackedObject is one orbiting object in the population. It is read-only
// for the duration of a run.
type TrackedObject struct {
	ID        int             `json:"id"`
	Name      string          `json:"name"`
	Elements  tle.Entry       `json:"-"`
	Frequency *FrequencyRange `json:"frequency,omitempty"`
	EIRPDBW   *float64        `json:"eirp_dbw,omitempty"` // peak transmit EIRP, when known
}

func (o TrackedObject) String() string {
	if o.Name == "" {
		return fmt.Sprintf("NORAD %d", o.ID)
	}
	return fmt.Sprintf("%s (NORAD %d)", o.Name, o.ID)
}
