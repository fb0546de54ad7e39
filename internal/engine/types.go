// Package engine finds the windows during which tracked objects sit inside a
// telescope's main beam or above its horizon, scanning the population
// concurrently and returning results in input order.
package engine

import (
	"time"

	"github.com/NSF-Swift/satellite-overhead/internal/models"
)

// Kind selects which windows a Result holds.
type Kind int

const (
	MainBeam Kind = iota
	Horizon
)

func (k Kind) String() string {
	switch k {
	case MainBeam:
		return "main_beam"
	case Horizon:
		return "horizon"
	default:
		return "unknown"
	}
}

// RuntimeSettings are fixed for one run.
type RuntimeSettings struct {
	Concurrency int           `json:"concurrency" yaml:"concurrency"`
	Resolution  time.Duration `json:"resolution" yaml:"resolution"`
	MinAltitude float64       `json:"min_altitude" yaml:"min_altitude"` // degrees
}

// DefaultRuntimeSettings returns one worker, one-second sampling and a 0°
// horizon.
func DefaultRuntimeSettings() RuntimeSettings {
	return RuntimeSettings{Concurrency: 1, Resolution: time.Second}
}

// Validate rejects a non-positive concurrency or resolution.
func (s RuntimeSettings) Validate() error {
	if s.Concurrency < 1 {
		return &ConfigurationError{Field: "runtime.concurrency", Msg: "must be at least 1"}
	}
	if s.Resolution <= 0 {
		return &ConfigurationError{Field: "runtime.resolution", Msg: "must be positive"}
	}
	if s.MinAltitude < -90 || s.MinAltitude > 90 {
		return &ConfigurationError{Field: "runtime.min_altitude", Msg: "must be within [-90, 90]"}
	}
	return nil
}

// OverheadWindow is one contiguous run of samples for one object. Positions
// are non-empty and spaced exactly by the run resolution.
type OverheadWindow struct {
	Index     int                   `json:"index"` // position of Object in the input slice
	Object    models.TrackedObject  `json:"object"`
	Positions []models.PositionTime `json:"positions"`
}

// Begin returns the first sample time.
func (w OverheadWindow) Begin() time.Time { return w.Positions[0].Time }

// End returns the last sample time.
func (w OverheadWindow) End() time.Time { return w.Positions[len(w.Positions)-1].Time }

// Duration returns End - Begin. A single-sample window has zero duration.
func (w OverheadWindow) Duration() time.Duration { return w.End().Sub(w.Begin()) }

// Peak returns the sample with the highest altitude.
func (w OverheadWindow) Peak() models.PositionTime {
	peak := w.Positions[0]
	for _, p := range w.Positions[1:] {
		if p.Position.Altitude > peak.Position.Altitude {
			peak = p
		}
	}
	return peak
}

// Failure reports an object that could not be fully scanned.
type Failure struct {
	Index  int                  `json:"index"`
	Object models.TrackedObject `json:"object"`
	Err    error                `json:"-"`
}

// Reason returns the error text, for serialization.
func (f Failure) Reason() string {
	if f.Err == nil {
		return ""
	}
	return f.Err.Error()
}

// Result holds the windows of one kind and the failed objects, both in input
// order.
type Result struct {
	Kind     Kind             `json:"-"`
	Windows  []OverheadWindow `json:"windows"`
	Failures []Failure        `json:"failures"`
}
