// Package report renders stored runs as text or JSON and publishes their
// windows to an MQTT broker.
package report

import (
	"time"

	"github.com/NSF-Swift/satellite-overhead/internal/store"
)

// Pass summarizes one window.
type Pass struct {
	ObjectID        int       `json:"object_id"`
	ObjectName      string    `json:"object_name"`
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	DurationSeconds float64   `json:"duration_seconds"`
	MaxAltitude     float64   `json:"max_altitude"`
	MaxAltitudeTime time.Time `json:"max_altitude_time"`
	AzimuthAtMax    float64   `json:"azimuth_at_max"`
	StartAzimuth    float64   `json:"start_azimuth"`
	EndAzimuth      float64   `json:"end_azimuth"`

	// Set when the window was quantified.
	PeakLevel  *float64 `json:"peak_level,omitempty"`
	LevelUnits string   `json:"level_units,omitempty"`
}

// Report is the presentation form of a stored run.
type Report struct {
	RunID     string          `json:"run_id"`
	Facility  string          `json:"facility"`
	Begin     time.Time       `json:"begin"`
	End       time.Time       `json:"end"`
	MainBeam  []Pass          `json:"main_beam"`
	Horizon   []Pass          `json:"horizon"`
	Failures  []store.Failure `json:"failures"`
	Cancelled bool            `json:"cancelled,omitempty"`
}

// New builds a Report from a stored run.
func New(rec store.Record) Report {
	return Report{
		RunID:     rec.ID,
		Facility:  rec.Reservation.Facility.Name,
		Begin:     rec.Reservation.Window.Begin,
		End:       rec.Reservation.Window.End,
		MainBeam:  passes(rec.MainBeam),
		Horizon:   passes(rec.Horizon),
		Failures:  rec.Failures,
		Cancelled: rec.Cancelled,
	}
}

func passes(ws []store.Window) []Pass {
	out := make([]Pass, 0, len(ws))
	for _, w := range ws {
		out = append(out, Summarize(w))
	}
	return out
}

// Summarize derives rise, peak and set figures from a window's positions.
func Summarize(w store.Window) Pass {
	p := Pass{
		ObjectID:        w.ObjectID,
		ObjectName:      w.ObjectName,
		Start:           w.Begin,
		End:             w.End,
		DurationSeconds: w.End.Sub(w.Begin).Seconds(),
		MaxAltitude:     w.MaxAltitude,
	}
	if a := w.Interference; a != nil && len(a.Levels) > 0 {
		peak := a.Peak
		p.PeakLevel = &peak
		p.LevelUnits = a.Units
	}
	if len(w.Positions) == 0 {
		return p
	}

	first, last := w.Positions[0], w.Positions[len(w.Positions)-1]
	p.StartAzimuth = first.Position.Azimuth
	p.EndAzimuth = last.Position.Azimuth

	peak := first
	for _, pt := range w.Positions[1:] {
		if pt.Position.Altitude > peak.Position.Altitude {
			peak = pt
		}
	}
	p.MaxAltitude = peak.Position.Altitude
	p.MaxAltitudeTime = peak.Time
	p.AzimuthAtMax = peak.Position.Azimuth
	return p
}
