// Package window turns a chronological stream of classified samples into
// contiguous runs of samples that satisfy a predicate.
package window

import (
	"github.com/NSF-Swift/satellite-overhead/internal/geometry"
	"github.com/NSF-Swift/satellite-overhead/internal/models"
)

// Predicate selects the samples that belong in a window.
type Predicate func(geometry.Sample) bool

// InMainBeam matches samples inside the main beam.
func InMainBeam(s geometry.Sample) bool { return s.MainBeam }

// AboveHorizon matches samples at or above the minimum altitude.
func AboveHorizon(s geometry.Sample) bool { return s.Horizon }

type state int

const (
	idle state = iota
	open
)

// Accumulator is a two-state machine (idle, open) fed one sample at a time
// in timestamp order. It is owned by a single goroutine.
type Accumulator struct {
	match   Predicate
	state   state
	current []models.PositionTime
	windows [][]models.PositionTime
}

// NewAccumulator returns an idle accumulator for the given predicate.
func NewAccumulator(match Predicate) *Accumulator {
	return &Accumulator{match: match}
}

// Observe advances the machine by one sample.
func (a *Accumulator) Observe(s geometry.Sample) {
	hit := a.match(s)
	switch {
	case hit && a.state == idle:
		a.state = open
		a.current = []models.PositionTime{s.PositionTime}
	case hit:
		a.current = append(a.current, s.PositionTime)
	case a.state == open:
		a.emit()
	}
}

// Close emits the open window, if any. Called at the end of the grid or when
// the object's position stream fails; the window is truncated there.
func (a *Accumulator) Close() {
	if a.state == open {
		a.emit()
	}
}

// Windows returns the windows emitted so far in chronological order.
func (a *Accumulator) Windows() [][]models.PositionTime {
	return a.windows
}

func (a *Accumulator) emit() {
	if len(a.current) > 0 {
		a.windows = append(a.windows, a.current)
	}
	a.current = nil
	a.state = idle
}
