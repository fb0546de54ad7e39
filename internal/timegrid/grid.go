// Package timegrid builds the evenly spaced timestamps every object and the
// antenna path are sampled on.
package timegrid

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidWindow is returned for an empty or reversed window or a
// non-positive step.
var ErrInvalidWindow = errors.New("invalid time window")

// InvalidWindowError carries the offending bounds.
type InvalidWindowError struct {
	Begin, End time.Time
	Step       time.Duration
}

func (e *InvalidWindowError) Error() string {
	return fmt.Sprintf("%v: begin=%s end=%s step=%s",
		ErrInvalidWindow, e.Begin.UTC().Format(time.RFC3339), e.End.UTC().Format(time.RFC3339), e.Step)
}

// Unwrap lets errors.Is match ErrInvalidWindow.
func (e *InvalidWindowError) Unwrap() error { return ErrInvalidWindow }

// Grid is an immutable sequence of strictly increasing instants spaced by Step.
// It is shared read-only by all workers of a run.
type Grid struct {
	Times []time.Time
	Step  time.Duration
}

// Generate returns the instants begin, begin+step, ... up to and including
// the last one not after end. The grid length is floor((end-begin)/step)+1.
func Generate(begin, end time.Time, step time.Duration) (Grid, error) {
	if step <= 0 || !end.After(begin) {
		return Grid{}, &InvalidWindowError{Begin: begin, End: end, Step: step}
	}

	n := int(end.Sub(begin)/step) + 1
	times := make([]time.Time, n)
	for i := range times {
		times[i] = begin.Add(time.Duration(i) * step)
	}
	return Grid{Times: times, Step: step}, nil
}

// Len returns the number of instants.
func (g Grid) Len() int { return len(g.Times) }

// Begin returns the first instant, or the zero time for an empty grid.
func (g Grid) Begin() time.Time {
	if len(g.Times) == 0 {
		return time.Time{}
	}
	return g.Times[0]
}

// End returns the last instant, or the zero time for an empty grid.
func (g Grid) End() time.Time {
	if len(g.Times) == 0 {
		return time.Time{}
	}
	return g.Times[len(g.Times)-1]
}
