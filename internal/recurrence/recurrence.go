// Package recurrence expands a repeating observation into one reservation
// per occurrence.
package recurrence

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/NSF-Swift/satellite-overhead/internal/engine"
	"github.com/NSF-Swift/satellite-overhead/internal/models"
)

// MaxOccurrences caps a single expansion.
const MaxOccurrences = 1000

// Rule repeats an observation on a five-field cron schedule evaluated in
// UTC. Expansion stops after Count occurrences or at Until, whichever comes
// first; at least one of them must be set.
type Rule struct {
	Schedule string        `json:"schedule" yaml:"schedule"`
	Duration time.Duration `json:"duration,omitempty" yaml:"duration,omitempty"` // 0 reuses the base window length
	Count    int           `json:"count,omitempty" yaml:"count,omitempty"`
	Until    time.Time     `json:"until,omitempty" yaml:"until,omitempty"`
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Validate parses the schedule and checks the bounds.
func (r Rule) Validate() error {
	if _, err := parser.Parse(r.Schedule); err != nil {
		return &engine.ConfigurationError{Field: "recurrence.schedule", Msg: "invalid cron expression", Err: err}
	}
	if r.Count < 0 {
		return &engine.ConfigurationError{Field: "recurrence.count", Msg: "must not be negative"}
	}
	if r.Count == 0 && r.Until.IsZero() {
		return &engine.ConfigurationError{Field: "recurrence", Msg: "count or until is required"}
	}
	if r.Duration < 0 {
		return &engine.ConfigurationError{Field: "recurrence.duration", Msg: "must not be negative"}
	}
	return nil
}

// Occurrences returns the activation times at or after from.
func (r Rule) Occurrences(from time.Time) ([]time.Time, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	schedule, _ := parser.Parse(r.Schedule)

	limit := r.Count
	if limit == 0 || limit > MaxOccurrences {
		limit = MaxOccurrences
	}

	var out []time.Time
	// Next is strictly after its argument; step back so from itself can match.
	t := from.UTC().Add(-time.Nanosecond)
	for len(out) < limit {
		next := schedule.Next(t)
		if next.IsZero() || (!r.Until.IsZero() && next.After(r.Until)) {
			break
		}
		out = append(out, next)
		t = next
	}
	if len(out) == 0 {
		return nil, &engine.ConfigurationError{Field: "recurrence", Msg: "schedule has no occurrence in range"}
	}
	return out, nil
}

// Expand returns one reservation per occurrence, starting from the base
// reservation's window begin. Occurrences whose windows overlap are rejected.
func Expand(base models.Reservation, r Rule) ([]models.Reservation, error) {
	length := r.Duration
	if length == 0 {
		length = base.Window.Duration()
	}
	if length <= 0 {
		return nil, &engine.ConfigurationError{Field: "recurrence.duration", Msg: "window length must be positive"}
	}

	starts, err := r.Occurrences(base.Window.Begin)
	if err != nil {
		return nil, err
	}

	out := make([]models.Reservation, len(starts))
	for i, s := range starts {
		if i > 0 && s.Before(starts[i-1].Add(length)) {
			return nil, &engine.ConfigurationError{
				Field: "recurrence",
				Msg:   fmt.Sprintf("occurrence at %s overlaps the previous one", s.Format(time.RFC3339)),
			}
		}
		res := base
		res.Window = models.TimeWindow{Begin: s, End: s.Add(length)}
		out[i] = res
	}
	return out, nil
}
