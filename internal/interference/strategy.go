package interference

import (
	"errors"
	"fmt"
	"time"

	"github.com/NSF-Swift/satellite-overhead/internal/geometry"
	"github.com/NSF-Swift/satellite-overhead/internal/models"
)

// ErrNoRange means a sample carries no slant range, so no path loss can be
// computed for it.
var ErrNoRange = errors.New("sample has no range")

// Input is one main-beam window with the antenna boresight at each sample.
type Input struct {
	Object       models.TrackedObject
	Samples      []models.PositionTime
	Boresight    []models.Position
	FrequencyMHz float64
}

func (in Input) offAxis(i int) float64 {
	return geometry.Separation(in.Boresight[i], in.Samples[i].Position)
}

// Assessment is the interference level of each sample in a window.
type Assessment struct {
	Strategy string    `json:"strategy"`
	Units    string    `json:"units"`
	Levels   []float64 `json:"levels"`
	Peak     float64   `json:"peak"`
	PeakTime time.Time `json:"peak_time"`
	EIRPDBW  *float64  `json:"eirp_dbw,omitempty"`
}

// Strategy quantifies one window. Assess returns nil without error when the
// strategy has nothing to report for the object.
type Strategy interface {
	Name() string
	Assess(in Input) (*Assessment, error)
}

// Geometric reports the off-axis angle of each sample; the peak is the
// closest approach to boresight.
type Geometric struct{}

func (Geometric) Name() string { return "geometric" }

func (g Geometric) Assess(in Input) (*Assessment, error) {
	a := &Assessment{Strategy: g.Name(), Units: "deg", Levels: make([]float64, len(in.Samples))}
	for i := range in.Samples {
		a.Levels[i] = in.offAxis(i)
		if i == 0 || a.Levels[i] < a.Peak {
			a.Peak, a.PeakTime = a.Levels[i], in.Samples[i].Time
		}
	}
	return a, nil
}

// LinkBudget estimates received power in dBW with the Friis equation, using
// the object's peak EIRP. Receive gain is PeakGainDBI at every sample, or the
// Pattern gain at the sample's off-axis angle when Pattern is set. Objects
// without an EIRP use DefaultEIRPDBW, or are skipped when that is nil too.
type LinkBudget struct {
	PeakGainDBI    float64
	Pattern        *Pattern
	DefaultEIRPDBW *float64
}

func (l LinkBudget) Name() string {
	if l.Pattern != nil {
		return "pattern_link_budget"
	}
	return "link_budget"
}

func (l LinkBudget) Assess(in Input) (*Assessment, error) {
	eirp := in.Object.EIRPDBW
	if eirp == nil {
		eirp = l.DefaultEIRPDBW
	}
	if eirp == nil {
		return nil, nil
	}
	if in.FrequencyMHz <= 0 {
		return nil, fmt.Errorf("link budget needs an observation frequency, got %g MHz", in.FrequencyMHz)
	}
	freqHz := in.FrequencyMHz * 1e6

	a := &Assessment{Strategy: l.Name(), Units: "dBW", Levels: make([]float64, len(in.Samples)), EIRPDBW: eirp}
	for i, s := range in.Samples {
		if s.Position.DistanceKm <= 0 {
			return nil, fmt.Errorf("%w at %s", ErrNoRange, s.Time.UTC().Format(time.RFC3339))
		}
		gain := l.PeakGainDBI
		if l.Pattern != nil {
			gain = l.Pattern.Gain(in.offAxis(i))
		}
		a.Levels[i] = ReceivedPower(*eirp, s.Position.DistanceKm*1000, freqHz, gain)
		if i == 0 || a.Levels[i] > a.Peak {
			a.Peak, a.PeakTime = a.Levels[i], s.Time
		}
	}
	return a, nil
}
