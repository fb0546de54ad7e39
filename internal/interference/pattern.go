package interference

import (
	"errors"
	"fmt"
	"sort"
)

// Pattern is a rotationally symmetric receive gain pattern. Angles are
// off-axis degrees starting at boresight and strictly increasing.
type Pattern struct {
	AnglesDeg []float64 `json:"angles_deg" yaml:"angles_deg"`
	GainsDBI  []float64 `json:"gains_dbi" yaml:"gains_dbi"`
}

// Validate checks the pattern's shape.
func (p Pattern) Validate() error {
	if len(p.AnglesDeg) != len(p.GainsDBI) {
		return fmt.Errorf("pattern has %d angles and %d gains", len(p.AnglesDeg), len(p.GainsDBI))
	}
	if len(p.AnglesDeg) < 2 {
		return errors.New("pattern needs at least 2 points")
	}
	if p.AnglesDeg[0] != 0 {
		return errors.New("pattern must start at boresight (0 degrees)")
	}
	for i := 1; i < len(p.AnglesDeg); i++ {
		if p.AnglesDeg[i] <= p.AnglesDeg[i-1] {
			return fmt.Errorf("pattern angles must increase, %g follows %g", p.AnglesDeg[i], p.AnglesDeg[i-1])
		}
	}
	return nil
}

// PeakGain is the boresight gain.
func (p Pattern) PeakGain() float64 { return p.GainsDBI[0] }

// Gain interpolates linearly at offAxis degrees. Angles beyond the last
// point take the last gain.
func (p Pattern) Gain(offAxis float64) float64 {
	n := len(p.AnglesDeg)
	if offAxis <= p.AnglesDeg[0] {
		return p.GainsDBI[0]
	}
	if offAxis >= p.AnglesDeg[n-1] {
		return p.GainsDBI[n-1]
	}
	i := sort.SearchFloat64s(p.AnglesDeg, offAxis)
	if p.AnglesDeg[i] == offAxis {
		return p.GainsDBI[i]
	}
	a0, a1 := p.AnglesDeg[i-1], p.AnglesDeg[i]
	g0, g1 := p.GainsDBI[i-1], p.GainsDBI[i]
	return g0 + (g1-g0)*(offAxis-a0)/(a1-a0)
}
