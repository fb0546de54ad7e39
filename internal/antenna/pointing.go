// Package antenna produces the boresight direction at every grid instant
// from one of three pointing modes.
package antenna

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/NSF-Swift/satellite-overhead/internal/engine"
	"github.com/NSF-Swift/satellite-overhead/internal/models"
)

// Mode names the pointing variant in use.
type Mode string

const (
	ModeStatic     Mode = "static"
	ModeTrajectory Mode = "trajectory"
	ModeTarget     Mode = "target"
)

// Interpolation controls how a trajectory is resampled onto the grid.
type Interpolation string

const (
	Linear Interpolation = "linear" // default; azimuth takes the short way round
	Hold   Interpolation = "hold"   // each sample holds until the next one
)

// CelestialTarget is a sidereal direction in sexagesimal notation,
// e.g. RA "5h35m17.3s", Dec "-5d23m28s".
type CelestialTarget struct {
	RightAscension string `json:"right_ascension" yaml:"right_ascension"`
	Declination    string `json:"declination" yaml:"declination"`
}

// Degrees returns right ascension and declination in degrees.
func (c CelestialTarget) Degrees() (ra, dec float64, err error) {
	h, err := parseSexagesimal(c.RightAscension, "h")
	if err != nil {
		return 0, 0, fmt.Errorf("right ascension: %w", err)
	}
	if h < 0 || h >= 24 {
		return 0, 0, fmt.Errorf("right ascension %q outside [0h, 24h)", c.RightAscension)
	}
	d, err := parseSexagesimal(c.Declination, "d")
	if err != nil {
		return 0, 0, fmt.Errorf("declination: %w", err)
	}
	if math.Abs(d) > 90 {
		return 0, 0, fmt.Errorf("declination %q outside [-90d, 90d]", c.Declination)
	}
	return h * 15, d, nil
}

var sexagesimal = regexp.MustCompile(`^([+-]?)(\d+(?:\.\d+)?)([hd])(?:(\d+(?:\.\d+)?)m)?(?:(\d+(?:\.\d+)?)s)?$`)

func parseSexagesimal(s, unit string) (float64, error) {
	m := sexagesimal.FindStringSubmatch(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
	if m == nil || m[3] != unit {
		return 0, fmt.Errorf("cannot parse %q as %s/m/s", s, unit)
	}
	v := 0.0
	for i, div := range [...]float64{2: 1, 4: 60, 5: 3600} {
		if div == 0 || m[i] == "" {
			continue
		}
		x, err := strconv.ParseFloat(m[i], 64)
		if err != nil {
			return 0, err
		}
		v += x / div
	}
	if m[1] == "-" {
		v = -v
	}
	return v, nil
}

// Pointing selects exactly one way of steering the antenna.
type Pointing struct {
	Static        *models.Position      `json:"static,omitempty" yaml:"static,omitempty"`
	Trajectory    []models.PositionTime `json:"trajectory,omitempty" yaml:"trajectory,omitempty"`
	Interpolation Interpolation         `json:"interpolation,omitempty" yaml:"interpolation,omitempty"`
	Target        *CelestialTarget      `json:"target,omitempty" yaml:"target,omitempty"`
}

// Mode returns the single configured variant. No variant, or more than one,
// is a configuration error.
func (p Pointing) Mode() (Mode, error) {
	var modes []Mode
	if p.Static != nil {
		modes = append(modes, ModeStatic)
	}
	if len(p.Trajectory) > 0 {
		modes = append(modes, ModeTrajectory)
	}
	if p.Target != nil {
		modes = append(modes, ModeTarget)
	}

	switch len(modes) {
	case 1:
		return modes[0], nil
	case 0:
		return "", &engine.ConfigurationError{Field: "antenna", Msg: "one of static, trajectory or target is required"}
	default:
		return "", &engine.ConfigurationError{Field: "antenna", Msg: fmt.Sprintf("pointing modes %v are mutually exclusive", modes)}
	}
}

// Validate checks the selected variant without needing a grid.
func (p Pointing) Validate() error {
	mode, err := p.Mode()
	if err != nil {
		return err
	}
	switch mode {
	case ModeStatic:
		return checkPosition("antenna.static", *p.Static)
	case ModeTarget:
		if _, _, err := p.Target.Degrees(); err != nil {
			return &engine.ConfigurationError{Field: "antenna.target", Msg: "invalid coordinates", Err: err}
		}
	case ModeTrajectory:
		switch p.Interpolation {
		case "", Linear, Hold:
		default:
			return &engine.ConfigurationError{Field: "antenna.interpolation", Msg: fmt.Sprintf("unknown mode %q", p.Interpolation)}
		}
		for i, pt := range p.Trajectory {
			if i > 0 && !pt.Time.After(p.Trajectory[i-1].Time) {
				return &engine.ConfigurationError{Field: "antenna.trajectory", Msg: fmt.Sprintf("sample %d is not after sample %d", i, i-1)}
			}
			if err := checkPosition(fmt.Sprintf("antenna.trajectory[%d]", i), pt.Position); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkPosition(field string, p models.Position) error {
	if p.Altitude < -90 || p.Altitude > 90 || math.IsNaN(p.Altitude) {
		return &engine.ConfigurationError{Field: field, Msg: fmt.Sprintf("altitude %v outside [-90, 90]", p.Altitude)}
	}
	if math.IsNaN(p.Azimuth) || math.IsInf(p.Azimuth, 0) {
		return &engine.ConfigurationError{Field: field, Msg: "azimuth must be finite"}
	}
	return nil
}
