package interference

import (
	"errors"
	"fmt"

	"github.com/NSF-Swift/satellite-overhead/internal/engine"
	"github.com/NSF-Swift/satellite-overhead/internal/models"
)

// Config selects a strategy. An empty Strategy disables quantification.
type Config struct {
	Strategy       string   `yaml:"strategy" json:"strategy,omitempty"` // geometric, link_budget or pattern_link_budget
	PeakGainDBI    *float64 `yaml:"peak_gain_dbi" json:"peak_gain_dbi,omitempty"`
	DefaultEIRPDBW *float64 `yaml:"default_eirp_dbw" json:"default_eirp_dbw,omitempty"`
	Pattern        *Pattern `yaml:"pattern" json:"pattern,omitempty"`
}

// New builds the configured strategy, or returns nil when none is set.
func New(cfg Config) (Strategy, error) {
	switch cfg.Strategy {
	case "":
		return nil, nil
	case "geometric":
		return Geometric{}, nil
	case "link_budget":
		if cfg.PeakGainDBI == nil {
			return nil, errors.New("link_budget needs peak_gain_dbi")
		}
		return LinkBudget{PeakGainDBI: *cfg.PeakGainDBI, DefaultEIRPDBW: cfg.DefaultEIRPDBW}, nil
	case "pattern_link_budget":
		if cfg.Pattern == nil {
			return nil, errors.New("pattern_link_budget needs a pattern")
		}
		if err := cfg.Pattern.Validate(); err != nil {
			return nil, err
		}
		return LinkBudget{PeakGainDBI: cfg.Pattern.PeakGain(), Pattern: cfg.Pattern, DefaultEIRPDBW: cfg.DefaultEIRPDBW}, nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", cfg.Strategy)
	}
}

// AssessWindows runs s over each main-beam window, pairing samples with the
// antenna path by time. The result is aligned with windows; entries are nil
// for skipped objects and for windows that failed, whose errors are joined.
func AssessWindows(s Strategy, windows []engine.OverheadWindow, path []models.PositionTime, frequencyMHz float64) ([]*Assessment, error) {
	boresight := make(map[int64]models.Position, len(path))
	for _, p := range path {
		boresight[p.Time.UnixNano()] = p.Position
	}

	out := make([]*Assessment, len(windows))
	var errs []error
	for i, w := range windows {
		in := Input{
			Object:       w.Object,
			Samples:      w.Positions,
			Boresight:    make([]models.Position, len(w.Positions)),
			FrequencyMHz: frequencyMHz,
		}
		var err error
		for j, p := range w.Positions {
			pos, ok := boresight[p.Time.UnixNano()]
			if !ok {
				err = fmt.Errorf("no antenna pointing at %s", p.Time.UTC())
				break
			}
			in.Boresight[j] = pos
		}
		if err == nil {
			out[i], err = s.Assess(in)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", w.Object, err))
		}
	}
	return out, errors.Join(errs...)
}
