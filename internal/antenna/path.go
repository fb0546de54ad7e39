package antenna

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/NSF-Swift/satellite-overhead/internal/engine"
	"github.com/NSF-Swift/satellite-overhead/internal/models"
	"github.com/NSF-Swift/satellite-overhead/internal/timegrid"
)

// Tracker converts a celestial target into horizontal coordinates as seen
// from a facility at each instant. It returns one Position per time.
type Tracker interface {
	Track(ctx context.Context, target CelestialTarget, facility models.Facility, times []time.Time) ([]models.Position, error)
}

// Build returns one boresight sample per grid instant. tracker may be nil
// unless the pointing uses a celestial target.
func Build(ctx context.Context, p Pointing, grid timegrid.Grid, facility models.Facility, tracker Tracker) ([]models.PositionTime, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	mode, _ := p.Mode()

	switch mode {
	case ModeStatic:
		return static(*p.Static, grid), nil
	case ModeTrajectory:
		return resample(p.Trajectory, p.Interpolation, grid)
	default:
		if tracker == nil {
			return nil, &engine.ConfigurationError{Field: "antenna.target", Msg: "celestial tracking is not available in this build"}
		}
		positions, err := tracker.Track(ctx, *p.Target, facility, grid.Times)
		if err != nil {
			return nil, fmt.Errorf("tracking target: %w", err)
		}
		if len(positions) != grid.Len() {
			return nil, fmt.Errorf("tracker returned %d positions for %d instants", len(positions), grid.Len())
		}
		path := make([]models.PositionTime, grid.Len())
		for i, t := range grid.Times {
			path[i] = models.PositionTime{Time: t, Position: positions[i]}
		}
		return path, nil
	}
}

func static(pos models.Position, grid timegrid.Grid) []models.PositionTime {
	path := make([]models.PositionTime, grid.Len())
	for i, t := range grid.Times {
		path[i] = models.PositionTime{Time: t, Position: pos}
	}
	return path
}

// resample maps a trajectory onto the grid. The trajectory must start at or
// before the first grid instant; past its last sample the final pointing is
// held.
func resample(traj []models.PositionTime, mode Interpolation, grid timegrid.Grid) ([]models.PositionTime, error) {
	if grid.Len() > 0 && traj[0].Time.After(grid.Begin()) {
		return nil, &engine.ConfigurationError{
			Field: "antenna.trajectory",
			Msg: fmt.Sprintf("starts at %s, after the observation begins at %s",
				traj[0].Time.UTC().Format(time.RFC3339), grid.Begin().UTC().Format(time.RFC3339)),
		}
	}

	path := make([]models.PositionTime, grid.Len())
	for i, t := range grid.Times {
		// k is the last trajectory sample at or before t.
		k := sort.Search(len(traj), func(j int) bool { return traj[j].Time.After(t) }) - 1

		pos := traj[k].Position
		if mode != Hold && k+1 < len(traj) && !traj[k].Time.Equal(t) {
			pos = interpolate(traj[k], traj[k+1], t)
		}
		path[i] = models.PositionTime{Time: t, Position: pos}
	}
	return path, nil
}

// interpolate blends two samples linearly, taking the shorter way round in
// azimuth.
func interpolate(a, b models.PositionTime, t time.Time) models.Position {
	frac := float64(t.Sub(a.Time)) / float64(b.Time.Sub(a.Time))

	dAz := math.Mod(b.Position.Azimuth-a.Position.Azimuth, 360)
	if dAz > 180 {
		dAz -= 360
	} else if dAz < -180 {
		dAz += 360
	}
	az := math.Mod(a.Position.Azimuth+frac*dAz, 360)
	if az < 0 {
		az += 360
	}

	return models.Position{
		Altitude: a.Position.Altitude + frac*(b.Position.Altitude-a.Position.Altitude),
		Azimuth:  az,
	}
}
