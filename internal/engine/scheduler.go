package engine

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/NSF-Swift/satellite-overhead/internal/geometry"
	"github.com/NSF-Swift/satellite-overhead/internal/models"
	"github.com/NSF-Swift/satellite-overhead/internal/timegrid"
	"github.com/NSF-Swift/satellite-overhead/internal/window"
)

// scan is the read-only input shared by every worker of one run.
type scan struct {
	grid        timegrid.Grid
	path        []models.PositionTime
	beamRadius  float64
	minAltitude float64
}

// slot is the outcome for one object. Each slot is written by exactly one
// worker and read only after all workers have joined.
type slot struct {
	done     bool // scan reached the end of the grid or a position failure
	mainBeam [][]models.PositionTime
	horizon  [][]models.PositionTime
	err      error
}

// shard is the half-open index range [lo, hi) of the object slice.
type shard struct {
	lo, hi int
}

// partition splits n objects into min(workers, n) contiguous shards whose
// sizes differ by at most one.
func partition(n, workers int) []shard {
	if n == 0 {
		return nil
	}
	if workers > n {
		workers = n
	}
	shards := make([]shard, workers)
	size, extra := n/workers, n%workers
	lo := 0
	for i := range shards {
		hi := lo + size
		if i < extra {
			hi++
		}
		shards[i] = shard{lo: lo, hi: hi}
		lo = hi
	}
	return shards
}

// run scans every object over the full grid, one goroutine per shard, and
// returns once all of them have stopped. The only error it returns is a
// timestamp mismatch; cancellation is reported per slot.
func (f *Finder) run(ctx context.Context, objects []models.TrackedObject, sc scan, workers int) ([]slot, error) {
	slots := make([]slot, len(objects))
	g, gctx := errgroup.WithContext(ctx)

	for id, sh := range partition(len(objects), workers) {
		g.Go(func() error {
			return f.scanShard(gctx, id, sh, objects, sc, slots)
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return slots, nil
}

// scanShard processes objects[sh.lo:sh.hi] in order. A panic fails the
// object in flight and everything after it in the shard.
func (f *Finder) scanShard(ctx context.Context, id int, sh shard, objects []models.TrackedObject, sc scan, slots []slot) (err error) {
	current := sh.lo
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		f.logger.Error("worker panic", "shard", id, "object_id", objects[current].ID, "panic", r)
		for i := current; i < sh.hi; i++ {
			slots[i] = slot{err: &WorkerFailure{Shard: id, ObjectID: objects[i].ID, Panic: r}}
		}
		err = nil
	}()

	for ; current < sh.hi; current++ {
		if ctx.Err() != nil {
			break
		}
		s, scanErr := f.scanObject(ctx, objects[current], sc)
		var mismatch *TimestampMismatchError
		if errors.As(scanErr, &mismatch) {
			return scanErr
		}
		slots[current] = s
	}

	// Objects not completed before cancellation are reported, never emitted.
	for i := sh.lo; i < sh.hi; i++ {
		if !slots[i].done {
			slots[i] = slot{err: context.Cause(ctx)}
		}
	}
	return nil
}

// scanObject drives both accumulators over the grid for one object.
func (f *Finder) scanObject(ctx context.Context, obj models.TrackedObject, sc scan) (slot, error) {
	mainBeam := window.NewAccumulator(window.InMainBeam)
	horizon := window.NewAccumulator(window.AboveHorizon)

	for i, t := range sc.grid.Times {
		if ctx.Err() != nil {
			return slot{}, ctx.Err()
		}

		pos, err := f.provider.PositionAt(ctx, obj, t)
		if err != nil {
			if ctx.Err() != nil {
				return slot{}, ctx.Err()
			}
			mainBeam.Close()
			horizon.Close()
			f.logger.Warn("position resolution failed", "object_id", obj.ID, "time", t, "error", err)
			return slot{
				done:     true,
				mainBeam: mainBeam.Windows(),
				horizon:  horizon.Windows(),
				err:      &PositionResolutionError{ObjectID: obj.ID, Time: t, Err: err},
			}, nil
		}

		sample, err := geometry.Classify(sc.path[i], pos, sc.beamRadius, sc.minAltitude)
		if err != nil {
			return slot{}, &TimestampMismatchError{Index: i, ObjectID: obj.ID, Want: t, Got: pos.Time}
		}
		mainBeam.Observe(sample)
		horizon.Observe(sample)
	}

	mainBeam.Close()
	horizon.Close()
	if f.logger.Enabled(ctx, slog.LevelDebug) {
		f.logger.Debug("object scanned", "object_id", obj.ID,
			"main_beam_windows", len(mainBeam.Windows()), "horizon_windows", len(horizon.Windows()))
	}
	return slot{done: true, mainBeam: mainBeam.Windows(), horizon: horizon.Windows()}, nil
}
