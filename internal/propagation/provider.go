package propagation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/NSF-Swift/satellite-overhead/internal/models"
	"github.com/NSF-Swift/satellite-overhead/internal/transform"
)

// elementsKey identifies one element set. A catalog reload with fresh
// elements for the same object gets a new propagator; Retain drops the old.
type elementsKey struct {
	id           int
	line1, line2 string
}

// initResult caches a propagator or the error that prevented building it,
// so a bad element set is reported without re-parsing at every sample.
type initResult struct {
	prop *SGP4Propagator
	err  error
}

// Provider computes topocentric positions as seen from one facility. It is
// safe for concurrent use by the engine's workers.
type Provider struct {
	observer transform.Observer
	logger   *slog.Logger

	mu    sync.RWMutex
	props map[elementsKey]initResult
}

// NewProvider creates a Provider for the given facility.
func NewProvider(f models.Facility, logger *slog.Logger) *Provider {
	return &Provider{
		observer: transform.ObserverFor(f),
		logger:   logger.With("component", "propagation"),
		props:    make(map[elementsKey]initResult),
	}
}

// PositionAt returns obj's altitude, azimuth and range at t.
func (p *Provider) PositionAt(ctx context.Context, obj models.TrackedObject, t time.Time) (models.PositionTime, error) {
	if err := ctx.Err(); err != nil {
		return models.PositionTime{}, err
	}

	prop, err := p.propagator(obj)
	if err != nil {
		return models.PositionTime{}, err
	}
	teme, err := prop.Propagate(t)
	if err != nil {
		return models.PositionTime{}, err
	}

	ecef := transform.TEMEToECEF(teme, transform.GMST(t))
	return models.PositionTime{Time: t, Position: p.observer.Look(ecef)}, nil
}

// Cached returns how many element sets have been initialized.
func (p *Provider) Cached() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.props)
}

// Retain drops cached propagators whose element sets are not among objects
// and returns how many were dropped. Call it after swapping in a reloaded
// catalog so superseded elements do not accumulate.
func (p *Provider) Retain(objects []models.TrackedObject) int {
	keep := make(map[elementsKey]struct{}, len(objects))
	for _, obj := range objects {
		keep[keyFor(obj)] = struct{}{}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	dropped := 0
	for k := range p.props {
		if _, ok := keep[k]; !ok {
			delete(p.props, k)
			dropped++
		}
	}
	if dropped > 0 {
		p.logger.Debug("evicted propagators", "dropped", dropped, "cached", len(p.props))
	}
	return dropped
}

func keyFor(obj models.TrackedObject) elementsKey {
	return elementsKey{id: obj.ID, line1: obj.Elements.Line1, line2: obj.Elements.Line2}
}

func (p *Provider) propagator(obj models.TrackedObject) (*SGP4Propagator, error) {
	key := keyFor(obj)

	p.mu.RLock()
	r, ok := p.props[key]
	p.mu.RUnlock()
	if ok {
		return r.prop, r.err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if r, ok := p.props[key]; ok {
		return r.prop, r.err
	}

	entry := obj.Elements
	entry.NORADID = obj.ID
	prop, err := NewSGP4Propagator(entry)
	if err != nil {
		p.logger.Warn("sgp4 init failed", "object_id", obj.ID, "error", err)
	}
	p.props[key] = initResult{prop: prop, err: err}
	return prop, err
}
