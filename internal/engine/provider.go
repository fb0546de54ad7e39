package engine

import (
	"context"
	"time"

	"github.com/NSF-Swift/satellite-overhead/internal/models"
)

// PositionProvider places an object in the facility's sky at one instant.
// Implementations must be safe for concurrent use and must return a sample
// stamped with exactly t.
type PositionProvider interface {
	PositionAt(ctx context.Context, obj models.TrackedObject, t time.Time) (models.PositionTime, error)
}

// ProviderFunc adapts a function to PositionProvider.
type ProviderFunc func(ctx context.Context, obj models.TrackedObject, t time.Time) (models.PositionTime, error)

func (f ProviderFunc) PositionAt(ctx context.Context, obj models.TrackedObject, t time.Time) (models.PositionTime, error) {
	return f(ctx, obj, t)
}
