package engine

import (
	"fmt"
	"time"

	"github.com/NSF-Swift/satellite-overhead/internal/geometry"
)

// ConfigurationError rejects a run before any computation starts.
type ConfigurationError struct {
	Field string
	Msg   string
	Err   error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config %s: %s: %v", e.Field, e.Msg, e.Err)
	}
	return fmt.Sprintf("config %s: %s", e.Field, e.Msg)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// TimestampMismatchError means an antenna sample and an object sample at the
// same grid index disagree on time. It aborts the whole run.
type TimestampMismatchError struct {
	Index    int
	ObjectID int // 0 when raised while aligning the antenna path
	Want     time.Time
	Got      time.Time
}

func (e *TimestampMismatchError) Error() string {
	return fmt.Sprintf("grid index %d (object %d): want %s, got %s", e.Index, e.ObjectID,
		e.Want.UTC().Format(time.RFC3339Nano), e.Got.UTC().Format(time.RFC3339Nano))
}

// Unwrap lets errors.Is match geometry.ErrTimestampMismatch.
func (e *TimestampMismatchError) Unwrap() error { return geometry.ErrTimestampMismatch }

// PositionResolutionError means the provider could not place one object at
// one instant. Only that object is affected.
type PositionResolutionError struct {
	ObjectID int
	Time     time.Time
	Err      error
}

func (e *PositionResolutionError) Error() string {
	return fmt.Sprintf("resolving position of object %d at %s: %v", e.ObjectID,
		e.Time.UTC().Format(time.RFC3339), e.Err)
}

func (e *PositionResolutionError) Unwrap() error { return e.Err }

// WorkerFailure reports an object lost to a panic inside its shard.
type WorkerFailure struct {
	Shard    int
	ObjectID int
	Panic    any
}

func (e *WorkerFailure) Error() string {
	return fmt.Sprintf("worker %d aborted before object %d completed: %v", e.Shard, e.ObjectID, e.Panic)
}

// failureReason is the metrics label for a failure cause.
func failureReason(err error) string {
	switch err.(type) {
	case *PositionResolutionError:
		return "position"
	case *WorkerFailure:
		return "worker"
	default:
		return "cancelled"
	}
}
