package schedule

import (
	"time"

	"portwatch/internal/adapter/enum"
)

// Call is one pending remote operation. It carries no behavior: the handler
// for its kind is looked up when the call is dispatched.
type Call struct {
	Kind       enum.CallKind
	Weight     int
	Priority   int
	EnqueuedAt time.Time
	Seq        uint64
}

// before orders calls by priority, then enqueue time, then sequence.
func (c Call) before(o Call) bool {
	if c.Priority != o.Priority {
		return c.Priority < o.Priority
	}
	if !c.EnqueuedAt.Equal(o.EnqueuedAt) {
		return c.EnqueuedAt.Before(o.EnqueuedAt)
	}
	return c.Seq < o.Seq
}

// Spec is the static schedule of one call kind.
type Spec struct {
	Kind     enum.CallKind
	Weight   int
	Priority int
	// Period between two producer firings. Zero disables the producer.
	Period time.Duration
}

// Completion is the outcome of a dispatched call.
type Completion struct {
	Call     Call
	Err      error
	Duration time.Duration
}
