package bus

import (
	"context"
	"sync"

	"portwatch/internal/adapter"
	"portwatch/pkg/exception"
)

// Queue is a bounded, non-blocking queue of committed snapshots.
type Queue struct {
	mu     sync.RWMutex
	ch     chan adapter.Snapshot
	closed bool
}

// NewQueue allocates a queue with the given capacity.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue{ch: make(chan adapter.Snapshot, capacity)}
}

// TryPublish enqueues a snapshot without blocking.
func (q *Queue) TryPublish(s adapter.Snapshot) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return exception.ErrQueueClosed
	}
	select {
	case q.ch <- s:
		return nil
	default:
		return exception.ErrQueueFull
	}
}

// Close stops the queue from accepting new snapshots. Queued ones are still
// handed to Run.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.ch)
	}
}

// Run consumes snapshots until the context is done or the queue is closed
// and drained.
func (q *Queue) Run(ctx context.Context, handler func(context.Context, adapter.Snapshot)) {
	for {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-q.ch:
			if !ok {
				return
			}
			handler(ctx, s)
		}
	}
}
