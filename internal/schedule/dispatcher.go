package schedule

import "portwatch/pkg/exception"

// Dispatcher drains a queue within a fixed per-tick weight budget.
type Dispatcher struct {
	capacity int
	queue    *Queue
}

func NewDispatcher(capacity int, queue *Queue) (*Dispatcher, error) {
	if capacity <= 0 {
		return nil, exception.ErrInvalidBudget
	}
	if queue == nil {
		return nil, exception.ErrNilInstance
	}
	return &Dispatcher{capacity: capacity, queue: queue}, nil
}

func (d *Dispatcher) Capacity() int {
	return d.capacity
}

// Drain pops calls head-first while the head still fits into this tick's
// budget. It stops at the first head that does not fit, even when smaller
// calls further back would: first-fit, not best-fit. The budget starts from
// zero on every call.
func (d *Dispatcher) Drain() (calls []Call, used int) {
	for {
		head, ok := d.queue.Peek()
		if !ok || used+head.Weight > d.capacity {
			return calls, used
		}
		d.queue.Pop()
		used += head.Weight
		calls = append(calls, head)
	}
}
