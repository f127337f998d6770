package schedule

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/yanun0323/logs"

	"portwatch/internal/adapter/enum"
	"portwatch/pkg/exception"
)

// Observer receives scheduler events. Implementations must not block.
type Observer interface {
	Enqueued(call Call, queueLen int)
	Ticked(dispatched []Call, used int, queueLen int)
	Completed(c Completion)
	Halted(err error)
}

type nopObserver struct{}

func (nopObserver) Enqueued(Call, int)      {}
func (nopObserver) Ticked([]Call, int, int) {}
func (nopObserver) Completed(Completion)    {}
func (nopObserver) Halted(error)            {}

type Config struct {
	// Capacity is the weight budget of one tick.
	Capacity int
	// Tick is the dispatcher period.
	Tick  time.Duration
	Specs []Spec
	// Clock overrides time.Now.
	Clock    func() time.Time
	Observer Observer
}

// Scheduler runs the producers and the dispatcher of a rate-limited call
// queue inside one loop. The first failed call halts it for good.
type Scheduler struct {
	tick     time.Duration
	specs    map[enum.CallKind]Spec
	order    []enum.CallKind
	handlers map[enum.CallKind]Handler
	now      func() time.Time
	observer Observer

	mu         sync.Mutex
	queue      *Queue
	dispatcher *Dispatcher
	seq        uint64
	halted     bool
	haltErr    error
	running    bool

	failures chan error
	done     chan struct{}
	inflight sync.WaitGroup
}

func New(cfg Config, handlers map[enum.CallKind]Handler) (*Scheduler, error) {
	if cfg.Tick <= 0 {
		return nil, exception.ErrInvalidArgument
	}

	queue := NewQueue()
	dispatcher, err := NewDispatcher(cfg.Capacity, queue)
	if err != nil {
		return nil, err
	}

	s := &Scheduler{
		tick:       cfg.Tick,
		specs:      make(map[enum.CallKind]Spec, len(cfg.Specs)),
		handlers:   make(map[enum.CallKind]Handler, len(handlers)),
		now:        cfg.Clock,
		observer:   cfg.Observer,
		queue:      queue,
		dispatcher: dispatcher,
		failures:   make(chan error, 1),
		done:       make(chan struct{}),
	}

	if s.now == nil {
		s.now = time.Now
	}

	if s.observer == nil {
		s.observer = nopObserver{}
	}

	for _, spec := range cfg.Specs {
		if !spec.Kind.IsAvailable() || spec.Weight <= 0 || spec.Period < 0 {
			return nil, exception.ErrInvalidCall
		}

		if spec.Weight > cfg.Capacity {
			return nil, exception.ErrCallTooHeavy
		}

		if handlers[spec.Kind] == nil {
			return nil, exception.ErrNoHandler
		}

		if _, ok := s.specs[spec.Kind]; !ok {
			s.order = append(s.order, spec.Kind)
		}

		s.specs[spec.Kind] = spec
		s.handlers[spec.Kind] = handlers[spec.Kind]
	}

	return s, nil
}

// Enqueue adds one call of the given kind with its configured weight and
// priority.
func (s *Scheduler) Enqueue(kind enum.CallKind) error {
	spec, ok := s.specs[kind]
	if !ok {
		return exception.ErrNoHandler
	}

	return s.Push(Call{Kind: kind, Weight: spec.Weight, Priority: spec.Priority})
}

// Push adds a call to the queue. EnqueuedAt and Seq are assigned here.
func (s *Scheduler) Push(call Call) error {
	if call.Weight <= 0 {
		return exception.ErrInvalidCall
	}

	if call.Weight > s.dispatcher.Capacity() {
		return exception.ErrCallTooHeavy
	}

	if s.handlers[call.Kind] == nil {
		return exception.ErrNoHandler
	}

	s.mu.Lock()
	if s.halted {
		s.mu.Unlock()
		return exception.ErrSchedulerHalted
	}

	s.seq++
	call.Seq = s.seq
	call.EnqueuedAt = s.now()
	s.queue.Push(call)
	n := s.queue.Len()
	s.mu.Unlock()

	s.observer.Enqueued(call, n)
	return nil
}

// Tick runs one dispatch round and returns the calls it started. Handlers run
// in their own goroutines with a context that outlives ctx cancellation: a
// dispatched call always runs to completion.
func (s *Scheduler) Tick(ctx context.Context) []Call {
	s.mu.Lock()
	if s.halted {
		s.mu.Unlock()
		return nil
	}

	calls, used := s.dispatcher.Drain()
	n := s.queue.Len()
	s.mu.Unlock()

	s.observer.Ticked(calls, used, n)

	callCtx := context.WithoutCancel(ctx)
	for _, call := range calls {
		s.start(callCtx, call)
	}

	return calls
}

func (s *Scheduler) start(ctx context.Context, call Call) {
	handler := s.handlers[call.Kind]
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()

		started := s.now()
		err := handler.Execute(ctx, call)
		c := Completion{Call: call, Err: err, Duration: s.now().Sub(started)}
		s.observer.Completed(c)
		if err != nil {
			s.fail(c)
		}
	}()
}

func (s *Scheduler) fail(c Completion) {
	s.mu.Lock()
	if s.halted {
		s.mu.Unlock()
		return
	}

	s.halted = true
	s.haltErr = c.Err
	s.mu.Unlock()

	logs.Errorf("scheduler halted by %s call, err: %+v", c.Call.Kind, c.Err)
	s.failures <- c.Err
	close(s.done)
	s.observer.Halted(c.Err)
}

// Run fires every producer once, runs a tick immediately, then keeps both
// on their periods until ctx ends or a call fails. It returns the failure
// that halted the scheduler, or ctx.Err().
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return exception.ErrSchedulerRunning
	}

	if s.halted {
		err := s.haltErr
		s.mu.Unlock()
		return err
	}

	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	now := s.now()
	producers := make([]*producer, 0, len(s.order))
	for _, kind := range s.order {
		spec := s.specs[kind]
		if spec.Period > 0 {
			producers = append(producers, &producer{spec: spec, next: now})
		}
	}

	nextTick := now
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-s.failures:
			return err
		case <-timer.C:
		}

		now = s.now()
		for _, p := range producers {
			if now.Before(p.next) {
				continue
			}

			p.next = advance(p.next, p.spec.Period, now)
			if err := s.Enqueue(p.spec.Kind); err != nil && !errors.Is(err, exception.ErrSchedulerHalted) {
				logs.Errorf("enqueue %s, err: %+v", p.spec.Kind, err)
			}
		}

		if !now.Before(nextTick) {
			nextTick = advance(nextTick, s.tick, now)
			s.Tick(ctx)
		}

		due := nextTick
		for _, p := range producers {
			if p.next.Before(due) {
				due = p.next
			}
		}

		wait := due.Sub(s.now())
		if wait < 0 {
			wait = 0
		}
		timer.Reset(wait)
	}
}

// Halted is closed once the scheduler has stopped for good.
func (s *Scheduler) Halted() <-chan struct{} {
	return s.done
}

// Err returns the failure that halted the scheduler, if any.
func (s *Scheduler) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.haltErr
}

func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Len()
}

func (s *Scheduler) Capacity() int {
	return s.dispatcher.Capacity()
}

// Wait blocks until every dispatched call has returned.
func (s *Scheduler) Wait() {
	s.inflight.Wait()
}
