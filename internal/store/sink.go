package store

import (
	"context"

	"github.com/yanun0323/logs"

	"portwatch/internal/adapter"
)

// Sink persists committed snapshots.
type Sink interface {
	Name() string
	Save(ctx context.Context, s adapter.Snapshot) error
}

// ErrorCounter counts failed writes per sink.
type ErrorCounter interface {
	IncSinkError(sink string)
}

// Fanout hands every snapshot to each sink in turn. A failing sink is
// logged and does not stop the others.
type Fanout struct {
	sinks   []Sink
	counter ErrorCounter
}

func NewFanout(counter ErrorCounter, sinks ...Sink) *Fanout {
	return &Fanout{sinks: sinks, counter: counter}
}

func (f *Fanout) Len() int {
	return len(f.sinks)
}

func (f *Fanout) Handle(ctx context.Context, s adapter.Snapshot) {
	for _, sink := range f.sinks {
		if err := sink.Save(ctx, s); err != nil {
			logs.Errorf("save snapshot to %s, err: %+v", sink.Name(), err)
			if f.counter != nil {
				f.counter.IncSinkError(sink.Name())
			}
		}
	}
}
