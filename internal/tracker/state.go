package tracker

import (
	"slices"
	"sync"

	"portwatch/internal/adapter"
)

// states holds the published state and fans changes out to listeners. A
// slow listener only ever sees the latest state.
type states struct {
	mu        sync.RWMutex
	state     adapter.State
	nextID    int
	listeners map[int]chan adapter.State
}

func newStates(initial adapter.State) *states {
	return &states{
		state:     initial,
		listeners: make(map[int]chan adapter.State),
	}
}

// State returns a copy of the published state.
func (s *states) State() adapter.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneState(s.state)
}

// Listen returns a channel receiving the state after every change, and a
// function to stop listening.
func (s *states) Listen() (<-chan adapter.State, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	ch := make(chan adapter.State, 1)
	s.listeners[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.listeners, id)
			close(ch)
		})
	}
}

func (s *states) update(fn func(*adapter.State)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn(&s.state)
	for _, ch := range s.listeners {
		latest := cloneState(s.state)
		select {
		case <-ch:
		default:
		}
		ch <- latest
	}
}

func cloneState(s adapter.State) adapter.State {
	snap := adapter.Snapshot{Assets: s.Assets, Total: s.Total}.Clone()
	s.Assets = snap.Assets
	s.Total = snap.Total
	s.OpenOrders = slices.Clone(s.OpenOrders)
	return s
}
