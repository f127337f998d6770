package stream

import (
	"context"
	"slices"
	"sync"

	"github.com/yanun0323/logs"

	"portwatch/internal/adapter"
	"portwatch/pkg/exception"
)

// Dialer opens one multiplexed price feed over the given assets.
type Dialer interface {
	Dial(ctx context.Context, assets []string, onTick func(adapter.Price)) (closeFeed func(), err error)
}

// Observer receives stream lifecycle events.
type Observer interface {
	Resubscribed(assets int)
	DialFailed()
	PriceReceived()
}

type nopObserver struct{}

func (nopObserver) Resubscribed(int) {}
func (nopObserver) DialFailed()      {}
func (nopObserver) PriceReceived()   {}

// Subscriber keeps at most one live feed covering the held assets except
// the base currency. A dropped feed is not reconnected.
type Subscriber struct {
	dialer   Dialer
	base     string
	onTick   func(adapter.Price)
	observer Observer

	mu        sync.Mutex
	assets    []string
	closeFeed func()
	gen       uint64
	closed    bool
}

func NewSubscriber(dialer Dialer, base string, onTick func(adapter.Price), observer Observer) (*Subscriber, error) {
	if dialer == nil || onTick == nil {
		return nil, exception.ErrStreamNilDialer
	}

	if observer == nil {
		observer = nopObserver{}
	}

	return &Subscriber{
		dialer:   dialer,
		base:     base,
		onTick:   onTick,
		observer: observer,
	}, nil
}

// Resubscribe replaces the feed when the held set differs from the current
// subscription. An unchanged set is a no-op even when the feed has dropped.
// A dial failure is logged and leaves the subscriber without a feed until
// the next change. After Close it does nothing.
func (s *Subscriber) Resubscribe(ctx context.Context, held []string) error {
	assets := s.streamAssets(held)

	s.mu.Lock()
	if s.closed || slices.Equal(assets, s.assets) {
		s.mu.Unlock()
		return nil
	}

	if s.closeFeed != nil {
		s.closeFeed()
		s.closeFeed = nil
	}

	s.assets = assets
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	if len(assets) == 0 {
		return nil
	}

	closeFeed, err := s.dialer.Dial(ctx, assets, s.tick)
	if err != nil {
		s.observer.DialFailed()
		logs.Errorf("dial price feed %v, err: %+v", assets, err)
		return err
	}

	s.mu.Lock()
	if s.closed || s.gen != gen {
		s.mu.Unlock()
		closeFeed()
		return nil
	}
	s.closeFeed = closeFeed
	s.mu.Unlock()

	s.observer.Resubscribed(len(assets))
	logs.Infof("price feed subscribed %v", assets)
	return nil
}

func (s *Subscriber) tick(p adapter.Price) {
	s.observer.PriceReceived()
	s.onTick(p)
}

// Assets returns the assets of the current subscription.
func (s *Subscriber) Assets() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.assets)
}

// Close drops the current feed. Later calls to Resubscribe are ignored.
func (s *Subscriber) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.gen++
	if s.closeFeed != nil {
		s.closeFeed()
		s.closeFeed = nil
	}
	s.assets = nil
}

func (s *Subscriber) streamAssets(held []string) []string {
	assets := make([]string, 0, len(held))
	for _, a := range held {
		if a != s.base {
			assets = append(assets, a)
		}
	}
	slices.Sort(assets)
	return slices.Compact(assets)
}
