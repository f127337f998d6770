package tracker

import (
	"context"
	"errors"
	"time"

	"github.com/yanun0323/logs"

	"portwatch/internal/adapter"
	"portwatch/internal/adapter/enum"
	"portwatch/internal/obs"
	"portwatch/internal/schedule"
	"portwatch/internal/stream"
	"portwatch/internal/valuation"
	"portwatch/pkg/exception"
)

// Exchange is the set of remote operations the tracker schedules.
type Exchange interface {
	Balances(ctx context.Context) ([]adapter.Balance, error)
	OpenOrders(ctx context.Context) ([]adapter.Order, error)
	PriceTable(ctx context.Context) ([]adapter.Price, error)
	Symbols(ctx context.Context) (int, error)
}

// Publisher forwards committed snapshots to the sinks without blocking.
type Publisher interface {
	TryPublish(s adapter.Snapshot) error
}

type Config struct {
	Base      string
	Schedule  schedule.Config
	Exchange  Exchange
	Dialer    stream.Dialer
	Publisher Publisher
	Metrics   *obs.Metrics
	Clock     func() time.Time
}

// Usecase polls the exchange through the rate-limited scheduler, streams
// prices of the held assets and maintains the published state.
type Usecase struct {
	exchange   Exchange
	aggregator *valuation.Aggregator
	subscriber *stream.Subscriber
	scheduler  *schedule.Scheduler
	publisher  Publisher
	metrics    *obs.Metrics
	now        func() time.Time

	*states
}

// NewUsecase wires a configured tracker.
func NewUsecase(cfg Config) (*Usecase, error) {
	if cfg.Exchange == nil || cfg.Dialer == nil {
		return nil, exception.ErrNilInstance
	}

	use := &Usecase{
		exchange:  cfg.Exchange,
		publisher: cfg.Publisher,
		metrics:   cfg.Metrics,
		now:       cfg.Clock,
		states:    newStates(adapter.State{Configured: true}),
	}

	if use.now == nil {
		use.now = time.Now
	}

	aggCfg := valuation.Config{Base: cfg.Base, Clock: cfg.Clock}
	schCfg := cfg.Schedule
	var streamObserver stream.Observer
	if cfg.Metrics != nil {
		aggCfg.Observer = cfg.Metrics
		schCfg.Observer = cfg.Metrics
		streamObserver = cfg.Metrics
	}

	use.aggregator = valuation.New(aggCfg)
	use.aggregator.OnCommit(use.onCommit)

	subscriber, err := stream.NewSubscriber(cfg.Dialer, cfg.Base, use.aggregator.ApplyTick, streamObserver)
	if err != nil {
		return nil, err
	}
	use.subscriber = subscriber

	scheduler, err := schedule.New(schCfg, map[enum.CallKind]schedule.Handler{
		enum.CallBalances:   schedule.Task("balances", use.exchange.Balances, use.onBalances),
		enum.CallOpenOrders: schedule.Task("open_orders", use.exchange.OpenOrders, use.onOpenOrders),
		enum.CallPriceTable: schedule.Task("price_table", use.exchange.PriceTable, use.onPriceTable),
		enum.CallSymbols:    schedule.Task("symbols", use.exchange.Symbols, use.onSymbols),
	})
	if err != nil {
		return nil, err
	}
	use.scheduler = scheduler

	return use, nil
}

// NewUnconfigured returns a tracker that only publishes the not-configured
// state. Its Run blocks until ctx ends.
func NewUnconfigured() *Usecase {
	return &Usecase{
		now:    time.Now,
		states: newStates(adapter.State{}),
	}
}

func (use *Usecase) Configured() bool {
	return use.scheduler != nil
}

// Run drives the scheduler and the price feed until ctx ends. A failed call
// halts the scheduler only. The price feed stays open, and the failure is
// returned once ctx ends.
func (use *Usecase) Run(ctx context.Context) error {
	if use.scheduler == nil {
		<-ctx.Done()
		return nil
	}

	defer use.subscriber.Close()

	err := use.scheduler.Run(ctx)
	if haltErr := use.scheduler.Err(); haltErr != nil {
		use.update(func(s *adapter.State) {
			s.Halted = true
			s.HaltReason = haltErr.Error()
			s.UpdatedAt = use.now()
		})
		logs.Errorf("scheduler halted, price feed kept until shutdown, err: %+v", haltErr)
		<-ctx.Done()
		return haltErr
	}

	if errors.Is(err, context.Canceled) {
		return nil
	}

	return err
}

// Wait blocks until the calls already dispatched have completed.
func (use *Usecase) Wait() {
	if use.scheduler != nil {
		use.scheduler.Wait()
	}
}

// Scheduler exposes the underlying scheduler.
func (use *Usecase) Scheduler() *schedule.Scheduler {
	return use.scheduler
}

func (use *Usecase) onBalances(ctx context.Context, balances []adapter.Balance) {
	if balances == nil {
		return
	}

	held, changed := use.aggregator.ApplyBalances(balances)

	assets := make([]adapter.Asset, 0, len(held))
	for _, b := range balances {
		if b.Held() {
			assets = append(assets, adapter.Asset{Balance: b})
		}
	}

	// unvalued assets are shown until the first commit only
	use.update(func(s *adapter.State) {
		if s.Total != nil {
			return
		}
		s.Assets = assets
		s.UpdatedAt = use.now()
	})

	if changed {
		if err := use.subscriber.Resubscribe(ctx, held); err != nil {
			logs.Errorf("resubscribe price feed, err: %+v", err)
		}
	}
}

func (use *Usecase) onOpenOrders(_ context.Context, orders []adapter.Order) {
	if orders == nil {
		return
	}

	use.update(func(s *adapter.State) {
		s.OpenOrders = orders
		s.UpdatedAt = use.now()
	})
}

func (use *Usecase) onPriceTable(_ context.Context, prices []adapter.Price) {
	use.aggregator.ApplyPrices(prices)
}

func (use *Usecase) onSymbols(_ context.Context, n int) {
	if n <= 0 {
		return
	}

	use.update(func(s *adapter.State) {
		s.SymbolCount = n
		s.UpdatedAt = use.now()
	})
}

// onCommit runs under the aggregator lock.
func (use *Usecase) onCommit(snapshot adapter.Snapshot) {
	use.update(func(s *adapter.State) {
		s.Assets = snapshot.Assets
		s.Total = snapshot.Total
		s.UpdatedAt = snapshot.CommittedAt
	})

	if use.publisher == nil {
		return
	}

	if err := use.publisher.TryPublish(snapshot); err != nil {
		if use.metrics != nil && errors.Is(err, exception.ErrQueueFull) {
			use.metrics.IncBusDrop()
		}
		logs.Errorf("publish snapshot, err: %+v", err)
	}
}
