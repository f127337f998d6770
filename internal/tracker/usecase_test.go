package tracker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portwatch/internal/adapter"
	"portwatch/internal/adapter/enum"
	"portwatch/internal/bus"
	"portwatch/internal/obs"
	"portwatch/internal/schedule"
	"portwatch/pkg/exception"
)

type fakeExchange struct {
	ordersErr   error
	balancesErr error
	orderCalls  atomic.Int64
}

func (f *fakeExchange) Balances(context.Context) ([]adapter.Balance, error) {
	if f.balancesErr != nil {
		return nil, f.balancesErr
	}
	return []adapter.Balance{
		adapter.NewBalance("BTC", decimal.RequireFromString("0.5"), decimal.Zero),
		adapter.NewBalance("ETH", decimal.NewFromInt(2), decimal.Zero),
		adapter.NewBalance("XRP", decimal.Zero, decimal.Zero),
	}, nil
}

func (f *fakeExchange) OpenOrders(context.Context) ([]adapter.Order, error) {
	f.orderCalls.Add(1)
	if f.ordersErr != nil {
		return nil, f.ordersErr
	}
	return []adapter.Order{{ID: 1, Symbol: "ETHBTC", Label: "LIMIT BUY"}}, nil
}

func (f *fakeExchange) PriceTable(context.Context) ([]adapter.Price, error) {
	return []adapter.Price{
		{Symbol: "BTC", Price: decimal.NewFromInt(1)},
		{Symbol: "ETH", Price: decimal.RequireFromString("0.05")},
	}, nil
}

func (f *fakeExchange) Symbols(context.Context) (int, error) {
	return 3, nil
}

type fakeDialer struct {
	mu     sync.Mutex
	dials  [][]string
	closes int
}

func (d *fakeDialer) Dial(_ context.Context, assets []string, _ func(adapter.Price)) (func(), error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials = append(d.dials, assets)
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.closes++
	}, nil
}

// Open returns the number of feeds dialed and not closed yet.
func (d *fakeDialer) Open() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.dials) - d.closes
}

func (d *fakeDialer) Dials() [][]string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([][]string(nil), d.dials...)
}

func testConfig(ex Exchange, dialer *fakeDialer) Config {
	return Config{
		Base:     "BTC",
		Exchange: ex,
		Dialer:   dialer,
		Schedule: schedule.Config{
			Capacity: 5,
			Tick:     2 * time.Millisecond,
			Specs: []schedule.Spec{
				{Kind: enum.CallBalances, Weight: 5, Priority: 0, Period: time.Hour},
				{Kind: enum.CallOpenOrders, Weight: 5, Priority: 2, Period: time.Hour},
				{Kind: enum.CallPriceTable, Weight: 1, Priority: 0, Period: 5 * time.Millisecond},
				{Kind: enum.CallSymbols, Weight: 1, Priority: 1, Period: time.Hour},
			},
		},
	}
}

func TestUsecaseRun(t *testing.T) {
	dialer := &fakeDialer{}
	queue := bus.NewQueue(16)
	cfg := testConfig(&fakeExchange{}, dialer)
	cfg.Publisher = queue
	cfg.Metrics = obs.NewMetrics()

	use, err := NewUsecase(cfg)
	require.NoError(t, err)
	assert.True(t, use.Configured())

	updates, stop := use.Listen()
	defer stop()

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- use.Run(ctx) }()

	require.Eventually(t, func() bool {
		s := use.State()
		return s.Total != nil && len(s.OpenOrders) == 1 && s.SymbolCount == 3
	}, 2*time.Second, 5*time.Millisecond)

	s := use.State()
	assert.True(t, s.Total.Equal(decimal.RequireFromString("0.6")))
	assert.Len(t, s.Assets, 2)
	assert.False(t, s.Halted)
	assert.Equal(t, [][]string{{"ETH"}}, dialer.Dials())

	select {
	case got := <-updates:
		assert.True(t, got.Configured)
	case <-time.After(time.Second):
		t.Fatal("no state update")
	}

	cancel()
	require.NoError(t, <-done)

	queue.Close()
	published := 0
	queue.Run(t.Context(), func(context.Context, adapter.Snapshot) { published++ })
	assert.Positive(t, published)
}

func TestUsecaseHaltsOnTransportFailure(t *testing.T) {
	ex := &fakeExchange{ordersErr: exception.Transport("open_orders", errors.New("http 503"))}
	dialer := &fakeDialer{}
	use, err := NewUsecase(testConfig(ex, dialer))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- use.Run(ctx) }()

	require.Eventually(t, func() bool {
		return use.State().Halted && len(dialer.Dials()) == 1
	}, 2*time.Second, 5*time.Millisecond)

	s := use.State()
	assert.Contains(t, s.HaltReason, "http 503")

	use.Scheduler().Wait()
	calls := ex.orderCalls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, calls, ex.orderCalls.Load())

	// only scheduling stops, the price feed stays up until shutdown
	assert.Equal(t, 1, dialer.Open())
	select {
	case err := <-done:
		t.Fatalf("run returned before shutdown: %v", err)
	default:
	}

	cancel()
	err = <-done
	require.Error(t, err)
	assert.False(t, exception.IsParse(err))
	assert.Contains(t, err.Error(), "http 503")
	assert.Zero(t, dialer.Open())
}

type gatedExchange struct {
	fakeExchange
	release chan struct{}
}

func (g *gatedExchange) Balances(ctx context.Context) ([]adapter.Balance, error) {
	<-g.release
	return g.fakeExchange.Balances(ctx)
}

func TestBalancesAfterShutdownDoNotOpenFeed(t *testing.T) {
	ex := &gatedExchange{release: make(chan struct{})}
	dialer := &fakeDialer{}
	use, err := NewUsecase(testConfig(ex, dialer))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()
	require.NoError(t, ignoreDeadline(use.Run(ctx)))

	close(ex.release)
	use.Scheduler().Wait()

	assert.Empty(t, dialer.Dials())
	assert.Zero(t, dialer.Open())
}

func ignoreDeadline(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

func TestBalancesKeepCommittedAssets(t *testing.T) {
	use, err := NewUsecase(testConfig(&fakeExchange{}, &fakeDialer{}))
	require.NoError(t, err)

	total := decimal.RequireFromString("0.6")
	value := decimal.RequireFromString("0.1")
	use.onCommit(adapter.Snapshot{
		Assets: []adapter.Asset{{
			Balance: adapter.NewBalance("ETH", decimal.NewFromInt(2), decimal.Zero),
			Value:   &value,
		}},
		Total:       &total,
		CommittedAt: time.Now(),
	})

	balances, err := (&fakeExchange{}).Balances(t.Context())
	require.NoError(t, err)
	use.onBalances(t.Context(), balances)

	s := use.State()
	require.NotNil(t, s.Total)
	assert.True(t, s.Total.Equal(total))
	require.Len(t, s.Assets, 1)
	require.NotNil(t, s.Assets[0].Value)
	assert.True(t, s.Assets[0].Value.Equal(value))
}

func TestUsecaseContinuesOnParseFailure(t *testing.T) {
	ex := &fakeExchange{balancesErr: exception.Parse("balances", exception.ErrDecodePayload)}
	dialer := &fakeDialer{}
	use, err := NewUsecase(testConfig(ex, dialer))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- use.Run(ctx) }()

	require.Eventually(t, func() bool {
		return len(use.State().OpenOrders) == 1
	}, 2*time.Second, 5*time.Millisecond)

	s := use.State()
	assert.False(t, s.Halted)
	assert.Nil(t, s.Total)
	assert.Empty(t, dialer.Dials())

	cancel()
	require.NoError(t, <-done)
}

func TestUnconfigured(t *testing.T) {
	use := NewUnconfigured()
	assert.False(t, use.Configured())
	assert.False(t, use.State().Configured)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	require.NoError(t, use.Run(ctx))
}

func TestNewUsecaseRequiresCollaborators(t *testing.T) {
	_, err := NewUsecase(Config{Base: "BTC"})
	require.ErrorIs(t, err, exception.ErrNilInstance)
}
