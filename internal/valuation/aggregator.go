package valuation

import (
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"portwatch/internal/adapter"
)

// Observer receives recompute outcomes.
type Observer interface {
	Committed(snapshot adapter.Snapshot)
	Aborted(missing string)
}

type nopObserver struct{}

func (nopObserver) Committed(adapter.Snapshot) {}
func (nopObserver) Aborted(string)             {}

type Config struct {
	// Base is the valuation currency. Its price is always 1.
	Base     string
	Clock    func() time.Time
	Observer Observer
}

// Aggregator merges balances and prices into a portfolio snapshot. A
// snapshot is committed only when every held asset has a known price;
// otherwise the previous one stays in place.
type Aggregator struct {
	base     string
	now      func() time.Time
	observer Observer

	mu        sync.Mutex
	balances  []adapter.Balance
	received  bool
	prices    map[string]decimal.Decimal
	held      []string
	snapshot  adapter.Snapshot
	committed bool
	hooks     []func(adapter.Snapshot)
}

func New(cfg Config) *Aggregator {
	a := &Aggregator{
		base:     cfg.Base,
		now:      cfg.Clock,
		observer: cfg.Observer,
		prices:   map[string]decimal.Decimal{cfg.Base: decimal.NewFromInt(1)},
	}

	if a.now == nil {
		a.now = time.Now
	}

	if a.observer == nil {
		a.observer = nopObserver{}
	}

	return a
}

func (a *Aggregator) Base() string {
	return a.base
}

// OnCommit registers a hook called with every committed snapshot. Hooks run
// while the aggregator is locked and must not block or call back into it.
func (a *Aggregator) OnCommit(hook func(adapter.Snapshot)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.hooks = append(a.hooks, hook)
}

// ApplyBalances replaces the balance view with a full account refresh and
// reports the held assets and whether that set changed. A nil refresh is
// the result of a malformed response and is ignored.
func (a *Aggregator) ApplyBalances(balances []adapter.Balance) (held []string, changed bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if balances == nil {
		return slices.Clone(a.held), false
	}

	a.balances = slices.Clone(balances)
	a.received = true
	next := make([]string, 0, len(balances))
	for _, b := range balances {
		if b.Held() {
			next = append(next, b.Symbol)
		}
	}
	slices.Sort(next)
	next = slices.Compact(next)

	changed = !slices.Equal(next, a.held)
	a.held = next
	a.recompute()

	return slices.Clone(a.held), changed
}

// ApplyPrices writes a polled price table. Nil tables are ignored.
func (a *Aggregator) ApplyPrices(prices []adapter.Price) {
	if prices == nil {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for _, p := range prices {
		a.setPrice(p)
	}
	a.recompute()
}

// ApplyTick writes one streamed price. The latest write wins.
func (a *Aggregator) ApplyTick(p adapter.Price) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.setPrice(p)
	a.recompute()
}

func (a *Aggregator) setPrice(p adapter.Price) {
	if p.Symbol == "" || p.Symbol == a.base {
		return
	}
	a.prices[p.Symbol] = p.Price
}

// Snapshot returns a copy of the last committed snapshot.
func (a *Aggregator) Snapshot() (adapter.Snapshot, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshot.Clone(), a.committed
}

// Held returns the held asset symbols in sorted order.
func (a *Aggregator) Held() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.held)
}

// Price returns the known base-currency price of symbol.
func (a *Aggregator) Price(symbol string) (decimal.Decimal, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	p, ok := a.prices[symbol]
	return p, ok
}

// Balances returns the last balance refresh as received.
func (a *Aggregator) Balances() []adapter.Balance {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.balances)
}

// recompute commits a new snapshot or leaves the previous one untouched.
// Nothing is committed before the first balance refresh. Callers hold a.mu.
func (a *Aggregator) recompute() bool {
	if !a.received {
		return false
	}

	assets := make([]adapter.Asset, 0, len(a.held))
	total := decimal.Zero
	for _, b := range a.balances {
		if !b.Held() {
			continue
		}

		price, ok := a.prices[b.Symbol]
		if !ok {
			a.observer.Aborted(b.Symbol)
			return false
		}

		value := b.Total.Mul(price)
		total = total.Add(value)
		assets = append(assets, adapter.Asset{Balance: b, Value: &value})
	}

	a.snapshot = adapter.Snapshot{
		Assets:      assets,
		Total:       &total,
		CommittedAt: a.now(),
	}
	a.committed = true

	a.observer.Committed(a.snapshot.Clone())
	for _, hook := range a.hooks {
		hook(a.snapshot.Clone())
	}

	return true
}
