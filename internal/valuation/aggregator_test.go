package valuation

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portwatch/internal/adapter"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func bal(symbol, free string) adapter.Balance {
	return adapter.NewBalance(symbol, d(free), decimal.Zero)
}

func newTestAggregator() *Aggregator {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return New(Config{Base: "BTC", Clock: func() time.Time { return at }})
}

func TestRoundTripValuation(t *testing.T) {
	a := newTestAggregator()
	a.ApplyPrices([]adapter.Price{{Symbol: "ETH", Price: d("0.05")}})
	a.ApplyBalances([]adapter.Balance{bal("BTC", "0.5"), bal("ETH", "2")})

	snap, ok := a.Snapshot()
	require.True(t, ok)
	require.NotNil(t, snap.Total)
	assert.True(t, snap.Total.Equal(d("0.6")), "total %s", snap.Total)

	require.Len(t, snap.Assets, 2)
	assert.True(t, snap.Assets[0].Value.Equal(d("0.5")))
	assert.True(t, snap.Assets[1].Value.Equal(d("0.1")))
}

func TestRecomputeIsAtomic(t *testing.T) {
	a := newTestAggregator()

	a.ApplyBalances([]adapter.Balance{bal("BTC", "0.5")})
	prior, ok := a.Snapshot()
	require.True(t, ok)
	require.True(t, prior.Total.Equal(d("0.5")))

	// ETH is held but unpriced: nothing changes
	a.ApplyBalances([]adapter.Balance{bal("BTC", "0.5"), bal("ETH", "2")})
	snap, _ := a.Snapshot()
	assert.True(t, snap.Total.Equal(*prior.Total))
	assert.Len(t, snap.Assets, 1)

	a.ApplyTick(adapter.Price{Symbol: "LTC", Price: d("0.002")})
	snap, _ = a.Snapshot()
	assert.True(t, snap.Total.Equal(d("0.5")))

	a.ApplyTick(adapter.Price{Symbol: "ETH", Price: d("0.05")})
	snap, _ = a.Snapshot()
	assert.True(t, snap.Total.Equal(d("0.6")))
	assert.Len(t, snap.Assets, 2)
}

func TestNoCommitBeforeFirstBalances(t *testing.T) {
	a := newTestAggregator()
	a.ApplyPrices([]adapter.Price{{Symbol: "ETH", Price: d("0.05")}})

	snap, ok := a.Snapshot()
	assert.False(t, ok)
	assert.Nil(t, snap.Total)
}

func TestApplyBalancesHeldSet(t *testing.T) {
	a := newTestAggregator()

	held, changed := a.ApplyBalances([]adapter.Balance{bal("ETH", "2"), bal("BTC", "1"), bal("XRP", "0")})
	assert.True(t, changed)
	assert.Equal(t, []string{"BTC", "ETH"}, held)

	held, changed = a.ApplyBalances([]adapter.Balance{bal("BTC", "3"), bal("ETH", "1")})
	assert.False(t, changed)
	assert.Equal(t, []string{"BTC", "ETH"}, held)

	held, changed = a.ApplyBalances(nil)
	assert.False(t, changed)
	assert.Equal(t, []string{"BTC", "ETH"}, held)
	assert.Len(t, a.Balances(), 2)

	held, changed = a.ApplyBalances([]adapter.Balance{bal("BTC", "3"), bal("ETH", "1"), bal("LTC", "4")})
	assert.True(t, changed)
	assert.Equal(t, []string{"BTC", "ETH", "LTC"}, held)
}

func TestBasePriceIsFixed(t *testing.T) {
	a := newTestAggregator()
	a.ApplyTick(adapter.Price{Symbol: "BTC", Price: d("2")})

	p, ok := a.Price("BTC")
	require.True(t, ok)
	assert.True(t, p.Equal(decimal.NewFromInt(1)))
}

func TestCommitHooks(t *testing.T) {
	a := newTestAggregator()

	var commits []adapter.Snapshot
	a.OnCommit(func(s adapter.Snapshot) { commits = append(commits, s) })

	a.ApplyBalances([]adapter.Balance{bal("BTC", "1"), bal("ETH", "1")})
	assert.Empty(t, commits)

	a.ApplyPrices([]adapter.Price{{Symbol: "ETH", Price: d("0.05")}})
	require.Len(t, commits, 1)
	assert.True(t, commits[0].Total.Equal(d("1.05")))

	// hooks get their own copy
	*commits[0].Total = d("99")
	snap, _ := a.Snapshot()
	assert.True(t, snap.Total.Equal(d("1.05")))
}
