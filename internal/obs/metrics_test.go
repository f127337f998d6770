package obs

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portwatch/internal/adapter"
	"portwatch/internal/adapter/enum"
	"portwatch/internal/schedule"
)

func TestSchedulerMetrics(t *testing.T) {
	m := NewMetrics()

	call := schedule.Call{Kind: enum.CallPriceTable, Weight: 1}
	m.Enqueued(call, 3)
	m.Enqueued(call, 4)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CallsEnqueued.WithLabelValues("price_table")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.QueueLength))

	m.Ticked([]schedule.Call{call}, 1, 3)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.QueueLength))

	m.Completed(schedule.Completion{Call: call, Duration: 20 * time.Millisecond})
	m.Completed(schedule.Completion{Call: call, Err: errors.New("boom")})
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CallsCompleted.WithLabelValues("price_table", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CallsCompleted.WithLabelValues("price_table", "error")))

	assert.Zero(t, testutil.ToFloat64(m.SchedulerHalted))
	m.Halted(errors.New("boom"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SchedulerHalted))
}

func TestValuationMetrics(t *testing.T) {
	m := NewMetrics()

	total := decimal.RequireFromString("0.6")
	m.Committed(adapter.Snapshot{Total: &total})
	m.Aborted("ETH")
	m.Aborted("ETH")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Commits))
	assert.InDelta(t, 0.6, testutil.ToFloat64(m.PortfolioBase), 1e-9)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CommitAborts.WithLabelValues("ETH")))
}

func TestRegistryGathers(t *testing.T) {
	m := NewMetrics()
	m.ObserveRequest("balances", time.Millisecond, errors.New("503"))
	m.Resubscribed(2)
	m.PriceReceived()
	m.IncBusDrop()
	m.IncSinkError("redis")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestErrors.WithLabelValues("balances")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.StreamAssets))

	families, err := m.Registry().Gather()
	require.NoError(t, err)

	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["portwatch_request_duration_seconds"])
	assert.True(t, names["portwatch_bus_drops_total"])
	assert.True(t, names["portwatch_stream_ticks_total"])
}
