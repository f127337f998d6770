package obs

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"portwatch/internal/adapter"
	"portwatch/internal/schedule"
)

// Metrics holds the collectors of the service on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	QueueLength     prometheus.Gauge
	CallsEnqueued   *prometheus.CounterVec
	CallsCompleted  *prometheus.CounterVec
	CallLatency     *prometheus.HistogramVec
	TickWeight      prometheus.Histogram
	SchedulerHalted prometheus.Gauge

	RequestLatency *prometheus.HistogramVec
	RequestErrors  *prometheus.CounterVec

	StreamResubscribes prometheus.Counter
	StreamDialFailures prometheus.Counter
	StreamAssets       prometheus.Gauge
	StreamTicks        prometheus.Counter

	Commits       prometheus.Counter
	CommitAborts  *prometheus.CounterVec
	PortfolioBase prometheus.Gauge

	BusDrops  prometheus.Counter
	SinkError *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		QueueLength: f.NewGauge(prometheus.GaugeOpts{
			Name: "portwatch_call_queue_length",
			Help: "Calls waiting in the queue",
		}),
		CallsEnqueued: f.NewCounterVec(prometheus.CounterOpts{
			Name: "portwatch_calls_enqueued_total",
			Help: "Calls enqueued by kind",
		}, []string{"kind"}),
		CallsCompleted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "portwatch_calls_completed_total",
			Help: "Dispatched calls by kind and result",
		}, []string{"kind", "result"}),
		CallLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "portwatch_call_duration_seconds",
			Help:    "Handler duration of dispatched calls",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 15},
		}, []string{"kind"}),
		TickWeight: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "portwatch_tick_weight",
			Help:    "Weight dispatched per tick",
			Buckets: prometheus.LinearBuckets(0, 1, 11),
		}),
		SchedulerHalted: f.NewGauge(prometheus.GaugeOpts{
			Name: "portwatch_scheduler_halted",
			Help: "1 once the scheduler has stopped after a failed call",
		}),

		RequestLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "portwatch_request_duration_seconds",
			Help:    "REST request duration by operation",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		RequestErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "portwatch_request_errors_total",
			Help: "Failed REST requests by operation",
		}, []string{"op"}),

		StreamResubscribes: f.NewCounter(prometheus.CounterOpts{
			Name: "portwatch_stream_resubscribes_total",
			Help: "Price feeds opened",
		}),
		StreamDialFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "portwatch_stream_dial_failures_total",
			Help: "Price feeds that failed to open",
		}),
		StreamAssets: f.NewGauge(prometheus.GaugeOpts{
			Name: "portwatch_stream_assets",
			Help: "Assets covered by the live price feed",
		}),
		StreamTicks: f.NewCounter(prometheus.CounterOpts{
			Name: "portwatch_stream_ticks_total",
			Help: "Streamed price updates",
		}),

		Commits: f.NewCounter(prometheus.CounterOpts{
			Name: "portwatch_valuation_commits_total",
			Help: "Committed portfolio snapshots",
		}),
		CommitAborts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "portwatch_valuation_aborts_total",
			Help: "Recomputes aborted by an unpriced held asset",
		}, []string{"asset"}),
		PortfolioBase: f.NewGauge(prometheus.GaugeOpts{
			Name: "portwatch_portfolio_value",
			Help: "Last committed portfolio value in the base currency",
		}),

		BusDrops: f.NewCounter(prometheus.CounterOpts{
			Name: "portwatch_bus_drops_total",
			Help: "Snapshots dropped by a full sink queue",
		}),
		SinkError: f.NewCounterVec(prometheus.CounterOpts{
			Name: "portwatch_sink_errors_total",
			Help: "Failed snapshot writes by sink",
		}, []string{"sink"}),
	}
}

// Registry is the gatherer served on /metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Scheduler events.

func (m *Metrics) Enqueued(call schedule.Call, queueLen int) {
	m.CallsEnqueued.WithLabelValues(call.Kind.String()).Inc()
	m.QueueLength.Set(float64(queueLen))
}

func (m *Metrics) Ticked(_ []schedule.Call, used int, queueLen int) {
	m.TickWeight.Observe(float64(used))
	m.QueueLength.Set(float64(queueLen))
}

func (m *Metrics) Completed(c schedule.Completion) {
	result := "ok"
	if c.Err != nil {
		result = "error"
	}
	m.CallsCompleted.WithLabelValues(c.Call.Kind.String(), result).Inc()
	m.CallLatency.WithLabelValues(c.Call.Kind.String()).Observe(c.Duration.Seconds())
}

func (m *Metrics) Halted(error) {
	m.SchedulerHalted.Set(1)
}

// Exchange client.

func (m *Metrics) ObserveRequest(op string, elapsed time.Duration, err error) {
	m.RequestLatency.WithLabelValues(op).Observe(elapsed.Seconds())
	if err != nil {
		m.RequestErrors.WithLabelValues(op).Inc()
	}
}

// Price feed.

func (m *Metrics) Resubscribed(assets int) {
	m.StreamResubscribes.Inc()
	m.StreamAssets.Set(float64(assets))
}

func (m *Metrics) DialFailed() {
	m.StreamDialFailures.Inc()
	m.StreamAssets.Set(0)
}

func (m *Metrics) PriceReceived() {
	m.StreamTicks.Inc()
}

// Valuation.

func (m *Metrics) Committed(s adapter.Snapshot) {
	m.Commits.Inc()
	if s.Total != nil {
		m.PortfolioBase.Set(s.Total.InexactFloat64())
	}
}

func (m *Metrics) Aborted(missing string) {
	m.CommitAborts.WithLabelValues(missing).Inc()
}

// Sinks.

func (m *Metrics) IncBusDrop() {
	m.BusDrops.Inc()
}

func (m *Metrics) IncSinkError(sink string) {
	m.SinkError.WithLabelValues(sink).Inc()
}
