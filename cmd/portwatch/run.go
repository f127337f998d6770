package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"sync"
	"time"

	"github.com/google/subcommands"
	"github.com/yanun0323/logs"

	"portwatch/internal/bus"
	"portwatch/internal/display"
	"portwatch/internal/exchange/binance"
	"portwatch/internal/obs"
	"portwatch/internal/ops"
	"portwatch/internal/schedule"
	"portwatch/internal/store"
	"portwatch/internal/tracker"
	"portwatch/pkg/conn"
)

type runCmd struct {
	addr string
}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "track the portfolio and serve its state" }
func (*runCmd) Usage() string {
	return `portwatch run [-addr <host:port>]

  Polls balances, open orders, prices and the symbol count under the shared
  per-tick weight budget, streams prices of the held assets and serves the
  state on /state, /ws and /metrics. Configuration is read from PORTWATCH_*
  variables and an optional .env file.
`
}

func (p *runCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.addr, "addr", "", "Listen address of the display server. Overrides PORTWATCH_HTTP_ADDR.")
}

func (p *runCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := ops.Load()
	if err != nil {
		logs.Errorf("load config, err: %+v", err)
		return subcommands.ExitUsageError
	}

	if p.addr != "" {
		cfg.HttpAddr = p.addr
	}

	stopProfiler := startProfiler(cfg.PyroscopeAddr, cfg.Base)
	defer stopProfiler()

	metrics := obs.NewMetrics()

	var wg sync.WaitGroup
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	publisher, closeSinks := startSinks(ctx, cfg, metrics)

	use := newTracker(cfg, metrics, publisher)

	server := display.NewServer(use, metrics.Registry())
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := server.ListenAndServe(ctx, cfg.HttpAddr); err != nil {
			logs.Errorf("serve display, err: %+v", err)
			cancel()
		}
	}()

	if err := use.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logs.Errorf("tracker stopped, err: %+v", err)
	}

	<-ctx.Done()
	logs.Info("shutting down")
	use.Wait()
	closeSinks()
	wg.Wait()
	return subcommands.ExitSuccess
}

func newTracker(cfg ops.Config, metrics *obs.Metrics, publisher tracker.Publisher) *tracker.Usecase {
	token, err := cfg.LoadCredentials()
	if err != nil {
		logs.Errorf("API keys not configured, scheduler disabled, err: %+v", err)
		return tracker.NewUnconfigured()
	}

	logs.Infof("using API key %s", token.Masked())

	client := binance.NewClient(binance.Config{
		BaseUrl:    cfg.RestUrl,
		Token:      token,
		Base:       cfg.Base,
		Proxy:      cfg.Proxy,
		RecvWindow: cfg.RecvWindow,
		HttpClient: &http.Client{Timeout: 20 * time.Second},
		Observer:   metrics,
	})

	use, err := tracker.NewUsecase(tracker.Config{
		Base: cfg.Base,
		Schedule: schedule.Config{
			Capacity: cfg.Capacity,
			Tick:     cfg.Tick,
			Specs:    cfg.Specs(),
		},
		Exchange:  client,
		Dialer:    binance.NewFeedDialer(cfg.StreamUrl, cfg.Base, cfg.Proxy),
		Publisher: publisher,
		Metrics:   metrics,
	})
	if err != nil {
		logs.Errorf("build tracker, scheduler disabled, err: %+v", err)
		return tracker.NewUnconfigured()
	}

	return use
}

// startSinks connects the configured snapshot sinks and starts the bus
// consumer. The returned close function stops the queue, waits for the
// queued snapshots to be saved and then disconnects the sinks. It returns a
// nil publisher when no sink is configured.
func startSinks(ctx context.Context, cfg ops.Config, metrics *obs.Metrics) (tracker.Publisher, func()) {
	var (
		sinks   []store.Sink
		closers []func()
	)

	if cfg.RedisUrl != "" {
		client, err := conn.NewRedis(ctx, cfg.RedisUrl)
		if err != nil {
			logs.Errorf("connect redis, sink disabled, err: %+v", err)
		} else {
			sinks = append(sinks, store.NewRedis(client, cfg.SnapshotTTL))
			closers = append(closers, func() { _ = client.Close() })
		}
	}

	if cfg.PostgresDSN != "" {
		pg, err := conn.NewPostgres(ctx, conn.PostgresOption{DSN: cfg.PostgresDSN})
		if err != nil {
			logs.Errorf("connect postgres, sink disabled, err: %+v", err)
		} else {
			history := store.NewHistory(pg.DB())
			if err := history.Migrate(ctx); err != nil {
				logs.Errorf("migrate history, sink disabled, err: %+v", err)
				_ = pg.Close()
			} else {
				sinks = append(sinks, history)
				closers = append(closers, func() { _ = pg.Close() })
			}
		}
	}

	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}

	if len(sinks) == 0 {
		return nil, closeAll
	}

	queue := bus.NewQueue(cfg.BusCapacity)
	fanout := store.NewFanout(metrics, sinks...)
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		queue.Run(context.WithoutCancel(ctx), fanout.Handle)
	}()

	return queue, func() {
		queue.Close()
		<-drained
		closeAll()
	}
}
