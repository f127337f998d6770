package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/bytedance/sonic"
	"github.com/google/subcommands"
	"github.com/yanun0323/logs"

	"portwatch/internal/adapter"
	"portwatch/internal/ops"
	"portwatch/internal/store"
	"portwatch/pkg/conn"
)

type snapshotCmd struct {
	history int
}

func (*snapshotCmd) Name() string     { return "snapshot" }
func (*snapshotCmd) Synopsis() string { return "print the last committed portfolio snapshot" }
func (*snapshotCmd) Usage() string {
	return `portwatch snapshot [-history <n>]

  Reads the cached snapshot from PORTWATCH_REDIS_URL, or the last n
  snapshots from PORTWATCH_POSTGRES_DSN when -history is set.
`
}

func (p *snapshotCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&p.history, "history", 0, "Number of snapshots to read from the postgres history.")
}

func (p *snapshotCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := ops.Load()
	if err != nil {
		logs.Errorf("load config, err: %+v", err)
		return subcommands.ExitUsageError
	}

	var snapshots []adapter.Snapshot
	if p.history > 0 {
		snapshots, err = p.readHistory(ctx, cfg)
	} else {
		snapshots, err = readCache(ctx, cfg)
	}
	if err != nil {
		logs.Errorf("read snapshot, err: %+v", err)
		return subcommands.ExitFailure
	}

	if len(snapshots) == 0 {
		fmt.Fprintln(os.Stderr, "no snapshot committed yet")
		return subcommands.ExitFailure
	}

	for _, s := range snapshots {
		payload, err := sonic.ConfigFastest.MarshalIndent(s, "", "  ")
		if err != nil {
			logs.Errorf("marshal snapshot, err: %+v", err)
			return subcommands.ExitFailure
		}
		fmt.Println(string(payload))
	}

	return subcommands.ExitSuccess
}

func readCache(ctx context.Context, cfg ops.Config) ([]adapter.Snapshot, error) {
	if cfg.RedisUrl == "" {
		return nil, fmt.Errorf("%sREDIS_URL is not set", ops.EnvPrefix)
	}

	client, err := conn.NewRedis(ctx, cfg.RedisUrl)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	s, ok, err := store.NewRedis(client, cfg.SnapshotTTL).Latest(ctx)
	if err != nil || !ok {
		return nil, err
	}

	return []adapter.Snapshot{s}, nil
}

func (p *snapshotCmd) readHistory(ctx context.Context, cfg ops.Config) ([]adapter.Snapshot, error) {
	if cfg.PostgresDSN == "" {
		return nil, fmt.Errorf("%sPOSTGRES_DSN is not set", ops.EnvPrefix)
	}

	pg, err := conn.NewPostgres(ctx, conn.PostgresOption{DSN: cfg.PostgresDSN})
	if err != nil {
		return nil, err
	}
	defer pg.Close()

	return store.NewHistory(pg.DB()).Recent(ctx, p.history)
}
