package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"
	"github.com/yanun0323/logs"

	"portwatch/internal/exchange/binance"
	"portwatch/internal/ops"
)

type symbolsCmd struct{}

func (*symbolsCmd) Name() string     { return "symbols" }
func (*symbolsCmd) Synopsis() string { return "print the number of symbols listed on the venue" }
func (*symbolsCmd) Usage() string {
	return `portwatch symbols

  Calls the public exchange info endpoint once. No credentials needed.
`
}

func (*symbolsCmd) SetFlags(*flag.FlagSet) {}

func (*symbolsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := ops.Load()
	if err != nil {
		logs.Errorf("load config, err: %+v", err)
		return subcommands.ExitUsageError
	}

	client := binance.NewClient(binance.Config{BaseUrl: cfg.RestUrl, Base: cfg.Base, Proxy: cfg.Proxy})
	n, err := client.Symbols(ctx)
	if err != nil {
		logs.Errorf("fetch symbols, err: %+v", err)
		return subcommands.ExitFailure
	}

	fmt.Printf("Number of Symbols: %d\n", n)
	return subcommands.ExitSuccess
}
