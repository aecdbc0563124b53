package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"ledgerplan/internal/cli"
	"ledgerplan/internal/config"
	applog "ledgerplan/internal/log"
)

// register adds the subcommands to c.
func register(c *subcommands.Commander) {
	c.Register(&reportsCmd{}, "reports")
	c.Register(&ledgersCmd{}, "reports")
	c.Register(&rollupCmd{}, "reports")
	c.Register(&reconcileCmd{}, "reports")
	c.Register(&requestCmd{}, "reports")

	c.Register(&migrateCmd{}, "store")
	c.Register(&importDeltasCmd{}, "store")
	c.Register(&importBudgetCmd{}, "store")
}

// a CLI invocation is short lived, so process-wide flags are fine.
var (
	currency = flag.String("currency", "CNY", "ISO currency used to print amounts")
	asJSON   = flag.Bool("json", false, "print results as JSON")
)

// setup loads config and a logger writing to stderr.
func setup() (*config.Config, *applog.Logger, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	lc := applog.DefaultConfig()
	lc.Level = applog.ParseLevel(cfg.LogLevel)
	lc.Format = cfg.LogFormat
	lc.Output = os.Stderr
	lc.Component = "ledgerctl"
	logger := applog.New(lc)
	applog.SetDefault(logger)
	return cfg, logger, nil
}

// openApp wires the full report stack.
func openApp(ctx context.Context) (*cli.App, *config.Config, error) {
	cfg, logger, err := setup()
	if err != nil {
		return nil, nil, err
	}
	app, err := cli.Build(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return app, cfg, nil
}

func fail(err error) subcommands.ExitStatus {
	fmt.Fprintln(os.Stderr, "Error:", err)
	return subcommands.ExitFailure
}

func usage(f *flag.FlagSet, msg string) subcommands.ExitStatus {
	fmt.Fprintln(os.Stderr, msg)
	f.Usage()
	return subcommands.ExitUsageError
}
