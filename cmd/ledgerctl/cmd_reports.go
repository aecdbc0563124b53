package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/subcommands"

	"ledgerplan/internal/core"
	"ledgerplan/internal/ledger"
)

type reportsCmd struct{}

func (*reportsCmd) Name() string     { return "reports" }
func (*reportsCmd) Synopsis() string { return "list the report catalog" }
func (*reportsCmd) Usage() string {
	return `reports:
  List every report with its formula, budget table and source ledgers.
`
}
func (*reportsCmd) SetFlags(f *flag.FlagSet) {}

func (*reportsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	app, _, err := openApp(ctx)
	if err != nil {
		return fail(err)
	}
	defer app.Close()

	all := app.Reports.Reports()
	if *asJSON {
		err = writeJSON(os.Stdout, all)
	} else {
		err = writeCatalog(os.Stdout, all)
	}
	if err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}

type ledgersCmd struct{}

func (*ledgersCmd) Name() string     { return "ledgers" }
func (*ledgersCmd) Synopsis() string { return "list ledgers holding records" }
func (*ledgersCmd) Usage() string {
	return `ledgers:
  List the ledgers of the configured store.
`
}
func (*ledgersCmd) SetFlags(f *flag.FlagSet) {}

func (*ledgersCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	app, _, err := openApp(ctx)
	if err != nil {
		return fail(err)
	}
	defer app.Close()

	lister, ok := app.Backend.Ledger.(ledger.Lister)
	if !ok {
		return fail(fmt.Errorf("backend cannot list ledgers"))
	}
	names, err := lister.Ledgers(ctx)
	if err != nil {
		return fail(err)
	}
	if *asJSON {
		if err := writeJSON(os.Stdout, names); err != nil {
			return fail(err)
		}
		return subcommands.ExitSuccess
	}
	for _, n := range names {
		fmt.Println(n)
	}
	return subcommands.ExitSuccess
}

type rollupCmd struct {
	ledger   string
	period   string
	category string
	customer string
}

func (*rollupCmd) Name() string     { return "rollup" }
func (*rollupCmd) Synopsis() string { return "year-to-date totals of one ledger" }
func (*rollupCmd) Usage() string {
	return `rollup -ledger <name> [-period YYYY-MM] [-category c] [-customer c]:
  Sum a ledger from January through the period, per category and customer.
`
}

func (c *rollupCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.ledger, "ledger", "", "ledger name")
	f.StringVar(&c.period, "period", "", "target month YYYY-MM (default: current month)")
	f.StringVar(&c.category, "category", "", "only this category")
	f.StringVar(&c.customer, "customer", "", "only this customer")
}

func (c *rollupCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.ledger == "" {
		return usage(f, "rollup: -ledger is required")
	}
	period, err := parsePeriodFlag(c.period, time.Now())
	if err != nil {
		return usage(f, err.Error())
	}

	app, _, err := openApp(ctx)
	if err != nil {
		return fail(err)
	}
	defer app.Close()

	res, err := app.Reports.Rollup(ctx, c.ledger, period, core.Filter{Category: c.category, Customer: c.customer})
	if err != nil {
		return fail(err)
	}
	if *asJSON {
		err = writeJSON(os.Stdout, res)
	} else {
		err = writeRollup(os.Stdout, res, *currency)
	}
	if err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}

// parsePeriodFlag parses a YYYY-MM flag, defaulting to the month of now.
func parsePeriodFlag(s string, now time.Time) (core.PeriodKey, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return core.NewPeriod(now.Year(), int(now.Month()))
	}
	p, err := core.ParsePeriod(s)
	if err != nil {
		return core.PeriodKey{}, fmt.Errorf("-period: %w", err)
	}
	return p, nil
}
