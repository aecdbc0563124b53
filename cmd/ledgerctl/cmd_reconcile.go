package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/subcommands"

	"ledgerplan/internal/core"
	"ledgerplan/internal/services"
)

// sourcesFlag collects repeated input=ledger pairs.
type sourcesFlag map[core.Input]string

func (s sourcesFlag) String() string {
	parts := make([]string, 0, len(s))
	for in, l := range s {
		parts = append(parts, string(in)+"="+l)
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

func (s sourcesFlag) Set(v string) error {
	in, l, ok := strings.Cut(v, "=")
	in, l = strings.TrimSpace(in), strings.TrimSpace(l)
	if !ok || in == "" || l == "" {
		return fmt.Errorf("want input=ledger, got %q", v)
	}
	s[core.Input(in)] = l
	return nil
}

type reconcileCmd struct {
	report   string
	period   string
	ledger   string
	table    string
	formula  string
	sources  sourcesFlag
	category string
	customer string
}

func (*reconcileCmd) Name() string     { return "reconcile" }
func (*reconcileCmd) Synopsis() string { return "compare ledgers with the budget plan" }
func (*reconcileCmd) Usage() string {
	return `reconcile -report <name> [-period YYYY-MM]
reconcile -ledger <name> -table <key> [-formula f] [-source input=ledger ...] [-period YYYY-MM]:
  Reconcile a catalog report, or an ad-hoc formula over explicit ledgers.
`
}

func (c *reconcileCmd) SetFlags(f *flag.FlagSet) {
	c.sources = sourcesFlag{}
	f.StringVar(&c.report, "report", "", "catalog report name")
	f.StringVar(&c.period, "period", "", "target month YYYY-MM (default: current month)")
	f.StringVar(&c.ledger, "ledger", "", "ledger feeding the actual input")
	f.StringVar(&c.table, "table", "", "budget table key")
	f.StringVar(&c.formula, "formula", string(core.FormulaCompletion), "formula name")
	f.Var(c.sources, "source", "input=ledger, repeatable")
	f.StringVar(&c.category, "category", "", "only this category")
	f.StringVar(&c.customer, "customer", "", "only this customer")
}

func (c *reconcileCmd) request(now time.Time) (services.ReconcileRequest, error) {
	period, err := parsePeriodFlag(c.period, now)
	if err != nil {
		return services.ReconcileRequest{}, err
	}
	req := services.ReconcileRequest{
		Report:  c.report,
		Period:  period,
		Formula: core.FormulaName(c.formula),
		Filter:  core.Filter{Category: c.category, Customer: c.customer},
	}
	if c.report != "" {
		return req, nil
	}
	if c.table == "" {
		return req, fmt.Errorf("-table is required without -report")
	}
	req.TableKey = c.table
	req.Sources = make(map[core.Input]string, len(c.sources)+1)
	for in, l := range c.sources {
		req.Sources[in] = l
	}
	if c.ledger != "" {
		req.Sources[core.InputActual] = c.ledger
	}
	if len(req.Sources) == 0 {
		return req, fmt.Errorf("-ledger or -source is required without -report")
	}
	return req, nil
}

func (c *reconcileCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	req, err := c.request(time.Now())
	if err != nil {
		return usage(f, "reconcile: "+err.Error())
	}

	app, _, err := openApp(ctx)
	if err != nil {
		return fail(err)
	}
	defer app.Close()

	var res *core.Reconciliation
	if req.Report != "" {
		res, err = app.Reports.Run(ctx, req.Report, req.Period, req.Filter)
	} else {
		res, err = app.Reports.Reconcile(ctx, req)
	}
	if err != nil {
		return fail(err)
	}

	if *asJSON {
		err = writeJSON(os.Stdout, res)
	} else {
		err = writeReconciliation(os.Stdout, res, *currency)
	}
	if err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}
