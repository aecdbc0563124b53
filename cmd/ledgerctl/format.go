package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"ledgerplan/internal/core"
	"ledgerplan/internal/reports"
)

// formatAmount renders a major-unit amount in cur, e.g. "$1,234.50".
func formatAmount(amount float64, cur string) string {
	m := money.New(0, cur)
	fraction := int32(m.Currency().Fraction)
	minor := decimal.NewFromFloat(amount).Shift(fraction).Round(0).IntPart()
	return money.New(minor, cur).Display()
}

// formatRate renders a rate as a percentage, or n/a for NoData.
func formatRate(v core.Value) string {
	if v.IsNoData() {
		return "n/a"
	}
	return v.String() + "%"
}

// formatMeasure renders a formula output: an amount for net profit, a
// percentage otherwise.
func formatMeasure(v core.Value, formula core.FormulaName, cur string) string {
	if formula != core.FormulaNetProfit {
		return formatRate(v)
	}
	f, ok := v.Float()
	if !ok {
		return "n/a"
	}
	return formatAmount(f, cur)
}

// formatDeviation renders measured minus plan. Completion and net profit
// compare amounts; margin formulas compare rates, so their deviation is in
// percentage points.
func formatDeviation(v core.Value, formula core.FormulaName, cur string) string {
	f, ok := v.Float()
	if !ok {
		return "n/a"
	}
	if amountDeviation(formula) {
		return formatAmount(f, cur)
	}
	return v.String() + "pp"
}

func amountDeviation(name core.FormulaName) bool {
	if name == core.FormulaNetProfit {
		return true
	}
	f, err := core.LookupFormula(name)
	return err == nil && f.PlanRelative
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeReconciliation(w io.Writer, r *core.Reconciliation, cur string) error {
	title := string(r.Formula)
	if r.Report != "" {
		title = r.Report
	}
	fmt.Fprintf(w, "%s  table=%s  period=%s\n", title, r.TableKey, r.Period)
	if r.Partial {
		fmt.Fprintf(w, "warning: partial result, months not read: %v\n", r.FailedPeriods)
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "key\tbudget key\tactual\tcurrent\tplan\tmeasure\tdeviation\t")
	row := func(m core.DerivedMetric) {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			m.Key, m.BudgetKey,
			formatAmount(m.Actual, cur),
			formatAmount(m.CurrentPeriod, cur),
			formatAmount(m.Plan, cur),
			formatMeasure(m.ActualRate, r.Formula, cur),
			formatDeviation(m.Deviation, r.Formula, cur))
	}
	for _, m := range r.Items {
		row(m)
	}
	fmt.Fprintln(tw, "\t\t\t\t\t\t\t")
	for _, m := range r.Categories {
		row(m)
	}
	row(r.Total)
	return tw.Flush()
}

func writeRollup(w io.Writer, r *core.RollupResult, cur string) error {
	fmt.Fprintf(w, "%s  period=%s\n", r.Ledger, r.Period)
	if len(r.FailedPeriods) > 0 {
		fmt.Fprintf(w, "warning: months not read: %v\n", r.FailedPeriods)
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "key\tyear to date\tcurrent month\t")
	for _, it := range r.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t\n", it.Key,
			formatAmount(it.CumulativeActual, cur),
			formatAmount(it.CurrentPeriodActual, cur))
	}
	return tw.Flush()
}

func writeCatalog(w io.Writer, all []reports.Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tFORMULA\tTABLE\tLEDGERS\tTITLE")
	for _, r := range all {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.Name, r.Formula, r.TableKey, strings.Join(r.Ledgers(), ","), r.Title)
	}
	return tw.Flush()
}
