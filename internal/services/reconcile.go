package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"ledgerplan/internal/core"
	applog "ledgerplan/internal/log"
)

// TotalKey labels the grand total row.
const TotalKey core.CompoundKey = "total"

// UncategorizedKey labels the subtotal of rows without a category.
const UncategorizedKey core.CompoundKey = "uncategorized"

// ReconcileRequest describes one reconciliation. Sources maps every input
// the formula requires to the ledger that feeds it.
type ReconcileRequest struct {
	Report   string                `json:"report,omitempty"`
	Period   core.PeriodKey        `json:"period"`
	TableKey string                `json:"table_key"`
	Formula  core.FormulaName      `json:"formula"`
	Sources  map[core.Input]string `json:"sources"`
	Filter   core.Filter           `json:"filter"`
}

// Reconciler joins rollups with budget plans and derives metrics.
type Reconciler struct {
	rollup   *RollupEngine
	budgets  *BudgetMapBuilder
	resolver core.KeyResolver
	logger   *slog.Logger
}

func NewReconciler(rollup *RollupEngine, budgets *BudgetMapBuilder, resolver core.KeyResolver, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		rollup:   rollup,
		budgets:  budgets,
		resolver: resolver,
		logger:   logger,
	}
}

// Reconcile runs a single-ledger formula: ledgerName feeds the actual input.
func (r *Reconciler) Reconcile(ctx context.Context, ledgerName string, period core.PeriodKey, tableKey string, formula core.FormulaName) (*core.Reconciliation, error) {
	return r.Run(ctx, ReconcileRequest{
		Period:   period,
		TableKey: tableKey,
		Formula:  formula,
		Sources:  map[core.Input]string{core.InputActual: ledgerName},
	})
}

// Run performs the reconciliation described by req.
func (r *Reconciler) Run(ctx context.Context, req ReconcileRequest) (*core.Reconciliation, error) {
	formula, err := core.LookupFormula(req.Formula)
	if err != nil {
		return nil, err
	}
	if _, err := core.NewPeriod(req.Period.Year, req.Period.Month); err != nil {
		return nil, err
	}
	ledgers := make([]string, 0, len(formula.Requires))
	seen := make(map[string]bool)
	for _, in := range formula.Requires {
		name := strings.TrimSpace(req.Sources[in])
		if name == "" {
			return nil, fmt.Errorf("%w: formula %s needs input %q", core.ErrMissingSource, formula.Name, in)
		}
		if !seen[name] {
			seen[name] = true
			ledgers = append(ledgers, name)
		}
	}

	// All reads finish before anything is aggregated.
	rollups := make([]*core.RollupResult, len(ledgers))
	var budget *BudgetMap
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		m, err := r.budgets.Build(gctx, req.TableKey, req.Period.Year)
		budget = m
		return err
	})
	for i, name := range ledgers {
		g.Go(func() error {
			res, err := r.rollup.Rollup(gctx, name, req.Period, req.Filter)
			rollups[i] = res
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byLedger := make(map[string]*core.RollupResult, len(ledgers))
	for i, name := range ledgers {
		byLedger[name] = rollups[i]
	}

	rows := r.assemble(ctx, formula, req, byLedger, budget)

	out := &core.Reconciliation{
		Report:   req.Report,
		Period:   req.Period,
		TableKey: req.TableKey,
		Formula:  formula.Name,
		Items:    make([]core.DerivedMetric, 0, len(rows)),
	}
	for _, row := range rows {
		out.Items = append(out.Items, row.metric(formula))
	}
	out.Categories = categoryTotals(formula, rows)
	out.Total = summarize(formula, TotalKey, core.BusinessRecord{}, rows)
	out.FailedPeriods = failedPeriods(rollups)
	out.Partial = len(out.FailedPeriods) > 0

	fields := applog.NewFields().
		WithComponent(applog.ComponentReconcile).
		WithOperation(applog.OpReconcile).
		WithReconcile(req.TableKey, string(formula.Name))
	fields[applog.FieldPeriod] = req.Period.String()
	fields[applog.FieldCount] = len(out.Items)
	fields["partial"] = out.Partial
	if req.Report != "" {
		fields[applog.FieldReport] = req.Report
	}
	r.logger.InfoContext(ctx, "Reconciliation completed", fields.ToSlice()...)

	return out, nil
}

type row struct {
	rec     core.BusinessRecord
	key     core.CompoundKey
	inputs  core.Inputs
	current float64
	match   BudgetMatch
	matched bool
}

func (rw *row) metric(f core.Formula) core.DerivedMetric {
	plan := 0.0
	if rw.matched {
		plan = rw.match.Entry.YearlyPlan
	}
	outcome := f.Apply(rw.inputs, plan, rw.matched)
	m := core.DerivedMetric{
		Key:            rw.key,
		BusinessRecord: rw.rec,
		Actual:         core.Round2(rw.inputs.Get(core.InputActual)),
		CurrentPeriod:  core.Round2(rw.current),
		Plan:           core.Round2(plan),
		Inputs:         rw.inputs.Rounded(),
		ActualRate:     outcome.ActualRate,
		Deviation:      outcome.Deviation,
	}
	if rw.matched {
		m.BudgetKey = rw.match.Key
	}
	return m
}

// assemble merges rollups by exact key, attaches budget entries and adds a
// row for every budget entry that no actual matched.
func (r *Reconciler) assemble(ctx context.Context, f core.Formula, req ReconcileRequest, byLedger map[string]*core.RollupResult, budget *BudgetMap) []*row {
	rows := make(map[core.CompoundKey]*row)
	for _, in := range f.Requires {
		res := byLedger[strings.TrimSpace(req.Sources[in])]
		for _, agg := range res.Items {
			rw, ok := rows[agg.Key]
			if !ok {
				rw = &row{rec: agg.BusinessRecord, key: agg.Key, inputs: core.Inputs{}}
				rows[agg.Key] = rw
			} else {
				rw.rec = mergeRecord(rw.rec, agg.BusinessRecord)
			}
			rw.inputs[in] = core.Sum(rw.inputs[in], agg.CumulativeActual)
			if in == core.InputActual {
				rw.current = core.Sum(rw.current, agg.CurrentPeriodActual)
			}
		}
	}

	used := make(map[int]bool)
	for _, rw := range rows {
		candidates, err := r.resolver.Candidates(rw.rec)
		if err != nil {
			r.logger.DebugContext(ctx, "No budget candidates for row",
				applog.FieldComponent, applog.ComponentReconcile,
				"key", string(rw.key), applog.FieldError, err)
			continue
		}
		if m, ok := budget.Resolve(candidates); ok {
			rw.match, rw.matched = m, true
			used[m.Index] = true
		}
	}

	for i, e := range budget.Entries() {
		if used[i] {
			continue
		}
		rec := core.BusinessRecord{Category: strings.TrimSpace(e.Category), Customer: strings.TrimSpace(e.Customer)}
		if !req.Filter.Match(rec) {
			continue
		}
		key := rec.Key()
		if key == "" {
			continue
		}
		if _, ok := rows[key]; ok {
			// An actual with this exact key already resolved to another entry.
			continue
		}
		rows[key] = &row{
			rec:     rec,
			key:     key,
			inputs:  core.Inputs{},
			match:   BudgetMatch{Entry: e, Index: i, Key: key},
			matched: true,
		}
	}

	out := make([]*row, 0, len(rows))
	for _, rw := range rows {
		out = append(out, rw)
	}
	sort.Slice(out, func(i, j int) bool {
		if recordLess(out[i].rec, out[j].rec) {
			return true
		}
		if recordLess(out[j].rec, out[i].rec) {
			return false
		}
		return out[i].key < out[j].key
	})
	return out
}

// summarize re-derives a metric from summed raw inputs and the plans of the
// distinct budget entries behind rows. Averaging per-row rates would weight
// small rows the same as large ones.
func summarize(f core.Formula, key core.CompoundKey, rec core.BusinessRecord, rows []*row) core.DerivedMetric {
	inputs := core.Inputs{}
	var current []float64
	var plans []float64
	planned := false
	counted := make(map[int]bool)
	for _, rw := range rows {
		inputs.Add(rw.inputs)
		current = append(current, rw.current)
		if rw.matched {
			planned = true
			if !counted[rw.match.Index] {
				counted[rw.match.Index] = true
				plans = append(plans, rw.match.Entry.YearlyPlan)
			}
		}
	}
	plan := core.Sum(plans...)
	outcome := f.Apply(inputs, plan, planned)
	return core.DerivedMetric{
		Key:            key,
		BusinessRecord: rec,
		Actual:         core.Round2(inputs.Get(core.InputActual)),
		CurrentPeriod:  core.Round2(core.Sum(current...)),
		Plan:           core.Round2(plan),
		Inputs:         inputs.Rounded(),
		ActualRate:     outcome.ActualRate,
		Deviation:      outcome.Deviation,
	}
}

// categoryTotals returns one subtotal per category in row order.
func categoryTotals(f core.Formula, rows []*row) []core.DerivedMetric {
	var order []string
	groups := make(map[string][]*row)
	for _, rw := range rows {
		c := strings.TrimSpace(rw.rec.Category)
		if _, ok := groups[c]; !ok {
			order = append(order, c)
		}
		groups[c] = append(groups[c], rw)
	}
	out := make([]core.DerivedMetric, 0, len(order))
	for _, c := range order {
		key := core.CompoundKey(c)
		if c == "" {
			key = UncategorizedKey
		}
		out = append(out, summarize(f, key, core.BusinessRecord{Category: c}, groups[c]))
	}
	return out
}

func failedPeriods(rollups []*core.RollupResult) []core.PeriodKey {
	seen := make(map[core.PeriodKey]bool)
	var out []core.PeriodKey
	for _, res := range rollups {
		if res == nil {
			continue
		}
		for _, p := range res.FailedPeriods {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
