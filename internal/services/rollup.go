package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"ledgerplan/internal/core"
	"ledgerplan/internal/ledger"
	applog "ledgerplan/internal/log"
)

// DefaultRollupConcurrency bounds the number of months read at once.
const DefaultRollupConcurrency = 4

// RollupEngine sums monthly deltas into year-to-date figures.
type RollupEngine struct {
	reader      ledger.Reader
	concurrency int
	logger      *slog.Logger
}

// RollupOption configures a RollupEngine.
type RollupOption func(*RollupEngine)

// WithConcurrency sets how many months are fetched in parallel.
func WithConcurrency(n int) RollupOption {
	return func(e *RollupEngine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithLogger sets the engine's logger.
func WithLogger(l *slog.Logger) RollupOption {
	return func(e *RollupEngine) {
		if l != nil {
			e.logger = l
		}
	}
}

func NewRollupEngine(reader ledger.Reader, opts ...RollupOption) *RollupEngine {
	e := &RollupEngine{
		reader:      reader,
		concurrency: DefaultRollupConcurrency,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rollup aggregates ledger from January of target's year through target.
//
// Each month is read separately. A month whose read fails is logged, counted
// as zero and listed in FailedPeriods; only when every month fails does
// Rollup return ErrLedgerUnavailable.
func (e *RollupEngine) Rollup(ctx context.Context, ledgerName string, target core.PeriodKey, filter core.Filter) (*core.RollupResult, error) {
	if _, err := core.NewPeriod(target.Year, target.Month); err != nil {
		return nil, err
	}
	if strings.TrimSpace(ledgerName) == "" {
		return nil, fmt.Errorf("%w: empty ledger name", core.ErrMissingSource)
	}

	months := core.RangeFromYearStart(target)
	batches := make([][]core.DeltaRecord, len(months))
	errs := make([]error, len(months))

	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i, month := range months {
		g.Go(func() error {
			batches[i], errs[i] = e.reader.FetchDeltas(ctx, ledgerName, month, month, filter)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &core.RollupResult{Ledger: ledgerName, Period: target}
	var lastErr error
	for i, err := range errs {
		if err == nil {
			continue
		}
		lastErr = err
		result.FailedPeriods = append(result.FailedPeriods, months[i])
		fields := applog.NewFields().
			WithComponent(applog.ComponentRollup).
			WithOperation(applog.OpFetch).
			WithLedger(ledgerName, months[i].String()).
			WithErrorType(applog.ErrorTypePartialFailure).
			WithError(err)
		e.logger.WarnContext(ctx, "Ledger read failed, counting month as zero", fields.ToSlice()...)
	}
	if len(result.FailedPeriods) == len(months) {
		e.logger.ErrorContext(ctx, "Ledger unavailable for every month",
			applog.FieldComponent, applog.ComponentRollup,
			applog.FieldLedger, ledgerName,
			applog.FieldPeriod, target.String(),
			applog.FieldErrorType, applog.ErrorTypeUnavailable)
		return nil, fmt.Errorf("%w: %s: %w", core.ErrLedgerUnavailable, ledgerName, lastErr)
	}

	items, dropped := aggregate(months, batches, target, filter)
	result.Items = items
	if dropped > 0 {
		e.logger.WarnContext(ctx, "Dropped ledger records with no identifying fields",
			applog.FieldComponent, applog.ComponentRollup,
			applog.FieldLedger, ledgerName,
			applog.FieldPeriod, target.String(),
			applog.FieldCount, dropped)
	}

	e.logger.DebugContext(ctx, "Rollup completed",
		applog.FieldComponent, applog.ComponentRollup,
		applog.FieldLedger, ledgerName,
		applog.FieldPeriod, target.String(),
		applog.FieldCount, len(result.Items),
		"failed_periods", len(result.FailedPeriods))

	return result, nil
}

type accumulator struct {
	rec        core.BusinessRecord
	cumulative decimal.Decimal
	current    decimal.Decimal
}

// aggregate groups records by their exact key. Records that fall outside the
// month they were fetched for, or outside the filter, are ignored. Empty
// records are dropped and counted.
func aggregate(months []core.PeriodKey, batches [][]core.DeltaRecord, target core.PeriodKey, filter core.Filter) ([]core.AggregateResult, int) {
	dropped := 0
	acc := make(map[core.CompoundKey]*accumulator)
	for i, batch := range batches {
		for _, d := range batch {
			if d.Period != months[i] || !filter.Match(d.BusinessRecord) {
				continue
			}
			if d.IsEmpty() {
				dropped++
				continue
			}
			key := d.Key()
			a, ok := acc[key]
			if !ok {
				a = &accumulator{rec: d.BusinessRecord}
				acc[key] = a
			} else {
				a.rec = mergeRecord(a.rec, d.BusinessRecord)
			}
			v := decimal.NewFromFloat(d.Value)
			a.cumulative = a.cumulative.Add(v)
			if d.Period == target {
				a.current = a.current.Add(v)
			}
		}
	}

	// A fully specified filter names exactly one key; report it even when
	// nothing was booked so callers see an explicit zero.
	if strings.TrimSpace(filter.Category) != "" && strings.TrimSpace(filter.Customer) != "" {
		rec := core.BusinessRecord{Category: strings.TrimSpace(filter.Category), Customer: strings.TrimSpace(filter.Customer)}
		if _, ok := acc[rec.Key()]; !ok {
			acc[rec.Key()] = &accumulator{rec: rec}
		}
	}

	out := make([]core.AggregateResult, 0, len(acc))
	for key, a := range acc {
		out = append(out, core.AggregateResult{
			Key:                 key,
			BusinessRecord:      a.rec,
			CumulativeActual:    a.cumulative.InexactFloat64(),
			CurrentPeriodActual: a.current.InexactFloat64(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if recordLess(out[i].BusinessRecord, out[j].BusinessRecord) {
			return true
		}
		if recordLess(out[j].BusinessRecord, out[i].BusinessRecord) {
			return false
		}
		return out[i].Key < out[j].Key
	})
	return out, dropped
}

// mergeRecord fills blank attributes of a from b.
func mergeRecord(a, b core.BusinessRecord) core.BusinessRecord {
	if a.ProjectName == "" {
		a.ProjectName = b.ProjectName
	}
	if a.CustomerType == "" {
		a.CustomerType = b.CustomerType
	}
	if a.Segment == "" {
		a.Segment = b.Segment
	}
	return a
}

// recordLess orders by category precedence, then category, then customer.
func recordLess(a, b core.BusinessRecord) bool {
	if ra, rb := core.CategoryRank(a.Category), core.CategoryRank(b.Category); ra != rb {
		return ra < rb
	}
	if a.Category != b.Category {
		return a.Category < b.Category
	}
	return a.Customer < b.Customer
}
