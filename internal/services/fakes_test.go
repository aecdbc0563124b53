package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"ledgerplan/internal/core"
)

var errReadFailed = errors.New("read failed")

// fakeStore serves deltas per ledger and fails reads for listed months.
type fakeStore struct {
	mu      sync.Mutex
	deltas  map[string][]core.DeltaRecord
	budgets map[string][]core.BudgetEntry
	fail    map[string]map[core.PeriodKey]bool
	calls   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		deltas:  make(map[string][]core.DeltaRecord),
		budgets: make(map[string][]core.BudgetEntry),
		fail:    make(map[string]map[core.PeriodKey]bool),
	}
}

func (f *fakeStore) add(ledger, period string, rec core.BusinessRecord, value float64) {
	f.deltas[ledger] = append(f.deltas[ledger], core.DeltaRecord{
		Period:         core.MustParsePeriod(period),
		BusinessRecord: rec,
		Value:          value,
	})
}

func (f *fakeStore) failOn(ledger string, periods ...string) {
	if f.fail[ledger] == nil {
		f.fail[ledger] = make(map[core.PeriodKey]bool)
	}
	for _, p := range periods {
		f.fail[ledger][core.MustParsePeriod(p)] = true
	}
}

func (f *fakeStore) budget(tableKey string, year int, category, customer string, plan float64) {
	f.budgets[tableKey] = append(f.budgets[tableKey], core.BudgetEntry{
		TableKey: tableKey, Category: category, Customer: customer, Year: year, YearlyPlan: plan,
	})
}

func (f *fakeStore) FetchDeltas(ctx context.Context, ledger string, start, end core.PeriodKey, filter core.Filter) ([]core.DeltaRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.fail[ledger][start] {
		return nil, errReadFailed
	}
	var out []core.DeltaRecord
	for _, d := range f.deltas[ledger] {
		if d.Period.Before(start) || end.Before(d.Period) || !filter.Match(d.BusinessRecord) {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func (f *fakeStore) FetchBudget(ctx context.Context, tableKey string, year int) ([]core.BudgetEntry, error) {
	var out []core.BudgetEntry
	for _, e := range f.budgets[tableKey] {
		if e.Year == year {
			out = append(out, e)
		}
	}
	return out, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestReconciler(store *fakeStore) *Reconciler {
	logger := discardLogger()
	return NewReconciler(
		NewRollupEngine(store, WithLogger(logger)),
		NewBudgetMapBuilder(store, logger),
		core.NewKeyResolver(),
		logger,
	)
}

func mustFloat(t *testing.T, v core.Value) float64 {
	t.Helper()
	f, ok := v.Float()
	if !ok {
		t.Fatalf("expected a value, got no data")
	}
	return f
}
