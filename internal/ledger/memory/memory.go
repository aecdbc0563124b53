package memory

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"ledgerplan/internal/core"
	"ledgerplan/internal/ledger"
)

// Ensure interface conformance
var (
	_ ledger.Store  = (*Store)(nil)
	_ ledger.Writer = (*Store)(nil)
	_ ledger.Lister = (*Store)(nil)
)

// Store keeps ledgers and budgets in memory. Reads return copies.
type Store struct {
	mu      sync.RWMutex
	deltas  map[string][]core.DeltaRecord
	budgets map[string][]core.BudgetEntry
}

func New() *Store {
	return &Store{
		deltas:  make(map[string][]core.DeltaRecord),
		budgets: make(map[string][]core.BudgetEntry),
	}
}

// NewFromFiles seeds a store from base/deltas.csv and base/budgets.csv.
// Missing files leave the store empty; malformed ones are logged and skipped.
func NewFromFiles(base string) *Store {
	s := New()
	if entries, ok := readFile(filepath.Join(base, "deltas.csv"), func(r io.Reader) ([]ledger.Entry, error) {
		return ledger.ReadDeltasCSV(r, "")
	}); ok {
		for _, e := range entries {
			s.AddDeltas(e.Ledger, e.DeltaRecord)
		}
	}
	if entries, ok := readFile(filepath.Join(base, "budgets.csv"), func(r io.Reader) ([]core.BudgetEntry, error) {
		return ledger.ReadBudgetCSV(r, "")
	}); ok {
		s.AddBudget(entries...)
	}
	return s
}

// AddDeltas appends records to a ledger.
func (s *Store) AddDeltas(ledgerName string, recs ...core.DeltaRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deltas[ledgerName] = append(s.deltas[ledgerName], recs...)
}

// AddBudget stores entries under their TableKey.
func (s *Store) AddBudget(entries ...core.BudgetEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		s.budgets[e.TableKey] = append(s.budgets[e.TableKey], e)
	}
}

// ImportDeltas implements ledger.Writer.
func (s *Store) ImportDeltas(ctx context.Context, ledgerName string, recs []core.DeltaRecord, replace bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if replace {
		drop := make(map[core.PeriodKey]bool, len(recs))
		for _, d := range recs {
			drop[d.Period] = true
		}
		kept := s.deltas[ledgerName][:0]
		for _, d := range s.deltas[ledgerName] {
			if !drop[d.Period] {
				kept = append(kept, d)
			}
		}
		s.deltas[ledgerName] = kept
	}
	s.deltas[ledgerName] = append(s.deltas[ledgerName], recs...)
	return nil
}

// UpsertBudget implements ledger.Writer.
func (s *Store) UpsertBudget(ctx context.Context, entries []core.BudgetEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		list := s.budgets[e.TableKey]
		replaced := false
		for i, old := range list {
			if old.Year == e.Year && old.Category == e.Category && old.Customer == e.Customer {
				list[i] = e
				replaced = true
				break
			}
		}
		if !replaced {
			list = append(list, e)
		}
		s.budgets[e.TableKey] = list
	}
	return nil
}

// Ledgers implements ledger.Lister.
func (s *Store) Ledgers(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.deltas))
	for name, recs := range s.deltas {
		if len(recs) > 0 {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out, nil
}

// FetchDeltas implements ledger.Reader.
func (s *Store) FetchDeltas(ctx context.Context, ledgerName string, start, end core.PeriodKey, filter core.Filter) ([]core.DeltaRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.DeltaRecord
	for _, d := range s.deltas[ledgerName] {
		if d.Period.Before(start) || end.Before(d.Period) {
			continue
		}
		if !filter.Match(d.BusinessRecord) {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

// FetchBudget implements ledger.BudgetReader.
func (s *Store) FetchBudget(ctx context.Context, tableKey string, year int) ([]core.BudgetEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.BudgetEntry
	for _, e := range s.budgets[tableKey] {
		if e.Year == year {
			out = append(out, e)
		}
	}
	return out, nil
}

func readFile[T any](path string, decode func(io.Reader) (T, error)) (T, bool) {
	var zero T
	f, err := os.Open(path)
	if err != nil {
		return zero, false
	}
	defer f.Close()
	v, err := decode(f)
	if err != nil {
		slog.Warn("Skipping seed file", "path", path, "error", err)
		return zero, false
	}
	return v, true
}
