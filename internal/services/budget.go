package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"ledgerplan/internal/core"
	"ledgerplan/internal/ledger"
	applog "ledgerplan/internal/log"
)

// BudgetMap indexes one year of one budget table. It is built per request
// and never modified afterwards.
type BudgetMap struct {
	tableKey string
	year     int
	entries  []core.BudgetEntry
	index    map[core.CompoundKey]int
}

// BudgetMatch is the entry a candidate key resolved to.
type BudgetMatch struct {
	Entry core.BudgetEntry
	Index int              // position in Entries()
	Key   core.CompoundKey // candidate that hit
}

// NewBudgetMap sorts entries by category precedence and indexes them.
//
// Entries are indexed by category-customer. For the non-main-business table
// they are also indexed by bare customer. When two entries produce the same
// key the first one in precedence order keeps it. Entries with neither a
// category nor a customer cannot be matched and are skipped.
func NewBudgetMap(tableKey string, year int, entries []core.BudgetEntry) *BudgetMap {
	sorted := make([]core.BudgetEntry, 0, len(entries))
	for _, e := range entries {
		if core.NewCompoundKey(e.Category, e.Customer) == "" {
			slog.Warn("Skipping budget entry without category or customer",
				applog.FieldComponent, applog.ComponentBudget,
				applog.FieldTableKey, tableKey,
				applog.FieldYear, year,
				"yearly_plan", e.YearlyPlan)
			continue
		}
		sorted = append(sorted, e)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return core.CategoryRank(sorted[i].Category) < core.CategoryRank(sorted[j].Category)
	})

	m := &BudgetMap{
		tableKey: tableKey,
		year:     year,
		entries:  sorted,
		index:    make(map[core.CompoundKey]int, len(sorted)*2),
	}
	for i, e := range sorted {
		m.put(core.NewCompoundKey(e.Category, e.Customer), i)
		if tableKey == core.NonMainBusinessTable {
			if c := strings.TrimSpace(e.Customer); c != "" {
				m.put(core.CompoundKey(c), i)
			}
		}
	}
	return m
}

func (m *BudgetMap) put(key core.CompoundKey, i int) {
	if key == "" {
		return
	}
	if prev, ok := m.index[key]; ok {
		if prev != i {
			slog.Debug("Budget key collision, keeping first entry",
				applog.FieldComponent, applog.ComponentBudget,
				applog.FieldTableKey, m.tableKey,
				"key", string(key))
		}
		return
	}
	m.index[key] = i
}

// TableKey returns the budget table the map was built from.
func (m *BudgetMap) TableKey() string { return m.tableKey }

// Year returns the plan year.
func (m *BudgetMap) Year() int { return m.year }

// Len returns the number of entries.
func (m *BudgetMap) Len() int { return len(m.entries) }

// Entries returns a copy of the entries in precedence order.
func (m *BudgetMap) Entries() []core.BudgetEntry {
	out := make([]core.BudgetEntry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Lookup returns the yearly plan indexed under key.
func (m *BudgetMap) Lookup(key core.CompoundKey) (float64, bool) {
	i, ok := m.find(key)
	if !ok {
		return 0, false
	}
	return m.entries[i].YearlyPlan, true
}

// Resolve tries candidates in order and returns the first hit.
func (m *BudgetMap) Resolve(candidates []core.CompoundKey) (BudgetMatch, bool) {
	for _, key := range candidates {
		if i, ok := m.find(key); ok {
			return BudgetMatch{Entry: m.entries[i], Index: i, Key: key}, true
		}
	}
	return BudgetMatch{}, false
}

// find returns the entry index for key. Non-main-business entries are often
// booked without a category, so a category-qualified key there falls back to
// its bare customer.
func (m *BudgetMap) find(key core.CompoundKey) (int, bool) {
	if i, ok := m.index[key]; ok {
		return i, true
	}
	if m.tableKey != core.NonMainBusinessTable {
		return 0, false
	}
	for _, c := range core.CategoryPrecedence {
		rest, ok := strings.CutPrefix(string(key), c+"-")
		if !ok || strings.TrimSpace(rest) == "" {
			continue
		}
		if i, ok := m.index[core.CompoundKey(rest)]; ok {
			return i, true
		}
	}
	return 0, false
}

// BudgetMapBuilder loads budget tables.
type BudgetMapBuilder struct {
	reader ledger.BudgetReader
	logger *slog.Logger
}

func NewBudgetMapBuilder(reader ledger.BudgetReader, logger *slog.Logger) *BudgetMapBuilder {
	if logger == nil {
		logger = slog.Default()
	}
	return &BudgetMapBuilder{reader: reader, logger: logger}
}

// Build loads and indexes the plan of tableKey for year.
func (b *BudgetMapBuilder) Build(ctx context.Context, tableKey string, year int) (*BudgetMap, error) {
	if strings.TrimSpace(tableKey) == "" {
		return nil, fmt.Errorf("build budget map: empty table key")
	}
	entries, err := b.reader.FetchBudget(ctx, tableKey, year)
	if err != nil {
		return nil, fmt.Errorf("fetch budget %s/%d: %w", tableKey, year, err)
	}

	m := NewBudgetMap(tableKey, year, entries)

	b.logger.DebugContext(ctx, "Budget map built",
		applog.FieldComponent, applog.ComponentBudget,
		applog.FieldOperation, applog.OpBuild,
		applog.FieldTableKey, tableKey,
		applog.FieldYear, year,
		applog.FieldCount, m.Len())

	return m, nil
}
