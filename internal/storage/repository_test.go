package storage

import (
	"context"
	"path/filepath"
	"testing"

	"ledgerplan/internal/core"
)

func newTestRepository(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository failed: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func delta(period, category, customer string, value float64) core.DeltaRecord {
	return core.DeltaRecord{
		Period:         core.MustParsePeriod(period),
		BusinessRecord: core.BusinessRecord{Category: category, Customer: customer},
		Value:          value,
	}
}

func TestSQLiteRepository_FetchDeltas(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	err := repo.ImportDeltas(ctx, "revenue", []core.DeltaRecord{
		delta("2024-01", "equipment", "A", 10),
		delta("2024-02", "equipment", "B", 20),
		delta("2024-03", "component", "A", 30),
		delta("2023-12", "equipment", "A", 99),
	}, false)
	if err != nil {
		t.Fatalf("ImportDeltas failed: %v", err)
	}
	if err := repo.ImportDeltas(ctx, "cost", []core.DeltaRecord{delta("2024-01", "equipment", "A", 1)}, false); err != nil {
		t.Fatalf("ImportDeltas failed: %v", err)
	}

	tests := []struct {
		name   string
		start  string
		end    string
		filter core.Filter
		want   int
	}{
		{"single month", "2024-02", "2024-02", core.Filter{}, 1},
		{"year to date", "2024-01", "2024-03", core.Filter{}, 3},
		{"category", "2024-01", "2024-03", core.Filter{Category: "equipment"}, 2},
		{"customer", "2024-01", "2024-03", core.Filter{Customer: "A"}, 2},
		{"both", "2024-01", "2024-03", core.Filter{Category: "component", Customer: "A"}, 1},
		{"empty month", "2024-04", "2024-04", core.Filter{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.FetchDeltas(ctx, "revenue", core.MustParsePeriod(tt.start), core.MustParsePeriod(tt.end), tt.filter)
			if err != nil {
				t.Fatalf("FetchDeltas failed: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("expected %d records, got %d", tt.want, len(got))
			}
		})
	}

	ledgers, err := repo.Ledgers(ctx)
	if err != nil {
		t.Fatalf("Ledgers failed: %v", err)
	}
	if len(ledgers) != 2 || ledgers[0] != "cost" || ledgers[1] != "revenue" {
		t.Errorf("unexpected ledgers %v", ledgers)
	}
}

func TestSQLiteRepository_ImportReplace(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	jan := core.MustParsePeriod("2024-01")

	if err := repo.ImportDeltas(ctx, "revenue", []core.DeltaRecord{delta("2024-01", "revenue", "A", 10)}, false); err != nil {
		t.Fatal(err)
	}
	if err := repo.ImportDeltas(ctx, "revenue", []core.DeltaRecord{delta("2024-01", "revenue", "A", 12)}, true); err != nil {
		t.Fatal(err)
	}

	got, err := repo.FetchDeltas(ctx, "revenue", jan, jan, core.Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Value != 12 {
		t.Errorf("expected the month replaced by 12, got %+v", got)
	}
}

func TestSQLiteRepository_Budget(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	err := repo.UpsertBudget(ctx, []core.BudgetEntry{
		{TableKey: "revenue", Year: 2024, Category: "equipment", Customer: "A", YearlyPlan: 100},
		{TableKey: "revenue", Year: 2024, Category: "component", Customer: "B", YearlyPlan: 50},
		{TableKey: "revenue", Year: 2023, Category: "equipment", Customer: "A", YearlyPlan: 80},
	})
	if err != nil {
		t.Fatalf("UpsertBudget failed: %v", err)
	}
	if err := repo.UpsertBudget(ctx, []core.BudgetEntry{
		{TableKey: "revenue", Year: 2024, Category: "equipment", Customer: "A", YearlyPlan: 120},
	}); err != nil {
		t.Fatalf("UpsertBudget failed: %v", err)
	}

	got, err := repo.FetchBudget(ctx, "revenue", 2024)
	if err != nil {
		t.Fatalf("FetchBudget failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].YearlyPlan != 120 {
		t.Errorf("expected updated plan 120, got %v", got[0].YearlyPlan)
	}

	if err := repo.UpsertBudget(ctx, []core.BudgetEntry{{Year: 2024, YearlyPlan: 1}}); err == nil {
		t.Error("expected error for entry without table key")
	}
}
