package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"ledgerplan/internal/core"
)

func TestStoreFetchDeltasRangeAndFilter(t *testing.T) {
	s := New()
	s.AddDeltas("revenue",
		core.DeltaRecord{Period: core.MustParsePeriod("2024-12"), BusinessRecord: core.BusinessRecord{Category: "equipment", Customer: "Acme"}, Value: 99},
		core.DeltaRecord{Period: core.MustParsePeriod("2025-01"), BusinessRecord: core.BusinessRecord{Category: "equipment", Customer: "Acme"}, Value: 10},
		core.DeltaRecord{Period: core.MustParsePeriod("2025-02"), BusinessRecord: core.BusinessRecord{Category: "component", Customer: "Acme"}, Value: 20},
		core.DeltaRecord{Period: core.MustParsePeriod("2025-04"), BusinessRecord: core.BusinessRecord{Category: "equipment", Customer: "Acme"}, Value: 30},
	)

	ctx := context.Background()
	got, err := s.FetchDeltas(ctx, "revenue", core.MustParsePeriod("2025-01"), core.MustParsePeriod("2025-03"), core.Filter{})
	if err != nil {
		t.Fatalf("FetchDeltas: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records in range, got %d", len(got))
	}

	got, err = s.FetchDeltas(ctx, "revenue", core.MustParsePeriod("2025-01"), core.MustParsePeriod("2025-12"), core.Filter{Category: "equipment"})
	if err != nil {
		t.Fatalf("FetchDeltas: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 equipment records, got %d", len(got))
	}

	got, err = s.FetchDeltas(ctx, "unknown", core.MustParsePeriod("2025-01"), core.MustParsePeriod("2025-12"), core.Filter{})
	if err != nil || len(got) != 0 {
		t.Fatalf("unknown ledger should be empty, got %v, %v", got, err)
	}
}

func TestStoreFetchBudgetByYear(t *testing.T) {
	s := New()
	s.AddBudget(
		core.BudgetEntry{TableKey: "revenue", Category: "equipment", Customer: "Acme", Year: 2025, YearlyPlan: 100},
		core.BudgetEntry{TableKey: "revenue", Category: "equipment", Customer: "Acme", Year: 2024, YearlyPlan: 90},
		core.BudgetEntry{TableKey: "cost", Category: "equipment", Customer: "Acme", Year: 2025, YearlyPlan: 50},
	)
	got, err := s.FetchBudget(context.Background(), "revenue", 2025)
	if err != nil {
		t.Fatalf("FetchBudget: %v", err)
	}
	if len(got) != 1 || got[0].YearlyPlan != 100 {
		t.Fatalf("FetchBudget = %+v", got)
	}
}

func TestStoreHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New().FetchDeltas(ctx, "x", core.MustParsePeriod("2025-01"), core.MustParsePeriod("2025-01"), core.Filter{}); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestNewFromFiles(t *testing.T) {
	dir := t.TempDir()
	deltas := "ledger,period,category,customer,value\n" +
		"revenue,2025-01,equipment,Acme,10\n" +
		"revenue,2025-03,equipment,Acme,\"5,5\"\n"
	budgets := "table_key,year,category,customer,yearly_plan\n" +
		"non_main_business,2025,,Other,600\n"
	if err := os.WriteFile(filepath.Join(dir, "deltas.csv"), []byte(deltas), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "budgets.csv"), []byte(budgets), 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewFromFiles(dir)
	ctx := context.Background()
	recs, err := s.FetchDeltas(ctx, "revenue", core.MustParsePeriod("2025-01"), core.MustParsePeriod("2025-12"), core.Filter{})
	if err != nil {
		t.Fatalf("FetchDeltas: %v", err)
	}
	if len(recs) != 2 || recs[1].Value != 5.5 {
		t.Fatalf("seeded deltas = %+v", recs)
	}
	entries, err := s.FetchBudget(ctx, "non_main_business", 2025)
	if err != nil {
		t.Fatalf("FetchBudget: %v", err)
	}
	if len(entries) != 1 || entries[0].Customer != "Other" || entries[0].YearlyPlan != 600 {
		t.Fatalf("seeded budget = %+v", entries)
	}
}

func TestNewFromFilesMissingDirectory(t *testing.T) {
	s := NewFromFiles(filepath.Join(t.TempDir(), "nope"))
	recs, err := s.FetchDeltas(context.Background(), "revenue", core.MustParsePeriod("2025-01"), core.MustParsePeriod("2025-12"), core.Filter{})
	if err != nil || len(recs) != 0 {
		t.Fatalf("expected empty store, got %v, %v", recs, err)
	}
}

func TestStoreImportAndUpsert(t *testing.T) {
	s := New()
	ctx := context.Background()
	jan := core.MustParsePeriod("2025-01")
	rec := core.BusinessRecord{Category: "revenue", Customer: "A"}

	if err := s.ImportDeltas(ctx, "revenue", []core.DeltaRecord{{Period: jan, BusinessRecord: rec, Value: 1}}, false); err != nil {
		t.Fatal(err)
	}
	if err := s.ImportDeltas(ctx, "revenue", []core.DeltaRecord{{Period: jan, BusinessRecord: rec, Value: 7}}, true); err != nil {
		t.Fatal(err)
	}
	got, _ := s.FetchDeltas(ctx, "revenue", jan, jan, core.Filter{})
	if len(got) != 1 || got[0].Value != 7 {
		t.Errorf("expected month replaced by 7, got %+v", got)
	}

	entry := core.BudgetEntry{TableKey: "revenue", Year: 2025, Category: "revenue", Customer: "A", YearlyPlan: 10}
	if err := s.UpsertBudget(ctx, []core.BudgetEntry{entry}); err != nil {
		t.Fatal(err)
	}
	entry.YearlyPlan = 20
	if err := s.UpsertBudget(ctx, []core.BudgetEntry{entry}); err != nil {
		t.Fatal(err)
	}
	plan, _ := s.FetchBudget(ctx, "revenue", 2025)
	if len(plan) != 1 || plan[0].YearlyPlan != 20 {
		t.Errorf("expected single plan of 20, got %+v", plan)
	}
}

func TestStoreLedgers(t *testing.T) {
	s := New()
	s.AddDeltas("revenue", core.DeltaRecord{Period: core.MustParsePeriod("2025-01"), Value: 1})
	s.AddDeltas("cost", core.DeltaRecord{Period: core.MustParsePeriod("2025-01"), Value: 1})
	s.AddDeltas("empty")

	got, err := s.Ledgers(context.Background())
	if err != nil {
		t.Fatalf("Ledgers: %v", err)
	}
	if len(got) != 2 || got[0] != "cost" || got[1] != "revenue" {
		t.Errorf("Ledgers() = %v, want [cost revenue]", got)
	}
}
