package services

import (
	"context"
	"testing"

	"ledgerplan/internal/core"
)

func TestNewBudgetMap(t *testing.T) {
	entries := []core.BudgetEntry{
		{Category: "revenue", Customer: "A", YearlyPlan: 30},
		{Category: "equipment", Customer: "A", YearlyPlan: 10},
		{Category: "equipment", Customer: "", YearlyPlan: 5},
		{Category: "equipment", Customer: "A", YearlyPlan: 999},
	}
	m := NewBudgetMap("revenue", 2024, entries)

	if m.Len() != 4 {
		t.Fatalf("expected 4 entries, got %d", m.Len())
	}
	if got := m.Entries()[0].Category; got != "equipment" {
		t.Errorf("expected equipment first, got %q", got)
	}

	tests := []struct {
		key  core.CompoundKey
		want float64
		ok   bool
	}{
		{"equipment-A", 10, true}, // first entry wins on collision
		{"revenue-A", 30, true},
		{"equipment", 5, true},
		{"A", 0, false}, // bare customer only for non-main table
	}
	for _, tt := range tests {
		t.Run(string(tt.key), func(t *testing.T) {
			got, ok := m.Lookup(tt.key)
			if ok != tt.ok || got != tt.want {
				t.Errorf("Lookup(%q) = %v, %v; want %v, %v", tt.key, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestNewBudgetMap_NonMainBusiness(t *testing.T) {
	m := NewBudgetMap(core.NonMainBusinessTable, 2024, []core.BudgetEntry{
		{Customer: "Other", YearlyPlan: 600},
		{Category: "non-main", Customer: "Rent", YearlyPlan: 40},
	})

	tests := []struct {
		key  core.CompoundKey
		want float64
		ok   bool
	}{
		{"Other", 600, true},
		{"non-main-Other", 600, true},
		{"revenue-Other", 600, true},
		{"Rent", 40, true},
		{"non-main-Rent", 40, true},
		{"other-Other", 0, false},
		{"non-main-", 0, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.key), func(t *testing.T) {
			got, ok := m.Lookup(tt.key)
			if ok != tt.ok || got != tt.want {
				t.Errorf("Lookup(%q) = %v, %v; want %v, %v", tt.key, got, ok, tt.want, tt.ok)
			}
		})
	}

	match, ok := m.Resolve([]core.CompoundKey{"non-main-Other"})
	if !ok || match.Entry.YearlyPlan != 600 || match.Key != "non-main-Other" {
		t.Errorf("Resolve(non-main-Other) = %+v, %v", match, ok)
	}
}

func TestNewBudgetMap_CategoryFallbackOnlyForNonMainBusiness(t *testing.T) {
	m := NewBudgetMap("revenue", 2024, []core.BudgetEntry{
		{Customer: "Other", YearlyPlan: 600},
	})
	if _, ok := m.Lookup("equipment-Other"); ok {
		t.Error("expected no category fallback outside the non-main-business table")
	}
	if got, ok := m.Lookup("Other"); !ok || got != 600 {
		t.Errorf("Lookup(Other) = %v, %v; want 600, true", got, ok)
	}
}

func TestNewBudgetMap_SkipsBlankEntries(t *testing.T) {
	m := NewBudgetMap("revenue", 2024, []core.BudgetEntry{
		{Category: " ", Customer: "", YearlyPlan: 999},
		{Category: "equipment", Customer: "A", YearlyPlan: 100},
	})
	if m.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", m.Len())
	}
	for _, e := range m.Entries() {
		if e.YearlyPlan == 999 {
			t.Errorf("blank entry kept: %+v", e)
		}
	}
	if _, ok := m.Lookup(""); ok {
		t.Error("expected empty key to miss")
	}
}

func TestBudgetMap_Resolve(t *testing.T) {
	m := NewBudgetMap("revenue", 2024, []core.BudgetEntry{
		{Category: "equipment", Customer: "Shanghai", YearlyPlan: 100},
		{Category: "equipment", YearlyPlan: 500},
	})

	match, ok := m.Resolve([]core.CompoundKey{"Grid-State", "equipment-Shanghai", "equipment"})
	if !ok {
		t.Fatal("expected a match")
	}
	if match.Key != "equipment-Shanghai" || match.Entry.YearlyPlan != 100 {
		t.Errorf("unexpected match %+v", match)
	}

	if _, ok := m.Resolve([]core.CompoundKey{"nothing"}); ok {
		t.Error("expected no match")
	}
	if _, ok := m.Resolve(nil); ok {
		t.Error("expected no match for empty candidates")
	}
}

func TestBudgetMapBuilder_Build(t *testing.T) {
	store := newFakeStore()
	store.budget("revenue", 2024, "equipment", "A", 10)
	store.budget("revenue", 2023, "equipment", "A", 99)

	b := NewBudgetMapBuilder(store, discardLogger())

	m, err := b.Build(context.Background(), "revenue", 2024)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if m.Len() != 1 || m.Year() != 2024 || m.TableKey() != "revenue" {
		t.Errorf("unexpected map: len=%d year=%d table=%s", m.Len(), m.Year(), m.TableKey())
	}

	empty, err := b.Build(context.Background(), "unknown", 2024)
	if err != nil {
		t.Fatalf("Build of unknown table failed: %v", err)
	}
	if empty.Len() != 0 {
		t.Errorf("expected empty map, got %d entries", empty.Len())
	}

	if _, err := b.Build(context.Background(), "  ", 2024); err == nil {
		t.Error("expected error for blank table key")
	}
}
