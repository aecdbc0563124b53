package google

import (
	"strings"
	"testing"
)

func TestParseBudget(t *testing.T) {
	values := [][]interface{}{
		{"Table", "Category", "Customer", "Plan"},
		{"revenue", "equipment", "Acme", 1200.0},
		{"revenue", "component", "", "300,50"},
		{"orders", "equipment", "Acme", 999.0},
		{"", "engineering", "Beta", "1,250.75"},
		{"revenue", "", "", 5.0},
		{"revenue", "revenue", "Gamma", "n/a"},
	}
	got, err := parseBudget(values, "revenue", 2025)
	if err != nil {
		t.Fatalf("parse err: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d: %+v", len(got), got)
	}

	want := []struct {
		category string
		customer string
		plan     float64
	}{
		{"equipment", "Acme", 1200},
		{"component", "", 300.5},
		{"engineering", "Beta", 1250.75},
	}
	for i, w := range want {
		e := got[i]
		if e.Category != w.category || e.Customer != w.customer || e.YearlyPlan != w.plan {
			t.Errorf("entry %d: got %+v, want %+v", i, e, w)
		}
		if e.Year != 2025 || e.TableKey != "revenue" {
			t.Errorf("entry %d: unexpected year/table %d/%s", i, e.Year, e.TableKey)
		}
	}
}

func TestParseBudget_NoTableColumn(t *testing.T) {
	values := [][]interface{}{
		{"category", "customer", "yearly_plan"},
		{"non-main", "Other", 600.0},
	}
	got, err := parseBudget(values, "non_main_business", 2025)
	if err != nil {
		t.Fatalf("parse err: %v", err)
	}
	if len(got) != 1 || got[0].YearlyPlan != 600 {
		t.Errorf("unexpected entries %+v", got)
	}
}

func TestParseBudget_BadHeader(t *testing.T) {
	_, err := parseBudget([][]interface{}{{"Category", "Amount"}}, "revenue", 2025)
	if err == nil {
		t.Fatal("expected error for missing columns")
	}
	if !strings.Contains(err.Error(), "Customer") || !strings.Contains(err.Error(), "Plan") {
		t.Errorf("error should name missing columns: %v", err)
	}
}

func TestParseBudget_Empty(t *testing.T) {
	got, err := parseBudget(nil, "revenue", 2025)
	if err != nil || got != nil {
		t.Errorf("expected nil, nil; got %v, %v", got, err)
	}
}

func TestYearPrefixedName(t *testing.T) {
	tests := []struct {
		base string
		year int
		want string
	}{
		{"Budget", 2025, "2025 Budget"},
		{"2024 Budget", 2025, "2024 Budget"},
		{"  Plan ", 2026, "2026 Plan"},
		{"", 2025, ""},
	}
	for _, tt := range tests {
		t.Run(tt.base, func(t *testing.T) {
			if got := yearPrefixedName(tt.base, tt.year); got != tt.want {
				t.Errorf("yearPrefixedName(%q, %d) = %q, want %q", tt.base, tt.year, got, tt.want)
			}
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"1200", 1200, true},
		{"12,5", 12.5, true},
		{"1,234.56", 1234.56, true},
		{"", 0, false},
		{"abc", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := parseAmount(tt.in)
			if got != tt.want || ok != tt.ok {
				t.Errorf("parseAmount(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}
