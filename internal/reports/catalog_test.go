package reports

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"ledgerplan/internal/core"
)

func TestDefault(t *testing.T) {
	c := Default()
	if c.Len() == 0 {
		t.Fatal("expected built-in reports")
	}

	r, err := c.Get("non_main_business_completion")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if r.TableKey != core.NonMainBusinessTable {
		t.Errorf("expected table %s, got %s", core.NonMainBusinessTable, r.TableKey)
	}

	np, err := c.Get("net_profit")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got := np.Inputs()[core.InputMarketing]; got != "marketing_expense" {
		t.Errorf("expected marketing_expense source, got %q", got)
	}
	if len(np.Ledgers()) != 6 {
		t.Errorf("expected 6 ledgers, got %v", np.Ledgers())
	}
}

func TestCatalog_GetUnknown(t *testing.T) {
	_, err := Default().Get("nope")
	if !errors.Is(err, ErrUnknownReport) {
		t.Errorf("expected ErrUnknownReport, got %v", err)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty", "reports: []"},
		{"not yaml", "reports: [::"},
		{"unknown field", "reports:\n  - name: a\n    formula: completion\n    table_key: t\n    sources: {actual: l}\n    colour: red\n"},
		{"missing name", "reports:\n  - formula: completion\n    table_key: t\n    sources: {actual: l}\n"},
		{"missing table", "reports:\n  - name: a\n    formula: completion\n    sources: {actual: l}\n"},
		{"unknown formula", "reports:\n  - name: a\n    formula: ebitda\n    table_key: t\n    sources: {actual: l}\n"},
		{"missing source", "reports:\n  - name: a\n    formula: contribution_rate\n    table_key: t\n    sources: {actual: l}\n"},
		{"unused source", "reports:\n  - name: a\n    formula: completion\n    table_key: t\n    sources: {actual: l, cost: c}\n"},
		{"duplicate", "reports:\n  - name: a\n    formula: completion\n    table_key: t\n    sources: {actual: l}\n  - name: a\n    formula: completion\n    table_key: u\n    sources: {actual: l}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if !errors.Is(err, ErrInvalidCatalog) {
				t.Errorf("expected ErrInvalidCatalog, got %v", err)
			}
		})
	}
}

func TestParse_DefaultsTitle(t *testing.T) {
	c, err := Parse([]byte("reports:\n  - name: orders\n    formula: completion\n    table_key: orders\n    sources: {actual: orders}\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	r, _ := c.Get("orders")
	if r.Title != "orders" {
		t.Errorf("expected title to default to name, got %q", r.Title)
	}
}

func TestLoad(t *testing.T) {
	t.Run("empty path uses default", func(t *testing.T) {
		c, err := Load("")
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if c.Len() != Default().Len() {
			t.Errorf("expected default catalog")
		}
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "reports.yaml")
		data := "reports:\n  - name: custom\n    formula: completion\n    table_key: t\n    sources: {actual: l}\n"
		if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
			t.Fatal(err)
		}
		c, err := Load(path)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if _, err := c.Get("custom"); err != nil {
			t.Errorf("expected custom report: %v", err)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
			t.Error("expected error for missing file")
		}
	})
}
