//go:build integration

package google

import (
	"context"
	"os"
	"testing"
	"time"
)

// Integration tests require real Google Sheets credentials
// Run with: go test -tags=integration ./internal/sheets/google

func TestIntegration_FetchBudget(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	if os.Getenv("GOOGLE_SPREADSHEET_ID") == "" {
		t.Skip("GOOGLE_SPREADSHEET_ID not set, skipping integration test")
	}
	tableKey := os.Getenv("GOOGLE_BUDGET_TEST_TABLE")
	if tableKey == "" {
		tableKey = "revenue"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := NewFromEnv(ctx)
	if err != nil {
		t.Fatalf("NewFromEnv failed: %v", err)
	}

	entries, err := client.FetchBudget(ctx, tableKey, time.Now().Year())
	if err != nil {
		t.Fatalf("FetchBudget failed: %v", err)
	}
	for _, e := range entries {
		if e.TableKey != tableKey {
			t.Errorf("entry with wrong table key %q", e.TableKey)
		}
	}
	t.Logf("read %d budget entries for %s", len(entries), tableKey)
}
