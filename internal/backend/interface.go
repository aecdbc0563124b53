package backend

import (
	"context"

	"ledgerplan/internal/ledger"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult holds the readers the report pipeline needs. Writer is nil
// when the ledger backend cannot be loaded from the CLI.
type BackendResult struct {
	Ledger  ledger.Reader
	Budget  ledger.BudgetReader
	Writer  ledger.Writer
	Cleanup CleanupFunc
}

// Close runs the cleanup function, if any.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Where ledgers and, by default, budgets are read from
	Type BackendType

	// Optional separate budget source
	BudgetSource BudgetSource

	// SQLite specific
	SQLiteDBPath string

	// Postgres specific
	DatabaseURL string

	// Memory backend specific
	DataDirectory string

	// Google Sheets budget specific
	GoogleSpreadsheetID   string
	GoogleBudgetSheetName string
}

// BackendType represents the type of ledger backend
type BackendType string

const (
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
	MemoryBackend   BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, PostgresBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// BudgetSource selects where budgets come from. The zero value reads them
// from the ledger backend.
type BudgetSource string

const (
	BudgetFromLedger BudgetSource = ""
	BudgetFromSheets BudgetSource = "sheets"
)

// IsValid returns true if the budget source is known
func (bs BudgetSource) IsValid() bool {
	return bs == BudgetFromLedger || bs == BudgetFromSheets
}
