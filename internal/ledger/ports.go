package ledger

import (
	"context"

	"ledgerplan/internal/core"
)

// Ports for outbound adapters.
type (
	// Reader supplies delta records for a ledger.
	Reader interface {
		// FetchDeltas returns every record of ledger whose period lies in
		// [start, end], restricted by filter.
		FetchDeltas(ctx context.Context, ledger string, start, end core.PeriodKey, filter core.Filter) ([]core.DeltaRecord, error)
	}

	// BudgetReader supplies the annual plan of a budget table.
	BudgetReader interface {
		FetchBudget(ctx context.Context, tableKey string, year int) ([]core.BudgetEntry, error)
	}

	// Store is implemented by adapters that hold both ledgers and budgets.
	Store interface {
		Reader
		BudgetReader
	}

	// Lister names the ledgers a store holds records for.
	Lister interface {
		Ledgers(ctx context.Context) ([]string, error)
	}

	// Writer loads ledgers and plans into a store.
	Writer interface {
		// ImportDeltas appends recs to ledger. With replace set, records
		// already stored for the periods present in recs are dropped first.
		ImportDeltas(ctx context.Context, ledger string, recs []core.DeltaRecord, replace bool) error
		// UpsertBudget replaces the plan of every (table, year, category,
		// customer) in entries.
		UpsertBudget(ctx context.Context, entries []core.BudgetEntry) error
	}
)
