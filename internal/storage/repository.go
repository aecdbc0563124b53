package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"ledgerplan/internal/core"
	"ledgerplan/internal/ledger"
	applog "ledgerplan/internal/log"

	_ "modernc.org/sqlite"
)

// Ensure interface conformance
var (
	_ ledger.Store  = (*SQLiteRepository)(nil)
	_ ledger.Writer = (*SQLiteRepository)(nil)
	_ ledger.Lister = (*SQLiteRepository)(nil)
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// FetchDeltas implements ledger.Reader
func (r *SQLiteRepository) FetchDeltas(ctx context.Context, ledgerName string, start, end core.PeriodKey, filter core.Filter) ([]core.DeltaRecord, error) {
	rows, err := r.queries.ListDeltas(ctx, ListDeltasParams{
		Ledger:   ledgerName,
		Start:    start.String(),
		End:      end.String(),
		Category: strings.TrimSpace(filter.Category),
		Customer: strings.TrimSpace(filter.Customer),
	})
	if err != nil {
		return nil, fmt.Errorf("list deltas %s %s..%s: %w", ledgerName, start, end, err)
	}

	out := make([]core.DeltaRecord, 0, len(rows))
	for _, row := range rows {
		p, err := core.ParsePeriod(row.Period)
		if err != nil {
			slog.WarnContext(ctx, "Skipping delta with malformed period",
				applog.FieldComponent, applog.ComponentStorage,
				applog.FieldLedger, ledgerName,
				"id", row.ID,
				applog.FieldError, err)
			continue
		}
		out = append(out, core.DeltaRecord{
			Period: p,
			BusinessRecord: core.BusinessRecord{
				Category:     row.Category,
				Customer:     row.Customer,
				ProjectName:  row.ProjectName,
				CustomerType: row.CustomerType,
				Segment:      row.Segment,
			},
			Value: row.Value,
		})
	}
	return out, nil
}

// FetchBudget implements ledger.BudgetReader
func (r *SQLiteRepository) FetchBudget(ctx context.Context, tableKey string, year int) ([]core.BudgetEntry, error) {
	rows, err := r.queries.ListBudget(ctx, tableKey, int64(year))
	if err != nil {
		return nil, fmt.Errorf("list budget %s/%d: %w", tableKey, year, err)
	}
	out := make([]core.BudgetEntry, len(rows))
	for i, row := range rows {
		out[i] = core.BudgetEntry{
			TableKey:   row.TableKey,
			Category:   row.Category,
			Customer:   row.Customer,
			Year:       int(row.Year),
			YearlyPlan: row.YearlyPlan,
		}
	}
	return out, nil
}

// ImportDeltas appends records to a ledger in one transaction. With replace
// set, existing rows for every period present in recs are removed first.
func (r *SQLiteRepository) ImportDeltas(ctx context.Context, ledgerName string, recs []core.DeltaRecord, replace bool) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	if replace {
		cleared := make(map[core.PeriodKey]bool)
		for _, d := range recs {
			if cleared[d.Period] {
				continue
			}
			cleared[d.Period] = true
			if _, err := q.DeleteLedgerPeriod(ctx, ledgerName, d.Period.String()); err != nil {
				return fmt.Errorf("clear %s %s: %w", ledgerName, d.Period, err)
			}
		}
	}
	for _, d := range recs {
		if err := q.InsertDelta(ctx, InsertDeltaParams{
			Ledger:       ledgerName,
			Period:       d.Period.String(),
			Category:     strings.TrimSpace(d.Category),
			Customer:     strings.TrimSpace(d.Customer),
			ProjectName:  strings.TrimSpace(d.ProjectName),
			CustomerType: strings.TrimSpace(d.CustomerType),
			Segment:      strings.TrimSpace(d.Segment),
			Value:        d.Value,
		}); err != nil {
			return fmt.Errorf("insert delta: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	slog.InfoContext(ctx, "Deltas imported",
		applog.FieldComponent, applog.ComponentStorage,
		applog.FieldOperation, applog.OpImport,
		applog.FieldLedger, ledgerName,
		applog.FieldCount, len(recs))
	return nil
}

// UpsertBudget writes plan entries; an existing (table, year, category,
// customer) row gets its plan replaced.
func (r *SQLiteRepository) UpsertBudget(ctx context.Context, entries []core.BudgetEntry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	for _, e := range entries {
		if strings.TrimSpace(e.TableKey) == "" {
			return fmt.Errorf("budget entry %s/%s: missing table key", e.Category, e.Customer)
		}
		if err := q.UpsertBudget(ctx, UpsertBudgetParams{
			TableKey:   strings.TrimSpace(e.TableKey),
			Year:       int64(e.Year),
			Category:   strings.TrimSpace(e.Category),
			Customer:   strings.TrimSpace(e.Customer),
			YearlyPlan: e.YearlyPlan,
		}); err != nil {
			return fmt.Errorf("upsert budget: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	slog.InfoContext(ctx, "Budget imported",
		applog.FieldComponent, applog.ComponentStorage,
		applog.FieldOperation, applog.OpImport,
		applog.FieldCount, len(entries))
	return nil
}

// Ledgers lists the ledgers that hold at least one record.
func (r *SQLiteRepository) Ledgers(ctx context.Context) ([]string, error) {
	names, err := r.queries.ListLedgers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list ledgers: %w", err)
	}
	return names, nil
}
