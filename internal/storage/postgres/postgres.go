// Package postgres is the PostgreSQL ledger store.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"ledgerplan/internal/core"
	"ledgerplan/internal/ledger"
	applog "ledgerplan/internal/log"
)

// Ensure interface conformance
var (
	_ ledger.Store  = (*Store)(nil)
	_ ledger.Writer = (*Store)(nil)
	_ ledger.Lister = (*Store)(nil)
)

type Store struct {
	pool *pgxpool.Pool
}

// Open connects to databaseURL and applies migrations.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required for the postgres backend")
	}

	if err := RunMigrations(databaseURL); err != nil {
		return nil, err
	}

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// Ledgers implements ledger.Lister
func (s *Store) Ledgers(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT ledger FROM ledger_deltas ORDER BY ledger`)
	if err != nil {
		return nil, fmt.Errorf("list ledgers: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("list ledgers: %w", err)
	}
	return names, nil
}

// FetchDeltas implements ledger.Reader
func (s *Store) FetchDeltas(ctx context.Context, ledgerName string, start, end core.PeriodKey, filter core.Filter) ([]core.DeltaRecord, error) {
	query := `
		SELECT period, category, customer, project_name, customer_type, segment, value
		FROM ledger_deltas
		WHERE ledger = $1
		  AND period BETWEEN $2 AND $3
		  AND ($4 = '' OR category = $4)
		  AND ($5 = '' OR customer = $5)
		ORDER BY period, id
	`
	rows, err := s.pool.Query(ctx, query, ledgerName, start.String(), end.String(),
		strings.TrimSpace(filter.Category), strings.TrimSpace(filter.Customer))
	if err != nil {
		return nil, fmt.Errorf("query deltas %s %s..%s: %w", ledgerName, start, end, err)
	}
	defer rows.Close()

	var out []core.DeltaRecord
	for rows.Next() {
		var (
			period string
			rec    core.BusinessRecord
			value  decimal.Decimal
		)
		if err := rows.Scan(&period, &rec.Category, &rec.Customer, &rec.ProjectName,
			&rec.CustomerType, &rec.Segment, &value); err != nil {
			return nil, fmt.Errorf("scan delta: %w", err)
		}
		p, err := core.ParsePeriod(strings.TrimSpace(period))
		if err != nil {
			slog.WarnContext(ctx, "Skipping delta with malformed period",
				applog.FieldComponent, applog.ComponentStorage,
				applog.FieldLedger, ledgerName,
				applog.FieldError, err)
			continue
		}
		out = append(out, core.DeltaRecord{Period: p, BusinessRecord: rec, Value: value.InexactFloat64()})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deltas: %w", err)
	}
	return out, nil
}

// FetchBudget implements ledger.BudgetReader
func (s *Store) FetchBudget(ctx context.Context, tableKey string, year int) ([]core.BudgetEntry, error) {
	query := `
		SELECT table_key, year, category, customer, yearly_plan
		FROM budget_plans
		WHERE table_key = $1 AND year = $2
		ORDER BY id
	`
	rows, err := s.pool.Query(ctx, query, tableKey, year)
	if err != nil {
		return nil, fmt.Errorf("query budget %s/%d: %w", tableKey, year, err)
	}
	defer rows.Close()

	var out []core.BudgetEntry
	for rows.Next() {
		var (
			e    core.BudgetEntry
			plan decimal.Decimal
		)
		if err := rows.Scan(&e.TableKey, &e.Year, &e.Category, &e.Customer, &plan); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		e.YearlyPlan = plan.InexactFloat64()
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate budget: %w", err)
	}
	return out, nil
}

// ImportDeltas appends records in one transaction, replacing the periods
// present in recs when replace is set.
func (s *Store) ImportDeltas(ctx context.Context, ledgerName string, recs []core.DeltaRecord, replace bool) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if replace {
			cleared := make(map[core.PeriodKey]bool)
			for _, d := range recs {
				if cleared[d.Period] {
					continue
				}
				cleared[d.Period] = true
				if _, err := tx.Exec(ctx, `DELETE FROM ledger_deltas WHERE ledger = $1 AND period = $2`,
					ledgerName, d.Period.String()); err != nil {
					return fmt.Errorf("clear %s %s: %w", ledgerName, d.Period, err)
				}
			}
		}

		batch := &pgx.Batch{}
		for _, d := range recs {
			batch.Queue(`
				INSERT INTO ledger_deltas (ledger, period, category, customer, project_name, customer_type, segment, value)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				ledgerName, d.Period.String(),
				strings.TrimSpace(d.Category), strings.TrimSpace(d.Customer),
				strings.TrimSpace(d.ProjectName), strings.TrimSpace(d.CustomerType), strings.TrimSpace(d.Segment),
				decimal.NewFromFloat(d.Value))
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert deltas: %w", err)
		}
		return nil
	})
}

// UpsertBudget writes plan entries, replacing existing plans.
func (s *Store) UpsertBudget(ctx context.Context, entries []core.BudgetEntry) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for _, e := range entries {
			if strings.TrimSpace(e.TableKey) == "" {
				return fmt.Errorf("budget entry %s/%s: missing table key", e.Category, e.Customer)
			}
			_, err := tx.Exec(ctx, `
				INSERT INTO budget_plans (table_key, year, category, customer, yearly_plan)
				VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (table_key, year, category, customer)
				DO UPDATE SET yearly_plan = EXCLUDED.yearly_plan, updated_at = NOW()`,
				strings.TrimSpace(e.TableKey), e.Year,
				strings.TrimSpace(e.Category), strings.TrimSpace(e.Customer),
				decimal.NewFromFloat(e.YearlyPlan))
			if err != nil {
				return fmt.Errorf("upsert budget: %w", err)
			}
		}
		return nil
	})
}
