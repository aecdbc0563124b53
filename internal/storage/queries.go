package storage

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type LedgerDelta struct {
	ID           int64
	Ledger       string
	Period       string
	Category     string
	Customer     string
	ProjectName  string
	CustomerType string
	Segment      string
	Value        float64
}

type BudgetPlan struct {
	ID         int64
	TableKey   string
	Year       int64
	Category   string
	Customer   string
	YearlyPlan float64
}

const insertDelta = `
INSERT INTO ledger_deltas (ledger, period, category, customer, project_name, customer_type, segment, value)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`

type InsertDeltaParams struct {
	Ledger       string
	Period       string
	Category     string
	Customer     string
	ProjectName  string
	CustomerType string
	Segment      string
	Value        float64
}

func (q *Queries) InsertDelta(ctx context.Context, arg InsertDeltaParams) error {
	_, err := q.db.ExecContext(ctx, insertDelta,
		arg.Ledger,
		arg.Period,
		arg.Category,
		arg.Customer,
		arg.ProjectName,
		arg.CustomerType,
		arg.Segment,
		arg.Value,
	)
	return err
}

const listDeltas = `
SELECT id, ledger, period, category, customer, project_name, customer_type, segment, value
FROM ledger_deltas
WHERE ledger = ?
  AND period BETWEEN ? AND ?
  AND (? = '' OR category = ?)
  AND (? = '' OR customer = ?)
ORDER BY period, id
`

type ListDeltasParams struct {
	Ledger   string
	Start    string
	End      string
	Category string
	Customer string
}

func (q *Queries) ListDeltas(ctx context.Context, arg ListDeltasParams) ([]LedgerDelta, error) {
	rows, err := q.db.QueryContext(ctx, listDeltas,
		arg.Ledger,
		arg.Start,
		arg.End,
		arg.Category, arg.Category,
		arg.Customer, arg.Customer,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []LedgerDelta
	for rows.Next() {
		var i LedgerDelta
		if err := rows.Scan(
			&i.ID,
			&i.Ledger,
			&i.Period,
			&i.Category,
			&i.Customer,
			&i.ProjectName,
			&i.CustomerType,
			&i.Segment,
			&i.Value,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteLedgerPeriod = `
DELETE FROM ledger_deltas WHERE ledger = ? AND period = ?
`

func (q *Queries) DeleteLedgerPeriod(ctx context.Context, ledger, period string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteLedgerPeriod, ledger, period)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const upsertBudget = `
INSERT INTO budget_plans (table_key, year, category, customer, yearly_plan)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (table_key, year, category, customer)
DO UPDATE SET yearly_plan = excluded.yearly_plan, updated_at = CURRENT_TIMESTAMP
`

type UpsertBudgetParams struct {
	TableKey   string
	Year       int64
	Category   string
	Customer   string
	YearlyPlan float64
}

func (q *Queries) UpsertBudget(ctx context.Context, arg UpsertBudgetParams) error {
	_, err := q.db.ExecContext(ctx, upsertBudget,
		arg.TableKey,
		arg.Year,
		arg.Category,
		arg.Customer,
		arg.YearlyPlan,
	)
	return err
}

const listBudget = `
SELECT id, table_key, year, category, customer, yearly_plan
FROM budget_plans
WHERE table_key = ? AND year = ?
ORDER BY id
`

func (q *Queries) ListBudget(ctx context.Context, tableKey string, year int64) ([]BudgetPlan, error) {
	rows, err := q.db.QueryContext(ctx, listBudget, tableKey, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []BudgetPlan
	for rows.Next() {
		var i BudgetPlan
		if err := rows.Scan(
			&i.ID,
			&i.TableKey,
			&i.Year,
			&i.Category,
			&i.Customer,
			&i.YearlyPlan,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listLedgers = `
SELECT DISTINCT ledger FROM ledger_deltas ORDER BY ledger
`

func (q *Queries) ListLedgers(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listLedgers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var ledger string
		if err := rows.Scan(&ledger); err != nil {
			return nil, err
		}
		items = append(items, ledger)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
