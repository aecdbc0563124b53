package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/google/subcommands"

	"ledgerplan/internal/backend"
	"ledgerplan/internal/core"
	"ledgerplan/internal/ledger"
	applog "ledgerplan/internal/log"
	gsheet "ledgerplan/internal/sheets/google"
	"ledgerplan/internal/storage"
	"ledgerplan/internal/storage/postgres"
)

type migrateCmd struct{}

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "apply database migrations" }
func (*migrateCmd) Usage() string {
	return `migrate:
  Apply pending migrations to the sqlite or postgres ledger store.
`
}
func (*migrateCmd) SetFlags(f *flag.FlagSet) {}

func (*migrateCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, logger, err := setup()
	if err != nil {
		return fail(err)
	}
	switch backend.BackendType(cfg.LedgerBackend) {
	case backend.SQLiteBackend:
		err = storage.RunMigrations(cfg.SQLiteDBPath)
	case backend.PostgresBackend:
		err = postgres.RunMigrations(cfg.DatabaseURL)
	default:
		return fail(fmt.Errorf("backend %q has no schema", cfg.LedgerBackend))
	}
	if err != nil {
		return fail(err)
	}
	logger.Info("Migrations applied",
		applog.FieldOperation, applog.OpMigrate,
		"ledger_backend", cfg.LedgerBackend)
	return subcommands.ExitSuccess
}

// openWriter opens the configured store for writing.
func openWriter(ctx context.Context) (*backend.BackendResult, *applog.Logger, error) {
	cfg, logger, err := setup()
	if err != nil {
		return nil, nil, err
	}
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	if bcfg.Type == backend.MemoryBackend {
		return nil, nil, fmt.Errorf("the memory backend cannot be written to; set LEDGER_BACKEND")
	}
	// Budgets are written to the store even when reads go to Sheets.
	bcfg.BudgetSource = backend.BudgetFromLedger
	res, err := backend.NewFactory(logger.Slog()).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, nil, err
	}
	return res, logger, nil
}

type importDeltasCmd struct {
	ledger  string
	replace bool
}

func (*importDeltasCmd) Name() string     { return "import-deltas" }
func (*importDeltasCmd) Synopsis() string { return "load ledger records from CSV" }
func (*importDeltasCmd) Usage() string {
	return `import-deltas [-ledger name] [-replace] FILE.csv:
  Append current-month records. Columns: ledger, period, value, category,
  customer, project_name, customer_type, segment. The ledger column may be
  omitted when -ledger is set.
`
}

func (c *importDeltasCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.ledger, "ledger", "", "ledger for rows without a ledger column")
	f.BoolVar(&c.replace, "replace", false, "drop stored records of the imported months first")
}

func (c *importDeltasCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return usage(f, "import-deltas: exactly one CSV file is required")
	}
	file, err := os.Open(f.Arg(0))
	if err != nil {
		return fail(err)
	}
	defer file.Close()

	entries, err := ledger.ReadDeltasCSV(file, c.ledger)
	if err != nil {
		return fail(err)
	}

	res, logger, err := openWriter(ctx)
	if err != nil {
		return fail(err)
	}
	defer res.Close()

	byLedger := groupByLedger(entries)
	names := make([]string, 0, len(byLedger))
	for name := range byLedger {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := res.Writer.ImportDeltas(ctx, name, byLedger[name], c.replace); err != nil {
			return fail(fmt.Errorf("ledger %s: %w", name, err))
		}
		logger.Info("Imported ledger records",
			applog.FieldOperation, applog.OpImport,
			applog.FieldLedger, name,
			applog.FieldCount, len(byLedger[name]))
	}
	return subcommands.ExitSuccess
}

func groupByLedger(entries []ledger.Entry) map[string][]core.DeltaRecord {
	out := make(map[string][]core.DeltaRecord)
	for _, e := range entries {
		out[e.Ledger] = append(out[e.Ledger], e.DeltaRecord)
	}
	return out
}

type importBudgetCmd struct {
	table      string
	fromSheets bool
	year       int
}

func (*importBudgetCmd) Name() string     { return "import-budget" }
func (*importBudgetCmd) Synopsis() string { return "load yearly plans from CSV or Google Sheets" }
func (*importBudgetCmd) Usage() string {
	return `import-budget [-table key] FILE.csv
import-budget -sheets -table key [-year YYYY]:
  Upsert yearly plans. CSV columns: table_key, year, yearly_plan, category,
  customer. With -sheets the plan is copied from the configured spreadsheet.
`
}

func (c *importBudgetCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.table, "table", "", "budget table for rows without a table_key column")
	f.BoolVar(&c.fromSheets, "sheets", false, "copy the plan from Google Sheets")
	f.IntVar(&c.year, "year", time.Now().Year(), "plan year, with -sheets")
}

func (c *importBudgetCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	var (
		entries []core.BudgetEntry
		err     error
	)
	switch {
	case c.fromSheets:
		if c.table == "" {
			return usage(f, "import-budget: -table is required with -sheets")
		}
		entries, err = c.readSheets(ctx)
	case f.NArg() == 1:
		entries, err = c.readFile(f.Arg(0))
	default:
		return usage(f, "import-budget: a CSV file or -sheets is required")
	}
	if err != nil {
		return fail(err)
	}

	res, logger, err := openWriter(ctx)
	if err != nil {
		return fail(err)
	}
	defer res.Close()

	if err := res.Writer.UpsertBudget(ctx, entries); err != nil {
		return fail(err)
	}
	logger.Info("Imported budget plans",
		applog.FieldOperation, applog.OpImport,
		applog.FieldTableKey, c.table,
		applog.FieldCount, len(entries))
	return subcommands.ExitSuccess
}

func (c *importBudgetCmd) readFile(path string) ([]core.BudgetEntry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ledger.ReadBudgetCSV(file, c.table)
}

func (c *importBudgetCmd) readSheets(ctx context.Context) ([]core.BudgetEntry, error) {
	client, err := gsheet.NewFromEnv(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := client.FetchBudget(ctx, c.table, c.year)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].TableKey = c.table
		entries[i].Year = c.year
	}
	return entries, nil
}
