package backend

import (
	"context"
	"fmt"
	"log/slog"

	"ledgerplan/internal/ledger/memory"
	applog "ledgerplan/internal/log"
	gsheet "ledgerplan/internal/sheets/google"
	"ledgerplan/internal/storage"
	"ledgerplan/internal/storage/postgres"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		result *BackendResult
		err    error
	)
	switch config.Type {
	case SQLiteBackend:
		result, err = f.createSQLiteBackend(config)
	case PostgresBackend:
		result, err = f.createPostgresBackend(ctx, config)
	case MemoryBackend:
		result, err = f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	if config.BudgetSource == BudgetFromSheets {
		cli, err := gsheet.NewFromEnv(ctx)
		if err != nil {
			result.Close()
			return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		result.Budget = cli
		f.logger.Info("Reading budgets from Google Sheets",
			applog.FieldComponent, applog.ComponentBackend,
			"sheet", config.GoogleBudgetSheetName)
	}

	return result, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend",
		applog.FieldComponent, applog.ComponentBackend,
		"db_path", config.SQLiteDBPath)

	return &BackendResult{
		Ledger:  repo,
		Budget:  repo,
		Writer:  repo,
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createPostgresBackend(ctx context.Context, config Config) (*BackendResult, error) {
	store, err := postgres.Open(ctx, config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres store: %w", err)
	}

	f.logger.Info("Initialized postgres backend",
		applog.FieldComponent, applog.ComponentBackend)

	return &BackendResult{
		Ledger:  store,
		Budget:  store,
		Writer:  store,
		Cleanup: store.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data" // Default directory
	}

	store := memory.NewFromFiles(dataDir)

	f.logger.Info("Initialized memory backend",
		applog.FieldComponent, applog.ComponentBackend,
		"data_directory", dataDir)

	return &BackendResult{
		Ledger:  store,
		Budget:  store,
		Writer:  store,
		Cleanup: nil, // No cleanup needed for memory backend
	}, nil
}
