// Package cli provides common CLI initialization utilities shared by
// cmd/ledgerplan, cmd/ledgerplan-worker and cmd/ledgerctl.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"ledgerplan/internal/backend"
	"ledgerplan/internal/config"
	"ledgerplan/internal/core"
	applog "ledgerplan/internal/log"
	"ledgerplan/internal/reports"
	"ledgerplan/internal/services"
)

// SetupLogger initializes structured logging from LOG_LEVEL and LOG_FORMAT.
// Returns the configured logger and sets it as the default logger.
func SetupLogger(component string) *applog.Logger {
	cfg := applog.DefaultConfig()
	cfg.Level = applog.ParseLevel(os.Getenv("LOG_LEVEL"))
	if f := os.Getenv("LOG_FORMAT"); f != "" {
		cfg.Format = f
	}
	if component != "" {
		cfg.Component = component
	}
	logger := applog.New(cfg)
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *applog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed",
			applog.FieldError, err,
			applog.FieldErrorType, applog.ErrorTypeConfiguration)
		os.Exit(1)
	}
	return cfg
}

// LoadCatalog returns the report catalog at path, or the built-in one when
// path is empty.
func LoadCatalog(path string) (*reports.Catalog, error) {
	if path == "" {
		return reports.Default(), nil
	}
	return reports.Load(path)
}

// App bundles everything a binary needs to serve reports.
type App struct {
	Backend *backend.BackendResult
	Catalog *reports.Catalog
	Reports *services.ReportService
}

// Close releases the backend.
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	return a.Backend.Close()
}

// Build wires backend, rollup engine, budget builder and reconciler
// according to cfg.
func Build(ctx context.Context, cfg *config.Config, logger *applog.Logger) (*App, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger.Slog()).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("create backend: %w", err)
	}

	catalog, err := LoadCatalog(cfg.ReportsFile)
	if err != nil {
		res.Close()
		return nil, fmt.Errorf("load report catalog: %w", err)
	}

	sl := logger.Slog()
	rollup := services.NewRollupEngine(res.Ledger,
		services.WithConcurrency(cfg.RollupConcurrency),
		services.WithLogger(sl))
	budgets := services.NewBudgetMapBuilder(res.Budget, sl)
	reconciler := services.NewReconciler(rollup, budgets, core.NewKeyResolver(), sl)

	logger.Info("Application wired",
		applog.FieldOperation, applog.OpStartup,
		"ledger_backend", bcfg.Type.String(),
		"budget_backend", string(bcfg.BudgetSource),
		"reports", catalog.Len())

	return &App{
		Backend: res,
		Catalog: catalog,
		Reports: services.NewReportService(catalog, reconciler, rollup, sl),
	}, nil
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func()) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received",
			applog.FieldOperation, applog.OpShutdown,
			"signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		if cleanup != nil {
			cleanup()
		}

		cancel()

		select {
		case <-shutdownCtx.Done():
			logger.Warn("Shutdown timeout reached")
		case <-time.After(2 * time.Second):
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
