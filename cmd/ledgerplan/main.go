package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"ledgerplan/internal/cli"
	apphttp "ledgerplan/internal/http"
	applog "ledgerplan/internal/log"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	app, err := cli.Build(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize application",
			applog.FieldError, err,
			applog.FieldOperation, applog.OpStartup)
		os.Exit(1)
	}
	defer app.Close()

	srv := apphttp.NewServer(":"+cfg.Port, app.Reports, apphttp.Options{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
	})

	logger.Info("Starting ledgerplan server",
		"port", cfg.Port,
		"ledger_backend", cfg.LedgerBackend,
		"budget_backend", cfg.BudgetBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
