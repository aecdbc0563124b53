// Package worker runs catalog reports requested over AMQP.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ledgerplan/internal/amqp"
	"ledgerplan/internal/core"
	applog "ledgerplan/internal/log"
)

// ReportRunner runs a named report.
type ReportRunner interface {
	Run(ctx context.Context, name string, period core.PeriodKey, filter core.Filter) (*core.Reconciliation, error)
}

// ResultPublisher sends a finished result.
type ResultPublisher interface {
	PublishReportResult(ctx context.Context, msg *amqp.ReportResultMessage) error
}

// ReportWorker turns report requests into result messages.
type ReportWorker struct {
	runner    ReportRunner
	publisher ResultPublisher
	timeout   time.Duration
	logger    *slog.Logger
}

func NewReportWorker(runner ReportRunner, publisher ResultPublisher, timeout time.Duration, logger *slog.Logger) *ReportWorker {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &ReportWorker{
		runner:    runner,
		publisher: publisher,
		timeout:   timeout,
		logger:    logger.With(applog.FieldComponent, applog.ComponentWorker),
	}
}

// HandleReportRequest runs one request. A ledger outage is returned so the
// delivery is requeued; every other failure is reported back as an error
// result and the request is acknowledged.
func (w *ReportWorker) HandleReportRequest(ctx context.Context, msg *amqp.ReportRequestMessage) error {
	period, err := core.ParsePeriod(msg.Period)
	if err != nil {
		return w.reply(ctx, msg, nil, err)
	}

	runCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	start := time.Now()
	result, err := w.runner.Run(runCtx, msg.Report, period, msg.Filter)
	if errors.Is(err, core.ErrLedgerUnavailable) {
		w.logger.WarnContext(ctx, "Ledger unavailable, request will be retried",
			applog.FieldReport, msg.Report,
			applog.FieldPeriod, msg.Period,
			applog.FieldErrorType, applog.ErrorTypeUnavailable,
			applog.FieldError, err,
			"id", msg.ID)
		return err
	}
	if err != nil && ctx.Err() != nil {
		// shutting down; let another worker pick it up
		return ctx.Err()
	}

	w.logger.InfoContext(ctx, "Report request processed",
		applog.FieldOperation, applog.OpConsume,
		applog.FieldReport, msg.Report,
		applog.FieldPeriod, msg.Period,
		applog.FieldSuccess, err == nil,
		applog.FieldDuration, time.Since(start).Milliseconds(),
		"id", msg.ID)

	return w.reply(ctx, msg, result, err)
}

func (w *ReportWorker) reply(ctx context.Context, msg *amqp.ReportRequestMessage, result *core.Reconciliation, runErr error) error {
	if runErr != nil {
		w.logger.WarnContext(ctx, "Report request failed",
			applog.FieldReport, msg.Report,
			applog.FieldPeriod, msg.Period,
			applog.FieldError, runErr,
			"id", msg.ID)
	}
	if err := w.publisher.PublishReportResult(ctx, amqp.NewReportResultMessage(msg, result, runErr)); err != nil {
		return fmt.Errorf("publish result for %s: %w", msg.ID, err)
	}
	return nil
}
