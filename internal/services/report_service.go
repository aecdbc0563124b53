package services

import (
	"context"
	"log/slog"
	"time"

	"ledgerplan/internal/core"
	applog "ledgerplan/internal/log"
	"ledgerplan/internal/reports"
)

// ReportService runs catalog reports through the reconciler.
type ReportService struct {
	catalog    *reports.Catalog
	reconciler *Reconciler
	rollup     *RollupEngine
	logger     *slog.Logger
}

func NewReportService(catalog *reports.Catalog, reconciler *Reconciler, rollup *RollupEngine, logger *slog.Logger) *ReportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportService{
		catalog:    catalog,
		reconciler: reconciler,
		rollup:     rollup,
		logger:     logger,
	}
}

// Reports lists the catalog.
func (s *ReportService) Reports() []reports.Report {
	return s.catalog.All()
}

// Run reconciles the named report for period.
func (s *ReportService) Run(ctx context.Context, name string, period core.PeriodKey, filter core.Filter) (*core.Reconciliation, error) {
	r, err := s.catalog.Get(name)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := s.reconciler.Run(ctx, ReconcileRequest{
		Report:   r.Name,
		Period:   period,
		TableKey: r.TableKey,
		Formula:  r.Formula,
		Sources:  r.Inputs(),
		Filter:   filter,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "Report failed",
			applog.FieldComponent, applog.ComponentReports,
			applog.FieldReport, r.Name,
			applog.FieldPeriod, period.String(),
			applog.FieldError, err)
		return nil, err
	}

	s.logger.DebugContext(ctx, "Report completed",
		applog.FieldComponent, applog.ComponentReports,
		applog.FieldReport, r.Name,
		applog.FieldPeriod, period.String(),
		applog.FieldDuration, time.Since(start).Milliseconds())
	return res, nil
}

// Reconcile runs an ad hoc reconciliation that is not in the catalog.
func (s *ReportService) Reconcile(ctx context.Context, req ReconcileRequest) (*core.Reconciliation, error) {
	return s.reconciler.Run(ctx, req)
}

// Rollup exposes the raw year-to-date rollup of one ledger.
func (s *ReportService) Rollup(ctx context.Context, ledgerName string, period core.PeriodKey, filter core.Filter) (*core.RollupResult, error) {
	return s.rollup.Rollup(ctx, ledgerName, period, filter)
}
