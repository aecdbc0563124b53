package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"ledgerplan/internal/core"
	applog "ledgerplan/internal/log"
	"ledgerplan/internal/reports"
)

// reportSummary is the catalog entry returned by GET /api/reports.
type reportSummary struct {
	reports.Report
	Requires []core.Input `json:"requires"`
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	all := s.api.Reports()
	out := make([]reportSummary, 0, len(all))
	for _, rep := range all {
		sum := reportSummary{Report: rep}
		if f, err := core.LookupFormula(rep.Formula); err == nil {
			sum.Requires = f.Requires
		}
		out = append(out, sum)
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": out})
}

func (s *Server) handleRunReport(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.PathValue("name"))
	period, err := ParsePeriodParam(r.URL.Query(), time.Now())
	if err != nil {
		respondError(w, r, applog.OpReconcile, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	res, err := s.api.Run(ctx, name, period, ParseFilterParams(r.URL.Query()))
	if err != nil {
		respondError(w, r, applog.OpReconcile, err)
		return
	}
	s.logReconciled(r, res)
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleRollup(w http.ResponseWriter, r *http.Request) {
	ledgerName := strings.TrimSpace(r.PathValue("ledger"))
	period, err := ParsePeriodParam(r.URL.Query(), time.Now())
	if err != nil {
		respondError(w, r, applog.OpRollup, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	res, err := s.api.Rollup(ctx, ledgerName, period, ParseFilterParams(r.URL.Query()))
	if err != nil {
		respondError(w, r, applog.OpRollup, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	if err := requireJSON(r); err != nil {
		respondError(w, r, applog.OpReconcile, err)
		return
	}
	req, err := DecodeReconcileRequest(r.Body)
	if err != nil {
		respondError(w, r, applog.OpReconcile, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	res, err := s.api.Reconcile(ctx, req)
	if err != nil {
		respondError(w, r, applog.OpReconcile, err)
		return
	}
	s.logReconciled(r, res)
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) logReconciled(r *http.Request, res *core.Reconciliation) {
	applog.NewStructuredLogger(applog.FromContext(r.Context())).LogReconciled(r.Context(),
		res.Report, res.TableKey, string(res.Formula), res.Period.String(), len(res.Items), res.Partial)
}
