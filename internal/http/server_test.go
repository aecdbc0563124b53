package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ledgerplan/internal/core"
	"ledgerplan/internal/ledger/memory"
	applog "ledgerplan/internal/log"
	"ledgerplan/internal/reports"
	"ledgerplan/internal/services"
)

func quietLogger() *applog.Logger {
	cfg := applog.DefaultConfig()
	cfg.Output = io.Discard
	return applog.New(cfg)
}

func newTestServer(t *testing.T, api ReportAPI, rate int) *Server {
	t.Helper()
	srv := NewServer(":0", api, Options{RateLimitPerMinute: rate, Logger: quietLogger()})
	t.Cleanup(func() { srv.Shutdown(context.Background()) })
	return srv
}

// realAPI wires the report service over an in-memory ledger.
func realAPI() ReportAPI {
	store := memory.New()
	acme := core.BusinessRecord{Category: "equipment", Customer: "Acme"}
	store.AddDeltas("revenue",
		core.DeltaRecord{Period: core.MustParsePeriod("2025-01"), BusinessRecord: acme, Value: 100},
		core.DeltaRecord{Period: core.MustParsePeriod("2025-03"), BusinessRecord: acme, Value: 50},
	)
	store.AddBudget(core.BudgetEntry{TableKey: "revenue", Year: 2025, Category: "equipment", Customer: "Acme", YearlyPlan: 600})

	logger := quietLogger().Slog()
	rollup := services.NewRollupEngine(store, services.WithLogger(logger))
	rec := services.NewReconciler(rollup, services.NewBudgetMapBuilder(store, logger), core.NewKeyResolver(), logger)
	return services.NewReportService(reports.Default(), rec, rollup, logger)
}

func do(srv *Server, method, target, body string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

type reconciliationJSON struct {
	Report string `json:"report"`
	Items  []struct {
		Key        string   `json:"key"`
		ActualRate *float64 `json:"actualRate"`
	} `json:"items"`
	Total struct {
		Actual     float64  `json:"actual"`
		ActualRate *float64 `json:"actualRate"`
	} `json:"total"`
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, realAPI(), 60)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(srv, http.MethodGet, path, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
}

func TestRunReport(t *testing.T) {
	srv := newTestServer(t, realAPI(), 60)

	rr := do(srv, http.MethodGet, "/api/reports/revenue_completion?period=2025-03", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("content type %q", ct)
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers missing")
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("request id header missing")
	}

	var got reconciliationJSON
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Report != "revenue_completion" {
		t.Errorf("report = %q", got.Report)
	}
	if got.Total.Actual != 150 || got.Total.ActualRate == nil || *got.Total.ActualRate != 25 {
		t.Errorf("unexpected total %+v", got.Total)
	}
}

func TestRunReport_Filter(t *testing.T) {
	srv := newTestServer(t, realAPI(), 60)

	rr := do(srv, http.MethodGet, "/api/reports/revenue_completion?period=2025-03&customer=Nobody", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var got reconciliationJSON
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Total.Actual != 0 {
		t.Errorf("filtered total = %v, want 0", got.Total.Actual)
	}
}

func TestRollup(t *testing.T) {
	srv := newTestServer(t, realAPI(), 60)

	rr := do(srv, http.MethodGet, "/api/ledgers/revenue/rollup?period=2025-03", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var got core.RollupResult
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Items) != 1 || got.Items[0].CumulativeActual != 150 || got.Items[0].CurrentPeriodActual != 50 {
		t.Errorf("unexpected rollup %+v", got.Items)
	}
}

func TestReconcile(t *testing.T) {
	srv := newTestServer(t, realAPI(), 60)

	body := `{"period":"2025-03","table_key":"revenue","formula":"completion","sources":{"actual":"revenue"}}`
	rr := do(srv, http.MethodPost, "/api/reconcile", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var got reconciliationJSON
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Items) != 1 || got.Items[0].Key != "equipment-Acme" {
		t.Errorf("unexpected items %+v", got.Items)
	}
}

func TestListReports(t *testing.T) {
	srv := newTestServer(t, realAPI(), 60)

	rr := do(srv, http.MethodGet, "/api/reports", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	var got struct {
		Reports []struct {
			Name     string   `json:"name"`
			Requires []string `json:"requires"`
		} `json:"reports"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Reports) != reports.Default().Len() {
		t.Errorf("got %d reports", len(got.Reports))
	}
	for _, r := range got.Reports {
		if len(r.Requires) == 0 {
			t.Errorf("report %s has no required inputs", r.Name)
		}
	}
}

// stubAPI returns a fixed error from every call.
type stubAPI struct{ err error }

func (s stubAPI) Reports() []reports.Report { return nil }

func (s stubAPI) Run(context.Context, string, core.PeriodKey, core.Filter) (*core.Reconciliation, error) {
	return nil, s.err
}

func (s stubAPI) Reconcile(context.Context, services.ReconcileRequest) (*core.Reconciliation, error) {
	return nil, s.err
}

func (s stubAPI) Rollup(context.Context, string, core.PeriodKey, core.Filter) (*core.RollupResult, error) {
	return nil, s.err
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		api    ReportAPI
		method string
		target string
		body   string
		want   int
	}{
		{"bad period", realAPI(), http.MethodGet, "/api/reports/revenue_completion?period=2025-13", "", http.StatusBadRequest},
		{"unknown report", realAPI(), http.MethodGet, "/api/reports/nope?period=2025-03", "", http.StatusNotFound},
		{"unknown formula", realAPI(), http.MethodPost, "/api/reconcile",
			`{"period":"2025-03","table_key":"revenue","formula":"magic","sources":{"actual":"revenue"}}`, http.StatusBadRequest},
		{"missing source", realAPI(), http.MethodPost, "/api/reconcile",
			`{"period":"2025-03","table_key":"revenue","formula":"gross_margin","sources":{"actual":"revenue"}}`, http.StatusBadRequest},
		{"malformed body", realAPI(), http.MethodPost, "/api/reconcile", `{"period":`, http.StatusBadRequest},
		{"unknown field", realAPI(), http.MethodPost, "/api/reconcile", `{"period":"2025-03","table_key":"r","extra":1}`, http.StatusBadRequest},
		{"ledger unavailable", stubAPI{err: fmt.Errorf("revenue: %w", core.ErrLedgerUnavailable)},
			http.MethodGet, "/api/ledgers/revenue/rollup?period=2025-03", "", http.StatusServiceUnavailable},
		{"internal", stubAPI{err: fmt.Errorf("boom")},
			http.MethodGet, "/api/reports/x?period=2025-03", "", http.StatusInternalServerError},
		{"wrong method", realAPI(), http.MethodDelete, "/api/reports", "", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, tt.api, 60)
			rr := do(srv, tt.method, tt.target, tt.body)
			if rr.Code != tt.want {
				t.Fatalf("status=%d want %d body=%s", rr.Code, tt.want, rr.Body.String())
			}
			if tt.want == http.StatusMethodNotAllowed {
				return
			}
			var body errorBody
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil || body.Error == "" {
				t.Errorf("expected JSON error body, got %s", rr.Body.String())
			}
			if tt.want == http.StatusInternalServerError && body.Error != "internal error" {
				t.Errorf("internal details leaked: %q", body.Error)
			}
		})
	}
}

func TestRateLimit(t *testing.T) {
	srv := newTestServer(t, realAPI(), 2)

	for i := 0; i < 2; i++ {
		if rr := do(srv, http.MethodGet, "/api/reports", ""); rr.Code != http.StatusOK {
			t.Fatalf("request %d status=%d", i+1, rr.Code)
		}
	}
	rr := do(srv, http.MethodGet, "/api/reports", "")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status=%d, want 429", rr.Code)
	}
	if rr := do(srv, http.MethodGet, "/healthz", ""); rr.Code != http.StatusOK {
		t.Errorf("health checks are not rate limited, got %d", rr.Code)
	}
}
