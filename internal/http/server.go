package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"ledgerplan/internal/core"
	applog "ledgerplan/internal/log"
	"ledgerplan/internal/middleware/ratelimit"
	"ledgerplan/internal/middleware/security"
	"ledgerplan/internal/middleware/trace"
	"ledgerplan/internal/reports"
	"ledgerplan/internal/services"
)

// ReportAPI is what the handlers need from the report service.
type ReportAPI interface {
	Reports() []reports.Report
	Run(ctx context.Context, name string, period core.PeriodKey, filter core.Filter) (*core.Reconciliation, error)
	Reconcile(ctx context.Context, req services.ReconcileRequest) (*core.Reconciliation, error)
	Rollup(ctx context.Context, ledgerName string, period core.PeriodKey, filter core.Filter) (*core.RollupResult, error)
}

// Options tunes the server.
type Options struct {
	RateLimitPerMinute int // month reads per client per minute
	RequestTimeout     time.Duration
	Logger             *applog.Logger
}

type Server struct {
	http.Server
	api            ReportAPI
	limiter        *ratelimit.Limiter
	detector       *security.Detector
	tracer         *trace.Middleware
	requestTimeout time.Duration

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, api ReportAPI, opts Options) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}

	detector := security.NewDetector()
	s := &Server{
		Server: http.Server{
			Addr:           addr,
			ReadTimeout:    10 * time.Second,
			WriteTimeout:   opts.RequestTimeout + 5*time.Second,
			IdleTimeout:    60 * time.Second,
			MaxHeaderBytes: 1 << 16, // 64KB
		},
		api:            api,
		limiter:        ratelimit.NewLimiter(ratelimit.Config{UnitsPerMinute: opts.RateLimitPerMinute}),
		detector:       detector,
		tracer:         trace.NewMiddleware(opts.Logger, detector.ExtractClientIP),
		requestTimeout: opts.RequestTimeout,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	apiMux := http.NewServeMux()
	apiMux.HandleFunc("GET /api/reports", s.handleListReports)
	apiMux.HandleFunc("GET /api/reports/{name}", s.handleRunReport)
	apiMux.HandleFunc("GET /api/ledgers/{ledger}/rollup", s.handleRollup)
	apiMux.HandleFunc("POST /api/reconcile", s.handleReconcile)

	limited := s.limiter.Middleware(detector.ExtractClientIP, s.readCost, func(w http.ResponseWriter, r *http.Request) {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			applog.FieldComponent, applog.ComponentRateLimit,
			applog.FieldClientIP, detector.ExtractClientIP(r))
		writeError(w, r, http.StatusTooManyRequests, "rate limit exceeded")
	})
	mux.Handle("/api/", limited(apiMux))

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	s.Handler = s.tracer.Middleware(headers.Middleware(detector.Middleware(mux)))
	return s
}

// Shutdown gracefully shuts down the server and the limiter's cleanup loop
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
