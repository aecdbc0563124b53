package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"ledgerplan/internal/core"
	applog "ledgerplan/internal/log"
	"ledgerplan/internal/middleware/trace"
	"ledgerplan/internal/reports"
)

var errInvalidRequest = errors.New("invalid request")

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Encode response failed", applog.FieldError, err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg, RequestID: trace.GetRequestID(r.Context())})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrInvalidPeriodFormat),
		errors.Is(err, core.ErrUnknownFormula),
		errors.Is(err, core.ErrMissingSource),
		errors.Is(err, errInvalidRequest):
		return http.StatusBadRequest, applog.ErrorTypeValidation
	case errors.Is(err, reports.ErrUnknownReport):
		return http.StatusNotFound, applog.ErrorTypeNotFound
	case errors.Is(err, core.ErrLedgerUnavailable):
		return http.StatusServiceUnavailable, applog.ErrorTypeUnavailable
	default:
		return http.StatusInternalServerError, applog.ErrorTypeInternal
	}
}

// respondError logs err and writes the mapped status.
func respondError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, errType := statusFor(err)
	logger := applog.FromContext(r.Context())
	if status >= 500 {
		applog.NewStructuredLogger(logger).LogError(r.Context(), "Request failed", err,
			applog.ComponentHTTP, op, applog.NewFields().WithErrorType(errType))
	} else {
		logger.WarnContext(r.Context(), "Request rejected", applog.NewFields().
			WithOperation(op).
			WithError(err).
			WithErrorType(errType).
			ToSlice()...)
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	writeError(w, r, status, msg)
}
