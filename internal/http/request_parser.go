package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ledgerplan/internal/core"
	"ledgerplan/internal/services"
)

const maxBodyBytes = 64 << 10

// ParsePeriodParam reads ?period=YYYY-MM. A missing value defaults to the
// current month of now.
func ParsePeriodParam(query url.Values, now time.Time) (core.PeriodKey, error) {
	v := strings.TrimSpace(query.Get("period"))
	if v == "" {
		return core.NewPeriod(now.Year(), int(now.Month()))
	}
	return core.ParsePeriod(v)
}

// ParseFilterParams reads the optional category and customer filters.
func ParseFilterParams(query url.Values) core.Filter {
	return core.Filter{
		Category: sanitizeInput(query.Get("category")),
		Customer: sanitizeInput(query.Get("customer")),
	}
}

// DecodeReconcileRequest reads a JSON reconciliation request body.
func DecodeReconcileRequest(body io.Reader) (services.ReconcileRequest, error) {
	var req services.ReconcileRequest
	dec := json.NewDecoder(io.LimitReader(body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return req, fmt.Errorf("%w: %v", errInvalidRequest, err)
	}
	if req.Period.IsZero() {
		return req, fmt.Errorf("%w: period is required", errInvalidRequest)
	}
	if strings.TrimSpace(req.TableKey) == "" {
		return req, fmt.Errorf("%w: table_key is required", errInvalidRequest)
	}
	req.TableKey = strings.TrimSpace(req.TableKey)
	req.Filter.Category = sanitizeInput(req.Filter.Category)
	req.Filter.Customer = sanitizeInput(req.Filter.Customer)
	return req, nil
}

func requireJSON(r *http.Request) error {
	ct := r.Header.Get("Content-Type")
	if ct == "" || strings.HasPrefix(strings.ToLower(ct), "application/json") {
		return nil
	}
	return fmt.Errorf("%w: content type %q", errInvalidRequest, ct)
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
