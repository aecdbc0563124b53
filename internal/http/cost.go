package http

import (
	"net/http"
	"strings"
	"time"

	"ledgerplan/internal/core"
)

// maxMonths is what a request costs when its period is not known up front.
const maxMonths = 12

// readCost prices a request by the ledger month reads it will trigger:
// months from January through the period, times the ledgers involved.
// Listing the catalog costs one unit.
func (s *Server) readCost(r *http.Request) int {
	if r.Method != http.MethodGet {
		return maxMonths
	}
	path := strings.TrimSuffix(r.URL.Path, "/")
	if path == "/api/reports" {
		return 1
	}

	months := maxMonths
	if p, err := ParsePeriodParam(r.URL.Query(), time.Now()); err == nil {
		months = len(core.RangeFromYearStart(p))
	}

	ledgers := 1
	if name, ok := strings.CutPrefix(path, "/api/reports/"); ok {
		for _, rep := range s.api.Reports() {
			if rep.Name == name {
				ledgers = max(len(rep.Ledgers()), 1)
				break
			}
		}
	}
	return months * ledgers
}
