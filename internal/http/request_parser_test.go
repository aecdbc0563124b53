package http

import (
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"ledgerplan/internal/core"
)

func TestParsePeriodParam(t *testing.T) {
	now := time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		query   string
		want    string
		wantErr bool
	}{
		{"explicit", "period=2025-03", "2025-03", false},
		{"default current month", "", "2025-07", false},
		{"trimmed", "period=+2024-12+", "2024-12", false},
		{"bad month", "period=2025-13", "", true},
		{"wrong shape", "period=2025/03", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, _ := url.ParseQuery(tt.query)
			got, err := ParsePeriodParam(q, now)
			if tt.wantErr {
				if !errors.Is(err, core.ErrInvalidPeriodFormat) {
					t.Fatalf("expected ErrInvalidPeriodFormat, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.String() != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestParseFilterParams(t *testing.T) {
	q, _ := url.ParseQuery("category=+equipment+&customer=Acme%07")
	f := ParseFilterParams(q)
	if f.Category != "equipment" || f.Customer != "Acme" {
		t.Errorf("unexpected filter %+v", f)
	}
}

func TestDecodeReconcileRequest(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"period":"2025-03","table_key":" revenue ","formula":"completion","sources":{"actual":"revenue"}}`, false},
		{"missing period", `{"table_key":"revenue","formula":"completion"}`, true},
		{"missing table", `{"period":"2025-03","formula":"completion"}`, true},
		{"bad period", `{"period":"March","table_key":"revenue"}`, true},
		{"not json", `period=2025-03`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := DecodeReconcileRequest(strings.NewReader(tt.body))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr {
				if req.TableKey != "revenue" || req.Sources[core.InputActual] != "revenue" {
					t.Errorf("unexpected request %+v", req)
				}
			}
		})
	}
}
