package ledger

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"ledgerplan/internal/core"
)

// Entry is a delta record tagged with the ledger it belongs to.
type Entry struct {
	Ledger string
	core.DeltaRecord
}

// ReadDeltasCSV decodes delta rows. The header must contain period and value
// plus ledger unless defaultLedger is set; category, customer, project_name,
// customer_type and segment are optional.
func ReadDeltasCSV(r io.Reader, defaultLedger string) ([]Entry, error) {
	rows, cols, err := readCSV(r)
	if err != nil {
		return nil, err
	}
	for _, required := range []string{"period", "value"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("deltas csv: missing column %q", required)
		}
	}
	if _, ok := cols["ledger"]; !ok && defaultLedger == "" {
		return nil, errors.New("deltas csv: missing column \"ledger\"")
	}

	out := make([]Entry, 0, len(rows))
	for i, row := range rows {
		line := i + 2
		period, err := core.ParsePeriod(field(row, cols, "period"))
		if err != nil {
			return nil, fmt.Errorf("deltas csv line %d: %w", line, err)
		}
		value, err := parseAmount(field(row, cols, "value"))
		if err != nil {
			return nil, fmt.Errorf("deltas csv line %d: %w", line, err)
		}
		ledgerName := field(row, cols, "ledger")
		if ledgerName == "" {
			ledgerName = defaultLedger
		}
		rec := core.BusinessRecord{
			Category:     field(row, cols, "category"),
			Customer:     field(row, cols, "customer"),
			ProjectName:  field(row, cols, "project_name"),
			CustomerType: field(row, cols, "customer_type"),
			Segment:      field(row, cols, "segment"),
		}
		if rec.Category == "" && rec.Customer == "" {
			return nil, fmt.Errorf("deltas csv line %d: category and customer are both empty", line)
		}
		out = append(out, Entry{
			Ledger:      ledgerName,
			DeltaRecord: core.DeltaRecord{Period: period, BusinessRecord: rec, Value: value},
		})
	}
	return out, nil
}

// ReadBudgetCSV decodes budget rows with columns year, yearly_plan and
// optionally table_key, category and customer.
func ReadBudgetCSV(r io.Reader, defaultTable string) ([]core.BudgetEntry, error) {
	rows, cols, err := readCSV(r)
	if err != nil {
		return nil, err
	}
	for _, required := range []string{"year", "yearly_plan"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("budget csv: missing column %q", required)
		}
	}
	if _, ok := cols["table_key"]; !ok && defaultTable == "" {
		return nil, errors.New("budget csv: missing column \"table_key\"")
	}

	out := make([]core.BudgetEntry, 0, len(rows))
	for i, row := range rows {
		line := i + 2
		year, err := strconv.Atoi(field(row, cols, "year"))
		if err != nil {
			return nil, fmt.Errorf("budget csv line %d: invalid year: %w", line, err)
		}
		plan, err := parseAmount(field(row, cols, "yearly_plan"))
		if err != nil {
			return nil, fmt.Errorf("budget csv line %d: %w", line, err)
		}
		table := field(row, cols, "table_key")
		if table == "" {
			table = defaultTable
		}
		e := core.BudgetEntry{
			TableKey:   table,
			Category:   field(row, cols, "category"),
			Customer:   field(row, cols, "customer"),
			Year:       year,
			YearlyPlan: plan,
		}
		if e.Category == "" && e.Customer == "" {
			return nil, fmt.Errorf("budget csv line %d: category and customer are both empty", line)
		}
		out = append(out, e)
	}
	return out, nil
}

func readCSV(r io.Reader) ([][]string, map[string]int, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	cr.Comment = '#'
	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil, errors.New("read csv: missing header")
	}
	cols := make(map[string]int, len(records[0]))
	for i, h := range records[0] {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return records[1:], cols, nil
}

func field(row []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// parseAmount accepts a dot or comma decimal separator.
func parseAmount(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return 0, errors.New("empty amount")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	return f, nil
}
