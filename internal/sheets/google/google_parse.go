package google

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"ledgerplan/internal/core"
)

// parseBudget converts a values matrix (as returned by Sheets API) into the
// entries of tableKey. The header row must name Category, Customer and Plan
// columns; a Table column, when present, selects rows for tableKey, and rows
// with an empty Table cell apply to every table.
func parseBudget(values [][]interface{}, tableKey string, year int) ([]core.BudgetEntry, error) {
	if len(values) == 0 {
		return nil, nil
	}
	headers := toStrings(values[0])
	colTable := indexOf(headers, "Table", "Table Key", "table_key")
	colCategory := indexOf(headers, "Category")
	colCustomer := indexOf(headers, "Customer")
	colPlan := indexOf(headers, "Plan", "Yearly Plan", "yearly_plan")
	if colCategory == -1 || colCustomer == -1 || colPlan == -1 {
		missing := make([]string, 0, 3)
		if colCategory == -1 {
			missing = append(missing, "Category")
		}
		if colCustomer == -1 {
			missing = append(missing, "Customer")
		}
		if colPlan == -1 {
			missing = append(missing, "Plan")
		}
		return nil, fmt.Errorf("unexpected budget header: missing %s; got headers=%v", strings.Join(missing, ","), headers)
	}

	var out []core.BudgetEntry
	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		if t := safeGet(row, colTable); t != "" && t != tableKey {
			continue
		}
		category := safeGet(row, colCategory)
		customer := safeGet(row, colCustomer)
		if category == "" && customer == "" {
			continue
		}
		plan, ok := parseAmount(safeGet(row, colPlan))
		if !ok {
			continue
		}
		out = append(out, core.BudgetEntry{
			TableKey:   tableKey,
			Category:   category,
			Customer:   customer,
			Year:       year,
			YearlyPlan: plan,
		})
	}
	return out, nil
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}

// indexOf returns the column of the first header matching any of names.
func indexOf(arr []string, names ...string) int {
	for _, name := range names {
		for i, v := range arr {
			if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(name)) {
				return i
			}
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}

// parseAmount reads a sheet number, accepting thousands separators and a
// decimal comma.
func parseAmount(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if strings.Contains(s, ",") && strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", "")
	} else {
		s = strings.ReplaceAll(s, ",", ".")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false
	}
	return d.InexactFloat64(), true
}
