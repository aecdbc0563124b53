package core

import (
	"errors"
	"strings"
)

const (
	CategoryEquipment   = "equipment"
	CategoryComponent   = "component"
	CategoryEngineering = "engineering"
	CategoryRevenue     = "revenue"
	CategoryNonMain     = "non-main"
)

// NonMainBusinessTable is the budget table key whose entries are also indexed
// by bare customer, because that domain has no category axis.
const NonMainBusinessTable = "non_main_business"

// CategoryPrecedence is the fixed display order of budget categories.
var CategoryPrecedence = []string{
	CategoryEquipment,
	CategoryComponent,
	CategoryEngineering,
	CategoryRevenue,
	CategoryNonMain,
}

type (
	// CompoundKey is a map index derived from record fields. It is never a
	// domain identity on its own.
	CompoundKey string

	// BusinessRecord holds the fields a record may use to identify what it
	// is about. Ledgers are inconsistent about which ones they fill.
	BusinessRecord struct {
		Category     string `json:"category,omitempty"`
		Customer     string `json:"customer,omitempty"`
		ProjectName  string `json:"projectName,omitempty"`
		CustomerType string `json:"customerType,omitempty"`
		Segment      string `json:"segment,omitempty"`
	}

	// DeltaRecord is one ledger entry carrying the current-period-only value.
	DeltaRecord struct {
		Period PeriodKey `json:"period"`
		BusinessRecord
		Value float64 `json:"value"`
	}

	// BudgetEntry is the yearly plan for one (category, customer, year).
	BudgetEntry struct {
		TableKey   string  `json:"tableKey,omitempty"`
		Category   string  `json:"category,omitempty"`
		Customer   string  `json:"customer,omitempty"`
		Year       int     `json:"year"`
		YearlyPlan float64 `json:"yearlyPlan"`
	}

	// Filter restricts reads to one category and/or customer. Empty fields
	// match everything.
	Filter struct {
		Category string `json:"category,omitempty"`
		Customer string `json:"customer,omitempty"`
	}

	// AggregateResult is the year-to-date rollup of one exact key.
	AggregateResult struct {
		Key CompoundKey `json:"key"`
		BusinessRecord
		CumulativeActual    float64 `json:"cumulativeActual"`
		CurrentPeriodActual float64 `json:"currentPeriodActual"`
	}

	// RollupResult is the output of one rollup. FailedPeriods lists months
	// whose read failed and were counted as zero.
	RollupResult struct {
		Ledger        string            `json:"ledger"`
		Period        PeriodKey         `json:"period"`
		Items         []AggregateResult `json:"items"`
		FailedPeriods []PeriodKey       `json:"failedPeriods,omitempty"`
	}
)

var (
	ErrInvalidPeriodFormat = errors.New("invalid period format")
	ErrLedgerUnavailable   = errors.New("ledger unavailable")
	ErrNoKeyFields         = errors.New("record has no key fields")
	ErrUnknownFormula      = errors.New("unknown formula")
	ErrMissingSource       = errors.New("missing ledger source")
)

// NewCompoundKey joins category and customer with a hyphen. When one side is
// blank the other is used alone.
func NewCompoundKey(category, customer string) CompoundKey {
	category = strings.TrimSpace(category)
	customer = strings.TrimSpace(customer)
	switch {
	case category == "":
		return CompoundKey(customer)
	case customer == "":
		return CompoundKey(category)
	default:
		return CompoundKey(category + "-" + customer)
	}
}

// Key returns the exact rollup key of the record: category-customer, or when
// both are blank the most specific of segment-customerType, customerType,
// projectName and segment. It is empty only for an empty record.
func (r BusinessRecord) Key() CompoundKey {
	if k := NewCompoundKey(r.Category, r.Customer); k != "" {
		return k
	}
	segment := strings.TrimSpace(r.Segment)
	customerType := strings.TrimSpace(r.CustomerType)
	switch {
	case segment != "" && customerType != "":
		return CompoundKey(segment + "-" + customerType)
	case customerType != "":
		return CompoundKey(customerType)
	case !blank(r.ProjectName):
		return CompoundKey(strings.TrimSpace(r.ProjectName))
	default:
		return CompoundKey(segment)
	}
}

// IsEmpty reports whether every field is blank.
func (r BusinessRecord) IsEmpty() bool {
	return blank(r.Category) && blank(r.Customer) && blank(r.ProjectName) &&
		blank(r.CustomerType) && blank(r.Segment)
}

// Match reports whether the record passes the filter.
func (f Filter) Match(r BusinessRecord) bool {
	if c := strings.TrimSpace(f.Category); c != "" && c != strings.TrimSpace(r.Category) {
		return false
	}
	if c := strings.TrimSpace(f.Customer); c != "" && c != strings.TrimSpace(r.Customer) {
		return false
	}
	return true
}

// IsZero reports whether the filter matches everything.
func (f Filter) IsZero() bool {
	return blank(f.Category) && blank(f.Customer)
}

// Partial reports whether some months could not be read.
func (r *RollupResult) Partial() bool {
	return len(r.FailedPeriods) > 0
}

// CumulativeTotal sums the year-to-date actual of every item; 0 when there
// are none.
func (r *RollupResult) CumulativeTotal() float64 {
	values := make([]float64, len(r.Items))
	for i, it := range r.Items {
		values[i] = it.CumulativeActual
	}
	return Sum(values...)
}

// CategoryRank returns the precedence position of a category; unknown
// categories rank after all known ones.
func CategoryRank(category string) int {
	category = strings.TrimSpace(category)
	for i, c := range CategoryPrecedence {
		if strings.EqualFold(c, category) {
			return i
		}
	}
	return len(CategoryPrecedence)
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
