package core

// DerivedMetric is one reconciled row: an item, a category subtotal or the
// grand total.
type DerivedMetric struct {
	Key CompoundKey `json:"key"`
	BusinessRecord
	Actual        float64     `json:"actual"`
	CurrentPeriod float64     `json:"currentPeriod"`
	Plan          float64     `json:"plan"`
	BudgetKey     CompoundKey `json:"budgetKey,omitempty"`
	Inputs        Inputs      `json:"inputs,omitempty"`
	ActualRate    Value       `json:"actualRate"`
	Deviation     Value       `json:"deviation"`
}

// Matched reports whether a budget entry was attached to the row.
func (m DerivedMetric) Matched() bool {
	return m.BudgetKey != ""
}

// Reconciliation is the result handed back to report handlers.
type Reconciliation struct {
	Report        string          `json:"report,omitempty"`
	Period        PeriodKey       `json:"period"`
	TableKey      string          `json:"tableKey"`
	Formula       FormulaName     `json:"formula"`
	Items         []DerivedMetric `json:"items"`
	Categories    []DerivedMetric `json:"categories"`
	Total         DerivedMetric   `json:"total"`
	FailedPeriods []PeriodKey     `json:"failedPeriods,omitempty"`
	Partial       bool            `json:"partial"`
}
