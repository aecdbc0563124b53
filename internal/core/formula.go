package core

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Input names one figure a formula consumes. Each input is fed by a ledger.
type Input string

const (
	InputActual       Input = "actual" // income for the margin and profit formulas
	InputCost         Input = "cost"
	InputDirectCost   Input = "direct_cost"
	InputIndirectCost Input = "indirect_cost"
	InputMarketing    Input = "marketing"
	InputManagement   Input = "management"
	InputFinance      Input = "finance"
)

// Inputs maps each input to its cumulative figure. Missing inputs read as 0.
type Inputs map[Input]float64

// Get returns the figure for in, or 0.
func (i Inputs) Get(in Input) float64 {
	return i[in]
}

// Add accumulates other into i exactly.
func (i Inputs) Add(other Inputs) {
	for k, v := range other {
		i[k] = Sum(i[k], v)
	}
}

// Rounded returns a copy with every figure rounded to two decimals.
func (i Inputs) Rounded() Inputs {
	out := make(Inputs, len(i))
	for k, v := range i {
		out[k] = Round2(v)
	}
	return out
}

// Overhead is the allocated share of period expenses.
type Overhead struct {
	Marketing  float64
	Management float64
	Finance    float64
}

type FormulaName string

const (
	FormulaCompletion       FormulaName = "completion"
	FormulaContributionRate FormulaName = "contribution_rate"
	FormulaGrossMargin      FormulaName = "gross_margin"
	FormulaNetProfit        FormulaName = "net_profit"
)

// Formula describes how a report derives its metric.
//
// A plan-relative formula (completion) measures actual against plan, so it
// has no output without a plan. The others produce their metric from the
// inputs alone and only use the plan for the deviation.
type Formula struct {
	Name         FormulaName `json:"name"`
	Description  string      `json:"description"`
	Requires     []Input     `json:"requires"`
	PlanRelative bool        `json:"planRelative"`

	measure func(Inputs) Value
}

// Outcome holds the rounded metric and deviation of one row.
type Outcome struct {
	ActualRate Value
	Deviation  Value
}

var hundred = decimal.NewFromInt(100)

var formulas = map[FormulaName]Formula{
	FormulaCompletion: {
		Name:         FormulaCompletion,
		Description:  "actual / plan * 100",
		Requires:     []Input{InputActual},
		PlanRelative: true,
		measure: func(in Inputs) Value {
			return Of(in.Get(InputActual))
		},
	},
	FormulaContributionRate: {
		Name:        FormulaContributionRate,
		Description: "(income - cost) / income * 100, cost = direct cost",
		Requires:    []Input{InputActual, InputCost},
		measure: func(in Inputs) Value {
			return marginRate(in.Get(InputActual), in.Get(InputCost))
		},
	},
	FormulaGrossMargin: {
		Name:        FormulaGrossMargin,
		Description: "(income - cost) / income * 100, cost = direct + allocated overhead",
		Requires:    []Input{InputActual, InputCost},
		measure: func(in Inputs) Value {
			return marginRate(in.Get(InputActual), in.Get(InputCost))
		},
	},
	FormulaNetProfit: {
		Name:        FormulaNetProfit,
		Description: "income - direct - indirect - marketing - management - finance",
		Requires: []Input{InputActual, InputDirectCost, InputIndirectCost,
			InputMarketing, InputManagement, InputFinance},
		measure: func(in Inputs) Value {
			return netProfit(in.Get(InputActual), in.Get(InputDirectCost), in.Get(InputIndirectCost), Overhead{
				Marketing:  in.Get(InputMarketing),
				Management: in.Get(InputManagement),
				Finance:    in.Get(InputFinance),
			})
		},
	},
}

// LookupFormula returns the registered formula with the given name.
func LookupFormula(name FormulaName) (Formula, error) {
	f, ok := formulas[name]
	if !ok {
		return Formula{}, fmt.Errorf("%w: %q", ErrUnknownFormula, name)
	}
	return f, nil
}

// Formulas lists the registry in a stable order.
func Formulas() []Formula {
	names := []FormulaName{FormulaCompletion, FormulaContributionRate, FormulaGrossMargin, FormulaNetProfit}
	out := make([]Formula, 0, len(names))
	for _, n := range names {
		out = append(out, formulas[n])
	}
	return out
}

// Apply computes the metric and deviation for one row. planned reports
// whether a budget entry matched; without one the deviation is NoData.
func (f Formula) Apply(in Inputs, plan float64, planned bool) Outcome {
	measured := f.measure(in)

	rate := measured
	if f.PlanRelative {
		rate = NoData
		if planned {
			if a, ok := measured.Float(); ok {
				rate = completionRatio(a, plan)
			}
		}
	}

	dev := NoData
	if planned {
		dev = deviation(measured, Of(plan))
	}
	return Outcome{ActualRate: rate.Round2(), Deviation: dev.Round2()}
}

// ContributionRate returns (income - cost) / income * 100, or NoData when
// income is zero.
func ContributionRate(income, cost float64) Value {
	return marginRate(income, cost).Round2()
}

// GrossMargin has the same shape as ContributionRate; the caller passes the
// cost basis it wants measured.
func GrossMargin(income, cost float64) Value {
	return marginRate(income, cost).Round2()
}

// NetProfit is always defined, even with zero income.
func NetProfit(income, directCost, indirectCost float64, overhead Overhead) Value {
	return netProfit(income, directCost, indirectCost, overhead).Round2()
}

// CompletionRatio returns actual / plan * 100, or NoData when plan is zero.
func CompletionRatio(actual, plan float64) Value {
	return completionRatio(actual, plan).Round2()
}

// Deviation returns actual - plan, propagating NoData from either side.
func Deviation(actual, plan Value) Value {
	return deviation(actual, plan).Round2()
}

func marginRate(income, cost float64) Value {
	inc := decimal.NewFromFloat(income)
	if inc.IsZero() {
		return NoData
	}
	rate := inc.Sub(decimal.NewFromFloat(cost)).Div(inc).Mul(hundred)
	return Of(rate.InexactFloat64())
}

func netProfit(income, directCost, indirectCost float64, o Overhead) Value {
	p := decimal.NewFromFloat(income).
		Sub(decimal.NewFromFloat(directCost)).
		Sub(decimal.NewFromFloat(indirectCost)).
		Sub(decimal.NewFromFloat(o.Marketing)).
		Sub(decimal.NewFromFloat(o.Management)).
		Sub(decimal.NewFromFloat(o.Finance))
	return Of(p.InexactFloat64())
}

func completionRatio(actual, plan float64) Value {
	p := decimal.NewFromFloat(plan)
	if p.IsZero() {
		return NoData
	}
	return Of(decimal.NewFromFloat(actual).Div(p).Mul(hundred).InexactFloat64())
}

func deviation(actual, plan Value) Value {
	a, ok := actual.Float()
	if !ok {
		return NoData
	}
	p, ok := plan.Float()
	if !ok {
		return NoData
	}
	return Of(decimal.NewFromFloat(a).Sub(decimal.NewFromFloat(p)).InexactFloat64())
}
