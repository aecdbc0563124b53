package core

import (
	"encoding/json"
	"errors"
	"testing"
)

func assertValue(t *testing.T, got Value, want float64) {
	t.Helper()
	f, ok := got.Float()
	if !ok {
		t.Fatalf("got NoData, want %.2f", want)
	}
	if f != want {
		t.Fatalf("got %v, want %v", f, want)
	}
}

func TestContributionRate(t *testing.T) {
	assertValue(t, ContributionRate(100, 40), 60)
	for _, cost := range []float64{0, 40, -10, 1e9} {
		if !ContributionRate(0, cost).IsNoData() {
			t.Errorf("ContributionRate(0, %v) should be NoData", cost)
		}
	}
	assertValue(t, ContributionRate(3, 1), 66.67)
	assertValue(t, ContributionRate(100, 150), -50)
}

func TestGrossMarginMatchesContributionShape(t *testing.T) {
	assertValue(t, GrossMargin(200, 150), 25)
	if !GrossMargin(0, 1).IsNoData() {
		t.Fatalf("GrossMargin with zero income should be NoData")
	}
}

func TestNetProfit(t *testing.T) {
	got := NetProfit(1000, 300, 200, Overhead{Marketing: 50, Management: 25.5, Finance: 10})
	assertValue(t, got, 414.5)

	// Zero income still has a defined (negative) profit.
	assertValue(t, NetProfit(0, 10, 0, Overhead{}), -10)
}

func TestCompletionRatio(t *testing.T) {
	assertValue(t, CompletionRatio(50, 200), 25)
	for _, actual := range []float64{0, 50, -3} {
		if !CompletionRatio(actual, 0).IsNoData() {
			t.Errorf("CompletionRatio(%v, 0) should be NoData", actual)
		}
	}
	assertValue(t, CompletionRatio(0, 200), 0)
}

func TestDeviation(t *testing.T) {
	assertValue(t, Deviation(Of(50), Of(200)), -150)
	if !Deviation(NoData, Of(1)).IsNoData() {
		t.Errorf("NoData actual should propagate")
	}
	if !Deviation(Of(1), NoData).IsNoData() {
		t.Errorf("NoData plan should propagate")
	}
}

func TestFormulaApply(t *testing.T) {
	tests := []struct {
		name      string
		formula   FormulaName
		inputs    Inputs
		plan      float64
		planned   bool
		wantRate  Value
		wantDelta Value
	}{
		{
			name:      "completion with plan",
			formula:   FormulaCompletion,
			inputs:    Inputs{InputActual: 50},
			plan:      200,
			planned:   true,
			wantRate:  Of(25),
			wantDelta: Of(-150),
		},
		{
			name:      "completion without budget match",
			formula:   FormulaCompletion,
			inputs:    Inputs{InputActual: 50},
			wantRate:  NoData,
			wantDelta: NoData,
		},
		{
			name:      "completion with matched zero plan",
			formula:   FormulaCompletion,
			inputs:    Inputs{InputActual: 50},
			planned:   true,
			wantRate:  NoData,
			wantDelta: Of(50),
		},
		{
			name:      "completion with absent actual",
			formula:   FormulaCompletion,
			inputs:    Inputs{},
			plan:      80,
			planned:   true,
			wantRate:  Of(0),
			wantDelta: Of(-80),
		},
		{
			name:      "contribution rate against planned rate",
			formula:   FormulaContributionRate,
			inputs:    Inputs{InputActual: 100, InputCost: 40},
			plan:      55,
			planned:   true,
			wantRate:  Of(60),
			wantDelta: Of(5),
		},
		{
			name:      "contribution rate zero income",
			formula:   FormulaContributionRate,
			inputs:    Inputs{InputCost: 40},
			plan:      55,
			planned:   true,
			wantRate:  NoData,
			wantDelta: NoData,
		},
		{
			name:      "contribution rate without plan keeps rate",
			formula:   FormulaContributionRate,
			inputs:    Inputs{InputActual: 100, InputCost: 40},
			wantRate:  Of(60),
			wantDelta: NoData,
		},
		{
			name:    "net profit",
			formula: FormulaNetProfit,
			inputs: Inputs{InputActual: 500, InputDirectCost: 100, InputIndirectCost: 50,
				InputMarketing: 10, InputManagement: 20, InputFinance: 5},
			plan:      300,
			planned:   true,
			wantRate:  Of(315),
			wantDelta: Of(15),
		},
		{
			name:      "net profit without budget match keeps profit",
			formula:   FormulaNetProfit,
			inputs:    Inputs{InputActual: 500, InputDirectCost: 100},
			wantRate:  Of(400),
			wantDelta: NoData,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := LookupFormula(tt.formula)
			if err != nil {
				t.Fatalf("LookupFormula: %v", err)
			}
			got := f.Apply(tt.inputs, tt.plan, tt.planned)
			if got.ActualRate != tt.wantRate {
				t.Errorf("ActualRate = %v, want %v", got.ActualRate, tt.wantRate)
			}
			if got.Deviation != tt.wantDelta {
				t.Errorf("Deviation = %v, want %v", got.Deviation, tt.wantDelta)
			}
		})
	}
}

func TestLookupFormulaUnknown(t *testing.T) {
	if _, err := LookupFormula("ebitda"); !errors.Is(err, ErrUnknownFormula) {
		t.Fatalf("expected ErrUnknownFormula, got %v", err)
	}
	if len(Formulas()) != 4 {
		t.Fatalf("expected 4 registered formulas, got %d", len(Formulas()))
	}
}

func TestValueRoundingOnlyOnReturn(t *testing.T) {
	// 1/3 of the way: the unrounded rate feeds the deviation.
	f, _ := LookupFormula(FormulaContributionRate)
	got := f.Apply(Inputs{InputActual: 3, InputCost: 2}, 33.33, true)
	assertValue(t, got.ActualRate, 33.33)
	// 33.333.. - 33.33 = 0.00333.. rounds to 0, not the difference of rounded values.
	assertValue(t, got.Deviation, 0)
}

func TestValueJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		A Value `json:"a"`
		B Value `json:"b"`
	}{A: Of(12.5), B: NoData})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"a":12.5,"b":null}` {
		t.Fatalf("marshal = %s", b)
	}

	var got struct {
		A Value `json:"a"`
		B Value `json:"b"`
	}
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.A != Of(12.5) || !got.B.IsNoData() {
		t.Fatalf("unmarshal = %+v", got)
	}
	if NoData.String() != "n/a" || Of(0).String() != "0.00" {
		t.Errorf("String() rendering wrong: %q %q", NoData.String(), Of(0).String())
	}
}

func TestRound2(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{1.005, 1.01},
		{-1.005, -1.01},
		{2.675, 2.68},
		{10, 10},
	}
	for _, tt := range tests {
		if got := Round2(tt.in); got != tt.want {
			t.Errorf("Round2(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
