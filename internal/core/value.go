package core

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/shopspring/decimal"
)

// Value is a metric result that may be undefined. The zero Value is NoData,
// so an unset metric can never be mistaken for a computed zero.
type Value struct {
	v  float64
	ok bool
}

// NoData is the result of a formula with no defined output for its inputs.
var NoData = Value{}

// Of wraps a defined number.
func Of(f float64) Value {
	return Value{v: f, ok: true}
}

// Float returns the number and whether it is defined.
func (v Value) Float() (float64, bool) {
	return v.v, v.ok
}

// IsNoData reports whether v is the NoData sentinel.
func (v Value) IsNoData() bool {
	return !v.ok
}

// Round2 rounds a defined value to two decimals; NoData stays NoData.
func (v Value) Round2() Value {
	if !v.ok {
		return v
	}
	return Of(Round2(v.v))
}

// String renders the value with two decimals, or "n/a".
func (v Value) String() string {
	if !v.ok {
		return "n/a"
	}
	return strconv.FormatFloat(v.v, 'f', 2, 64)
}

// MarshalJSON writes NoData as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.ok {
		return []byte("null"), nil
	}
	return json.Marshal(v.v)
}

// UnmarshalJSON reads null as NoData.
func (v *Value) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*v = NoData
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*v = Of(f)
	return nil
}

// Round2 rounds half away from zero to two decimals.
func Round2(f float64) float64 {
	return decimal.NewFromFloat(f).Round(2).InexactFloat64()
}

// Sum adds values exactly and returns the float result.
func Sum(values ...float64) float64 {
	total := decimal.Zero
	for _, f := range values {
		total = total.Add(decimal.NewFromFloat(f))
	}
	return total.InexactFloat64()
}
