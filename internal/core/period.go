package core

import (
	"fmt"
	"strconv"
)

// PeriodKey identifies one calendar month.
type PeriodKey struct {
	Year  int
	Month int // 1-12
}

// NewPeriod builds a PeriodKey, rejecting months outside 1-12.
func NewPeriod(year, month int) (PeriodKey, error) {
	if year < 0 || year > 9999 {
		return PeriodKey{}, fmt.Errorf("%w: year %d", ErrInvalidPeriodFormat, year)
	}
	if month < 1 || month > 12 {
		return PeriodKey{}, fmt.Errorf("%w: month %d", ErrInvalidPeriodFormat, month)
	}
	return PeriodKey{Year: year, Month: month}, nil
}

// ParsePeriod parses a "YYYY-MM" token.
//
// The token must be exactly four digits, a hyphen and two digits, with the
// month between 01 and 12. Anything else fails with ErrInvalidPeriodFormat.
func ParsePeriod(token string) (PeriodKey, error) {
	if len(token) != 7 || token[4] != '-' {
		return PeriodKey{}, fmt.Errorf("%w: %q", ErrInvalidPeriodFormat, token)
	}
	for i, r := range token {
		if i == 4 {
			continue
		}
		if r < '0' || r > '9' {
			return PeriodKey{}, fmt.Errorf("%w: %q", ErrInvalidPeriodFormat, token)
		}
	}
	year, _ := strconv.Atoi(token[:4])
	month, _ := strconv.Atoi(token[5:])
	if month < 1 || month > 12 {
		return PeriodKey{}, fmt.Errorf("%w: %q", ErrInvalidPeriodFormat, token)
	}
	return PeriodKey{Year: year, Month: month}, nil
}

// MustParsePeriod is ParsePeriod for literals; it panics on bad input.
func MustParsePeriod(token string) PeriodKey {
	p, err := ParsePeriod(token)
	if err != nil {
		panic(err)
	}
	return p
}

// String formats the period as "YYYY-MM".
func (p PeriodKey) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// Index returns year*100+month, which sorts the same way as the period.
func (p PeriodKey) Index() int {
	return p.Year*100 + p.Month
}

// Compare returns -1, 0 or +1 ordering by (year, month).
func (p PeriodKey) Compare(o PeriodKey) int {
	switch a, b := p.Index(), o.Index(); {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Before reports whether p is strictly earlier than o.
func (p PeriodKey) Before(o PeriodKey) bool {
	return p.Compare(o) < 0
}

// IsZero reports whether the period was never set.
func (p PeriodKey) IsZero() bool {
	return p.Year == 0 && p.Month == 0
}

// YearStart returns January of the same year.
func (p PeriodKey) YearStart() PeriodKey {
	return PeriodKey{Year: p.Year, Month: 1}
}

// RangeFromYearStart returns every month from January of target's year up to
// and including target, in order.
func RangeFromYearStart(target PeriodKey) []PeriodKey {
	if target.Month < 1 || target.Month > 12 {
		return nil
	}
	out := make([]PeriodKey, 0, target.Month)
	for m := 1; m <= target.Month; m++ {
		out = append(out, PeriodKey{Year: target.Year, Month: m})
	}
	return out
}

// MarshalText implements encoding.TextMarshaler.
func (p PeriodKey) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *PeriodKey) UnmarshalText(b []byte) error {
	parsed, err := ParsePeriod(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
