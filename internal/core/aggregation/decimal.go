package aggregation

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// percentScale matches ROUND(x, 2) in the projection SQL.
const percentScale = 2

var hundred = decimal.NewFromInt(100)

// ParseDecimal parses an optional numeric cell. Empty input yields nil.
func ParseDecimal(s string) (*decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("parse decimal %q: %w", s, err)
	}
	return &d, nil
}

// Percent returns part/whole*100 rounded half-up to two places, and zero when whole is zero.
func Percent(part, whole int64) decimal.Decimal {
	if whole == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(part).
		Mul(hundred).
		DivRound(decimal.NewFromInt(whole), percentScale+8).
		Round(percentScale)
}

// Mean is an exact running mean: it keeps the decimal sum and the row count
// so the result does not depend on how rows were batched.
type Mean struct {
	sum   decimal.Decimal
	count int64
}

// Add folds one observation into the mean.
func (m *Mean) Add(v decimal.Decimal) {
	m.sum = Operators[OpSum].Apply(m.sum, v)
	m.count++
}

// Merge combines two partial means.
func (m *Mean) Merge(o Mean) {
	if o.count == 0 {
		return
	}
	m.sum = Operators[OpSum].Apply(m.sum, o.sum)
	m.count += o.count
}

// Count is the number of observations.
func (m Mean) Count() int64 {
	return m.count
}

// Value returns the mean rounded to two places (the DECIMAL(10,2) column scale).
// ok is false when nothing was observed.
func (m Mean) Value() (decimal.Decimal, bool) {
	if m.count == 0 {
		return decimal.Zero, false
	}
	return m.sum.DivRound(decimal.NewFromInt(m.count), percentScale), true
}
