package aggregation

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Aggregator combines two partial aggregates of the same key.
// Combining partials in any order must yield the same result.
type Aggregator interface {
	Apply(current, incoming decimal.Decimal) decimal.Decimal

	// SQL renders the same combination as a postgres expression over the
	// stored value and the conflicting one.
	SQL(current, incoming string) string
}

// Operators is the registry of all supported merge operators.
var Operators = map[string]Aggregator{
	OpSum: sumAgg{},
	OpMin: minAgg{},
	OpMax: maxAgg{},
	OpOr:  orAgg{},
}

type sumAgg struct{}

func (sumAgg) Apply(cur, inc decimal.Decimal) decimal.Decimal { return cur.Add(inc) }
func (sumAgg) SQL(cur, inc string) string                     { return cur + " + " + inc }

type minAgg struct{}

func (minAgg) Apply(cur, inc decimal.Decimal) decimal.Decimal { return decimal.Min(cur, inc) }
func (minAgg) SQL(cur, inc string) string                     { return "LEAST(" + cur + ", " + inc + ")" }

type maxAgg struct{}

func (maxAgg) Apply(cur, inc decimal.Decimal) decimal.Decimal { return decimal.Max(cur, inc) }
func (maxAgg) SQL(cur, inc string) string                     { return "GREATEST(" + cur + ", " + inc + ")" }

// orAgg treats zero as false and anything else as true.
type orAgg struct{}

func (orAgg) Apply(cur, inc decimal.Decimal) decimal.Decimal {
	if cur.IsZero() && inc.IsZero() {
		return decimal.Zero
	}
	return decimal.NewFromInt(1)
}
func (orAgg) SQL(cur, inc string) string { return cur + " OR " + inc }

// Column binds a stored column to the operator that merges it.
type Column struct {
	Name string
	Op   string
}

// Apply merges two partial values with the column's operator.
func (c Column) Apply(current, incoming decimal.Decimal) decimal.Decimal {
	return mustOperator(c.Op).Apply(current, incoming)
}

// SetClause renders the assignments of an ON CONFLICT ... DO UPDATE SET for
// table, one line per column, merging the stored row with EXCLUDED.
func SetClause(table string, cols []Column) string {
	lines := make([]string, len(cols))
	for i, c := range cols {
		expr := mustOperator(c.Op).SQL(table+"."+c.Name, "EXCLUDED."+c.Name)
		lines[i] = fmt.Sprintf("%s = %s", c.Name, expr)
	}
	return strings.Join(lines, ",\n")
}

func mustOperator(op string) Aggregator {
	agg, ok := Operators[op]
	if !ok {
		panic(fmt.Sprintf("aggregation: unknown operator %q", op))
	}
	return agg
}
