package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// maxBindParams is postgres' limit on placeholders in one statement.
const maxBindParams = 65535

// execer is satisfied by *sql.Conn and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type scanner interface {
	Scan(dest ...any) error
}

// valuesClause renders "($1, $2), ($3, $4)" for rows tuples of width columns.
func valuesClause(rows, width int) string {
	var b strings.Builder
	n := 1
	for r := 0; r < rows; r++ {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for c := 0; c < width; c++ {
			if c > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "$%d", n)
			n++
		}
		b.WriteByte(')')
	}
	return b.String()
}

// rowsPerStatement caps a multi-row insert so it stays under maxBindParams.
func rowsPerStatement(width, want int) int {
	limit := maxBindParams / width
	if want <= 0 || want > limit {
		return limit
	}
	return want
}

// insertBatches executes prefix+VALUES once per slice of at most batch rows.
// row(i) returns the bind values of row i, which must have width entries.
func insertBatches(ctx context.Context, ex execer, prefix, suffix string, total, width, batch int, row func(i int) []any) (int64, error) {
	batch = rowsPerStatement(width, batch)
	var written int64
	for start := 0; start < total; start += batch {
		end := start + batch
		if end > total {
			end = total
		}
		args := make([]any, 0, (end-start)*width)
		for i := start; i < end; i++ {
			args = append(args, row(i)...)
		}
		query := prefix + valuesClause(end-start, width) + suffix
		res, err := ex.ExecContext(ctx, query, args...)
		if err != nil {
			return written, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return written, fmt.Errorf("rows affected: %w", err)
		}
		written += n
	}
	return written, nil
}

// Nullable conversions: nil pointers become SQL NULL.

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullDecimal(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func int64Ptr(ni sql.NullInt64) *int64 {
	if !ni.Valid {
		return nil
	}
	v := ni.Int64
	return &v
}

// parseDecimal parses a NUMERIC column scanned as text. NULL reads as zero.
func parseDecimal(ns sql.NullString) (decimal.Decimal, error) {
	if !ns.Valid {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(ns.String)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse value %q: %w", ns.String, err)
	}
	return d, nil
}

// countQuery runs a single-value COUNT(*) statement.
func countQuery(ctx context.Context, q interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}, query string, args ...any) (int64, error) {
	var n int64
	if err := q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
