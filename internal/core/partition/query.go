package partition

import (
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// TableMarker is replaced by a quoted partition identifier when a template is rendered.
const TableMarker = "{{partition}}"

// Table validates name against the declared set and returns it quoted for SQL.
// Partition names are the only identifiers spliced into statements, so every
// one of them goes through this check first.
func (s *Set) Table(name string) (string, error) {
	if _, err := s.Lookup(name); err != nil {
		return "", err
	}
	return pq.QuoteIdentifier(name), nil
}

// Render substitutes TableMarker in tmpl with the quoted name of m.
func (s *Set) Render(m Month, tmpl string) (string, error) {
	if !strings.Contains(tmpl, TableMarker) {
		return "", fmt.Errorf("query template has no %s marker", TableMarker)
	}
	table, err := s.Table(m.Name())
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(tmpl, TableMarker, table), nil
}

// UnionAll renders tmpl once per declared partition and joins the parts with
// UNION ALL, preserving chronological order.
func (s *Set) UnionAll(tmpl string) (string, error) {
	parts := make([]string, 0, len(s.months))
	for _, m := range s.months {
		part, err := s.Render(m, tmpl)
		if err != nil {
			return "", err
		}
		parts = append(parts, strings.TrimSpace(part))
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("no partitions declared")
	}
	return strings.Join(parts, "\nUNION ALL\n"), nil
}
