package partition

import (
	"errors"
	"fmt"
	"time"
)

// ParentTable is the range-partitioned events table every partition attaches to.
const ParentTable = "events"

var (
	// ErrOutOfRange is returned when an event_time falls outside every declared partition.
	ErrOutOfRange = errors.New("event time outside declared partitions")

	// ErrUnknownPartition is returned for partition names that are not part of the declared set.
	ErrUnknownPartition = errors.New("unknown partition")

	// ErrNotContiguous is returned for a partition selection with a gap.
	ErrNotContiguous = errors.New("partitions are not contiguous")
)

// Month is one calendar-month range partition.
type Month struct {
	Year  int
	Month time.Month
}

// For returns the partition owning t.
// Pure function of the timestamp: the same instant always maps to the same month.
func For(t time.Time) Month {
	t = t.UTC()
	return Month{Year: t.Year(), Month: t.Month()}
}

// ParseMonth parses "YYYY-MM".
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Month{}, fmt.Errorf("invalid partition month %q (want YYYY-MM): %w", s, err)
	}
	return For(t), nil
}

// Name is the partition table name, e.g. events_2019_10.
func (m Month) Name() string {
	return fmt.Sprintf("%s_%04d_%02d", ParentTable, m.Year, int(m.Month))
}

// String renders the month as YYYY-MM.
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Bounds returns the half-open range [start, end) covered by the partition.
func (m Month) Bounds() (time.Time, time.Time) {
	start := time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// Next returns the following month.
func (m Month) Next() Month {
	_, end := m.Bounds()
	return For(end)
}

// Before reports whether m precedes o.
func (m Month) Before(o Month) bool {
	if m.Year != o.Year {
		return m.Year < o.Year
	}
	return m.Month < o.Month
}
