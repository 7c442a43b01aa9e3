package partition

import (
	"fmt"
	"time"
)

// Set is the declared, contiguous list of monthly partitions.
// Months are consecutive so the set covers [first.start, last.end) with no gaps or overlaps.
type Set struct {
	months []Month
	byName map[string]Month
}

// NewSet declares every month from first through last inclusive.
func NewSet(first, last Month) (*Set, error) {
	if last.Before(first) {
		return nil, fmt.Errorf("partition range %s..%s is empty", first, last)
	}
	s := &Set{byName: make(map[string]Month)}
	for m := first; !last.Before(m); m = m.Next() {
		s.months = append(s.months, m)
		s.byName[m.Name()] = m
	}
	return s, nil
}

// ParseSet builds a Set from two "YYYY-MM" strings.
func ParseSet(first, last string) (*Set, error) {
	f, err := ParseMonth(first)
	if err != nil {
		return nil, err
	}
	l, err := ParseMonth(last)
	if err != nil {
		return nil, err
	}
	return NewSet(f, l)
}

// Months returns the partitions in chronological order.
func (s *Set) Months() []Month {
	out := make([]Month, len(s.months))
	copy(out, s.months)
	return out
}

// Names returns the partition table names in chronological order.
func (s *Set) Names() []string {
	names := make([]string, len(s.months))
	for i, m := range s.months {
		names[i] = m.Name()
	}
	return names
}

// Len is the number of declared partitions.
func (s *Set) Len() int {
	return len(s.months)
}

// Bounds is the overall half-open range covered by the set.
func (s *Set) Bounds() (time.Time, time.Time) {
	start, _ := s.months[0].Bounds()
	_, end := s.months[len(s.months)-1].Bounds()
	return start, end
}

// Route returns the partition owning t, or ErrOutOfRange.
func (s *Set) Route(t time.Time) (Month, error) {
	m := For(t)
	if _, ok := s.byName[m.Name()]; !ok {
		return Month{}, fmt.Errorf("%w: %s", ErrOutOfRange, t.UTC().Format(time.RFC3339))
	}
	return m, nil
}

// Lookup validates a partition table name against the declared set.
func (s *Set) Lookup(name string) (Month, error) {
	m, ok := s.byName[name]
	if !ok {
		return Month{}, fmt.Errorf("%w: %q", ErrUnknownPartition, name)
	}
	return m, nil
}

// Subset returns the declared partitions named in names, in chronological order.
// An empty names list selects every partition. The selection must be
// contiguous so that Bounds covers exactly the selected months.
func (s *Set) Subset(names []string) (*Set, error) {
	if len(names) == 0 {
		return s, nil
	}
	want := make(map[string]struct{}, len(names))
	for _, n := range names {
		if _, err := s.Lookup(n); err != nil {
			return nil, err
		}
		want[n] = struct{}{}
	}
	sub := &Set{byName: make(map[string]Month)}
	for _, m := range s.months {
		if _, ok := want[m.Name()]; !ok {
			continue
		}
		if n := len(sub.months); n > 0 && sub.months[n-1].Next() != m {
			return nil, fmt.Errorf("%w: %s does not follow %s", ErrNotContiguous, m.Name(), sub.months[n-1].Name())
		}
		sub.months = append(sub.months, m)
		sub.byName[m.Name()] = m
	}
	return sub, nil
}
