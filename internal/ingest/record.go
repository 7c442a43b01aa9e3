package ingest

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	v1 "github.com/aevon-lab/clickstream/internal/api/v1"
	"github.com/aevon-lab/clickstream/internal/core/aggregation"
	"github.com/google/uuid"
)

// TimeLayout is the event_time format of the exports.
const TimeLayout = "2006-01-02 15:04:05 UTC"

// Column positions within a record.
const (
	colEventTime = iota
	colEventType
	colProductID
	colCategoryID
	colCategoryCode
	colBrand
	colPrice
	colUserID
	colUserSession
)

// ParseRecord turns one CSV record into a RawEvent. Empty optional cells
// become nil; a malformed mandatory cell is an error.
func ParseRecord(rec []string) (v1.RawEvent, error) {
	var e v1.RawEvent
	if len(rec) != len(Columns) {
		return e, fmt.Errorf("got %d columns, want %d", len(rec), len(Columns))
	}

	t, err := ParseTime(rec[colEventTime])
	if err != nil {
		return e, err
	}
	e.EventTime = t

	if e.EventType, err = v1.ParseEventType(strings.TrimSpace(rec[colEventType])); err != nil {
		return e, err
	}
	if e.ProductID, err = parseID("product_id", rec[colProductID]); err != nil {
		return e, err
	}
	if e.UserID, err = parseID("user_id", rec[colUserID]); err != nil {
		return e, err
	}

	if s := strings.TrimSpace(rec[colCategoryID]); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return e, fmt.Errorf("category_id %q: %w", s, err)
		}
		e.CategoryID = &id
	}
	e.CategoryCode = optional(rec[colCategoryCode])
	e.Brand = optional(rec[colBrand])

	if e.Price, err = aggregation.ParseDecimal(rec[colPrice]); err != nil {
		return e, fmt.Errorf("price: %w", err)
	}

	if s := strings.TrimSpace(rec[colUserSession]); s != "" {
		u, err := uuid.Parse(s)
		if err != nil {
			return e, fmt.Errorf("user_session %q: %w", s, err)
		}
		token := u.String()
		e.SessionToken = &token
	}

	if err := e.Validate(); err != nil {
		return e, err
	}
	return e, nil
}

// ParseTime parses an event_time cell. Values without the UTC suffix are
// accepted and read as UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("event_time is required")
	}
	for _, layout := range []string{TimeLayout, time.DateTime, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("event_time %q: want %q", s, TimeLayout)
}

func parseID(column, s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%s is required", column)
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s %q: %w", column, s, err)
	}
	return id, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Events parses every record of the chunk. Errors name the file and line.
func (c Chunk) Events() ([]v1.RawEvent, error) {
	events := make([]v1.RawEvent, 0, len(c.Records))
	for i, rec := range c.Records {
		e, err := ParseRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", c.File, c.LineOf(i), err)
		}
		events = append(events, e)
	}
	return events, nil
}
