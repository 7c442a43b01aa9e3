package v1

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// EventType is the kind of shopper interaction recorded in the clickstream.
type EventType string

const (
	EventView     EventType = "view"
	EventCart     EventType = "cart"
	EventPurchase EventType = "purchase"
)

// FunnelOrder lists event types in funnel order (view -> cart -> purchase).
var FunnelOrder = []EventType{EventView, EventCart, EventPurchase}

// ParseEventType maps the textual event_type column onto an EventType.
func ParseEventType(s string) (EventType, error) {
	switch EventType(s) {
	case EventView, EventCart, EventPurchase:
		return EventType(s), nil
	}
	return "", fmt.Errorf("unknown event_type %q", s)
}

// RawEvent is one row of the monthly clickstream exports.
// Pointer fields are optional columns; nil means the source cell was empty.
type RawEvent struct {
	// EventTime decides the partition the event lands in.
	EventTime time.Time `json:"event_time"`

	EventType EventType `json:"event_type"`

	ProductID  int64  `json:"product_id"`
	CategoryID *int64 `json:"category_id,omitempty"`

	// CategoryCode is a dotted hierarchy such as "electronics.smartphone".
	CategoryCode *string `json:"category_code,omitempty"`

	Brand *string          `json:"brand,omitempty"`
	Price *decimal.Decimal `json:"price,omitempty"`

	UserID int64 `json:"user_id"`

	// SessionToken is the user_session UUID. Events without one are skipped
	// when sessions are derived.
	SessionToken *string `json:"user_session,omitempty"`
}

// Validate checks the mandatory columns.
func (e *RawEvent) Validate() error {
	if e.EventTime.IsZero() {
		return fmt.Errorf("event_time is required")
	}
	if _, err := ParseEventType(string(e.EventType)); err != nil {
		return err
	}
	if e.ProductID <= 0 {
		return fmt.Errorf("product_id must be > 0")
	}
	if e.UserID <= 0 {
		return fmt.Errorf("user_id must be > 0")
	}
	if e.Price != nil && e.Price.IsNegative() {
		return fmt.Errorf("price must be >= 0, got %s", e.Price.String())
	}
	return nil
}

// HasSession reports whether the event takes part in session derivation.
func (e *RawEvent) HasSession() bool {
	return e.SessionToken != nil && *e.SessionToken != ""
}

// Revenue is the price for purchases and zero otherwise.
func (e *RawEvent) Revenue() decimal.Decimal {
	if e.EventType != EventPurchase || e.Price == nil {
		return decimal.Zero
	}
	return *e.Price
}
