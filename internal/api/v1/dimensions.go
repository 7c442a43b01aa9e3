package v1

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Category is one node of the dotted category hierarchy.
// The null category has an empty Code and no levels.
type Category struct {
	Code   string
	Level1 *string
	Level2 *string
	Level3 *string
}

// maxCategoryLevels is how many dotted segments are kept; deeper segments are dropped.
const maxCategoryLevels = 3

// SplitCategoryCode turns "appliances.kitchen.washer" into its three levels.
func SplitCategoryCode(code string) Category {
	c := Category{Code: code}
	if code == "" {
		return c
	}
	parts := strings.Split(code, ".")
	levels := []**string{&c.Level1, &c.Level2, &c.Level3}
	for i := 0; i < len(parts) && i < maxCategoryLevels; i++ {
		level := parts[i]
		*levels[i] = &level
	}
	return c
}

// IsNull reports whether c is the sentinel used for events without a category code.
func (c Category) IsNull() bool {
	return c.Code == ""
}

// UserExtremes is the first/last activity window for one user.
type UserExtremes struct {
	UserID    int64
	FirstSeen time.Time
	LastSeen  time.Time
}

// Observe widens the window to include t.
func (u *UserExtremes) Observe(t time.Time) {
	if u.FirstSeen.IsZero() || t.Before(u.FirstSeen) {
		u.FirstSeen = t
	}
	if t.After(u.LastSeen) {
		u.LastSeen = t
	}
}

// ProductProfile is the representative view of a product at extraction time.
type ProductProfile struct {
	ProductID    int64
	CategoryCode *string
	Brand        *string

	// Price is the exact mean of every observed price; nil when no row carried one.
	Price *decimal.Decimal
}

// Session is one row of the sessions table.
type Session struct {
	SessionID       int64           `json:"session_id"`
	UserID          int64           `json:"user_id"`
	Start           time.Time       `json:"session_start"`
	DurationSeconds int64           `json:"session_duration_seconds"`
	EventCount      int64           `json:"event_count"`
	HasPurchase     bool            `json:"has_purchase"`
	Revenue         decimal.Decimal `json:"total_revenue"`
}

// Dimensions is the deduplicated reference data extracted from the raw input.
// Slices are sorted by their natural key so loads are reproducible.
type Dimensions struct {
	Brands     []string
	Categories []Category
	Users      []UserExtremes
	Products   []ProductProfile
}
