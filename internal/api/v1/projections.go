package v1

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Session analytics segments, in display order.
const (
	SegmentPurchasers    = "purchasers"
	SegmentNonPurchasers = "non_purchasers"
	SegmentAllUsers      = "all_users"
)

// FunnelStage is one row of the sales funnel projection.
type FunnelStage struct {
	Stage          EventType `json:"stage"`
	EventCount     int64     `json:"event_count"`
	UniqueUsers    int64     `json:"unique_users"`
	UniqueProducts int64     `json:"unique_products"`
}

// ProductConversion is one row of the conversion leaderboard.
type ProductConversion struct {
	ProductID      int64           `json:"product_id"`
	BrandName      *string         `json:"-"`
	CategoryLevel1 *string         `json:"-"`
	CategoryLevel2 *string         `json:"-"`
	Price          decimal.Decimal `json:"price"`
	Views          int64           `json:"views"`
	Carts          int64           `json:"carts"`
	Purchases      int64           `json:"purchases"`
	ConversionRate decimal.Decimal `json:"conversion_rate"`
	CartRate       decimal.Decimal `json:"cart_rate"`
}

// AbandonedCart is one row of the abandonment leaderboard.
type AbandonedCart struct {
	ProductID       int64           `json:"product_id"`
	BrandName       *string         `json:"-"`
	CategoryLevel1  *string         `json:"-"`
	CategoryLevel2  *string         `json:"-"`
	Price           decimal.Decimal `json:"price"`
	CartAdds        int64           `json:"cart_adds"`
	Purchases       int64           `json:"purchases"`
	AbandonedCount  int64           `json:"abandonment_count"`
	AbandonmentRate decimal.Decimal `json:"abandonment_rate"`
}

// SessionSegment is one row of the session analytics projection.
type SessionSegment struct {
	Segment              string          `json:"user_segment"`
	AvgDurationSeconds   decimal.Decimal `json:"avg_session_duration_seconds"`
	AvgEventsPerSession  decimal.Decimal `json:"avg_events_per_session"`
	AvgRevenuePerSession decimal.Decimal `json:"avg_revenue_per_session"`
	TotalRevenue         decimal.Decimal `json:"total_revenue"`
	SessionCount         int64           `json:"total_sessions"`
	UserCount            int64           `json:"total_users"`
}

// BrandTrend is one (date, brand) row of the brand daily trend projection.
type BrandTrend struct {
	Date        time.Time       `json:"date"`
	Brand       string          `json:"brand"`
	BrandID     *int64          `json:"brand_id,omitempty"`
	Views       int64           `json:"views"`
	Carts       int64           `json:"carts"`
	Purchases   int64           `json:"purchases"`
	UniqueUsers int64           `json:"unique_users"`
	Revenue     decimal.Decimal `json:"revenue"`
}

// CategoryLabel renders the two top category levels as "l1/l2", falling back
// to whichever level is present and then to "Uncategorized".
func CategoryLabel(level1, level2 *string) string {
	l1, l2 := deref(level1), deref(level2)
	switch {
	case l1 != "" && l2 != "":
		return l1 + "/" + l2
	case l1 != "":
		return l1
	case l2 != "":
		return l2
	}
	return "Uncategorized"
}

// BrandLabel returns the brand name or "Unknown".
func BrandLabel(brand *string) string {
	if b := deref(brand); b != "" {
		return b
	}
	return "Unknown"
}

// ProductName is the display name used while the catalogue has no titles.
func ProductName(productID int64) string {
	return fmt.Sprintf("Product %d", productID)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
