package projection

import (
	"time"

	v1 "github.com/aevon-lab/clickstream/internal/api/v1"
	"github.com/shopspring/decimal"
)

const (
	defaultLimit = 20
	maxLimit     = 100

	dateLayout = "2006-01-02"
)

// FunnelStep is one funnel stage with its share of the users who viewed.
type FunnelStep struct {
	v1.FunnelStage
	UserConversion decimal.Decimal `json:"user_conversion_pct"`
}

// SalesFunnelResponse is the body of GET /api/sales-funnel.
type SalesFunnelResponse struct {
	Funnel []FunnelStep `json:"funnel"`
}

// ProductItem is one product of a leaderboard in display form.
type ProductItem struct {
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Category    string          `json:"category"`
	Brand       string          `json:"brand"`
	Price       decimal.Decimal `json:"price"`

	Views          *int64           `json:"views,omitempty"`
	Carts          *int64           `json:"carts,omitempty"`
	CartAdds       *int64           `json:"cart_adds,omitempty"`
	Purchases      int64            `json:"purchases"`
	ConversionRate *decimal.Decimal `json:"conversion_rate,omitempty"`
	CartRate       *decimal.Decimal `json:"cart_rate,omitempty"`

	AbandonedCount  *int64           `json:"abandonment_count,omitempty"`
	AbandonmentRate *decimal.Decimal `json:"abandonment_rate,omitempty"`
}

// ProductsResponse is the body of both product leaderboards.
type ProductsResponse struct {
	Products   []ProductItem `json:"products"`
	TotalCount int           `json:"total_count"`
}

// SessionAnalyticsResponse is the body of GET /api/sessions/analytics.
type SessionAnalyticsResponse struct {
	Segments []v1.SessionSegment `json:"segments"`
}

// BrandTrendsRequest holds the validated trend query.
type BrandTrendsRequest struct {
	Brand string
	Start *time.Time
	End   *time.Time
}

// DateRange is the first and last date present in a trend response.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// BrandTrendsResponse is the body of GET /api/brands/trends.
type BrandTrendsResponse struct {
	Trends       []v1.BrandTrend `json:"trends"`
	Brand        string          `json:"brand"`
	TotalRecords int             `json:"total_records"`
	DateRange    DateRange       `json:"date_range"`
}
