package projection

import (
	"context"
	"errors"
	"fmt"
	"strings"

	v1 "github.com/aevon-lab/clickstream/internal/api/v1"
	"github.com/aevon-lab/clickstream/internal/core/aggregation"
	"github.com/aevon-lab/clickstream/internal/core/storage"
)

var (
	// ErrInvalidQuery marks request validation errors that should return HTTP 400.
	ErrInvalidQuery = errors.New("invalid projection query")

	// ErrNotFound is returned when a filtered read matches no rows.
	ErrNotFound = errors.New("no matching rows")
)

// Service serves the read projections. It never touches the base tables.
type Service struct {
	reader storage.ProjectionReader
}

// NewService creates a new projection service.
func NewService(reader storage.ProjectionReader) *Service {
	return &Service{reader: reader}
}

// SalesFunnel returns the stages in funnel order with each stage's unique
// users as a percentage of the users who viewed.
func (s *Service) SalesFunnel(ctx context.Context) (*SalesFunnelResponse, error) {
	stages, err := s.reader.SalesFunnel(ctx)
	if err != nil {
		return nil, fmt.Errorf("read sales funnel: %w", err)
	}

	var viewers int64
	for _, st := range stages {
		if st.Stage == v1.EventView {
			viewers = st.UniqueUsers
		}
	}

	resp := &SalesFunnelResponse{Funnel: make([]FunnelStep, 0, len(stages))}
	for _, st := range stages {
		resp.Funnel = append(resp.Funnel, FunnelStep{
			FunnelStage:    st,
			UserConversion: aggregation.Percent(st.UniqueUsers, viewers),
		})
	}
	return resp, nil
}

// TopConverting returns the highest-converting products.
func (s *Service) TopConverting(ctx context.Context, limit int) (*ProductsResponse, error) {
	if err := validateLimit(limit); err != nil {
		return nil, err
	}
	rows, err := s.reader.TopConverting(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("read top converting products: %w", err)
	}

	items := make([]ProductItem, 0, len(rows))
	for _, r := range rows {
		item := productItem(r.ProductID, r.BrandName, r.CategoryLevel1, r.CategoryLevel2)
		item.Price = r.Price
		item.Views = &r.Views
		item.Carts = &r.Carts
		item.Purchases = r.Purchases
		item.ConversionRate = &r.ConversionRate
		item.CartRate = &r.CartRate
		items = append(items, item)
	}
	return &ProductsResponse{Products: items, TotalCount: len(items)}, nil
}

// AbandonedCarts returns the products most often left in a cart.
func (s *Service) AbandonedCarts(ctx context.Context, limit int) (*ProductsResponse, error) {
	if err := validateLimit(limit); err != nil {
		return nil, err
	}
	rows, err := s.reader.AbandonedCarts(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("read abandoned carts: %w", err)
	}

	items := make([]ProductItem, 0, len(rows))
	for _, r := range rows {
		item := productItem(r.ProductID, r.BrandName, r.CategoryLevel1, r.CategoryLevel2)
		item.Price = r.Price
		item.CartAdds = &r.CartAdds
		item.Purchases = r.Purchases
		item.AbandonedCount = &r.AbandonedCount
		item.AbandonmentRate = &r.AbandonmentRate
		items = append(items, item)
	}
	return &ProductsResponse{Products: items, TotalCount: len(items)}, nil
}

// SessionAnalytics returns the purchaser, non-purchaser and all-user segments.
func (s *Service) SessionAnalytics(ctx context.Context) (*SessionAnalyticsResponse, error) {
	segments, err := s.reader.SessionAnalytics(ctx)
	if err != nil {
		return nil, fmt.Errorf("read session analytics: %w", err)
	}
	return &SessionAnalyticsResponse{Segments: segments}, nil
}

// BrandTrends returns the daily rows of one brand. The brand match is
// case-insensitive and the response echoes the brand as requested.
func (s *Service) BrandTrends(ctx context.Context, req BrandTrendsRequest) (*BrandTrendsResponse, error) {
	req.Brand = strings.TrimSpace(req.Brand)
	if req.Brand == "" {
		return nil, invalidQueryf("brand is required")
	}
	if req.Start != nil && req.End != nil && req.End.Before(*req.Start) {
		return nil, invalidQueryf("start_date %s is after end_date %s",
			req.Start.Format(dateLayout), req.End.Format(dateLayout))
	}

	trends, err := s.reader.BrandTrends(ctx, req.Brand, req.Start, req.End)
	if err != nil {
		return nil, fmt.Errorf("read brand trends: %w", err)
	}
	if len(trends) == 0 {
		return nil, fmt.Errorf("%w: no data found for brand %q", ErrNotFound, req.Brand)
	}

	return &BrandTrendsResponse{
		Trends:       trends,
		Brand:        req.Brand,
		TotalRecords: len(trends),
		DateRange: DateRange{
			Start: trends[0].Date.Format(dateLayout),
			End:   trends[len(trends)-1].Date.Format(dateLayout),
		},
	}, nil
}

func productItem(id int64, brand, level1, level2 *string) ProductItem {
	return ProductItem{
		ProductID:   id,
		ProductName: v1.ProductName(id),
		Category:    v1.CategoryLabel(level1, level2),
		Brand:       v1.BrandLabel(brand),
	}
}

func validateLimit(limit int) error {
	if limit < 1 || limit > maxLimit {
		return invalidQueryf("limit must be between 1 and %d, got %d", maxLimit, limit)
	}
	return nil
}

func invalidQueryf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidQuery, fmt.Sprintf(format, args...))
}
