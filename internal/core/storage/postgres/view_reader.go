package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	v1 "github.com/aevon-lab/clickstream/internal/api/v1"
)

// ViewReader implements storage.ProjectionReader on top of the materialized projections.
type ViewReader struct {
	pool *Pool
}

// NewViewReader creates a reader sharing the given pool.
func NewViewReader(pool *Pool) *ViewReader {
	return &ViewReader{pool: pool}
}

// query runs a read on a pooled connection and hands each row to scan.
func (r *ViewReader) query(ctx context.Context, what string, scan func(scanner) error, query string, args ...any) error {
	return r.pool.WithConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("query %s: %w", what, err)
		}
		defer rows.Close()

		for rows.Next() {
			if err := scan(rows); err != nil {
				return fmt.Errorf("scan %s: %w", what, err)
			}
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate %s: %w", what, err)
		}
		return nil
	})
}

// SalesFunnel returns the funnel stages in view, cart, purchase order.
func (r *ViewReader) SalesFunnel(ctx context.Context) ([]v1.FunnelStage, error) {
	stages := []v1.FunnelStage{}
	err := r.query(ctx, "sales funnel", func(row scanner) error {
		var (
			s         v1.FunnelStage
			eventType string
		)
		if err := row.Scan(&eventType, &s.EventCount, &s.UniqueUsers, &s.UniqueProducts); err != nil {
			return err
		}
		s.Stage = v1.EventType(eventType)
		stages = append(stages, s)
		return nil
	}, querySalesFunnel)
	if err != nil {
		return nil, err
	}
	return stages, nil
}

// TopConverting returns the best converting products, at most limit of them.
func (r *ViewReader) TopConverting(ctx context.Context, limit int) ([]v1.ProductConversion, error) {
	products := []v1.ProductConversion{}
	err := r.query(ctx, "top converting products", func(row scanner) error {
		var (
			p                        v1.ProductConversion
			brand, level1, level2    sql.NullString
			price, conversion, carts sql.NullString
			err                      error
		)
		if err := row.Scan(&p.ProductID, &brand, &level1, &level2, &price,
			&p.Views, &p.Carts, &p.Purchases, &conversion, &carts); err != nil {
			return err
		}
		p.BrandName, p.CategoryLevel1, p.CategoryLevel2 = stringPtr(brand), stringPtr(level1), stringPtr(level2)
		if p.Price, err = parseDecimal(price); err != nil {
			return err
		}
		if p.ConversionRate, err = parseDecimal(conversion); err != nil {
			return err
		}
		if p.CartRate, err = parseDecimal(carts); err != nil {
			return err
		}
		products = append(products, p)
		return nil
	}, queryTopConverting, limit)
	if err != nil {
		return nil, err
	}
	return products, nil
}

// AbandonedCarts returns the most abandoned products, at most limit of them.
func (r *ViewReader) AbandonedCarts(ctx context.Context, limit int) ([]v1.AbandonedCart, error) {
	products := []v1.AbandonedCart{}
	err := r.query(ctx, "abandoned carts", func(row scanner) error {
		var (
			p                     v1.AbandonedCart
			brand, level1, level2 sql.NullString
			price, rate           sql.NullString
			err                   error
		)
		if err := row.Scan(&p.ProductID, &brand, &level1, &level2, &price,
			&p.CartAdds, &p.Purchases, &p.AbandonedCount, &rate); err != nil {
			return err
		}
		p.BrandName, p.CategoryLevel1, p.CategoryLevel2 = stringPtr(brand), stringPtr(level1), stringPtr(level2)
		if p.Price, err = parseDecimal(price); err != nil {
			return err
		}
		if p.AbandonmentRate, err = parseDecimal(rate); err != nil {
			return err
		}
		products = append(products, p)
		return nil
	}, queryAbandonedCarts, limit)
	if err != nil {
		return nil, err
	}
	return products, nil
}

// SessionAnalytics returns the purchaser, non-purchaser and overall segments.
func (r *ViewReader) SessionAnalytics(ctx context.Context) ([]v1.SessionSegment, error) {
	segments := []v1.SessionSegment{}
	err := r.query(ctx, "session analytics", func(row scanner) error {
		var (
			s                                  v1.SessionSegment
			duration, events, avgRev, totalRev sql.NullString
			err                                error
		)
		if err := row.Scan(&s.Segment, &duration, &events, &avgRev, &totalRev, &s.SessionCount, &s.UserCount); err != nil {
			return err
		}
		if s.AvgDurationSeconds, err = parseDecimal(duration); err != nil {
			return err
		}
		if s.AvgEventsPerSession, err = parseDecimal(events); err != nil {
			return err
		}
		if s.AvgRevenuePerSession, err = parseDecimal(avgRev); err != nil {
			return err
		}
		if s.TotalRevenue, err = parseDecimal(totalRev); err != nil {
			return err
		}
		segments = append(segments, s)
		return nil
	}, querySessionAnalytics)
	if err != nil {
		return nil, err
	}
	return segments, nil
}

// BrandTrends returns the daily rows of one brand, oldest first.
// A nil start or end leaves that side of the range open.
func (r *ViewReader) BrandTrends(ctx context.Context, brand string, start, end *time.Time) ([]v1.BrandTrend, error) {
	trends := []v1.BrandTrend{}
	err := r.query(ctx, "brand trends", func(row scanner) error {
		var (
			t       v1.BrandTrend
			brandID sql.NullInt64
			revenue sql.NullString
			err     error
		)
		if err := row.Scan(&t.Date, &t.Brand, &brandID, &t.Views, &t.Carts, &t.Purchases, &t.UniqueUsers, &revenue); err != nil {
			return err
		}
		t.BrandID = int64Ptr(brandID)
		if t.Revenue, err = parseDecimal(revenue); err != nil {
			return err
		}
		trends = append(trends, t)
		return nil
	}, queryBrandTrends, brand, nullDate(start), nullDate(end))
	if err != nil {
		return nil, err
	}
	return trends, nil
}

func nullDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(partitionBoundFormat)
}
