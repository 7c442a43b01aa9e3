package postgres

import (
	"fmt"

	"github.com/aevon-lab/clickstream/internal/core/partition"
)

// Projection names.
const (
	ViewSalesFunnel        = "mv_sales_funnel"
	ViewProductConversion  = "mv_product_conversion_rates"
	ViewAbandonedCarts     = "mv_abandoned_carts"
	ViewSessionAnalytics   = "mv_user_session_analytics"
	ViewBrandTrends        = "mv_brand_popularity_trends"
	defaultMinViews        = 100
	defaultMinCarts        = 10
	defaultProjectionLimit = 1000
)

// ProjectionThresholds tunes the leaderboard projections. A negative
// threshold takes its default; zero is honoured as given.
type ProjectionThresholds struct {
	// MinViews is the smallest view count a product needs to be ranked by conversion.
	MinViews int
	// MinCarts is the cart count a product must exceed to be ranked by abandonment.
	MinCarts int
	// TopN caps both leaderboards.
	TopN int
}

func (t ProjectionThresholds) normalized() ProjectionThresholds {
	n := t
	if n.MinViews < 0 {
		n.MinViews = defaultMinViews
	}
	if n.MinCarts < 0 {
		n.MinCarts = defaultMinCarts
	}
	if n.TopN <= 0 {
		n.TopN = defaultProjectionLimit
	}
	return n
}

// viewDef is one projection: its SELECT and the indexes built on it.
// The first index is unique, which REFRESH ... CONCURRENTLY requires.
type viewDef struct {
	name    string
	query   string
	indexes []string
}

const (
	funnelPartitionSelect = `SELECT event_type, user_id, product_id FROM {{partition}} WHERE event_type IN ('view', 'cart', 'purchase')`

	funnelView = `
SELECT
	event_type,
	COUNT(*) AS event_count,
	COUNT(DISTINCT user_id) AS unique_users,
	COUNT(DISTINCT product_id) AS unique_products
FROM (
%s
) combined
GROUP BY event_type`

	conversionView = `
SELECT
	p.product_id,
	p.brand_id,
	b.brand_name,
	p.category_id,
	c.category_level_1,
	c.category_level_2,
	p.current_price,
	p.total_views,
	p.total_carts,
	p.total_purchases,
	CASE WHEN p.total_views > 0
		THEN ROUND(p.total_purchases::NUMERIC / p.total_views::NUMERIC * 100, 2)
		ELSE 0
	END AS conversion_rate,
	CASE WHEN p.total_views > 0
		THEN ROUND(p.total_carts::NUMERIC / p.total_views::NUMERIC * 100, 2)
		ELSE 0
	END AS cart_rate
FROM products p
LEFT JOIN brands b ON p.brand_id = b.brand_id
LEFT JOIN categories c ON p.category_id = c.category_id
WHERE p.total_views >= %d
ORDER BY conversion_rate DESC, p.total_purchases DESC, p.product_id
LIMIT %d`

	abandonedView = `
SELECT
	p.product_id,
	p.brand_id,
	b.brand_name,
	p.category_id,
	c.category_level_1,
	c.category_level_2,
	p.current_price,
	p.total_carts,
	p.total_purchases,
	(p.total_carts - p.total_purchases) AS abandoned_count,
	CASE WHEN p.total_carts > 0
		THEN ROUND((p.total_carts - p.total_purchases)::NUMERIC / p.total_carts::NUMERIC * 100, 2)
		ELSE 0
	END AS abandonment_rate
FROM products p
LEFT JOIN brands b ON p.brand_id = b.brand_id
LEFT JOIN categories c ON p.category_id = c.category_id
WHERE p.total_carts > %d
ORDER BY abandoned_count DESC, p.product_id
LIMIT %d`

	sessionAnalyticsView = `
SELECT
	'purchasers'::TEXT AS user_type,
	COUNT(DISTINCT s.user_id) AS user_count,
	COUNT(*) AS session_count,
	ROUND(AVG(s.session_duration_seconds), 2) AS avg_session_duration_seconds,
	ROUND(AVG(s.event_count), 2) AS avg_events_per_session,
	ROUND(AVG(s.total_revenue), 2) AS avg_revenue_per_session,
	COALESCE(SUM(s.total_revenue), 0) AS total_revenue
FROM sessions s
WHERE s.has_purchase = TRUE
UNION ALL
SELECT
	'non_purchasers'::TEXT,
	COUNT(DISTINCT s.user_id),
	COUNT(*),
	ROUND(AVG(s.session_duration_seconds), 2),
	ROUND(AVG(s.event_count), 2),
	0::NUMERIC,
	0::NUMERIC
FROM sessions s
WHERE s.has_purchase = FALSE
UNION ALL
SELECT
	'all_users'::TEXT,
	COUNT(DISTINCT s.user_id),
	COUNT(*),
	ROUND(AVG(s.session_duration_seconds), 2),
	ROUND(AVG(s.event_count), 2),
	ROUND(AVG(s.total_revenue), 2),
	COALESCE(SUM(s.total_revenue), 0)
FROM sessions s`

	// A calendar date lives in exactly one monthly partition, so summing the
	// per-partition distinct user counts is exact here.
	trendsPartitionSelect = `SELECT
	DATE(e.event_time) AS date,
	e.brand,
	b.brand_id,
	COUNT(*) FILTER (WHERE e.event_type = 'view') AS views,
	COUNT(*) FILTER (WHERE e.event_type = 'cart') AS carts,
	COUNT(*) FILTER (WHERE e.event_type = 'purchase') AS purchases,
	COUNT(DISTINCT e.user_id) AS unique_users,
	SUM(CASE WHEN e.event_type = 'purchase' THEN e.price ELSE 0 END) AS revenue
FROM {{partition}} e
LEFT JOIN brands b ON e.brand = b.brand_name
WHERE e.brand IS NOT NULL
GROUP BY DATE(e.event_time), e.brand, b.brand_id`

	trendsView = `
SELECT
	date,
	brand,
	brand_id,
	SUM(views) AS views,
	SUM(carts) AS carts,
	SUM(purchases) AS purchases,
	SUM(unique_users) AS unique_users,
	COALESCE(SUM(revenue), 0) AS revenue
FROM (
%s
) combined
GROUP BY date, brand, brand_id`
)

// buildViewDefs renders the five projection definitions for the declared partitions.
func buildViewDefs(set *partition.Set, t ProjectionThresholds) ([]viewDef, error) {
	t = t.normalized()

	funnelUnion, err := set.UnionAll(funnelPartitionSelect)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", ViewSalesFunnel, err)
	}
	trendsUnion, err := set.UnionAll(trendsPartitionSelect)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", ViewBrandTrends, err)
	}

	return []viewDef{
		{
			name:  ViewSalesFunnel,
			query: fmt.Sprintf(funnelView, funnelUnion),
			indexes: []string{
				`CREATE UNIQUE INDEX idx_mv_sales_funnel_type ON mv_sales_funnel (event_type)`,
			},
		},
		{
			name:  ViewProductConversion,
			query: fmt.Sprintf(conversionView, t.MinViews, t.TopN),
			indexes: []string{
				`CREATE UNIQUE INDEX idx_mv_product_conv_product ON mv_product_conversion_rates (product_id)`,
				`CREATE INDEX idx_mv_product_conv_rate ON mv_product_conversion_rates (conversion_rate DESC, total_purchases DESC)`,
				`CREATE INDEX idx_mv_product_conv_views ON mv_product_conversion_rates (total_views DESC)`,
			},
		},
		{
			name:  ViewAbandonedCarts,
			query: fmt.Sprintf(abandonedView, t.MinCarts, t.TopN),
			indexes: []string{
				`CREATE UNIQUE INDEX idx_mv_abandoned_product ON mv_abandoned_carts (product_id)`,
				`CREATE INDEX idx_mv_abandoned_count ON mv_abandoned_carts (abandoned_count DESC)`,
				`CREATE INDEX idx_mv_abandoned_rate ON mv_abandoned_carts (abandonment_rate DESC)`,
				`CREATE INDEX idx_mv_abandoned_brand ON mv_abandoned_carts (brand_id)`,
			},
		},
		{
			name:  ViewSessionAnalytics,
			query: sessionAnalyticsView,
			indexes: []string{
				`CREATE UNIQUE INDEX idx_mv_session_analytics_type ON mv_user_session_analytics (user_type)`,
			},
		},
		{
			name:  ViewBrandTrends,
			query: fmt.Sprintf(trendsView, trendsUnion),
			indexes: []string{
				`CREATE UNIQUE INDEX idx_mv_brand_trends_key ON mv_brand_popularity_trends (date, brand)`,
				`CREATE INDEX idx_mv_brand_trends_brand ON mv_brand_popularity_trends (LOWER(brand), date)`,
				`CREATE INDEX idx_mv_brand_trends_purchases ON mv_brand_popularity_trends (purchases DESC)`,
			},
		},
	}, nil
}
