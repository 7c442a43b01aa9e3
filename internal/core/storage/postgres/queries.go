package postgres

// Schema checks.
const (
	queryTableExists = `
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_name = $1
		)
	`
)

// requiredTables must exist before any stage runs.
var requiredTables = []string{"brands", "categories", "users", "products", "sessions", "events"}

// Staging.
const (
	stagingTable = "events_staging"

	queryDropStaging = `DROP TABLE IF EXISTS events_staging`

	// No constraints of any kind: a retried chunk may re-apply rows.
	queryCreateStaging = `
		CREATE TABLE events_staging (
			event_time    TIMESTAMP,
			event_type    VARCHAR(20),
			product_id    BIGINT,
			category_id   BIGINT,
			category_code VARCHAR(500),
			brand         VARCHAR(255),
			price         DECIMAL(10,2),
			user_id       BIGINT,
			user_session  UUID
		)
	`

	// queryInsertStagingPrefix is completed with one placeholder tuple per row.
	queryInsertStagingPrefix = `INSERT INTO events_staging (event_time, event_type, product_id, category_id, category_code, brand, price, user_id, user_session) VALUES `

	queryCountStaging = `SELECT COUNT(*) FROM events_staging`
)

// stagingColumns is the column order shared by INSERT, COPY and the CSV input.
var stagingColumns = []string{
	"event_time", "event_type", "product_id", "category_id", "category_code",
	"brand", "price", "user_id", "user_session",
}

// Partitions. {{partition}} is substituted by partition.Set.Render.
const (
	queryCreatePartition = `CREATE TABLE {{partition}} PARTITION OF events FOR VALUES FROM ('%s') TO ('%s')`

	queryCountOutOfRange = `
		SELECT COUNT(*) FROM events_staging
		WHERE event_time IS NULL OR event_time < $1 OR event_time >= $2
	`

	queryClearPartition = `TRUNCATE TABLE {{partition}}`

	queryMovePartition = `
		INSERT INTO {{partition}} (event_time, event_type, product_id, category_code, brand, price, user_id, user_session)
		SELECT event_time, event_type, product_id, category_code, brand, price, user_id, user_session
		FROM events_staging
		WHERE event_time >= $1 AND event_time < $2
	`

	queryCountPartition = `SELECT COUNT(*) FROM {{partition}}`
)

// Dimensions.
const (
	queryTruncateDimensions = `TRUNCATE TABLE products, users, categories, brands RESTART IDENTITY CASCADE`

	queryInsertBrandsPrefix     = `INSERT INTO brands (brand_name) VALUES `
	queryInsertCategoriesPrefix = `INSERT INTO categories (category_code, category_level_1, category_level_2, category_level_3) VALUES `
	queryInsertUsersPrefix      = `INSERT INTO users (user_id, first_seen, last_seen, total_sessions, total_events, total_purchases) VALUES `
	queryInsertProductsPrefix   = `INSERT INTO products (product_id, category_id, brand_id, current_price, total_views, total_carts, total_purchases) VALUES `

	queryInsertNullCategory = `INSERT INTO categories (category_code) VALUES (NULL) RETURNING category_id`

	querySelectBrandIDs    = `SELECT brand_id, brand_name FROM brands`
	querySelectCategoryIDs = `SELECT category_id, category_code FROM categories WHERE category_code IS NOT NULL`
)

// Sessions.
const (
	queryTruncateSessions = `TRUNCATE TABLE sessions`

	// queryDeriveSessions is completed with session.IDExpr and sessionMergeClause.
	queryDeriveSessions = `
		INSERT INTO sessions (session_id, user_id, session_start, session_duration_seconds, event_count, has_purchase, total_revenue)
		SELECT
			%s AS session_id,
			user_id,
			MIN(event_time) AS session_start,
			EXTRACT(EPOCH FROM (MAX(event_time) - MIN(event_time)))::INTEGER AS session_duration_seconds,
			COUNT(*) AS event_count,
			BOOL_OR(event_type = 'purchase') AS has_purchase,
			COALESCE(SUM(CASE WHEN event_type = 'purchase' THEN price ELSE 0 END), 0) AS total_revenue
		FROM {{partition}}
		WHERE user_session IS NOT NULL
		GROUP BY user_session, user_id
		%s
	`

	// querySessionEventPage selects the events of the next $3 sessions after
	// the key ($1, $2); a NULL key starts from the first session. Pages hold
	// whole sessions.
	querySessionEventPage = `
		WITH page AS (
			SELECT DISTINCT user_session, user_id
			FROM {{partition}}
			WHERE user_session IS NOT NULL
			  AND ($1::UUID IS NULL OR (user_session, user_id) > ($1::UUID, $2::BIGINT))
			ORDER BY user_session, user_id
			LIMIT $3
		)
		SELECT e.user_session::TEXT, e.user_id, e.event_time, e.event_type, e.price
		FROM {{partition}} e
		JOIN page p ON p.user_session = e.user_session AND p.user_id = e.user_id
		ORDER BY e.user_session, e.user_id, e.event_time
	`

	queryInsertSessionsPrefix = `INSERT INTO sessions (session_id, user_id, session_start, session_duration_seconds, event_count, has_purchase, total_revenue) VALUES `

	queryCountSessions = `SELECT COUNT(*) FROM sessions`
)

// Aggregates.
const (
	queryResetProductCounters = `UPDATE products SET total_views = 0, total_carts = 0, total_purchases = 0`

	// queryAddProductCount is completed with the counter column; event_type is $1.
	queryAddProductCount = `
		UPDATE products p
		SET %[1]s = p.%[1]s + e.n
		FROM (
			SELECT product_id, COUNT(*) AS n
			FROM {{partition}}
			WHERE event_type = $1
			GROUP BY product_id
		) e
		WHERE p.product_id = e.product_id
	`

	queryResetUserCounters = `UPDATE users SET total_sessions = 0, total_events = 0, total_purchases = 0`

	querySetUserSessionCounts = `
		UPDATE users u
		SET total_sessions = s.n
		FROM (
			SELECT user_id, COUNT(*) AS n
			FROM sessions
			GROUP BY user_id
		) s
		WHERE u.user_id = s.user_id
	`

	queryAddUserEvents = `
		UPDATE users u
		SET total_events = u.total_events + e.n
		FROM (
			SELECT user_id, COUNT(*) AS n
			FROM {{partition}}
			GROUP BY user_id
		) e
		WHERE u.user_id = e.user_id
	`

	queryAddUserPurchases = `
		UPDATE users u
		SET total_purchases = u.total_purchases + e.n
		FROM (
			SELECT user_id, COUNT(*) AS n
			FROM {{partition}}
			WHERE event_type = 'purchase'
			GROUP BY user_id
		) e
		WHERE u.user_id = e.user_id
	`
)

// Projection reads.
const (
	querySalesFunnel = `
		SELECT event_type, event_count, unique_users, unique_products
		FROM mv_sales_funnel
		ORDER BY CASE event_type WHEN 'view' THEN 1 WHEN 'cart' THEN 2 WHEN 'purchase' THEN 3 END
	`

	queryTopConverting = `
		SELECT product_id, brand_name, category_level_1, category_level_2, current_price,
			total_views, total_carts, total_purchases, conversion_rate, cart_rate
		FROM mv_product_conversion_rates
		ORDER BY conversion_rate DESC, total_purchases DESC, product_id
		LIMIT $1
	`

	queryAbandonedCarts = `
		SELECT product_id, brand_name, category_level_1, category_level_2, current_price,
			total_carts, total_purchases, abandoned_count, abandonment_rate
		FROM mv_abandoned_carts
		ORDER BY abandoned_count DESC, product_id
		LIMIT $1
	`

	querySessionAnalytics = `
		SELECT user_type, avg_session_duration_seconds, avg_events_per_session,
			avg_revenue_per_session, total_revenue, session_count, user_count
		FROM mv_user_session_analytics
		ORDER BY CASE user_type WHEN 'purchasers' THEN 1 WHEN 'non_purchasers' THEN 2 WHEN 'all_users' THEN 3 END
	`

	queryBrandTrends = `
		SELECT date, brand, brand_id, views, carts, purchases, unique_users, revenue
		FROM mv_brand_popularity_trends
		WHERE LOWER(brand) = LOWER($1)
		  AND ($2::DATE IS NULL OR date >= $2::DATE)
		  AND ($3::DATE IS NULL OR date <= $3::DATE)
		ORDER BY date
	`
)
