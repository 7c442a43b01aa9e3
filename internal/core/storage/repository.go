package storage

import (
	"context"
	"errors"
	"time"

	v1 "github.com/aevon-lab/clickstream/internal/api/v1"
	"github.com/aevon-lab/clickstream/internal/core/partition"
	"github.com/aevon-lab/clickstream/internal/core/session"
)

var (
	// ErrStagingEmpty is returned when the partition move finds nothing to move.
	ErrStagingEmpty = errors.New("staging table is empty")

	// ErrCountMismatch is returned when the rows moved into partitions differ from the staging count.
	ErrCountMismatch = errors.New("partition row count does not match staging")
)

// StagingStore writes raw rows into the unconstrained staging table.
type StagingStore interface {
	// RecreateStaging drops and recreates the staging table.
	RecreateStaging(ctx context.Context) error

	// InsertRows writes a materialized chunk as one multi-row INSERT.
	InsertRows(ctx context.Context, events []v1.RawEvent) (int64, error)

	// CopyRows streams a chunk of raw CSV records through COPY.
	// Records are in staging column order; an empty cell is NULL.
	CopyRows(ctx context.Context, records [][]string) (int64, error)
}

// PartitionStore moves staged rows into the monthly partitions.
type PartitionStore interface {
	EnsurePartitions(ctx context.Context, set *partition.Set) error
	StagingCount(ctx context.Context) (int64, error)

	// OutOfRangeCount counts staged rows whose event_time is outside the declared set.
	OutOfRangeCount(ctx context.Context, set *partition.Set) (int64, error)

	// MovePartition replaces the rows of m's partition with the staged rows
	// belonging to m, so re-running a load and move never duplicates events.
	MovePartition(ctx context.Context, set *partition.Set, m partition.Month) (int64, error)

	PartitionCount(ctx context.Context, set *partition.Set, m partition.Month) (int64, error)
	DropStaging(ctx context.Context) error
}

// DimensionCounts reports how many rows each dimension table received.
type DimensionCounts struct {
	Brands     int64 `yaml:"brands"`
	Categories int64 `yaml:"categories"`
	Users      int64 `yaml:"users"`
	Products   int64 `yaml:"products"`
}

// DimensionStore replaces the dimension tables wholesale.
type DimensionStore interface {
	ReplaceDimensions(ctx context.Context, dims v1.Dimensions, batchSize int) (DimensionCounts, error)
}

// SessionStore rebuilds the sessions table.
type SessionStore interface {
	TruncateSessions(ctx context.Context) error

	// DeriveSessions groups one partition inside the database and merges the
	// result into sessions. Returns the number of rows inserted or merged.
	DeriveSessions(ctx context.Context, set *partition.Set, m partition.Month) (int64, error)

	// SessionEventPage returns the events of the next limit sessions of one
	// partition after the key after (nil for the first page), ordered by
	// (user_session, user_id, event_time). A session never spans two pages.
	SessionEventPage(ctx context.Context, set *partition.Set, m partition.Month, after *session.Key, limit int) ([]v1.RawEvent, error)

	// UpsertSessions merges facts into sessions with the same policy as DeriveSessions.
	UpsertSessions(ctx context.Context, facts []session.Fact) (int64, error)

	CountSessions(ctx context.Context) (int64, error)
}

// CounterDelta reports how many dimension rows a per-partition counter pass touched.
type CounterDelta struct {
	Views     int64
	Carts     int64
	Purchases int64
	Events    int64
}

// AggregateStore maintains the derived counters on products and users.
// Callers must hold exclusive access for the duration of a pass.
type AggregateStore interface {
	ResetProductCounters(ctx context.Context) (int64, error)
	AddProductCounts(ctx context.Context, set *partition.Set, m partition.Month) (CounterDelta, error)

	ResetUserCounters(ctx context.Context) (int64, error)
	SetUserSessionCounts(ctx context.Context) (int64, error)
	AddUserCounts(ctx context.Context, set *partition.Set, m partition.Month) (CounterDelta, error)
}

// ProjectionStore builds and refreshes the materialized projections.
type ProjectionStore interface {
	// Projections lists the projection names in build order.
	Projections() []string

	// CreateProjection drops and recreates one projection with its indexes.
	CreateProjection(ctx context.Context, name string) error

	// RefreshProjection refreshes one projection in place. concurrent selects
	// REFRESH ... CONCURRENTLY, which keeps readers unblocked.
	RefreshProjection(ctx context.Context, name string, concurrent bool) error

	ProjectionRowCount(ctx context.Context, name string) (int64, error)
}

// ProjectionReader serves projection rows to the read API.
type ProjectionReader interface {
	SalesFunnel(ctx context.Context) ([]v1.FunnelStage, error)
	TopConverting(ctx context.Context, limit int) ([]v1.ProductConversion, error)
	AbandonedCarts(ctx context.Context, limit int) ([]v1.AbandonedCart, error)
	SessionAnalytics(ctx context.Context) ([]v1.SessionSegment, error)

	// BrandTrends matches brand case-insensitively; start and end are optional inclusive dates.
	BrandTrends(ctx context.Context, brand string, start, end *time.Time) ([]v1.BrandTrend, error)
}
