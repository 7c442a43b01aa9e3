package pipeline

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	v1 "github.com/aevon-lab/clickstream/internal/api/v1"
	"github.com/aevon-lab/clickstream/internal/core/partition"
	"github.com/aevon-lab/clickstream/internal/core/session"
	"github.com/aevon-lab/clickstream/internal/core/storage"
	"github.com/aevon-lab/clickstream/internal/ingest"
	"github.com/stretchr/testify/require"
)

var errConcurrentRefresh = errors.New("cannot refresh materialized view concurrently")

// rec builds one raw record in column order.
func rec(ts, typ, product, categoryCode, brand, price, user, token string) []string {
	return []string{ts, typ, product, "", categoryCode, brand, price, user, token}
}

func testSet(t *testing.T) *partition.Set {
	t.Helper()
	set, err := partition.ParseSet("2019-10", "2019-11")
	require.NoError(t, err)
	return set
}

// memSource serves fixed chunks of raw records.
type memSource struct {
	chunks [][][]string
	reads  int
}

func (s *memSource) Chunks(ctx context.Context, size int, fn func(ingest.Chunk) error) error {
	s.reads++
	for _, recs := range s.chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(ingest.Chunk{File: "mem.csv", Records: recs}); err != nil {
			return err
		}
	}
	return nil
}

// fakeStaging records what was written and fails the next calls with queued errors.
type fakeStaging struct {
	recreated int
	failures  []error
	calls     int
	events    []v1.RawEvent
	records   [][]string
}

func (f *fakeStaging) RecreateStaging(ctx context.Context) error {
	f.recreated++
	f.events = nil
	f.records = nil
	return nil
}

func (f *fakeStaging) nextFailure() error {
	f.calls++
	if len(f.failures) == 0 {
		return nil
	}
	err := f.failures[0]
	f.failures = f.failures[1:]
	return err
}

func (f *fakeStaging) InsertRows(ctx context.Context, events []v1.RawEvent) (int64, error) {
	if err := f.nextFailure(); err != nil {
		return 0, err
	}
	f.events = append(f.events, events...)
	return int64(len(events)), nil
}

func (f *fakeStaging) CopyRows(ctx context.Context, records [][]string) (int64, error) {
	if err := f.nextFailure(); err != nil {
		return 0, err
	}
	f.records = append(f.records, records...)
	return int64(len(records)), nil
}

// fakePartitions simulates staging plus partitions with per-month row counts.
// A move replaces the partition's rows, as the postgres adapter does.
type fakePartitions struct {
	staged     map[string]int64 // partition name -> staged rows
	outside    int64
	lose       int64 // rows silently dropped by the first move, to force a mismatch
	ensured    bool
	moved      map[string]int64
	dropped    bool
	moveCalled bool
}

func (f *fakePartitions) EnsurePartitions(ctx context.Context, set *partition.Set) error {
	f.ensured = true
	return nil
}

func (f *fakePartitions) StagingCount(ctx context.Context) (int64, error) {
	n := f.outside
	for _, v := range f.staged {
		n += v
	}
	return n, nil
}

func (f *fakePartitions) OutOfRangeCount(ctx context.Context, set *partition.Set) (int64, error) {
	return f.outside, nil
}

func (f *fakePartitions) MovePartition(ctx context.Context, set *partition.Set, m partition.Month) (int64, error) {
	f.moveCalled = true
	if f.moved == nil {
		f.moved = make(map[string]int64)
	}
	n := f.staged[m.Name()] - f.lose
	f.lose = 0
	f.moved[m.Name()] = n
	return n, nil
}

func (f *fakePartitions) PartitionCount(ctx context.Context, set *partition.Set, m partition.Month) (int64, error) {
	return f.moved[m.Name()], nil
}

func (f *fakePartitions) DropStaging(ctx context.Context) error {
	f.dropped = true
	return nil
}

// fakeDimensions keeps the last replaced dimensions.
type fakeDimensions struct {
	dims      v1.Dimensions
	batchSize int
}

func (f *fakeDimensions) ReplaceDimensions(ctx context.Context, dims v1.Dimensions, batchSize int) (storage.DimensionCounts, error) {
	f.dims = dims
	f.batchSize = batchSize
	return storage.DimensionCounts{
		Brands:     int64(len(dims.Brands)),
		Categories: int64(len(dims.Categories)) + 1,
		Users:      int64(len(dims.Users)),
		Products:   int64(len(dims.Products)),
	}, nil
}

// fakeSessions stores partition events and simulates both derivation paths
// with the same merge policy as the database.
type fakeSessions struct {
	partitions map[string][]v1.RawEvent
	sessions   map[int64]session.Fact
	truncated  int
	upserts    int
	cursors    []*session.Key
}

func (f *fakeSessions) TruncateSessions(ctx context.Context) error {
	f.truncated++
	f.sessions = make(map[int64]session.Fact)
	return nil
}

func (f *fakeSessions) merge(facts []session.Fact) int64 {
	for _, fact := range facts {
		if existing, ok := f.sessions[fact.ID]; ok {
			f.sessions[fact.ID] = session.Merge(existing, fact)
			continue
		}
		f.sessions[fact.ID] = fact
	}
	return int64(len(facts))
}

func (f *fakeSessions) DeriveSessions(ctx context.Context, set *partition.Set, m partition.Month) (int64, error) {
	return f.merge(session.Fold(f.partitions[m.Name()])), nil
}

func (f *fakeSessions) SessionEventPage(ctx context.Context, set *partition.Set, m partition.Month, after *session.Key, limit int) ([]v1.RawEvent, error) {
	f.cursors = append(f.cursors, after)
	less := func(a, b session.Key) bool {
		if a.Token != b.Token {
			return a.Token < b.Token
		}
		return a.UserID < b.UserID
	}

	var events []v1.RawEvent
	for _, e := range f.partitions[m.Name()] {
		if !e.HasSession() {
			continue
		}
		k := session.Key{Token: *e.SessionToken, UserID: e.UserID}
		if after == nil || less(*after, k) {
			events = append(events, e)
		}
	}
	sort.SliceStable(events, func(i, j int) bool {
		ki := session.Key{Token: *events[i].SessionToken, UserID: events[i].UserID}
		kj := session.Key{Token: *events[j].SessionToken, UserID: events[j].UserID}
		if ki != kj {
			return less(ki, kj)
		}
		return events[i].EventTime.Before(events[j].EventTime)
	})

	keys := 0
	for i := range events {
		if i == 0 || *events[i].SessionToken != *events[i-1].SessionToken || events[i].UserID != events[i-1].UserID {
			keys++
		}
		if keys > limit {
			return events[:i], nil
		}
	}
	return events, nil
}

func (f *fakeSessions) UpsertSessions(ctx context.Context, facts []session.Fact) (int64, error) {
	f.upserts++
	return f.merge(facts), nil
}

func (f *fakeSessions) CountSessions(ctx context.Context) (int64, error) {
	return int64(len(f.sessions)), nil
}

// fakeAggregates records the order of counter operations.
type fakeAggregates struct {
	calls []string
	fail  string
	err   error
}

func (f *fakeAggregates) record(call string) error {
	f.calls = append(f.calls, call)
	if call == f.fail {
		return f.err
	}
	return nil
}

func (f *fakeAggregates) ResetProductCounters(ctx context.Context) (int64, error) {
	return 10, f.record("reset_products")
}

func (f *fakeAggregates) AddProductCounts(ctx context.Context, set *partition.Set, m partition.Month) (storage.CounterDelta, error) {
	return storage.CounterDelta{Views: 3, Carts: 2, Purchases: 1}, f.record("products:" + m.Name())
}

func (f *fakeAggregates) ResetUserCounters(ctx context.Context) (int64, error) {
	return 5, f.record("reset_users")
}

func (f *fakeAggregates) SetUserSessionCounts(ctx context.Context) (int64, error) {
	return 4, f.record("user_sessions")
}

func (f *fakeAggregates) AddUserCounts(ctx context.Context, set *partition.Set, m partition.Month) (storage.CounterDelta, error) {
	return storage.CounterDelta{Events: 4, Purchases: 1}, f.record("users:" + m.Name())
}

// fakeProjections records create and refresh calls.
type fakeProjections struct {
	mu               sync.Mutex
	names            []string
	created          []string
	refreshes        []string
	rejectConcurrent bool
	refreshErr       error
}

func (f *fakeProjections) Projections() []string { return f.names }

func (f *fakeProjections) CreateProjection(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, name)
	return nil
}

func (f *fakeProjections) RefreshProjection(ctx context.Context, name string, concurrent bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	mode := ProjectionBlocking
	if concurrent {
		mode = ProjectionConcurrent
	}
	f.refreshes = append(f.refreshes, name+":"+mode)
	if f.refreshErr != nil {
		return f.refreshErr
	}
	if concurrent && f.rejectConcurrent {
		return errConcurrentRefresh
	}
	return nil
}

func (f *fakeProjections) ProjectionRowCount(ctx context.Context, name string) (int64, error) {
	return int64(len(name)), nil
}

func (f *fakeProjections) refreshCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.refreshes)
}
