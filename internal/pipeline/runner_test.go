package pipeline

import (
	"bytes"
	"context"
	"testing"

	"github.com/aevon-lab/clickstream/internal/core/storage"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type runnerFixture struct {
	staging     *fakeStaging
	partitions  *fakePartitions
	sessions    *fakeSessions
	aggregates  *fakeAggregates
	projections *fakeProjections
	runner      *Runner
}

func newRunnerFixture(t *testing.T) *runnerFixture {
	t.Helper()
	set := testSet(t)
	src := &memSource{chunks: loadRecords}

	f := &runnerFixture{
		staging: &fakeStaging{},
		partitions: &fakePartitions{
			staged: map[string]int64{"events_2019_10": 2, "events_2019_11": 1},
		},
		sessions:    &fakeSessions{partitions: sessionPartitions(t)},
		aggregates:  &fakeAggregates{},
		projections: &fakeProjections{names: []string{"mv_sales_funnel"}},
	}

	loader, err := NewBulkLoader(src, f.staging, StrategyInsert, 2, fastRetry)
	require.NoError(t, err)
	sessions, err := NewSessionDeriver(f.sessions, set, SessionModeSQL, 0)
	require.NoError(t, err)

	f.runner = &Runner{
		Extractor:   NewDimensionExtractor(src, 2),
		Dimensions:  NewDimensionLoader(&fakeDimensions{}, 0),
		Loader:      loader,
		Router:      NewPartitionRouter(f.partitions, set),
		Sessions:    sessions,
		Aggregates:  NewAggregateUpdater(f.aggregates, set),
		Projections: NewProjectionBuilder(f.projections, true),
	}
	return f
}

func TestParseStage(t *testing.T) {
	for _, s := range []string{"dimensions", "load", "route", "sessions", "aggregates", "projections", "refresh", "all"} {
		got, err := ParseStage(s)
		require.NoError(t, err)
		assert.Equal(t, Stage(s), got)
	}

	_, err := ParseStage("vacuum")
	assert.EqualError(t, err, `unknown stage "vacuum"`)
}

func TestStage_PartitionScoped(t *testing.T) {
	assert.True(t, StageRoute.PartitionScoped())
	for _, s := range []Stage{StageAll, StageDimensions, StageLoad, StageSessions, StageAggregates, StageProjections, StageRefresh} {
		assert.False(t, s.PartitionScoped(), "%s rebuilds from every partition", s)
	}
}

func TestRunner_FullRun(t *testing.T) {
	f := newRunnerFixture(t)

	report, err := f.runner.Run(context.Background(), StageAll)

	require.NoError(t, err)
	assert.Equal(t, FullRun, report.Completed)
	assert.Empty(t, report.Failed)
	_, err = uuid.Parse(report.RunID)
	assert.NoError(t, err)

	require.NotNil(t, report.Dimensions)
	assert.Equal(t, int64(1), report.Dimensions.Brands)
	assert.Equal(t, int64(2), report.Dimensions.Users)
	require.NotNil(t, report.Load)
	assert.Equal(t, int64(3), report.Load.Rows)
	require.NotNil(t, report.Route)
	assert.Equal(t, int64(3), report.Route.Moved)
	assert.True(t, f.partitions.dropped)
	require.NotNil(t, report.Sessions)
	assert.Equal(t, int64(2), report.Sessions.Sessions)
	require.NotNil(t, report.Aggregates)
	require.NotNil(t, report.Projections)
	assert.Equal(t, []string{"mv_sales_funnel"}, f.projections.created)
}

func TestRunner_FailedStageStopsTheRun(t *testing.T) {
	f := newRunnerFixture(t)
	f.partitions.lose = 1

	report, err := f.runner.Run(context.Background(), StageAll)

	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrCountMismatch)
	assert.Contains(t, err.Error(), "stage route")
	assert.Equal(t, []Stage{StageDimensions, StageLoad}, report.Completed)
	assert.Equal(t, StageRoute, report.Failed)
	assert.NotEmpty(t, report.Error)
	assert.Nil(t, report.Sessions)
	assert.Equal(t, 0, f.sessions.truncated, "sessions never started")
	assert.Empty(t, f.aggregates.calls)
}

func TestRunner_SingleStage(t *testing.T) {
	f := newRunnerFixture(t)

	report, err := f.runner.Run(context.Background(), StageRefresh)

	require.NoError(t, err)
	assert.Equal(t, []Stage{StageRefresh}, report.Completed)
	assert.Equal(t, []string{"mv_sales_funnel:concurrent"}, f.projections.refreshes)
	assert.Nil(t, report.Load)
	assert.Equal(t, 0, f.staging.recreated)
}

func TestRunner_UnconfiguredStage(t *testing.T) {
	r := &Runner{}

	report, err := r.Run(context.Background(), StageSessions)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "stage sessions is not configured")
	assert.Equal(t, StageSessions, report.Failed)
}

func TestReport_WriteYAML(t *testing.T) {
	f := newRunnerFixture(t)
	report, err := f.runner.Run(context.Background(), StageLoad)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, report.WriteYAML(&buf))

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, report.RunID, decoded["run_id"])
	assert.Equal(t, "load", decoded["stage"])
	assert.NotContains(t, decoded, "failed")

	load, ok := decoded["load"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "insert", load["strategy"])
	assert.Equal(t, 2, load["chunks"])
	assert.Equal(t, 3, load["rows"])
}
