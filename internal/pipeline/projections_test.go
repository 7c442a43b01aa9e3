package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectionBuilder_Build(t *testing.T) {
	store := &fakeProjections{names: []string{"mv_sales_funnel", "mv_abandoned_carts"}}

	report, err := NewProjectionBuilder(store, true).Build(context.Background())

	require.NoError(t, err)
	assert.Equal(t, store.names, store.created)
	assert.Empty(t, store.refreshes)
	assert.Equal(t, []ProjectionCount{
		{Name: "mv_sales_funnel", Mode: ProjectionCreated, Rows: int64(len("mv_sales_funnel"))},
		{Name: "mv_abandoned_carts", Mode: ProjectionCreated, Rows: int64(len("mv_abandoned_carts"))},
	}, report.Projections)
}

func TestProjectionBuilder_RefreshConcurrent(t *testing.T) {
	store := &fakeProjections{names: []string{"mv_sales_funnel"}}

	report, err := NewProjectionBuilder(store, true).Refresh(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"mv_sales_funnel:concurrent"}, store.refreshes)
	require.Len(t, report.Projections, 1)
	assert.Equal(t, ProjectionConcurrent, report.Projections[0].Mode)
}

func TestProjectionBuilder_RefreshFallsBackToBlocking(t *testing.T) {
	store := &fakeProjections{names: []string{"mv_sales_funnel"}, rejectConcurrent: true}

	report, err := NewProjectionBuilder(store, true).Refresh(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"mv_sales_funnel:concurrent", "mv_sales_funnel:blocking"}, store.refreshes)
	assert.Equal(t, ProjectionBlocking, report.Projections[0].Mode)
}

func TestProjectionBuilder_RefreshBlockingOnly(t *testing.T) {
	store := &fakeProjections{names: []string{"mv_sales_funnel"}}

	_, err := NewProjectionBuilder(store, false).Refresh(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"mv_sales_funnel:blocking"}, store.refreshes)
}

func TestProjectionBuilder_CancelledRefreshDoesNotFallBack(t *testing.T) {
	store := &fakeProjections{names: []string{"mv_sales_funnel"}, refreshErr: context.Canceled}

	_, err := NewProjectionBuilder(store, true).Refresh(context.Background())

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, store.refreshCount())
}
