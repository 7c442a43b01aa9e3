package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aevon-lab/clickstream/internal/core/storage"
	"golang.org/x/sync/singleflight"
)

// How a projection was brought up to date.
const (
	ProjectionCreated    = "created"
	ProjectionConcurrent = "concurrent"
	ProjectionBlocking   = "blocking"
)

// ProjectionCount is the verified state of one projection.
type ProjectionCount struct {
	Name string `yaml:"name"`
	Mode string `yaml:"mode"`
	Rows int64  `yaml:"rows"`
}

// ProjectionReport summarises a build or refresh.
type ProjectionReport struct {
	Projections []ProjectionCount `yaml:"projections"`
	Shared      bool              `yaml:"shared,omitempty"`
}

// ProjectionBuilder creates and refreshes the read projections.
type ProjectionBuilder struct {
	store      storage.ProjectionStore
	concurrent bool
	refreshes  singleflight.Group
}

// NewProjectionBuilder creates a builder. concurrent prefers non-blocking refreshes.
func NewProjectionBuilder(store storage.ProjectionStore, concurrent bool) *ProjectionBuilder {
	return &ProjectionBuilder{store: store, concurrent: concurrent}
}

// Build drops and recreates every projection, then counts their rows.
func (b *ProjectionBuilder) Build(ctx context.Context) (ProjectionReport, error) {
	var report ProjectionReport
	for _, name := range b.store.Projections() {
		started := time.Now()
		if err := b.store.CreateProjection(ctx, name); err != nil {
			return report, fmt.Errorf("create projection %s: %w", name, err)
		}
		count, err := b.verify(ctx, name, ProjectionCreated)
		if err != nil {
			return report, err
		}
		report.Projections = append(report.Projections, count)
		slog.Info("[Projections] Projection built",
			"projection", name,
			"rows", count.Rows,
			"elapsed", time.Since(started).Round(time.Millisecond))
	}
	return report, nil
}

// Refresh brings every projection up to date. Concurrent callers share a
// single refresh and its result.
func (b *ProjectionBuilder) Refresh(ctx context.Context) (ProjectionReport, error) {
	v, err, shared := b.refreshes.Do("refresh", func() (any, error) {
		return b.refreshAll(ctx)
	})
	report, _ := v.(ProjectionReport)
	report.Shared = shared
	return report, err
}

func (b *ProjectionBuilder) refreshAll(ctx context.Context) (ProjectionReport, error) {
	var report ProjectionReport
	for _, name := range b.store.Projections() {
		started := time.Now()
		mode, err := b.refreshOne(ctx, name)
		if err != nil {
			return report, err
		}
		count, err := b.verify(ctx, name, mode)
		if err != nil {
			return report, err
		}
		report.Projections = append(report.Projections, count)
		slog.Info("[Projections] Projection refreshed",
			"projection", name,
			"mode", mode,
			"rows", count.Rows,
			"elapsed", time.Since(started).Round(time.Millisecond))
	}
	return report, nil
}

// refreshOne prefers a concurrent refresh and falls back to a blocking one
// when the server refuses it (for example a view that has never been populated).
func (b *ProjectionBuilder) refreshOne(ctx context.Context, name string) (string, error) {
	if b.concurrent {
		err := b.store.RefreshProjection(ctx, name, true)
		if err == nil {
			return ProjectionConcurrent, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		slog.Warn("[Projections] Concurrent refresh failed, falling back to blocking refresh",
			"projection", name, "error", err)
	}
	if err := b.store.RefreshProjection(ctx, name, false); err != nil {
		return "", fmt.Errorf("refresh projection %s: %w", name, err)
	}
	return ProjectionBlocking, nil
}

func (b *ProjectionBuilder) verify(ctx context.Context, name, mode string) (ProjectionCount, error) {
	rows, err := b.store.ProjectionRowCount(ctx, name)
	if err != nil {
		return ProjectionCount{}, fmt.Errorf("count projection %s: %w", name, err)
	}
	return ProjectionCount{Name: name, Mode: mode, Rows: rows}, nil
}
