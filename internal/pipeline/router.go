package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aevon-lab/clickstream/internal/core/partition"
	"github.com/aevon-lab/clickstream/internal/core/storage"
)

// PartitionCount is the number of rows one partition holds after a move.
type PartitionCount struct {
	Partition string `yaml:"partition"`
	Moved     int64  `yaml:"moved"`
	Total     int64  `yaml:"total"`
}

// RouteReport summarises one partition move.
type RouteReport struct {
	Staged     int64            `yaml:"staged"`
	Moved      int64            `yaml:"moved"`
	Partitions []PartitionCount `yaml:"partitions"`
}

// PartitionRouter moves staged rows into the monthly partitions.
type PartitionRouter struct {
	store storage.PartitionStore
	set   *partition.Set
}

// NewPartitionRouter creates a router over the declared partitions.
func NewPartitionRouter(store storage.PartitionStore, set *partition.Set) *PartitionRouter {
	return &PartitionRouter{store: store, set: set}
}

// Run moves every staged row, verifies the moved total against staging and
// only then drops staging. On a mismatch staging is kept for inspection.
// Each declared partition is replaced by its staged rows, so repeating a load
// and move over the same input leaves the partition totals unchanged.
func (r *PartitionRouter) Run(ctx context.Context) (RouteReport, error) {
	var report RouteReport

	staged, err := r.store.StagingCount(ctx)
	if err != nil {
		return report, fmt.Errorf("count staging: %w", err)
	}
	if staged == 0 {
		return report, storage.ErrStagingEmpty
	}
	report.Staged = staged

	if err := r.store.EnsurePartitions(ctx, r.set); err != nil {
		return report, fmt.Errorf("ensure partitions: %w", err)
	}

	outside, err := r.store.OutOfRangeCount(ctx, r.set)
	if err != nil {
		return report, fmt.Errorf("check partition range: %w", err)
	}
	if outside > 0 {
		start, end := r.set.Bounds()
		return report, fmt.Errorf("%w: %d staged rows outside [%s, %s)",
			partition.ErrOutOfRange, outside, start.Format("2006-01-02"), end.Format("2006-01-02"))
	}

	slog.Info("[Router] Moving staged rows", "staged", staged, "partitions", r.set.Len())

	for _, m := range r.set.Months() {
		moved, err := r.store.MovePartition(ctx, r.set, m)
		if err != nil {
			return report, fmt.Errorf("move %s: %w", m.Name(), err)
		}
		report.Moved += moved
		report.Partitions = append(report.Partitions, PartitionCount{Partition: m.Name(), Moved: moved})
		slog.Info("[Router] Partition moved", "partition", m.Name(), "rows", moved)
	}

	if report.Moved != staged {
		slog.Error("[Router] Moved rows do not match staging, keeping staging table",
			"staged", staged, "moved", report.Moved)
		return report, fmt.Errorf("%w: staged %d, moved %d", storage.ErrCountMismatch, staged, report.Moved)
	}

	if err := r.store.DropStaging(ctx); err != nil {
		return report, fmt.Errorf("drop staging: %w", err)
	}

	for i := range report.Partitions {
		p := &report.Partitions[i]
		m, err := r.set.Lookup(p.Partition)
		if err != nil {
			return report, err
		}
		if p.Total, err = r.store.PartitionCount(ctx, r.set, m); err != nil {
			return report, fmt.Errorf("count %s: %w", p.Partition, err)
		}
	}

	slog.Info("[Router] Move verified, staging dropped", "moved", report.Moved)
	return report, nil
}
