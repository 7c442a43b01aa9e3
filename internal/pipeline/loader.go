package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aevon-lab/clickstream/internal/core/storage"
	"github.com/aevon-lab/clickstream/internal/ingest"
)

// Load strategies.
const (
	StrategyInsert = "insert"
	StrategyCopy   = "copy"
)

const defaultChunkSize = 10000

// LoadReport summarises one bulk load run.
type LoadReport struct {
	Strategy string `yaml:"strategy"`
	Chunks   int    `yaml:"chunks"`
	Rows     int64  `yaml:"rows"`
	Retries  int    `yaml:"retries"`
}

// BulkLoader copies the source into the staging table chunk by chunk.
type BulkLoader struct {
	src       ChunkSource
	store     storage.StagingStore
	strategy  string
	chunkSize int
	retry     RetryPolicy
}

// NewBulkLoader creates a loader. strategy is StrategyInsert or StrategyCopy.
func NewBulkLoader(src ChunkSource, store storage.StagingStore, strategy string, chunkSize int, retry RetryPolicy) (*BulkLoader, error) {
	switch strategy {
	case StrategyInsert, StrategyCopy:
	case "":
		strategy = StrategyInsert
	default:
		return nil, fmt.Errorf("unknown load strategy %q", strategy)
	}
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	return &BulkLoader{src: src, store: store, strategy: strategy, chunkSize: chunkSize, retry: retry}, nil
}

// Run recreates the staging table and loads every chunk. A chunk that keeps
// failing with transient errors aborts the run with ErrRetriesExhausted.
// A retried chunk may re-apply rows; staging carries no uniqueness.
func (l *BulkLoader) Run(ctx context.Context) (LoadReport, error) {
	report := LoadReport{Strategy: l.strategy}
	started := time.Now()

	if err := l.store.RecreateStaging(ctx); err != nil {
		return report, fmt.Errorf("recreate staging: %w", err)
	}

	slog.Info("[BulkLoader] Starting load", "strategy", l.strategy, "chunk_size", l.chunkSize)

	err := l.src.Chunks(ctx, l.chunkSize, func(c ingest.Chunk) error {
		write, err := l.prepare(c)
		if err != nil {
			return err
		}

		attempts := 0
		var n int64
		err = l.retry.Do(ctx, fmt.Sprintf("chunk %d of %s", report.Chunks+1, c.File), func(ctx context.Context) error {
			attempts++
			var err error
			n, err = write(ctx)
			return err
		})
		report.Retries += attempts - 1
		if err != nil {
			return err
		}

		report.Chunks++
		report.Rows += n
		slog.Info("[BulkLoader] Chunk committed",
			"chunk", report.Chunks,
			"file", c.File,
			"rows", n,
			"total_rows", report.Rows)
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("bulk load: %w", err)
	}

	slog.Info("[BulkLoader] Load complete",
		"strategy", l.strategy,
		"chunks", report.Chunks,
		"rows", report.Rows,
		"retries", report.Retries,
		"elapsed", time.Since(started).Round(time.Millisecond))
	return report, nil
}

// prepare returns the write to retry for one chunk. The copy strategy sends
// the records as read and leaves type checking to the server; the insert
// strategy parses them first.
func (l *BulkLoader) prepare(c ingest.Chunk) (func(context.Context) (int64, error), error) {
	if l.strategy == StrategyCopy {
		return func(ctx context.Context) (int64, error) {
			return l.store.CopyRows(ctx, c.Records)
		}, nil
	}

	events, err := c.Events()
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context) (int64, error) {
		return l.store.InsertRows(ctx, events)
	}, nil
}
