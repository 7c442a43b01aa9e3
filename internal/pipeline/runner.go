package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aevon-lab/clickstream/internal/core/storage"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Stage names one pipeline step.
type Stage string

const (
	StageDimensions  Stage = "dimensions"
	StageLoad        Stage = "load"
	StageRoute       Stage = "route"
	StageSessions    Stage = "sessions"
	StageAggregates  Stage = "aggregates"
	StageProjections Stage = "projections"
	StageRefresh     Stage = "refresh"
	StageAll         Stage = "all"
)

// FullRun is the order StageAll executes. Each stage needs the previous one committed.
var FullRun = []Stage{StageDimensions, StageLoad, StageRoute, StageSessions, StageAggregates, StageProjections}

// ParseStage validates a stage name.
func ParseStage(s string) (Stage, error) {
	switch st := Stage(s); st {
	case StageDimensions, StageLoad, StageRoute, StageSessions, StageAggregates,
		StageProjections, StageRefresh, StageAll:
		return st, nil
	}
	return "", fmt.Errorf("unknown stage %q", s)
}

// PartitionScoped reports whether s may run over a subset of the declared
// partitions. Sessions, aggregates and projections rebuild their whole output
// from every partition, so narrowing them would discard data outside the subset.
func (s Stage) PartitionScoped() bool {
	return s == StageRoute
}

// Report is the printed summary of one run.
type Report struct {
	RunID     string    `yaml:"run_id"`
	Stage     Stage     `yaml:"stage"`
	StartedAt time.Time `yaml:"started_at"`
	Elapsed   string    `yaml:"elapsed"`
	Completed []Stage   `yaml:"completed"`
	Failed    Stage     `yaml:"failed,omitempty"`
	Error     string    `yaml:"error,omitempty"`

	Dimensions  *storage.DimensionCounts `yaml:"dimensions,omitempty"`
	Load        *LoadReport              `yaml:"load,omitempty"`
	Route       *RouteReport             `yaml:"route,omitempty"`
	Sessions    *SessionReport           `yaml:"sessions,omitempty"`
	Aggregates  *AggregateReport         `yaml:"aggregates,omitempty"`
	Projections *ProjectionReport        `yaml:"projections,omitempty"`
}

// WriteYAML renders the report.
func (r *Report) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return enc.Close()
}

// Runner executes stages strictly one after another. A stage that fails
// stops the run; nothing after it is attempted.
type Runner struct {
	Extractor   *DimensionExtractor
	Dimensions  *DimensionLoader
	Loader      *BulkLoader
	Router      *PartitionRouter
	Sessions    *SessionDeriver
	Aggregates  *AggregateUpdater
	Projections *ProjectionBuilder
}

// Run executes stage, or every stage of FullRun for StageAll. The report is
// returned on failure too, carrying whatever completed.
func (r *Runner) Run(ctx context.Context, stage Stage) (*Report, error) {
	report := &Report{
		RunID:     uuid.NewString(),
		Stage:     stage,
		StartedAt: time.Now().UTC(),
		Completed: []Stage{},
	}
	defer func() {
		report.Elapsed = time.Since(report.StartedAt).Round(time.Millisecond).String()
	}()

	stages := []Stage{stage}
	if stage == StageAll {
		stages = FullRun
	}

	for _, s := range stages {
		logger := slog.With("run_id", report.RunID, "stage", s)
		logger.Info("[Runner] Stage started")
		started := time.Now()

		if err := r.runStage(ctx, s, report); err != nil {
			report.Failed = s
			report.Error = err.Error()
			logger.Error("[Runner] Stage failed", "error", err)
			return report, fmt.Errorf("stage %s: %w", s, err)
		}

		report.Completed = append(report.Completed, s)
		logger.Info("[Runner] Stage completed", "elapsed", time.Since(started).Round(time.Millisecond))
	}
	return report, nil
}

func (r *Runner) runStage(ctx context.Context, s Stage, report *Report) error {
	switch s {
	case StageDimensions:
		if r.Extractor == nil || r.Dimensions == nil {
			return errNotConfigured(s)
		}
		dims, err := r.Extractor.Extract(ctx)
		if err != nil {
			return err
		}
		counts, err := r.Dimensions.Load(ctx, dims)
		if err != nil {
			return err
		}
		report.Dimensions = &counts

	case StageLoad:
		if r.Loader == nil {
			return errNotConfigured(s)
		}
		load, err := r.Loader.Run(ctx)
		report.Load = &load
		return err

	case StageRoute:
		if r.Router == nil {
			return errNotConfigured(s)
		}
		route, err := r.Router.Run(ctx)
		report.Route = &route
		return err

	case StageSessions:
		if r.Sessions == nil {
			return errNotConfigured(s)
		}
		sessions, err := r.Sessions.Run(ctx)
		report.Sessions = &sessions
		return err

	case StageAggregates:
		if r.Aggregates == nil {
			return errNotConfigured(s)
		}
		aggregates, err := r.Aggregates.Run(ctx)
		report.Aggregates = &aggregates
		return err

	case StageProjections:
		if r.Projections == nil {
			return errNotConfigured(s)
		}
		projections, err := r.Projections.Build(ctx)
		report.Projections = &projections
		return err

	case StageRefresh:
		if r.Projections == nil {
			return errNotConfigured(s)
		}
		projections, err := r.Projections.Refresh(ctx)
		report.Projections = &projections
		return err

	default:
		return fmt.Errorf("stage %q cannot be run directly", s)
	}
	return nil
}

func errNotConfigured(s Stage) error {
	return fmt.Errorf("stage %s is not configured", s)
}
