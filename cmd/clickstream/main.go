package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/aevon-lab/clickstream/internal/core/config"
	"github.com/aevon-lab/clickstream/internal/core/partition"
	"github.com/aevon-lab/clickstream/internal/core/storage/postgres"
	"github.com/aevon-lab/clickstream/internal/ingest"
	"github.com/aevon-lab/clickstream/internal/migrations"
	"github.com/aevon-lab/clickstream/internal/pipeline"
	"github.com/aevon-lab/clickstream/internal/projection"
	"github.com/aevon-lab/clickstream/internal/server"
	"golang.org/x/sync/errgroup"
)

const serveCommand = "serve"

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), `Usage: clickstream [flags] <stage|serve>

Stages: dimensions, load, route, sessions, aggregates, projections, refresh, all
serve:  start the read API (and the projection refresh scheduler when configured)

Flags:
`)
	flag.PrintDefaults()
}

func main() {
	configPath := flag.String("config", "clickstream.yaml", "Path to configuration file")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	partitions := flag.String("partitions", "", "Comma-separated partition tables (events_YYYY_MM) to restrict the route stage to")
	flag.Usage = usage
	flag.Parse()

	// 0. Initialize Logger
	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		fmt.Fprintf(os.Stderr, "invalid -log-level %q\n", *logLevel)
		os.Exit(2)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if flag.NArg() != 1 {
		usage()
		os.Exit(2)
	}
	command := flag.Arg(0)

	var stage pipeline.Stage
	if command != serveCommand {
		var err error
		if stage, err = pipeline.ParseStage(command); err != nil {
			slog.Error("Invalid command", "error", err)
			usage()
			os.Exit(2)
		}
	}

	// 1. Load Configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	set, err := cfg.Partitions.Set()
	if err != nil {
		slog.Error("Invalid partitions", "error", err)
		os.Exit(1)
	}
	routeSet, err := routeScope(set, command, stage, *partitions)
	if err != nil {
		slog.Error("Invalid -partitions", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Initialize Storage (PostgreSQL)
	pool, err := postgres.Open(postgres.PoolConfig{
		DSN:             cfg.Database.DSN(),
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// 2.1. Run Database Migrations
	if err := migrations.Apply(pool.DB(), cfg.Database.AutoMigrate); err != nil {
		slog.Error("Failed to run database migrations", "error", err)
		os.Exit(1)
	}
	if err := pool.ValidateSchema(ctx); err != nil {
		slog.Error("Database schema is incomplete", "error", err)
		os.Exit(1)
	}

	projections, err := postgres.NewProjectionAdapter(pool, set, postgres.ProjectionThresholds{
		MinViews: cfg.Projections.MinViews,
		MinCarts: cfg.Projections.MinCarts,
		TopN:     cfg.Projections.TopN,
	})
	if err != nil {
		slog.Error("Failed to initialize projections", "error", err)
		os.Exit(1)
	}
	builder := pipeline.NewProjectionBuilder(projections, cfg.Projections.ConcurrentRefresh)

	if command == serveCommand {
		err = serve(ctx, cfg, pool, builder)
	} else {
		err = runStage(ctx, cfg, pool, set, routeSet, builder, stage)
	}
	if err != nil {
		pool.Close()
		os.Exit(1)
	}
}

func runStage(ctx context.Context, cfg *config.Config, pool *postgres.Pool, set, routeSet *partition.Set, builder *pipeline.ProjectionBuilder, stage pipeline.Stage) error {
	runner, err := newRunner(cfg, pool, set, routeSet, builder, stage)
	if err != nil {
		slog.Error("Failed to initialize pipeline", "error", err)
		return err
	}

	report, runErr := runner.Run(ctx, stage)
	if report != nil {
		if err := report.WriteYAML(os.Stdout); err != nil {
			slog.Error("Failed to write run report", "error", err)
		}
	}
	if runErr != nil {
		slog.Error("Pipeline run failed", "error", runErr)
		return runErr
	}
	slog.Info("Pipeline run complete", "stage", stage, "run_id", report.RunID)
	return nil
}

// newRunner wires the stages. The CSV source is only resolved when a stage
// that reads it is selected, so later stages run without the input files.
// Only the router sees routeSet; every rebuild stage covers the full set.
func newRunner(cfg *config.Config, pool *postgres.Pool, set, routeSet *partition.Set, builder *pipeline.ProjectionBuilder, stage pipeline.Stage) (*pipeline.Runner, error) {
	runner := &pipeline.Runner{
		Dimensions:  pipeline.NewDimensionLoader(postgres.NewDimensionAdapter(pool), cfg.Extract.InsertBatchSize),
		Router:      pipeline.NewPartitionRouter(postgres.NewPartitionAdapter(pool), routeSet),
		Aggregates:  pipeline.NewAggregateUpdater(postgres.NewAggregateAdapter(pool), set),
		Projections: builder,
	}

	sessions, err := pipeline.NewSessionDeriver(postgres.NewSessionAdapter(pool), set, cfg.Sessions.Mode, cfg.Sessions.BatchSize)
	if err != nil {
		return nil, err
	}
	runner.Sessions = sessions

	if stage != pipeline.StageAll && stage != pipeline.StageDimensions && stage != pipeline.StageLoad {
		return runner, nil
	}

	src, err := ingest.NewSource(cfg.Input.Dir, cfg.Input.Files)
	if err != nil {
		return nil, err
	}
	runner.Extractor = pipeline.NewDimensionExtractor(src, cfg.Extract.BatchSize)

	loader, err := pipeline.NewBulkLoader(src, postgres.NewStagingAdapter(pool), cfg.Loader.Strategy, cfg.Loader.ChunkSize, pipeline.RetryPolicy{
		MaxAttempts: cfg.Loader.MaxAttempts,
		Delay:       cfg.Loader.RetryDelay,
		Transient:   postgres.IsTransient,
	})
	if err != nil {
		return nil, err
	}
	runner.Loader = loader
	return runner, nil
}

func serve(ctx context.Context, cfg *config.Config, pool *postgres.Pool, builder *pipeline.ProjectionBuilder) error {
	service := projection.NewService(postgres.NewViewReader(pool))
	srv := server.New(cfg.Server.Addr(), cfg.Server.Mode, pool, service)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})

	if cfg.Projections.RefreshInterval > 0 {
		scheduler := pipeline.NewRefreshScheduler(cfg.Projections.RefreshInterval, builder)
		g.Go(func() error {
			return scheduler.Start(gctx)
		})
	} else {
		slog.Info("Projection refresh scheduler disabled by config")
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("Server stopped with error", "error", err)
		return err
	}
	slog.Info("Shutdown complete")
	return nil
}

// routeScope narrows the declared set for the route stage. Any other command
// given -partitions is an error.
func routeScope(set *partition.Set, command string, stage pipeline.Stage, partitions string) (*partition.Set, error) {
	if partitions == "" {
		return set, nil
	}
	if command == serveCommand || !stage.PartitionScoped() {
		return nil, fmt.Errorf("-partitions only applies to the %s stage, not %s", pipeline.StageRoute, command)
	}
	return set.Subset(splitList(partitions))
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
