package pipeline

import (
	"context"
	"log/slog"
	"time"
)

// Refresher is satisfied by ProjectionBuilder.
type Refresher interface {
	Refresh(ctx context.Context) (ProjectionReport, error)
}

// RefreshScheduler refreshes the projections on a fixed interval while the
// read service runs. A failed refresh is logged and retried on the next tick;
// the previous snapshot stays readable in the meantime.
type RefreshScheduler struct {
	interval  time.Duration
	refresher Refresher
}

// NewRefreshScheduler creates a scheduler. interval must be positive.
func NewRefreshScheduler(interval time.Duration, refresher Refresher) *RefreshScheduler {
	return &RefreshScheduler{interval: interval, refresher: refresher}
}

// Start runs until ctx is cancelled.
func (s *RefreshScheduler) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("[Scheduler] Starting projection refresh scheduler", "interval", s.interval)

	for {
		select {
		case <-ticker.C:
			s.tick(ctx)
		case <-ctx.Done():
			slog.Info("[Scheduler] Stopping (context cancelled)")
			return nil
		}
	}
}

func (s *RefreshScheduler) tick(ctx context.Context) {
	started := time.Now()
	report, err := s.refresher.Refresh(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		slog.Error("[Scheduler] Projection refresh failed", "error", err)
		return
	}
	slog.Info("[Scheduler] Projections refreshed",
		"projections", len(report.Projections),
		"shared", report.Shared,
		"elapsed", time.Since(started).Round(time.Millisecond))
}
