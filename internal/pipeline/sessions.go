package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aevon-lab/clickstream/internal/core/partition"
	"github.com/aevon-lab/clickstream/internal/core/session"
	"github.com/aevon-lab/clickstream/internal/core/storage"
)

// Session derivation modes.
const (
	// SessionModeSQL groups each partition inside the database.
	SessionModeSQL = "sql"
	// SessionModeStream scans each partition and groups in process.
	SessionModeStream = "stream"
)

const defaultSessionBatchSize = 50000

// SessionReport summarises one session rebuild.
type SessionReport struct {
	Mode       string           `yaml:"mode"`
	Partitions []PartitionCount `yaml:"partitions"`
	Sessions   int64            `yaml:"sessions"`
}

// SessionDeriver rebuilds the sessions table from the partitions.
type SessionDeriver struct {
	store     storage.SessionStore
	set       *partition.Set
	mode      string
	batchSize int
}

// NewSessionDeriver creates a deriver. mode is SessionModeSQL or SessionModeStream.
func NewSessionDeriver(store storage.SessionStore, set *partition.Set, mode string, batchSize int) (*SessionDeriver, error) {
	switch mode {
	case SessionModeSQL, SessionModeStream:
	case "":
		mode = SessionModeSQL
	default:
		return nil, fmt.Errorf("unknown session mode %q", mode)
	}
	if batchSize <= 0 {
		batchSize = defaultSessionBatchSize
	}
	return &SessionDeriver{store: store, set: set, mode: mode, batchSize: batchSize}, nil
}

// Run truncates sessions and merges every partition into it. Both modes
// apply the same collision policy, so partition order does not change the
// result beyond the duration rule described on session.Merge.
func (d *SessionDeriver) Run(ctx context.Context) (SessionReport, error) {
	report := SessionReport{Mode: d.mode}

	if err := d.store.TruncateSessions(ctx); err != nil {
		return report, fmt.Errorf("truncate sessions: %w", err)
	}

	slog.Info("[Sessions] Rebuilding sessions", "mode", d.mode, "partitions", d.set.Len())

	for _, m := range d.set.Months() {
		var (
			n   int64
			err error
		)
		if d.mode == SessionModeStream {
			n, err = d.streamPartition(ctx, m)
		} else {
			n, err = d.store.DeriveSessions(ctx, d.set, m)
		}
		if err != nil {
			return report, fmt.Errorf("derive sessions from %s: %w", m.Name(), err)
		}
		report.Partitions = append(report.Partitions, PartitionCount{Partition: m.Name(), Moved: n})
		slog.Info("[Sessions] Partition merged", "partition", m.Name(), "session_rows", n)
	}

	total, err := d.store.CountSessions(ctx)
	if err != nil {
		return report, fmt.Errorf("count sessions: %w", err)
	}
	report.Sessions = total

	slog.Info("[Sessions] Rebuild complete", "sessions", total)
	return report, nil
}

// streamPartition groups one partition in process, one page of at most
// batchSize sessions at a time. Each page is folded and upserted before the
// next is read, so memory stays bounded by the page.
func (d *SessionDeriver) streamPartition(ctx context.Context, m partition.Month) (int64, error) {
	var (
		after   *session.Key
		written int64
	)
	for {
		events, err := d.store.SessionEventPage(ctx, d.set, m, after, d.batchSize)
		if err != nil {
			return written, err
		}
		if len(events) == 0 {
			return written, nil
		}

		var grouper session.Grouper
		facts := make([]session.Fact, 0, d.batchSize)
		for i := range events {
			if f, ok := grouper.Push(&events[i]); ok {
				facts = append(facts, f)
			}
		}
		if f, ok := grouper.Flush(); ok {
			facts = append(facts, f)
		}

		n, err := d.store.UpsertSessions(ctx, facts)
		if err != nil {
			return written, err
		}
		written += n
		slog.Debug("[Sessions] Page merged", "partition", m.Name(), "sessions", len(facts))

		if len(facts) < d.batchSize {
			return written, nil
		}
		last := events[len(events)-1]
		after = &session.Key{Token: *last.SessionToken, UserID: last.UserID}
	}
}
