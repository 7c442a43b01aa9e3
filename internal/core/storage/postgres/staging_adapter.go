package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	v1 "github.com/aevon-lab/clickstream/internal/api/v1"
	"github.com/lib/pq"
)

// insertPageSize is how many rows go into one INSERT statement of a chunk.
const insertPageSize = 5000

// StagingAdapter implements storage.StagingStore.
// Every chunk is written in its own transaction on a freshly acquired
// connection, so a failed chunk leaves nothing behind and can be retried.
type StagingAdapter struct {
	pool *Pool
}

// NewStagingAdapter creates a staging adapter sharing the given pool.
func NewStagingAdapter(pool *Pool) *StagingAdapter {
	return &StagingAdapter{pool: pool}
}

// RecreateStaging drops any leftover staging table and creates an empty one.
func (a *StagingAdapter) RecreateStaging(ctx context.Context) error {
	err := a.pool.WithConn(ctx, func(conn *sql.Conn) error {
		if _, err := conn.ExecContext(ctx, queryDropStaging); err != nil {
			return fmt.Errorf("drop staging: %w", err)
		}
		if _, err := conn.ExecContext(ctx, queryCreateStaging); err != nil {
			return fmt.Errorf("create staging: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	slog.Info("[Staging] Recreated staging table", "table", stagingTable)
	return nil
}

// InsertRows writes a materialized chunk with explicit NULLs for missing optional fields.
func (a *StagingAdapter) InsertRows(ctx context.Context, events []v1.RawEvent) (int64, error) {
	if len(events) == 0 {
		return 0, nil
	}
	var written int64
	err := a.pool.WithTx(ctx, func(tx *sql.Tx) error {
		n, err := insertBatches(ctx, tx, queryInsertStagingPrefix, "", len(events), len(stagingColumns), insertPageSize,
			func(i int) []any {
				e := &events[i]
				return []any{
					e.EventTime,
					string(e.EventType),
					e.ProductID,
					nullInt64(e.CategoryID),
					nullString(e.CategoryCode),
					nullString(e.Brand),
					nullDecimal(e.Price),
					e.UserID,
					nullString(e.SessionToken),
				}
			})
		if err != nil {
			return fmt.Errorf("insert staging rows: %w", err)
		}
		written = n
		return nil
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}

// CopyRows streams raw records through the COPY protocol. Cells are trimmed
// and sent as text; a cell that is empty after trimming is sent as NULL.
func (a *StagingAdapter) CopyRows(ctx context.Context, records [][]string) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}
	err := a.pool.WithTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, pq.CopyIn(stagingTable, stagingColumns...))
		if err != nil {
			return fmt.Errorf("prepare copy: %w", err)
		}
		defer stmt.Close()

		args := make([]any, len(stagingColumns))
		for i, rec := range records {
			if len(rec) != len(stagingColumns) {
				return fmt.Errorf("copy record %d: got %d columns, want %d", i, len(rec), len(stagingColumns))
			}
			for c, cell := range rec {
				cell = strings.TrimSpace(cell)
				if cell == "" {
					args[c] = nil
				} else {
					args[c] = cell
				}
			}
			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				return fmt.Errorf("copy record %d: %w", i, err)
			}
		}
		if _, err := stmt.ExecContext(ctx); err != nil {
			return fmt.Errorf("flush copy: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return int64(len(records)), nil
}
