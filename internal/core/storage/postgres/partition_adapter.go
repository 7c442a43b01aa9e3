package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/aevon-lab/clickstream/internal/core/partition"
)

const partitionBoundFormat = "2006-01-02"

// PartitionAdapter implements storage.PartitionStore.
type PartitionAdapter struct {
	pool *Pool
}

// NewPartitionAdapter creates a partition adapter sharing the given pool.
func NewPartitionAdapter(pool *Pool) *PartitionAdapter {
	return &PartitionAdapter{pool: pool}
}

// EnsurePartitions creates a monthly partition for every declared month.
// Partitions that already exist are skipped.
func (a *PartitionAdapter) EnsurePartitions(ctx context.Context, set *partition.Set) error {
	return a.pool.WithConn(ctx, func(conn *sql.Conn) error {
		for _, m := range set.Months() {
			start, end := m.Bounds()
			stmt, err := set.Render(m, fmt.Sprintf(queryCreatePartition,
				start.Format(partitionBoundFormat), end.Format(partitionBoundFormat)))
			if err != nil {
				return err
			}
			if _, err := conn.ExecContext(ctx, stmt); err != nil {
				if IsAlreadyExists(err) {
					slog.Debug("[Partitions] Partition already exists", "partition", m.Name())
					continue
				}
				return fmt.Errorf("create partition %s: %w", m.Name(), err)
			}
			slog.Info("[Partitions] Created partition", "partition", m.Name(), "from", start, "to", end)
		}
		return nil
	})
}

// StagingCount counts every staged row.
func (a *PartitionAdapter) StagingCount(ctx context.Context) (int64, error) {
	var n int64
	err := a.pool.WithConn(ctx, func(conn *sql.Conn) error {
		var err error
		n, err = countQuery(ctx, conn, queryCountStaging)
		if err != nil {
			return fmt.Errorf("count staging: %w", err)
		}
		return nil
	})
	return n, err
}

// OutOfRangeCount counts staged rows no declared partition can own.
func (a *PartitionAdapter) OutOfRangeCount(ctx context.Context, set *partition.Set) (int64, error) {
	start, end := set.Bounds()
	var n int64
	err := a.pool.WithConn(ctx, func(conn *sql.Conn) error {
		var err error
		n, err = countQuery(ctx, conn, queryCountOutOfRange, start, end)
		if err != nil {
			return fmt.Errorf("count out-of-range staging rows: %w", err)
		}
		return nil
	})
	return n, err
}

// MovePartition replaces the contents of month m's partition with the staged
// rows of that month and returns how many rows were written. Clearing and
// inserting share one transaction, so a failed move leaves the previous rows.
func (a *PartitionAdapter) MovePartition(ctx context.Context, set *partition.Set, m partition.Month) (int64, error) {
	clearStmt, err := set.Render(m, queryClearPartition)
	if err != nil {
		return 0, err
	}
	moveStmt, err := set.Render(m, queryMovePartition)
	if err != nil {
		return 0, err
	}
	start, end := m.Bounds()

	var moved int64
	err = a.pool.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, clearStmt); err != nil {
			return fmt.Errorf("clear %s: %w", m.Name(), err)
		}
		res, err := tx.ExecContext(ctx, moveStmt, start, end)
		if err != nil {
			return fmt.Errorf("move staging rows into %s: %w", m.Name(), err)
		}
		moved, err = res.RowsAffected()
		if err != nil {
			return fmt.Errorf("move staging rows into %s: rows affected: %w", m.Name(), err)
		}
		return nil
	})
	return moved, err
}

// PartitionCount counts the rows stored in partition m.
func (a *PartitionAdapter) PartitionCount(ctx context.Context, set *partition.Set, m partition.Month) (int64, error) {
	stmt, err := set.Render(m, queryCountPartition)
	if err != nil {
		return 0, err
	}
	var n int64
	err = a.pool.WithConn(ctx, func(conn *sql.Conn) error {
		var err error
		n, err = countQuery(ctx, conn, stmt)
		if err != nil {
			return fmt.Errorf("count %s: %w", m.Name(), err)
		}
		return nil
	})
	return n, err
}

// DropStaging removes the staging table.
func (a *PartitionAdapter) DropStaging(ctx context.Context) error {
	return a.pool.WithConn(ctx, func(conn *sql.Conn) error {
		if _, err := conn.ExecContext(ctx, queryDropStaging); err != nil {
			return fmt.Errorf("drop staging: %w", err)
		}
		return nil
	})
}
