package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/aevon-lab/clickstream/internal/core/partition"
)

// ProjectionAdapter implements storage.ProjectionStore.
// Definitions are rendered once for the partition set it was built with.
type ProjectionAdapter struct {
	pool   *Pool
	defs   []viewDef
	byName map[string]viewDef
}

// NewProjectionAdapter renders the projection definitions for set.
func NewProjectionAdapter(pool *Pool, set *partition.Set, thresholds ProjectionThresholds) (*ProjectionAdapter, error) {
	defs, err := buildViewDefs(set, thresholds)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]viewDef, len(defs))
	for _, d := range defs {
		byName[d.name] = d
	}
	return &ProjectionAdapter{pool: pool, defs: defs, byName: byName}, nil
}

// Projections lists projection names in build order.
func (a *ProjectionAdapter) Projections() []string {
	names := make([]string, len(a.defs))
	for i, d := range a.defs {
		names[i] = d.name
	}
	return names
}

func (a *ProjectionAdapter) lookup(name string) (viewDef, error) {
	d, ok := a.byName[name]
	if !ok {
		return viewDef{}, fmt.Errorf("unknown projection %q", name)
	}
	return d, nil
}

// CreateProjection drops and recreates one projection with its indexes in a
// single transaction, so readers never observe a view without its unique index.
func (a *ProjectionAdapter) CreateProjection(ctx context.Context, name string) error {
	d, err := a.lookup(name)
	if err != nil {
		return err
	}

	err = a.pool.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("DROP MATERIALIZED VIEW IF EXISTS %s CASCADE", d.name)); err != nil {
			return fmt.Errorf("drop %s: %w", d.name, err)
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("CREATE MATERIALIZED VIEW %s AS %s", d.name, d.query)); err != nil {
			return fmt.Errorf("create %s: %w", d.name, err)
		}
		for _, idx := range d.indexes {
			if _, err := tx.ExecContext(ctx, idx); err != nil {
				return fmt.Errorf("index %s: %w", d.name, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.Info("[Projections] Created projection", "projection", d.name, "indexes", len(d.indexes))
	return nil
}

// RefreshProjection recomputes one projection in place.
func (a *ProjectionAdapter) RefreshProjection(ctx context.Context, name string, concurrent bool) error {
	d, err := a.lookup(name)
	if err != nil {
		return err
	}
	stmt := "REFRESH MATERIALIZED VIEW " + d.name
	if concurrent {
		stmt = "REFRESH MATERIALIZED VIEW CONCURRENTLY " + d.name
	}

	return a.pool.WithConn(ctx, func(conn *sql.Conn) error {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("refresh %s: %w", d.name, err)
		}
		return nil
	})
}

// ProjectionRowCount counts the rows currently materialized in one projection.
func (a *ProjectionAdapter) ProjectionRowCount(ctx context.Context, name string) (int64, error) {
	d, err := a.lookup(name)
	if err != nil {
		return 0, err
	}
	var n int64
	err = a.pool.WithConn(ctx, func(conn *sql.Conn) error {
		var err error
		n, err = countQuery(ctx, conn, "SELECT COUNT(*) FROM "+d.name)
		if err != nil {
			return fmt.Errorf("count %s: %w", d.name, err)
		}
		return nil
	})
	return n, err
}
