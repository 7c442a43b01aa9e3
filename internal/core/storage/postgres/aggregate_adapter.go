package postgres

import (
	"context"
	"database/sql"
	"fmt"

	v1 "github.com/aevon-lab/clickstream/internal/api/v1"
	"github.com/aevon-lab/clickstream/internal/core/partition"
	"github.com/aevon-lab/clickstream/internal/core/storage"
)

// productCounterColumns maps each event type onto the products counter it feeds.
var productCounterColumns = []struct {
	eventType v1.EventType
	column    string
}{
	{v1.EventView, "total_views"},
	{v1.EventCart, "total_carts"},
	{v1.EventPurchase, "total_purchases"},
}

// AggregateAdapter implements storage.AggregateStore.
// Each per-partition pass commits on its own; a crash mid-pass leaves the
// counters under-counted, never over-counted.
type AggregateAdapter struct {
	pool *Pool
}

// NewAggregateAdapter creates an aggregate adapter sharing the given pool.
func NewAggregateAdapter(pool *Pool) *AggregateAdapter {
	return &AggregateAdapter{pool: pool}
}

// ResetProductCounters zeroes view, cart and purchase counters on every product.
func (a *AggregateAdapter) ResetProductCounters(ctx context.Context) (int64, error) {
	return a.exec(ctx, "reset product counters", queryResetProductCounters)
}

// AddProductCounts adds the per-product event counts of partition m to the counters.
func (a *AggregateAdapter) AddProductCounts(ctx context.Context, set *partition.Set, m partition.Month) (storage.CounterDelta, error) {
	var delta storage.CounterDelta
	err := a.pool.WithTx(ctx, func(tx *sql.Tx) error {
		for _, c := range productCounterColumns {
			stmt, err := set.Render(m, fmt.Sprintf(queryAddProductCount, c.column))
			if err != nil {
				return err
			}
			n, err := rowsAffected(tx.ExecContext(ctx, stmt, string(c.eventType)))
			if err != nil {
				return fmt.Errorf("add %s from %s: %w", c.column, m.Name(), err)
			}
			switch c.eventType {
			case v1.EventView:
				delta.Views = n
			case v1.EventCart:
				delta.Carts = n
			case v1.EventPurchase:
				delta.Purchases = n
			}
		}
		return nil
	})
	if err != nil {
		return storage.CounterDelta{}, err
	}
	return delta, nil
}

// ResetUserCounters zeroes session, event and purchase counters on every user.
func (a *AggregateAdapter) ResetUserCounters(ctx context.Context) (int64, error) {
	return a.exec(ctx, "reset user counters", queryResetUserCounters)
}

// SetUserSessionCounts sets total_sessions from the rebuilt sessions table.
func (a *AggregateAdapter) SetUserSessionCounts(ctx context.Context) (int64, error) {
	return a.exec(ctx, "set user session counts", querySetUserSessionCounts)
}

// AddUserCounts adds the per-user event and purchase counts of partition m.
func (a *AggregateAdapter) AddUserCounts(ctx context.Context, set *partition.Set, m partition.Month) (storage.CounterDelta, error) {
	eventsStmt, err := set.Render(m, queryAddUserEvents)
	if err != nil {
		return storage.CounterDelta{}, err
	}
	purchasesStmt, err := set.Render(m, queryAddUserPurchases)
	if err != nil {
		return storage.CounterDelta{}, err
	}

	var delta storage.CounterDelta
	err = a.pool.WithTx(ctx, func(tx *sql.Tx) error {
		n, err := rowsAffected(tx.ExecContext(ctx, eventsStmt))
		if err != nil {
			return fmt.Errorf("add user events from %s: %w", m.Name(), err)
		}
		delta.Events = n

		n, err = rowsAffected(tx.ExecContext(ctx, purchasesStmt))
		if err != nil {
			return fmt.Errorf("add user purchases from %s: %w", m.Name(), err)
		}
		delta.Purchases = n
		return nil
	})
	if err != nil {
		return storage.CounterDelta{}, err
	}
	return delta, nil
}

func (a *AggregateAdapter) exec(ctx context.Context, what, query string) (int64, error) {
	var n int64
	err := a.pool.WithConn(ctx, func(conn *sql.Conn) error {
		var err error
		n, err = rowsAffected(conn.ExecContext(ctx, query))
		if err != nil {
			return fmt.Errorf("%s: %w", what, err)
		}
		return nil
	})
	return n, err
}

func rowsAffected(res sql.Result, err error) (int64, error) {
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
