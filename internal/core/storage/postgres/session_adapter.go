package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	v1 "github.com/aevon-lab/clickstream/internal/api/v1"
	"github.com/aevon-lab/clickstream/internal/core/aggregation"
	"github.com/aevon-lab/clickstream/internal/core/partition"
	"github.com/aevon-lab/clickstream/internal/core/session"
)

// sessionUpsertPageSize bounds one multi-row session upsert.
const sessionUpsertPageSize = 5000

// sessionMergeClause is the collision policy shared by both derivation paths.
var sessionMergeClause = "\n\t\tON CONFLICT (session_id) DO UPDATE SET\n" +
	aggregation.SetClause("sessions", session.MergePolicy) + "\n"

// SessionAdapter implements storage.SessionStore.
type SessionAdapter struct {
	pool *Pool
}

// NewSessionAdapter creates a session adapter sharing the given pool.
func NewSessionAdapter(pool *Pool) *SessionAdapter {
	return &SessionAdapter{pool: pool}
}

// TruncateSessions empties the sessions table.
func (a *SessionAdapter) TruncateSessions(ctx context.Context) error {
	return a.pool.WithConn(ctx, func(conn *sql.Conn) error {
		if _, err := conn.ExecContext(ctx, queryTruncateSessions); err != nil {
			return fmt.Errorf("truncate sessions: %w", err)
		}
		return nil
	})
}

// DeriveSessions groups partition m in the database and merges the facts into sessions.
func (a *SessionAdapter) DeriveSessions(ctx context.Context, set *partition.Set, m partition.Month) (int64, error) {
	stmt, err := set.Render(m, fmt.Sprintf(queryDeriveSessions, session.IDExpr, sessionMergeClause))
	if err != nil {
		return 0, err
	}

	var n int64
	err = a.pool.WithConn(ctx, func(conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx, stmt)
		if err != nil {
			return fmt.Errorf("derive sessions from %s: %w", m.Name(), err)
		}
		n, err = res.RowsAffected()
		if err != nil {
			return fmt.Errorf("derive sessions from %s: rows affected: %w", m.Name(), err)
		}
		return nil
	})
	return n, err
}

// SessionEventPage returns the events of at most limit sessions of partition m
// that sort after the key after, ordered by (user_session, user_id, event_time).
// A nil after starts from the first session. The connection is released
// before the page is returned.
func (a *SessionAdapter) SessionEventPage(
	ctx context.Context,
	set *partition.Set,
	m partition.Month,
	after *session.Key,
	limit int,
) ([]v1.RawEvent, error) {
	stmt, err := set.Render(m, querySessionEventPage)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = sessionUpsertPageSize
	}
	var token, userID any
	if after != nil {
		token, userID = after.Token, after.UserID
	}

	var events []v1.RawEvent
	err = a.pool.WithConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, stmt, token, userID, int64(limit))
		if err != nil {
			return fmt.Errorf("read session events from %s: %w", m.Name(), err)
		}
		defer rows.Close()

		for rows.Next() {
			e, err := scanSessionEvent(rows)
			if err != nil {
				return err
			}
			events = append(events, e)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate session events: %w", err)
		}
		return nil
	})
	return events, err
}

func scanSessionEvent(row scanner) (v1.RawEvent, error) {
	var (
		e         v1.RawEvent
		token     string
		eventType string
		price     sql.NullString
	)
	if err := row.Scan(&token, &e.UserID, &e.EventTime, &eventType, &price); err != nil {
		return e, fmt.Errorf("scan session event: %w", err)
	}
	e.SessionToken = &token
	e.EventType = v1.EventType(eventType)
	if price.Valid {
		p, err := aggregation.ParseDecimal(price.String)
		if err != nil {
			return e, err
		}
		e.Price = p
	}
	return e, nil
}

// UpsertSessions merges facts into sessions using the same collision policy
// as DeriveSessions. Facts must have distinct IDs.
func (a *SessionAdapter) UpsertSessions(ctx context.Context, facts []session.Fact) (int64, error) {
	if len(facts) == 0 {
		return 0, nil
	}
	var n int64
	err := a.pool.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		n, err = insertBatches(ctx, tx, queryInsertSessionsPrefix, sessionMergeClause, len(facts), 7, sessionUpsertPageSize,
			func(i int) []any {
				f := facts[i]
				return []any{f.ID, f.UserID, f.Start, f.DurationSeconds, f.EventCount, f.HasPurchase, f.Revenue.String()}
			})
		if err != nil {
			return fmt.Errorf("upsert sessions: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	slog.Debug("[Sessions] Upserted session facts", "facts", len(facts), "rows", n)
	return n, nil
}

// CountSessions counts stored sessions.
func (a *SessionAdapter) CountSessions(ctx context.Context) (int64, error) {
	var n int64
	err := a.pool.WithConn(ctx, func(conn *sql.Conn) error {
		var err error
		n, err = countQuery(ctx, conn, queryCountSessions)
		if err != nil {
			return fmt.Errorf("count sessions: %w", err)
		}
		return nil
	})
	return n, err
}
