package postgres

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	v1 "github.com/aevon-lab/clickstream/internal/api/v1"
	"github.com/aevon-lab/clickstream/internal/core/session"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestSessionAdapter_DeriveSessions(t *testing.T) {
	pool, mock := newMockPool(t)
	adapter := NewSessionAdapter(pool)
	set := testSet(t)
	m := set.Months()[0]

	stmt, err := set.Render(m, fmt.Sprintf(queryDeriveSessions, session.IDExpr, sessionMergeClause))
	require.NoError(t, err)
	require.Contains(t, stmt, `FROM "events_2019_10"`)
	require.Contains(t, stmt, "ON CONFLICT (session_id) DO UPDATE")
	require.Contains(t, stmt, "session_start = LEAST(sessions.session_start, EXCLUDED.session_start)")
	require.Contains(t, stmt, "session_duration_seconds = GREATEST(sessions.session_duration_seconds, EXCLUDED.session_duration_seconds)")
	require.Contains(t, stmt, "has_purchase = sessions.has_purchase OR EXCLUDED.has_purchase")

	mock.ExpectExec(regexp.QuoteMeta(stmt)).WillReturnResult(sqlmock.NewResult(0, 812))

	n, err := adapter.DeriveSessions(context.Background(), set, m)
	require.NoError(t, err)
	require.Equal(t, int64(812), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionAdapter_SessionEventPage(t *testing.T) {
	pool, mock := newMockPool(t)
	adapter := NewSessionAdapter(pool)
	set := testSet(t)
	m := set.Months()[0]

	stmt, err := set.Render(m, querySessionEventPage)
	require.NoError(t, err)
	require.Contains(t, stmt, `FROM "events_2019_10" e`)
	require.Contains(t, stmt, "LIMIT $3")

	at := time.Date(2019, 10, 5, 10, 0, 0, 0, time.UTC)
	token := "26dd6e6e-4dac-4778-8d2c-92e149dab885"
	mock.ExpectQuery(regexp.QuoteMeta(stmt)).
		WithArgs(nil, nil, int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"user_session", "user_id", "event_time", "event_type", "price"}).
			AddRow(token, int64(541312140), at, "view", "9.99").
			AddRow(token, int64(541312140), at.Add(time.Minute), "cart", "9.99").
			AddRow(token, int64(541312140), at.Add(2*time.Minute), "purchase", nil)).
		RowsWillBeClosed()

	events, err := adapter.SessionEventPage(context.Background(), set, m, nil, 2)
	require.NoError(t, err)
	require.Len(t, events, 3)
	require.Equal(t, v1.EventPurchase, events[2].EventType)
	require.Nil(t, events[2].Price)
	require.True(t, decimal.RequireFromString("9.99").Equal(*events[0].Price))
	require.Equal(t, token, *events[0].SessionToken)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionAdapter_SessionEventPageResumesAfterKey(t *testing.T) {
	pool, mock := newMockPool(t)
	adapter := NewSessionAdapter(pool)
	set := testSet(t)
	m := set.Months()[1]

	stmt, err := set.Render(m, querySessionEventPage)
	require.NoError(t, err)

	after := &session.Key{Token: "26dd6e6e-4dac-4778-8d2c-92e149dab885", UserID: 541312140}
	mock.ExpectQuery(regexp.QuoteMeta(stmt)).
		WithArgs(after.Token, after.UserID, int64(sessionUpsertPageSize)).
		WillReturnRows(sqlmock.NewRows([]string{"user_session", "user_id", "event_time", "event_type", "price"})).
		RowsWillBeClosed()

	events, err := adapter.SessionEventPage(context.Background(), set, m, after, 0)
	require.NoError(t, err)
	require.Empty(t, events)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionAdapter_UpsertSessions(t *testing.T) {
	pool, mock := newMockPool(t)
	adapter := NewSessionAdapter(pool)

	start := time.Date(2019, 10, 31, 23, 58, 0, 0, time.UTC)
	facts := []session.Fact{
		{ID: 429723525993249122, UserID: 541312140, Start: start, DurationSeconds: 120, EventCount: 3, HasPurchase: true, Revenue: decimal.RequireFromString("9.99")},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(queryInsertSessionsPrefix + valuesClause(1, 7) + sessionMergeClause)).
		WithArgs(int64(429723525993249122), int64(541312140), start, int64(120), int64(3), true, "9.99").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	n, err := adapter.UpsertSessions(context.Background(), facts)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionAdapter_UpsertNothing(t *testing.T) {
	pool, mock := newMockPool(t)
	adapter := NewSessionAdapter(pool)

	n, err := adapter.UpsertSessions(context.Background(), nil)
	require.NoError(t, err)
	require.Zero(t, n)
	require.NoError(t, mock.ExpectationsWereMet())
}
