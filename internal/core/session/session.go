package session

import (
	"crypto/md5"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
	"time"

	v1 "github.com/aevon-lab/clickstream/internal/api/v1"
	"github.com/aevon-lab/clickstream/internal/core/aggregation"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// idHexDigits is how much of the md5 digest feeds the identity: 15 hex digits = 60 bits,
// so the result always fits a positive BIGINT.
const idHexDigits = 15

// IDExpr is the SQL twin of ID, used when sessions are derived inside the database.
const IDExpr = `ABS(('x' || substr(md5(user_session::TEXT || user_id::TEXT), 1, 15))::bit(60)::bigint)`

// Key groups events into one session.
type Key struct {
	Token  string
	UserID int64
}

// ID returns the deterministic session identity for (token, userID).
// It reproduces IDExpr bit for bit: the token is rendered the way postgres
// prints a UUID, concatenated with the decimal user id, md5'd, and the first
// 60 bits of the digest are read as an unsigned integer.
func ID(token string, userID int64) int64 {
	sum := md5.Sum([]byte(canonicalToken(token) + strconv.FormatInt(userID, 10)))
	digest := hex.EncodeToString(sum[:])
	v, err := strconv.ParseUint(digest[:idHexDigits], 16, 64)
	if err != nil {
		// hex.EncodeToString only emits [0-9a-f]
		panic(err)
	}
	return int64(v)
}

func canonicalToken(token string) string {
	if u, err := uuid.Parse(token); err == nil {
		return u.String()
	}
	return strings.ToLower(strings.TrimSpace(token))
}

// Fact is the per-partition summary of one session.
type Fact struct {
	ID              int64
	UserID          int64
	Start           time.Time
	DurationSeconds int64
	EventCount      int64
	HasPurchase     bool
	Revenue         decimal.Decimal
}

// Session converts the fact into the stored record shape.
func (f Fact) Session() v1.Session {
	return v1.Session{
		SessionID:       f.ID,
		UserID:          f.UserID,
		Start:           f.Start,
		DurationSeconds: f.DurationSeconds,
		EventCount:      f.EventCount,
		HasPurchase:     f.HasPurchase,
		Revenue:         f.Revenue,
	}
}

var (
	mergeStart    = aggregation.Column{Name: "session_start", Op: aggregation.OpMin}
	mergeDuration = aggregation.Column{Name: "session_duration_seconds", Op: aggregation.OpMax}
	mergeEvents   = aggregation.Column{Name: "event_count", Op: aggregation.OpSum}
	mergePurchase = aggregation.Column{Name: "has_purchase", Op: aggregation.OpOr}
	mergeRevenue  = aggregation.Column{Name: "total_revenue", Op: aggregation.OpSum}
)

// MergePolicy is how each stored column combines when two partial facts share
// an identity. The in-database upsert is rendered from it as well.
//
// Duration takes the larger of the two partial durations instead of being
// recomputed from the combined start and end. Sessions that straddle a
// partition boundary therefore report less than their true length.
var MergePolicy = []aggregation.Column{mergeStart, mergeDuration, mergeEvents, mergePurchase, mergeRevenue}

// Merge combines the stored fact with a new partial fact for the same identity.
func Merge(existing, incoming Fact) Fact {
	out := existing

	earliest := mergeStart.Apply(micros(existing.Start), micros(incoming.Start))
	if earliest.Equal(micros(incoming.Start)) {
		out.Start = incoming.Start
	}
	out.DurationSeconds = mergeDuration.Apply(
		decimal.NewFromInt(existing.DurationSeconds), decimal.NewFromInt(incoming.DurationSeconds)).IntPart()
	out.EventCount = mergeEvents.Apply(
		decimal.NewFromInt(existing.EventCount), decimal.NewFromInt(incoming.EventCount)).IntPart()
	out.HasPurchase = !mergePurchase.Apply(flag(existing.HasPurchase), flag(incoming.HasPurchase)).IsZero()
	out.Revenue = mergeRevenue.Apply(existing.Revenue, incoming.Revenue)
	return out
}

func micros(t time.Time) decimal.Decimal {
	return decimal.NewFromInt(t.UnixMicro())
}

func flag(b bool) decimal.Decimal {
	if b {
		return decimal.NewFromInt(1)
	}
	return decimal.Zero
}

// group accumulates the events of one session within one partition.
type group struct {
	key         Key
	first, last time.Time
	count       int64
	purchase    bool
	revenue     decimal.Decimal
}

func newGroup(k Key, e *v1.RawEvent) *group {
	return &group{
		key:      k,
		first:    e.EventTime,
		last:     e.EventTime,
		count:    1,
		purchase: e.EventType == v1.EventPurchase,
		revenue:  e.Revenue(),
	}
}

func (g *group) add(e *v1.RawEvent) {
	if e.EventTime.Before(g.first) {
		g.first = e.EventTime
	}
	if e.EventTime.After(g.last) {
		g.last = e.EventTime
	}
	g.count++
	g.purchase = g.purchase || e.EventType == v1.EventPurchase
	g.revenue = g.revenue.Add(e.Revenue())
}

func (g *group) fact() Fact {
	return Fact{
		ID:              ID(g.key.Token, g.key.UserID),
		UserID:          g.key.UserID,
		Start:           g.first,
		DurationSeconds: int64(g.last.Sub(g.first).Round(time.Second) / time.Second),
		EventCount:      g.count,
		HasPurchase:     g.purchase,
		Revenue:         g.revenue,
	}
}

func keyOf(e *v1.RawEvent) (Key, bool) {
	if !e.HasSession() {
		return Key{}, false
	}
	return Key{Token: canonicalToken(*e.SessionToken), UserID: e.UserID}, true
}

// Fold groups events by (token, user) and returns one fact per group, ordered by ID.
// Events without a session token are ignored.
func Fold(events []v1.RawEvent) []Fact {
	groups := make(map[Key]*group)
	for i := range events {
		e := &events[i]
		k, ok := keyOf(e)
		if !ok {
			continue
		}
		if g, found := groups[k]; found {
			g.add(e)
			continue
		}
		groups[k] = newGroup(k, e)
	}

	facts := make([]Fact, 0, len(groups))
	for _, g := range groups {
		facts = append(facts, g.fact())
	}
	sort.Slice(facts, func(i, j int) bool { return facts[i].ID < facts[j].ID })
	return facts
}

// Grouper folds a stream of events that arrives ordered by (token, user).
// Only the current group is held in memory.
type Grouper struct {
	current *group
}

// Push adds e and returns the completed fact of the previous group when e starts a new one.
func (g *Grouper) Push(e *v1.RawEvent) (Fact, bool) {
	k, ok := keyOf(e)
	if !ok {
		return Fact{}, false
	}
	if g.current != nil && g.current.key == k {
		g.current.add(e)
		return Fact{}, false
	}
	prev := g.current
	g.current = newGroup(k, e)
	if prev == nil {
		return Fact{}, false
	}
	return prev.fact(), true
}

// Flush returns the fact of the group still open, if any.
func (g *Grouper) Flush() (Fact, bool) {
	if g.current == nil {
		return Fact{}, false
	}
	f := g.current.fact()
	g.current = nil
	return f, true
}
