package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/devroster/core/database"
	"github.com/m3rciful/devroster/core/telegram/state"
	"github.com/m3rciful/devroster/internal/roster"
)

type sessionRow struct {
	Identity  int64  `db:"identity"`
	State     string `db:"state"`
	Draft     string `db:"draft"`
	UpdatedAt int64  `db:"updated_at"`
}

// Sessions implements roster.SessionStore over the sessions table.
type Sessions struct {
	db  *sqlx.DB
	ttl time.Duration
	now func() time.Time
}

// Option customises Sessions.
type Option func(*Sessions)

// WithTTL makes sessions idle after ttl without writes; 0 disables expiry.
func WithTTL(ttl time.Duration) Option {
	return func(s *Sessions) { s.ttl = ttl }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Sessions) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSessions returns a session store on db.
func NewSessions(db *sqlx.DB, opts ...Option) *Sessions {
	s := &Sessions{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get loads the session of identity; absent or expired rows read as idle.
func (s *Sessions) Get(ctx context.Context, identity int64) (roster.Session, error) {
	var row sessionRow
	err := database.Retry(ctx, func(ctx context.Context) error {
		return s.db.GetContext(ctx, &row, s.db.Rebind(
			`SELECT identity, state, draft, updated_at FROM sessions WHERE identity = ?`), identity)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return state.Idle[roster.Draft](identity), nil
	}
	if err != nil {
		return roster.Session{}, fmt.Errorf("sqlstore: get session: %w", err)
	}
	updated := time.Unix(row.UpdatedAt, 0)
	if state.Expired(updated, s.now(), s.ttl) {
		return state.Idle[roster.Draft](identity), nil
	}
	sess := roster.Session{Identity: identity, State: state.State(row.State), UpdatedAt: updated}
	if err := json.Unmarshal([]byte(row.Draft), &sess.Draft); err != nil {
		return roster.Session{}, fmt.Errorf("sqlstore: decode draft for %d: %w", identity, err)
	}
	return sess, nil
}

// Put writes state and draft in one upsert statement.
func (s *Sessions) Put(ctx context.Context, sess roster.Session) error {
	return database.Retry(ctx, func(ctx context.Context) error {
		return putSession(ctx, s.db, sess, s.now())
	})
}

// Sweep deletes rows idle for longer than the TTL and returns how many went.
func (s *Sessions) Sweep(ctx context.Context) (int64, error) {
	if s.ttl <= 0 {
		return 0, nil
	}
	cutoff := s.now().Add(-s.ttl).Unix()
	var n int64
	err := database.Retry(ctx, func(ctx context.Context) error {
		res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM sessions WHERE updated_at <= ?`), cutoff)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("sqlstore: sweep sessions: %w", err)
	}
	return n, nil
}

const upsertSession = `INSERT INTO sessions (identity, state, draft, updated_at) VALUES (?, ?, ?, ?)
ON CONFLICT (identity) DO UPDATE SET state = excluded.state, draft = excluded.draft, updated_at = excluded.updated_at`

func putSession(ctx context.Context, ex sqlx.ExtContext, sess roster.Session, now time.Time) error {
	st := sess.State
	if st == "" {
		st = state.StateIdle
	}
	draft, err := json.Marshal(sess.Draft)
	if err != nil {
		return fmt.Errorf("sqlstore: encode draft for %d: %w", sess.Identity, err)
	}
	if _, err := ex.ExecContext(ctx, ex.Rebind(upsertSession), sess.Identity, string(st), string(draft), now.Unix()); err != nil {
		return fmt.Errorf("sqlstore: put session: %w", err)
	}
	return nil
}
