package state

import (
	"context"
	"time"
)

// State identifies a finite-state-machine step used in conversations.
type State string

// StateIdle indicates there is no active conversation with the user.
const StateIdle State = "IDLE"

// Session is the persisted conversation position of one identity.
type Session[D any] struct {
	Identity  int64
	State     State
	Draft     D
	UpdatedAt time.Time
}

// Idle returns the default session for identity.
func Idle[D any](identity int64) Session[D] {
	return Session[D]{Identity: identity, State: StateIdle}
}

// Store persists sessions. Get never reports "not found": an absent or
// expired session reads as Idle. Put replaces state and draft in one write.
type Store[D any] interface {
	Get(ctx context.Context, identity int64) (Session[D], error)
	Put(ctx context.Context, s Session[D]) error
}

// Expired reports whether a session last written at updated has outlived ttl.
// A non-positive ttl never expires.
func Expired(updated, now time.Time, ttl time.Duration) bool {
	if ttl <= 0 || updated.IsZero() {
		return false
	}
	return now.Sub(updated) >= ttl
}
