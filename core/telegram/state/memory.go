package state

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

type memoryEntry struct {
	state     State
	draft     []byte
	updatedAt time.Time
}

// MemoryStore keeps sessions in process memory. Drafts are held in their JSON
// form so callers never share mutable slices or maps with the store.
type MemoryStore[D any] struct {
	mu       sync.RWMutex
	sessions map[int64]memoryEntry
	ttl      time.Duration
	now      func() time.Time
}

// MemoryOption customises a MemoryStore.
type MemoryOption func(*memoryConfig)

type memoryConfig struct {
	ttl time.Duration
	now func() time.Time
}

// WithTTL expires sessions that were not written for ttl.
func WithTTL(ttl time.Duration) MemoryOption {
	return func(c *memoryConfig) { c.ttl = ttl }
}

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(c *memoryConfig) {
		if now != nil {
			c.now = now
		}
	}
}

// NewMemoryStore constructs an in-memory Store for tests and development.
func NewMemoryStore[D any](opts ...MemoryOption) *MemoryStore[D] {
	cfg := memoryConfig{now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &MemoryStore[D]{
		sessions: make(map[int64]memoryEntry),
		ttl:      cfg.ttl,
		now:      cfg.now,
	}
}

// Get returns the stored session, or the idle default when absent or expired.
func (m *MemoryStore[D]) Get(ctx context.Context, identity int64) (Session[D], error) {
	if err := ctx.Err(); err != nil {
		return Session[D]{}, err
	}
	m.mu.RLock()
	entry, ok := m.sessions[identity]
	m.mu.RUnlock()

	if !ok || Expired(entry.updatedAt, m.now(), m.ttl) {
		return Idle[D](identity), nil
	}
	sess := Session[D]{Identity: identity, State: entry.state, UpdatedAt: entry.updatedAt}
	if err := json.Unmarshal(entry.draft, &sess.Draft); err != nil {
		return Session[D]{}, fmt.Errorf("state: decode draft for %d: %w", identity, err)
	}
	return sess, nil
}

// Put replaces the session for s.Identity under a single lock acquisition.
func (m *MemoryStore[D]) Put(ctx context.Context, s Session[D]) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.State == "" {
		s.State = StateIdle
	}
	raw, err := json.Marshal(s.Draft)
	if err != nil {
		return fmt.Errorf("state: encode draft for %d: %w", s.Identity, err)
	}
	m.mu.Lock()
	m.sessions[s.Identity] = memoryEntry{state: s.State, draft: raw, updatedAt: m.now()}
	m.mu.Unlock()
	return nil
}

// Len reports how many sessions are held, expired ones included.
func (m *MemoryStore[D]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep drops expired sessions and returns how many were removed.
func (m *MemoryStore[D]) Sweep() int {
	if m.ttl <= 0 {
		return 0
	}
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, entry := range m.sessions {
		if Expired(entry.updatedAt, now, m.ttl) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}
