// Package redisstore keeps dialogue sessions and the update-id ledger in
// Redis. Sessions are single JSON documents, so state and draft are always
// replaced by one SET.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/m3rciful/devroster/core/telegram/state"
	"github.com/m3rciful/devroster/internal/roster"
)

// DefaultPrefix namespaces every key written by this package.
const DefaultPrefix = "devroster:"

// Config describes the Redis connection.
type Config struct {
	Addr     string `yaml:"addr" envconfig:"REDIS_ADDR"`
	Password string `yaml:"password" envconfig:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" envconfig:"REDIS_DB"`
	Prefix   string `yaml:"prefix" envconfig:"REDIS_PREFIX"`
}

// Normalize fills defaults. An empty address is an error.
func (c *Config) Normalize() error {
	c.Addr = strings.TrimSpace(c.Addr)
	if c.Addr == "" {
		return errors.New("redis.addr is required")
	}
	if c.DB < 0 {
		return fmt.Errorf("redis.db must be >= 0")
	}
	if c.Prefix == "" {
		c.Prefix = DefaultPrefix
	}
	return nil
}

// NewClient opens a client for cfg and checks it with PING.
func NewClient(ctx context.Context, cfg Config) (*redis.Client, error) {
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   1,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return client, nil
}

type sessionDoc struct {
	State     string          `json:"state"`
	Draft     json.RawMessage `json:"draft"`
	UpdatedAt int64           `json:"updated_at"`
}

// Sessions implements roster.SessionStore.
type Sessions struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// NewSessions returns a session store. Keys expire after ttl of inactivity;
// 0 keeps them until the dialogue returns to idle.
func NewSessions(client redis.Cmdable, prefix string, ttl time.Duration) *Sessions {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Sessions{client: client, prefix: prefix, ttl: ttl, now: time.Now}
}

func (s *Sessions) key(identity int64) string {
	return s.prefix + "session:" + strconv.FormatInt(identity, 10)
}

// Get loads the session of identity; a missing key reads as idle.
func (s *Sessions) Get(ctx context.Context, identity int64) (roster.Session, error) {
	raw, err := s.client.Get(ctx, s.key(identity)).Bytes()
	if errors.Is(err, redis.Nil) {
		return state.Idle[roster.Draft](identity), nil
	}
	if err != nil {
		return roster.Session{}, fmt.Errorf("redisstore: get session: %w", err)
	}
	var doc sessionDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return roster.Session{}, fmt.Errorf("redisstore: decode session %d: %w", identity, err)
	}
	updated := time.Unix(doc.UpdatedAt, 0)
	if state.Expired(updated, s.now(), s.ttl) {
		return state.Idle[roster.Draft](identity), nil
	}
	sess := roster.Session{Identity: identity, State: state.State(doc.State), UpdatedAt: updated}
	if len(doc.Draft) > 0 {
		if err := json.Unmarshal(doc.Draft, &sess.Draft); err != nil {
			return roster.Session{}, fmt.Errorf("redisstore: decode draft %d: %w", identity, err)
		}
	}
	return sess, nil
}

// Put stores sess as one document. An idle session without a draft is the
// default, so its key is deleted instead.
func (s *Sessions) Put(ctx context.Context, sess roster.Session) error {
	if (sess.State == "" || sess.State == state.StateIdle) && sess.Draft.Empty() {
		if err := s.client.Del(ctx, s.key(sess.Identity)).Err(); err != nil {
			return fmt.Errorf("redisstore: reset session: %w", err)
		}
		return nil
	}
	draft, err := json.Marshal(sess.Draft)
	if err != nil {
		return fmt.Errorf("redisstore: encode draft %d: %w", sess.Identity, err)
	}
	doc, err := json.Marshal(sessionDoc{State: string(sess.State), Draft: draft, UpdatedAt: s.now().Unix()})
	if err != nil {
		return fmt.Errorf("redisstore: encode session %d: %w", sess.Identity, err)
	}
	if err := s.client.Set(ctx, s.key(sess.Identity), doc, s.ttl).Err(); err != nil {
		return fmt.Errorf("redisstore: put session: %w", err)
	}
	return nil
}

// Ledger remembers processed Telegram update ids for a window. It satisfies
// the dedupe middleware's UpdateLedger.
type Ledger struct {
	client redis.Cmdable
	prefix string
	window time.Duration
}

// NewLedger returns a ledger whose entries expire after window.
func NewLedger(client redis.Cmdable, prefix string, window time.Duration) *Ledger {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Ledger{client: client, prefix: prefix, window: window}
}

// Seen records updateID and reports whether it had been recorded before.
func (l *Ledger) Seen(ctx context.Context, updateID int) (bool, error) {
	key := l.prefix + "update:" + strconv.Itoa(updateID)
	fresh, err := l.client.SetNX(ctx, key, 1, l.window).Result()
	if err != nil {
		return false, fmt.Errorf("redisstore: ledger: %w", err)
	}
	return !fresh, nil
}

// Ping reports whether Redis answers; used by the readiness check.
func Ping(client redis.Cmdable) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}
