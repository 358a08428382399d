package redisstore

import (
	"context"
	"fmt"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/m3rciful/devroster/internal/roster"
)

func TestConfigNormalize(t *testing.T) {
	var cfg Config
	if err := cfg.Normalize(); err == nil {
		t.Fatal("expected error without addr")
	}
	cfg = Config{Addr: " localhost:6379 "}
	if err := cfg.Normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.Addr != "localhost:6379" || cfg.Prefix != DefaultPrefix {
		t.Fatalf("defaults = %+v", cfg)
	}
}

func TestSessionKey(t *testing.T) {
	s := NewSessions(nil, "", 0)
	if got := s.key(-42); got != "devroster:session:-42" {
		t.Fatalf("key = %s", got)
	}
}

// redisTestClient connects to DEVROSTER_TEST_REDIS and returns a key prefix
// unique to the test; keys are removed on cleanup.
func redisTestClient(t *testing.T) (*Sessions, *Ledger) {
	t.Helper()
	addr := os.Getenv("DEVROSTER_TEST_REDIS")
	if addr == "" {
		t.Skip("DEVROSTER_TEST_REDIS not set")
	}
	ctx := context.Background()
	client, err := NewClient(ctx, Config{Addr: addr})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	prefix := fmt.Sprintf("devroster-test:%d:", time.Now().UnixNano())
	t.Cleanup(func() {
		keys, _ := client.Keys(ctx, prefix+"*").Result()
		if len(keys) > 0 {
			client.Del(ctx, keys...)
		}
		_ = client.Close()
	})
	return NewSessions(client, prefix, time.Hour), NewLedger(client, prefix, time.Minute)
}

func TestRedisSessionsRoundTrip(t *testing.T) {
	sessions, _ := redisTestClient(t)
	ctx := context.Background()

	if s, err := sessions.Get(ctx, 1); err != nil || s.State != roster.StateIdle {
		t.Fatalf("default = %+v, %v", s, err)
	}
	h := "alice"
	want := roster.Draft{Identity: 1, Name: "Alice", ContactHandle: &h}
	if err := sessions.Put(ctx, roster.Session{Identity: 1, State: roster.StateAskCategory, Draft: want}); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := sessions.Get(ctx, 1)
	if err != nil || got.State != roster.StateAskCategory || !reflect.DeepEqual(got.Draft, want) {
		t.Fatalf("round trip = %+v, %v", got, err)
	}
	if err := sessions.Put(ctx, roster.Session{Identity: 1, State: roster.StateIdle}); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if got, _ := sessions.Get(ctx, 1); got.State != roster.StateIdle || !got.Draft.Empty() {
		t.Fatalf("after reset = %+v", got)
	}
}

func TestRedisLedger(t *testing.T) {
	_, ledger := redisTestClient(t)
	ctx := context.Background()
	if seen, err := ledger.Seen(ctx, 77); seen || err != nil {
		t.Fatalf("first = %v, %v", seen, err)
	}
	if seen, err := ledger.Seen(ctx, 77); !seen || err != nil {
		t.Fatalf("second = %v, %v", seen, err)
	}
}
