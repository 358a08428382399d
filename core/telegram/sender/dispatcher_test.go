package sender

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"
)

func TestDispatcherKeepsPerChatOrder(t *testing.T) {
	d := NewDispatcher(Options{Workers: 3, QueueSize: 32})
	var (
		mu  sync.Mutex
		got []int
	)
	for i := 0; i < 20; i++ {
		i := i
		if err := d.Enqueue(context.Background(), 77, "send.text", func() error {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
			return nil
		}); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}
	d.Close()
	if len(got) != 20 {
		t.Fatalf("ran %d jobs", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("jobs for one chat ran out of order: %v", got)
		}
	}
}

func TestDispatcherRetriesTransientErrors(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 2, RetryBackoff: time.Millisecond})
	calls := 0
	err := d.Enqueue(context.Background(), 1, "send.text", func() error {
		calls++
		if calls < 3 {
			return &net.OpError{Op: "dial", Err: errors.New("refused")}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	d.Close()
	if calls != 3 || d.ErrorCount() != 0 {
		t.Fatalf("calls = %d errors = %d", calls, d.ErrorCount())
	}
}

func TestDispatcherCountsPermanentFailure(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 3, RetryBackoff: time.Millisecond})
	calls := 0
	_ = d.Enqueue(context.Background(), 1, "send.text", func() error {
		calls++
		return errors.New("bad request")
	})
	d.Close()
	if calls != 1 || d.ErrorCount() != 1 {
		t.Fatalf("calls = %d errors = %d", calls, d.ErrorCount())
	}
}

func TestDispatcherRejectsAfterClose(t *testing.T) {
	d := NewDispatcher(Options{})
	d.Close()
	d.Close()
	if err := d.Enqueue(context.Background(), 1, "x", func() error { return nil }); !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("expected ErrQueueClosed, got %v", err)
	}
}

func TestShardOfNegativeChat(t *testing.T) {
	if s := shardOf(-1001234, 4); s < 0 || s >= 4 {
		t.Fatalf("shard out of range: %d", s)
	}
}

func TestSanitizeErrorMessage(t *testing.T) {
	err := errors.New(`Post "https://api.telegram.org/bot123456:AA-bb_cc/sendMessage": timeout`)
	if got := sanitizeErrorMessage(err); got != `Post "https://api.telegram.org/bot<redacted>/sendMessage": timeout` {
		t.Fatalf("token not redacted: %s", got)
	}
}
