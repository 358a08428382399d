package middleware

import (
	"context"
	"errors"
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"
)

func newContext(t *testing.T, upd tele.Update) tele.Context {
	t.Helper()
	b, err := tele.NewBot(tele.Settings{Offline: true, Token: "123:test"})
	if err != nil {
		t.Fatalf("bot: %v", err)
	}
	return b.NewContext(upd)
}

func textUpdate(id int) tele.Update {
	return tele.Update{ID: id, Message: &tele.Message{
		Text:   "hello",
		Sender: &tele.User{ID: 10},
		Chat:   &tele.Chat{ID: 10, Type: tele.ChatPrivate},
	}}
}

func TestMemoryLedgerWindow(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := NewMemoryLedger(time.Minute)
	l.now = func() time.Time { return now }

	if seen, _ := l.Seen(context.Background(), 1); seen {
		t.Fatal("first delivery reported as seen")
	}
	if seen, _ := l.Seen(context.Background(), 1); !seen {
		t.Fatal("redelivery not detected")
	}
	now = now.Add(2 * time.Minute)
	if seen, _ := l.Seen(context.Background(), 1); seen {
		t.Fatal("entry should expire after the window")
	}
}

func TestDedupeMiddlewareDropsRedelivery(t *testing.T) {
	ledger := NewMemoryLedger(time.Minute)
	calls := 0
	h := DedupeMiddleware(ledger)(func(tele.Context) error {
		calls++
		return nil
	})
	for i := 0; i < 3; i++ {
		if err := h(newContext(t, textUpdate(99))); err != nil {
			t.Fatalf("handler: %v", err)
		}
	}
	if err := h(newContext(t, textUpdate(100))); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
}

type failingLedger struct{}

func (failingLedger) Seen(context.Context, int) (bool, error) { return false, errors.New("down") }

func TestDedupeMiddlewareFailsOpen(t *testing.T) {
	calls := 0
	h := DedupeMiddleware(failingLedger{})(func(tele.Context) error {
		calls++
		return nil
	})
	_ = h(newContext(t, textUpdate(1)))
	_ = h(newContext(t, textUpdate(1)))
	if calls != 2 {
		t.Fatalf("ledger failure must not drop updates, calls = %d", calls)
	}
}

func TestRecoverMiddlewareReturnsError(t *testing.T) {
	h := RecoverMiddleware(func(tele.Context) error { panic("boom") })
	if err := h(newContext(t, textUpdate(5))); err == nil {
		t.Fatal("expected error from recovered panic")
	}
}

func TestLoggerMiddlewareStoresStart(t *testing.T) {
	c := newContext(t, textUpdate(7))
	err := LoggerMiddleware(func(c tele.Context) error {
		if _, ok := UpdateStart(c); !ok {
			t.Fatal("update start not recorded")
		}
		if rid, _ := c.Get("rid").(string); rid != "7:10:10" {
			t.Fatalf("rid = %q", rid)
		}
		return nil
	})(c)
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
}

func TestHasKeyboard(t *testing.T) {
	kb := &tele.ReplyMarkup{InlineKeyboard: [][]tele.InlineButton{{{Text: "x", Data: "y"}}}}
	if !hasKeyboard([]any{kb}) {
		t.Fatal("inline keyboard not detected")
	}
	if hasKeyboard([]any{&tele.ReplyMarkup{}}) {
		t.Fatal("empty markup counted as keyboard")
	}
}
