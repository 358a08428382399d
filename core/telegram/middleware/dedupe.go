package middleware

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/devroster/core/logger"
	tghelpers "github.com/m3rciful/devroster/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// UpdateLedger remembers processed update ids. Seen marks id as processed and
// reports whether it had already been marked inside the ledger window.
type UpdateLedger interface {
	Seen(ctx context.Context, updateID int) (bool, error)
}

// MemoryLedger is a process-local UpdateLedger.
type MemoryLedger struct {
	mu     sync.Mutex
	seen   map[int]time.Time
	window time.Duration
	now    func() time.Time
	sweep  time.Time
}

// NewMemoryLedger remembers update ids for window.
func NewMemoryLedger(window time.Duration) *MemoryLedger {
	return &MemoryLedger{seen: make(map[int]time.Time), window: window, now: time.Now}
}

// Seen implements UpdateLedger.
func (l *MemoryLedger) Seen(_ context.Context, updateID int) (bool, error) {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	if now.Sub(l.sweep) > l.window {
		for id, ts := range l.seen {
			if now.Sub(ts) > l.window {
				delete(l.seen, id)
			}
		}
		l.sweep = now
	}
	if ts, ok := l.seen[updateID]; ok && now.Sub(ts) <= l.window {
		return true, nil
	}
	l.seen[updateID] = now
	return false, nil
}

// DedupeMiddleware drops updates the ledger has already seen. Ledger errors
// are logged and the update is processed anyway.
func DedupeMiddleware(ledger UpdateLedger) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			id := c.Update().ID
			if ledger == nil || id == 0 {
				return next(c)
			}
			ctx := tghelpers.BuildContext(c)
			seen, err := ledger.Seen(ctx, id)
			if err != nil {
				logger.Warn(ctx, "tg", "update.dedupe",
					slog.String("status", "fail"),
					slog.String("err", err.Error()),
				)
				return next(c)
			}
			if seen {
				logger.Info(ctx, "tg", "update.dedupe", slog.String("status", "duplicate"))
				if c.Callback() != nil {
					_ = c.Respond()
				}
				return nil
			}
			return next(c)
		}
	}
}
