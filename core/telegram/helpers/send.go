package helpers

import (
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/m3rciful/devroster/core/logger"
	"github.com/m3rciful/devroster/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

var globalDispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher wires the asynchronous sender used by SendText.
func SetDispatcher(d *sender.Dispatcher) {
	globalDispatcher.Store(d)
}

func sendAsync(c tele.Context, action string, run func() error) error {
	disp := globalDispatcher.Load()
	if disp == nil {
		return run()
	}
	ctx := BuildContext(c)
	_, chatID := Identity(c)
	err := disp.Enqueue(ctx, chatID, action, run)
	if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
		logger.Warn(ctx, "tg.sender", "queue.fallback",
			slog.String("op", action),
			slog.String("err", err.Error()),
		)
		return run()
	}
	return err
}

// SendText sends plain text with an optional reply markup to the current chat.
func SendText(c tele.Context, text string, markup *tele.ReplyMarkup) error {
	return sendAsync(c, "send.text", func() error {
		if markup != nil {
			return c.Send(text, markup)
		}
		return c.Send(text)
	})
}

// EditText replaces the text and inline keyboard of the message the current
// callback belongs to; a nil markup drops the keyboard. It runs synchronously
// so the caller sees edit errors.
func EditText(c tele.Context, text string, markup *tele.ReplyMarkup) error {
	if markup == nil {
		return c.Edit(text)
	}
	return c.Edit(text, markup)
}
