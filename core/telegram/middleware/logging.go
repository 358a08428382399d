package middleware

import (
	"log/slog"
	"time"

	"github.com/m3rciful/devroster/core/logger"
	"github.com/m3rciful/devroster/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/devroster/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

const updateStartKey = "update_start"

// LoggerMiddleware builds the per-update logging context and writes one
// sampled debug receipt line per update.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		c.Set(updateStartKey, time.Now())
		ctx := tghelpers.BuildContext(c)

		if logger.ShouldSampleDebug() {
			attrs := []slog.Attr{slog.String("status", "ok")}
			if chat := c.Chat(); chat != nil {
				attrs = append(attrs, slog.String("chat_type", string(chat.Type)))
			}
			if user := c.Sender(); user != nil && user.Username != "" {
				attrs = append(attrs, slog.String("username", logger.SanitizeLimit(user.Username, 64)))
			}
			upd := c.Update()
			switch {
			case upd.Callback != nil:
				ns, key := callbacks.Split(callbacks.Data(c))
				attrs = append(attrs,
					slog.String("cb_ns", logger.SanitizeLimit(ns, 64)),
					slog.String("cb_key", logger.SanitizeLimit(key, 64)),
				)
			case upd.Message != nil:
				if t := c.Text(); t != "" {
					attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(t, 256)))
				}
			}
			logger.LogEvent(ctx, nil, slog.LevelDebug, "update.received", attrs...)
		}
		return next(c)
	}
}

// UpdateStart returns when LoggerMiddleware first saw the update.
func UpdateStart(c tele.Context) (time.Time, bool) {
	t, ok := c.Get(updateStartKey).(time.Time)
	return t, ok
}
