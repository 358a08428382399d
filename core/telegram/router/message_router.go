package router

import (
	"strings"
	"time"

	tg "github.com/m3rciful/devroster/core/telegram"

	tele "gopkg.in/telebot.v4"
)

// TextRoutes handles plain text: slash-prefixed command aliases first, then
// the registry text fallback.
func TextRoutes(reg *tg.Registry) []tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		text := strings.TrimSpace(c.Text())

		if strings.HasPrefix(text, "/") {
			if key, cmd, ok := reg.LookupCommand(text); ok && cmd.Handler != nil {
				return handleWithSummary(c, normalizeHandlerName(key), start, func() error {
					return cmd.Handler(c)
				})
			}
		}
		if fb := reg.TextFallback(); fb != nil {
			return handleWithSummary(c, "text", start, func() error { return fb(c) })
		}
		logHandlerSummary(c, "unknown_text", start, "skip", nil)
		return nil
	}
	return []tg.Route{{Endpoint: tele.OnText, Handler: handler}}
}
