package router

import (
	"log/slog"
	"time"

	tg "github.com/m3rciful/devroster/core/telegram"
	"github.com/m3rciful/devroster/core/telegram/callbacks"

	tele "gopkg.in/telebot.v4"
)

// CallbackRoute answers every button press (dismissing the client spinner)
// and dispatches it by namespace through the registry.
func CallbackRoute(reg *tg.Registry) tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		if c.Callback() == nil {
			return nil
		}
		_ = c.Respond()

		ns, key := callbacks.Split(callbacks.Data(c))
		name := "callback." + normalizeHandlerName(ns)
		extras := []slog.Attr{slog.String("cb_ns", ns), slog.String("cb_key", key)}

		h, ok := reg.GetCallback(ns)
		if !ok {
			h = reg.CallbackNotFound()
			extras = append(extras, slog.String("cause", "not_found"))
		}
		if h == nil {
			logHandlerSummary(c, name, start, "skip", nil, extras...)
			return nil
		}
		return handleWithSummary(c, name, start, func() error { return h(c) }, extras...)
	}
	return tg.Route{Endpoint: tele.OnCallback, Handler: handler}
}
