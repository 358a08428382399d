package router

import (
	"log/slog"
	"time"

	"github.com/m3rciful/devroster/core/logger"
	tg "github.com/m3rciful/devroster/core/telegram"

	tele "gopkg.in/telebot.v4"
)

// CommandRoutes binds every registered command (and its aliases) to a
// handler that logs one summary line per invocation.
func CommandRoutes(reg *tg.Registry) []tg.Route {
	if reg == nil {
		return nil
	}
	cmds := reg.Commands()
	routes := make([]tg.Route, 0, len(cmds))
	for name, def := range cmds {
		h := summarized(normalizeHandlerName(name), def.Handler)
		routes = append(routes, tg.Route{Endpoint: name, Handler: h})
		for _, alias := range def.Aliases {
			routes = append(routes, tg.Route{Endpoint: ensureSlash(alias), Handler: h})
		}
	}

	logger.TWire.Info("tg.wire",
		slog.String("event", "complete"),
		slog.Int("count", len(cmds)),
		slog.Int("callbacks", len(reg.ListCallbacks())),
	)
	return routes
}

func summarized(name string, h tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		return handleWithSummary(c, name, time.Now(), func() error { return h(c) })
	}
}

func ensureSlash(name string) string {
	if name != "" && name[0] != '/' {
		return "/" + name
	}
	return name
}
