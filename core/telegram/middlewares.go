package telegram

import (
	"github.com/m3rciful/devroster/core/telegram/middleware"
)

// DefaultMiddlewares builds the shared middleware chain. Recover runs
// outermost so panics in later layers are contained; dedupe runs after the
// logger so dropped redeliveries still carry a request id. A nil ledger
// disables deduplication.
func DefaultMiddlewares(ledger middleware.UpdateLedger) []Middleware {
	mws := []Middleware{
		{Name: "recover", Use: middleware.RecoverMiddleware},
		{Name: "logger", Use: middleware.LoggerMiddleware},
	}
	if ledger != nil {
		mws = append(mws, Middleware{Name: "dedupe", Use: middleware.DedupeMiddleware(ledger)})
	}
	return append(mws, Middleware{Name: "metrics", Use: middleware.MessageMetricsMiddleware})
}
