// Package health serves the liveness and readiness endpoints.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/m3rciful/devroster/core/logger"
)

// CheckTimeout bounds a single readiness probe.
const CheckTimeout = 2 * time.Second

// Check is one named dependency probe.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

type report struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// NewRouter mounts GET / (liveness text) and GET /healthz (JSON readiness).
func NewRouter(service string, checks ...Check) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLog)

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(service + " is running\n"))
	})
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		rep := probe(req.Context(), checks)
		w.Header().Set("Content-Type", "application/json")
		if rep.Status != "ok" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(rep)
	})
	return r
}

func probe(ctx context.Context, checks []Check) report {
	rep := report{Status: "ok"}
	if len(checks) == 0 {
		return rep
	}
	rep.Checks = make(map[string]string, len(checks))
	sorted := append([]Check(nil), checks...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	for _, c := range sorted {
		if c.Ping == nil {
			continue
		}
		cctx, cancel := context.WithTimeout(ctx, CheckTimeout)
		err := c.Ping(cctx)
		cancel()
		if err != nil {
			rep.Status = "fail"
			rep.Checks[c.Name] = "fail: " + err.Error()
			continue
		}
		rep.Checks[c.Name] = "ok"
	}
	return rep
}

func requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		if !logger.ShouldSampleDebug() {
			return
		}
		logger.Debug(r.Context(), "http", "http.request",
			slog.String("op", r.Method+" "+r.URL.Path),
			slog.Int("code", ww.Status()),
			slog.Duration("duration", time.Since(start)),
		)
	})
}

// Serve runs an HTTP server on addr until ctx is cancelled, then shuts it down.
func Serve(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "http", "http.listen", slog.String("listen", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	<-errCh
	return nil
}
