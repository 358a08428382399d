// Package app wires configuration, storage backends, the roster engine and
// the Telegram adapter into a runnable bot.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/m3rciful/devroster/core/bootstrap"
	"github.com/m3rciful/devroster/core/cmd"
	coreconfig "github.com/m3rciful/devroster/core/config"
	coredatabase "github.com/m3rciful/devroster/core/database"
	"github.com/m3rciful/devroster/core/health"
	"github.com/m3rciful/devroster/core/logger"
	coretelegram "github.com/m3rciful/devroster/core/telegram"
	"github.com/m3rciful/devroster/core/telegram/middleware"
	"github.com/m3rciful/devroster/core/telegram/router"
	"github.com/m3rciful/devroster/core/telegram/state"
	"github.com/m3rciful/devroster/internal/bot"
	"github.com/m3rciful/devroster/internal/roster"
	"github.com/m3rciful/devroster/internal/storage/memstore"
	"github.com/m3rciful/devroster/internal/storage/redisstore"
	"github.com/m3rciful/devroster/internal/storage/sqlstore"
	"github.com/m3rciful/devroster/migrations"
)

// ServiceName appears in the liveness response and startup logs.
const ServiceName = "devroster"

// App holds the wired components of a running bot.
type App struct {
	cfg *Config

	db    *sqlx.DB
	redis *redis.Client

	engine  *roster.Engine
	handler *bot.Handler
	ledger  middleware.UpdateLedger
	sweep   func(ctx context.Context) (int64, error)
	checks  []health.Check
}

// LoadCarrier adapts Load to the runner's config loader signature.
func LoadCarrier(path string) (cmd.ConfigCarrier, error) {
	return Load(path)
}

// Bootstrap adapts New to the runner's bootstrap signature.
func Bootstrap(carrier cmd.ConfigCarrier) (cmd.TelegramApp, error) {
	cfg, ok := carrier.(*Config)
	if !ok {
		return nil, fmt.Errorf("app: unexpected config type %T", carrier)
	}
	return New(context.Background(), cfg, nil)
}

// New initialises logging, databases and stores. db may be supplied by
// tests; when nil and SQL is configured the bootstrap pipeline connects and
// migrates.
func New(ctx context.Context, cfg *Config, db *sqlx.DB) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	a := &App{cfg: cfg, db: db}

	opts := bootstrap.Options{Config: &cfg.Config}
	if cfg.UsesSQL() && db == nil {
		opts.Database = &cfg.Database
		opts.Migrations = migrations.FS
	}
	res, err := bootstrap.Run(opts)
	if err != nil {
		return nil, err
	}
	if res.DB != nil {
		a.db = res.DB
	}
	if a.db != nil {
		sqlDB := a.db
		a.checks = append(a.checks, health.Check{Name: "database", Ping: sqlDB.PingContext})
	}

	if cfg.UsesRedis() {
		client, err := redisstore.NewClient(ctx, cfg.Redis)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("app: %w", err)
		}
		a.redis = client
		a.checks = append(a.checks, health.Check{Name: "redis", Ping: redisstore.Ping(client)})
	}

	if err := a.wire(); err != nil {
		a.Close()
		return nil, err
	}
	logger.Info(ctx, "app", "app.wired",
		slog.String("storage", cfg.Storage.Backend),
		slog.String("sessions", cfg.Session.Backend),
		slog.Duration("session_ttl", cfg.SessionTTL()),
		slog.Bool("redis_ledger", a.redis != nil),
	)
	return a, nil
}

func (a *App) wire() error {
	cfg := a.cfg
	ttl := cfg.SessionTTL()

	var sessions roster.SessionStore
	switch cfg.Session.Backend {
	case BackendSQL:
		s := sqlstore.NewSessions(a.db, sqlstore.WithTTL(ttl))
		sessions, a.sweep = s, s.Sweep
	case BackendRedis:
		sessions = redisstore.NewSessions(a.redis, cfg.Redis.Prefix, ttl)
	default:
		s := state.NewMemoryStore[roster.Draft](state.WithTTL(ttl))
		sessions = s
		a.sweep = func(context.Context) (int64, error) { return int64(s.Sweep()), nil }
	}

	var records roster.RecordStore
	switch cfg.Storage.Backend {
	case BackendSQL:
		records = sqlstore.NewRecords(a.db)
	default:
		records = memstore.NewRecords()
	}
	var committer roster.Committer
	if cfg.Storage.Backend == BackendSQL && cfg.Session.Backend == BackendSQL {
		committer = sqlstore.NewCommitter(a.db)
	} else {
		committer = roster.SequentialCommitter{Records: records, Sessions: sessions}
	}

	engine, err := roster.NewEngine(roster.Options{
		Sessions:  sessions,
		Records:   records,
		Committer: committer,
		OpTimeout: cfg.Session.OpTimeout,
	})
	if err != nil {
		return fmt.Errorf("app: %w", err)
	}
	a.engine = engine
	a.handler = bot.NewHandler(engine)

	if a.redis != nil {
		a.ledger = redisstore.NewLedger(a.redis, cfg.Redis.Prefix, cfg.Dedupe.Window)
	} else {
		a.ledger = middleware.NewMemoryLedger(cfg.Dedupe.Window)
	}
	return nil
}

// Engine returns the roster engine.
func (a *App) Engine() *roster.Engine { return a.engine }

// TelegramRunOptions builds the registry, routes and companion services.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	reg := coretelegram.NewRegistry()
	if err := a.handler.Register(reg); err != nil {
		return coretelegram.RunOptions{}, fmt.Errorf("app: register handlers: %w", err)
	}

	routes := router.CommandRoutes(reg)
	routes = append(routes, router.CallbackRoute(reg))
	routes = append(routes, router.TextRoutes(reg)...)

	return coretelegram.RunOptions{
		Config:      &a.cfg.Config,
		Registry:    reg,
		Middlewares: coretelegram.DefaultMiddlewares(a.ledger),
		Routes:      routes,
		Services:    a.Services(),
		OnStop: func(context.Context, coretelegram.Runtime) error {
			return a.Close()
		},
	}, nil
}

// Services returns the companions that run beside the bot.
func (a *App) Services() []coretelegram.Service {
	var svcs []coretelegram.Service
	if addr := a.cfg.Health.Addr; addr != "" {
		h := health.NewRouter(ServiceName, a.checks...)
		svcs = append(svcs, coretelegram.Service{
			Name: "health",
			Run:  func(ctx context.Context) error { return health.Serve(ctx, addr, h) },
		})
	}
	if ttl := a.cfg.SessionTTL(); ttl > 0 && a.sweep != nil {
		svcs = append(svcs, coretelegram.Service{
			Name: "session_sweeper",
			Run:  func(ctx context.Context) error { return a.runSweeper(ctx, sweepInterval(ttl)) },
		})
	}
	return svcs
}

func sweepInterval(ttl time.Duration) time.Duration {
	return min(max(ttl/4, time.Minute), time.Hour)
}

func (a *App) runSweeper(ctx context.Context, every time.Duration) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := a.sweep(ctx)
			if err != nil {
				logger.Warn(ctx, "storage", "sessions.sweep", slog.String("status", "fail"), slog.String("err", err.Error()))
				continue
			}
			if n > 0 {
				logger.Info(ctx, "storage", "sessions.sweep", slog.Int64("removed", n))
			}
		}
	}
}

// Close releases database and Redis connections.
func (a *App) Close() error {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
		a.redis = nil
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
		a.db = nil
	}
	return errors.Join(errs...)
}

// LoadDatabase reads only the database section of the file at path, so
// migrations run without a bot token.
func LoadDatabase(path string) (coredatabase.Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return coredatabase.Config{}, err
	}
	if err := cfg.Database.Normalize(); err != nil {
		return coredatabase.Config{}, fmt.Errorf("database: %w", err)
	}
	return cfg.Database, nil
}
