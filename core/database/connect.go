package database

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/m3rciful/devroster/core/logger"
)

func init() {
	// sqlx only knows the cgo driver name "sqlite3".
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// ConnectTimeout bounds the initial connect and readiness wait.
var ConnectTimeout = 30 * time.Second

// Connect opens the database, configures the pool, and waits until it answers pings.
func Connect(cfg Config) (*sqlx.DB, error) {
	if err := cfg.Normalize(); err != nil {
		return nil, fmt.Errorf("db config: %w", err)
	}
	if cfg.Driver == DriverSQLite {
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("db data dir: %w", err)
			}
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), ConnectTimeout)
	defer cancel()

	start := time.Now()
	db, err := sqlx.Open(cfg.Driver, cfg.DSN())
	if err == nil {
		err = waitReady(ctx, db)
		if err != nil {
			_ = db.Close()
		}
	}
	took := time.Since(start)
	if err != nil {
		logger.DB.LogAttrs(ctx, slog.LevelError, "db.connect",
			slog.String("status", "fail"),
			slog.String("driver", cfg.Driver),
			slog.String("db", cfg.Target()),
			slog.Duration("duration", took),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("db connect: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxConnections)

	logger.DB.LogAttrs(ctx, slog.LevelInfo, "db.connect",
		slog.String("status", "ok"),
		slog.String("driver", cfg.Driver),
		slog.String("db", cfg.Target()),
		slog.Int("pool_open", cfg.MaxConnections),
		slog.Duration("duration", took),
	)
	return db, nil
}

// waitReady pings until the server answers or ctx ends; a starting Postgres
// container commonly refuses the first few connections.
func waitReady(ctx context.Context, db *sqlx.DB) error {
	var lastErr error
	for attempt := 1; ; attempt++ {
		if lastErr = db.PingContext(ctx); lastErr == nil {
			return nil
		}
		logger.DB.LogAttrs(ctx, slog.LevelDebug, "db.ping",
			slog.String("status", "retry"),
			slog.Int("attempts", attempt),
			slog.String("err", lastErr.Error()),
		)
		select {
		case <-ctx.Done():
			return fmt.Errorf("database not ready: %w", lastErr)
		case <-time.After(time.Second):
		}
	}
}
