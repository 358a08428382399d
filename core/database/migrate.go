package database

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/m3rciful/devroster/core/logger"
)

// Migrator applies schema migrations embedded in the binary.
type Migrator struct {
	cfg   Config
	files fs.FS
}

// NewMigrator binds an embedded migrations filesystem (files at its root) to cfg.
func NewMigrator(cfg Config, files fs.FS) (*Migrator, error) {
	if files == nil {
		return nil, errors.New("db migrate: nil migrations fs")
	}
	if err := cfg.Normalize(); err != nil {
		return nil, fmt.Errorf("db migrate: %w", err)
	}
	return &Migrator{cfg: cfg, files: files}, nil
}

func (m *Migrator) open() (*migrate.Migrate, error) {
	src, err := iofs.New(m.files, ".")
	if err != nil {
		return nil, fmt.Errorf("db migrate: source: %w", err)
	}
	mg, err := migrate.NewWithSourceInstance("iofs", src, m.cfg.MigrateURL())
	if err != nil {
		return nil, fmt.Errorf("db migrate: init: %w", err)
	}
	return mg, nil
}

// Up applies all pending up migrations.
func (m *Migrator) Up() error {
	return m.run("up", func(mg *migrate.Migrate) error { return mg.Up() })
}

// Down reverts steps migrations; steps <= 0 reverts everything.
func (m *Migrator) Down(steps int) error {
	return m.run("down", func(mg *migrate.Migrate) error {
		if steps <= 0 {
			return mg.Down()
		}
		return mg.Steps(-steps)
	})
}

// Version reports the applied schema version and dirty flag.
func (m *Migrator) Version() (uint, bool, error) {
	mg, err := m.open()
	if err != nil {
		return 0, false, err
	}
	defer closeMigrate(mg)
	v, dirty, err := mg.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}

func (m *Migrator) run(direction string, apply func(*migrate.Migrate) error) error {
	files := listMigrationFiles(m.files, direction)
	preview, truncated := logger.SummarizeStrings(files, 6)
	logger.MIG.Debug("migrations resolved",
		slog.String("event", "resolve"),
		slog.String("op", direction),
		slog.Int("files_total", len(files)),
		slog.String("files_preview", preview),
		slog.Bool("files_truncated", truncated),
	)

	mg, err := m.open()
	if err != nil {
		logger.MIG.Error("init failed",
			slog.String("event", "db.migrate"),
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return err
	}
	defer closeMigrate(mg)

	fromVer, _, _ := mg.Version()
	start := time.Now()
	applyErr := apply(mg)
	took := time.Since(start)

	if applyErr != nil && !errors.Is(applyErr, migrate.ErrNoChange) {
		logger.MIG.Error("migration failed",
			slog.String("event", "apply"),
			slog.String("status", "fail"),
			slog.String("op", direction),
			slog.String("err", applyErr.Error()),
			slog.Duration("duration", took),
		)
		return fmt.Errorf("db migrate %s: %w", direction, applyErr)
	}

	toVer, _, _ := mg.Version()
	logger.MIG.Info("migrations summary",
		slog.String("event", "summary"),
		slog.String("status", "ok"),
		slog.String("op", direction),
		slog.String("driver", m.cfg.Driver),
		slog.Uint64("from_ver", uint64(fromVer)),
		slog.Uint64("to_ver", uint64(toVer)),
		slog.Int("files", countBetween(files, uint64(fromVer), uint64(toVer))),
		slog.Duration("duration", took),
	)
	return nil
}

func closeMigrate(mg *migrate.Migrate) {
	srcErr, dbErr := mg.Close()
	if err := errors.Join(srcErr, dbErr); err != nil {
		logger.MIG.Warn("close failed",
			slog.String("event", "db.migrate.close"),
			slog.String("err", err.Error()),
		)
	}
}

func listMigrationFiles(files fs.FS, direction string) []string {
	entries, err := fs.ReadDir(files, ".")
	if err != nil {
		return nil
	}
	suffix := "." + direction + ".sql"
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), suffix) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}

func parseVersion(name string) uint64 {
	head, _, _ := strings.Cut(name, "_")
	v, _ := strconv.ParseUint(head, 10, 64)
	return v
}

// countBetween counts files whose version lies in (lo, hi], in either direction.
func countBetween(files []string, a, b uint64) int {
	lo, hi := a, b
	if lo > hi {
		lo, hi = hi, lo
	}
	n := 0
	for _, f := range files {
		if v := parseVersion(f); v > lo && v <= hi {
			n++
		}
	}
	return n
}
