package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/m3rciful/devroster/core/database"
	"github.com/m3rciful/devroster/internal/roster"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func memoryConfig(t *testing.T) *Config {
	t.Helper()
	cfg := &Config{}
	cfg.Telegram.Token = "123:test"
	cfg.Storage.Backend = BackendMemory
	if err := Normalize(cfg); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	return cfg
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "123:test"
database:
  path: `+filepath.Join(t.TempDir(), "roster.db")+`
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.Backend != BackendSQL || cfg.Session.Backend != BackendSQL {
		t.Fatalf("backends = %s/%s, want sql/sql", cfg.Storage.Backend, cfg.Session.Backend)
	}
	if cfg.Database.Driver != database.DriverSQLite {
		t.Fatalf("driver = %q", cfg.Database.Driver)
	}
	if cfg.SessionTTL() != DefaultSessionTTL {
		t.Fatalf("ttl = %v", cfg.SessionTTL())
	}
	if cfg.Session.OpTimeout != roster.DefaultOpTimeout {
		t.Fatalf("op timeout = %v", cfg.Session.OpTimeout)
	}
	if cfg.UsesRedis() {
		t.Fatal("redis should be off without an address")
	}
}

func TestLoadEnvOverlay(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "123:test"
storage:
  backend: sql
`)
	t.Setenv("STORAGE_BACKEND", "memory")
	t.Setenv("SESSION_TTL", "0s")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.Backend != BackendMemory || cfg.Session.Backend != BackendMemory {
		t.Fatalf("backends = %s/%s", cfg.Storage.Backend, cfg.Session.Backend)
	}
	if cfg.SessionTTL() != 0 {
		t.Fatalf("explicit zero ttl should disable expiry, got %v", cfg.SessionTTL())
	}
}

func TestLoadSessionTTLForms(t *testing.T) {
	cases := map[string]time.Duration{
		"0":     0,
		"0s":    0,
		"90m":   90 * time.Minute,
		"\"2h\"": 2 * time.Hour,
	}
	for raw, want := range cases {
		path := writeConfig(t, "telegram:\n  token: \"123:test\"\nstorage:\n  backend: memory\nsession:\n  ttl: "+raw+"\n")
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("ttl %s: load: %v", raw, err)
		}
		if got := cfg.SessionTTL(); got != want {
			t.Fatalf("ttl %s: got %v, want %v", raw, got, want)
		}
	}
}

func TestLoadRejectsUnitlessTTL(t *testing.T) {
	path := writeConfig(t, "telegram:\n  token: \"123:test\"\nstorage:\n  backend: memory\nsession:\n  ttl: 30\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for a ttl without unit")
	}
}

func TestEnvZeroTTL(t *testing.T) {
	path := writeConfig(t, "telegram:\n  token: \"123:test\"\nstorage:\n  backend: memory\n")
	t.Setenv("SESSION_TTL", "0")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.SessionTTL() != 0 {
		t.Fatalf("ttl = %v, want expiry disabled", cfg.SessionTTL())
	}
}

func TestNormalizeRejectsBadBackends(t *testing.T) {
	cases := []func(*Config){
		func(c *Config) { c.Storage.Backend = "redis" },
		func(c *Config) { c.Session.Backend = "mongo" },
		func(c *Config) { c.Session.Backend = BackendRedis },
		func(c *Config) { c.Session.TTL = OptionalDuration{Value: -time.Second, Set: true} },
	}
	for i, mutate := range cases {
		cfg := &Config{}
		cfg.Telegram.Token = "123:test"
		cfg.Storage.Backend = BackendMemory
		mutate(cfg)
		if err := Normalize(cfg); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}

func TestSweepInterval(t *testing.T) {
	cases := map[time.Duration]time.Duration{
		time.Minute:    time.Minute,
		time.Hour:      15 * time.Minute,
		24 * time.Hour: time.Hour,
	}
	for ttl, want := range cases {
		if got := sweepInterval(ttl); got != want {
			t.Fatalf("sweepInterval(%v) = %v, want %v", ttl, got, want)
		}
	}
}

func TestMemoryWiring(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, memoryConfig(t), nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })

	for _, step := range []string{"/start", "Ada", "ada", "category:AI", "go, rust"} {
		var err error
		if step == "category:AI" {
			_, err = a.Engine().HandleCallback(ctx, 42, step)
		} else {
			_, err = a.Engine().HandleText(ctx, 42, step)
		}
		if err != nil {
			t.Fatalf("%q: %v", step, err)
		}
	}
	reply, err := a.Engine().HandleText(ctx, 42, "/me")
	if err != nil {
		t.Fatalf("/me: %v", err)
	}
	if reply.Kind != roster.ReplyProfile || reply.Record == nil || reply.Record.Name != "Ada" {
		t.Fatalf("profile reply = %+v", reply)
	}

	opts, err := a.TelegramRunOptions()
	if err != nil {
		t.Fatalf("run options: %v", err)
	}
	if len(opts.Routes) == 0 || opts.Registry == nil {
		t.Fatal("routes not built")
	}
	if _, ok := opts.Registry.GetCallback(roster.NamespaceCategory); !ok {
		t.Fatal("category namespace not registered")
	}
	if len(opts.Middlewares) != 4 {
		t.Fatalf("middlewares = %d, want recover, logger, dedupe, metrics", len(opts.Middlewares))
	}
	if len(opts.Services) != 1 || opts.Services[0].Name != "session_sweeper" {
		t.Fatalf("services = %+v", opts.Services)
	}
}

func TestSQLWiring(t *testing.T) {
	ctx := context.Background()
	cfg := &Config{}
	cfg.Telegram.Token = "123:test"
	cfg.Health.Addr = "127.0.0.1:0"
	cfg.Database.Path = filepath.Join(t.TempDir(), "roster.db")
	if err := Normalize(cfg); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	a, err := New(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })

	if len(a.checks) != 1 || a.checks[0].Name != "database" {
		t.Fatalf("checks = %+v", a.checks)
	}
	if err := a.checks[0].Ping(ctx); err != nil {
		t.Fatalf("database ping: %v", err)
	}
	names := map[string]bool{}
	for _, s := range a.Services() {
		names[s.Name] = true
	}
	if !names["health"] || !names["session_sweeper"] {
		t.Fatalf("services = %v", names)
	}
	if n, err := a.sweep(ctx); err != nil || n != 0 {
		t.Fatalf("sweep = %d, %v", n, err)
	}
}

func TestLoadDatabaseSkipsTelegram(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: sqlite3
  path: roster.db
`)
	db, err := LoadDatabase(path)
	if err != nil {
		t.Fatalf("load database: %v", err)
	}
	if db.Driver != database.DriverSQLite || db.Path != "roster.db" {
		t.Fatalf("db = %+v", db)
	}
}

func TestBootstrapRejectsForeignCarrier(t *testing.T) {
	if _, err := Bootstrap(nil); err == nil {
		t.Fatal("expected error for nil carrier")
	}
}
