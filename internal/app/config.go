package app

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	coreconfig "github.com/m3rciful/devroster/core/config"
	coredatabase "github.com/m3rciful/devroster/core/database"
	"github.com/m3rciful/devroster/internal/roster"
	"github.com/m3rciful/devroster/internal/storage/redisstore"
)

// Storage and session backends.
const (
	BackendSQL    = "sql"
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// DefaultSessionTTL applies when session.ttl is omitted.
const DefaultSessionTTL = 24 * time.Hour

// StorageConfig selects where permanent records live.
type StorageConfig struct {
	Backend string `yaml:"backend" envconfig:"STORAGE_BACKEND"`
}

// SessionConfig selects where dialogue sessions live and how long they last.
type SessionConfig struct {
	// Backend defaults to the storage backend.
	Backend string `yaml:"backend" envconfig:"SESSION_BACKEND"`
	// TTL is the inactivity window after which a session reads as idle.
	// Omitted means DefaultSessionTTL; 0 disables expiry.
	TTL OptionalDuration `yaml:"ttl" envconfig:"SESSION_TTL"`
	// OpTimeout bounds the storage work of a single update.
	OpTimeout time.Duration `yaml:"op_timeout" envconfig:"SESSION_OP_TIMEOUT"`
}

// OptionalDuration is a duration that remembers whether it was configured.
// It accepts Go duration strings and a bare 0 from both YAML and the
// environment.
type OptionalDuration struct {
	Value time.Duration
	Set   bool
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *OptionalDuration) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", n.Line)
	}
	if err := d.Decode(n.Value); err != nil {
		return fmt.Errorf("line %d: %w", n.Line, err)
	}
	return nil
}

// Decode implements envconfig.Decoder.
func (d *OptionalDuration) Decode(value string) error {
	v, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("invalid duration %q", value)
	}
	*d = OptionalDuration{Value: v, Set: true}
	return nil
}

// Config is the full devroster configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database coredatabase.Config `yaml:"database"`
	Storage  StorageConfig       `yaml:"storage"`
	Session  SessionConfig       `yaml:"session"`
	Redis    redisstore.Config   `yaml:"redis"`
}

// CoreConfig exposes the embedded core configuration.
func (c *Config) CoreConfig() *coreconfig.Config { return &c.Config }

// SessionTTL returns the effective session TTL.
func (c *Config) SessionTTL() time.Duration {
	if !c.Session.TTL.Set {
		return DefaultSessionTTL
	}
	return c.Session.TTL.Value
}

// UsesSQL reports whether any backend needs the SQL database.
func (c *Config) UsesSQL() bool {
	return c.Storage.Backend == BackendSQL || c.Session.Backend == BackendSQL
}

// UsesRedis reports whether a Redis client is needed.
func (c *Config) UsesRedis() bool {
	return c.Session.Backend == BackendRedis || c.Redis.Addr != ""
}

// Load reads the YAML file at path, overlays the environment and validates.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates cfg and fills defaults.
func Normalize(cfg *Config) error {
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return err
	}
	return normalizeBackends(cfg)
}

func normalizeBackends(cfg *Config) error {
	cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))
	switch cfg.Storage.Backend {
	case "":
		cfg.Storage.Backend = BackendSQL
	case BackendSQL, BackendMemory:
	default:
		return fmt.Errorf("invalid storage.backend %q; allowed: sql, memory", cfg.Storage.Backend)
	}

	cfg.Session.Backend = strings.ToLower(strings.TrimSpace(cfg.Session.Backend))
	switch cfg.Session.Backend {
	case "":
		cfg.Session.Backend = cfg.Storage.Backend
	case BackendSQL, BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("invalid session.backend %q; allowed: sql, redis, memory", cfg.Session.Backend)
	}

	if cfg.Session.TTL.Value < 0 {
		return fmt.Errorf("session.ttl must be >= 0")
	}
	if cfg.Session.OpTimeout < 0 {
		return fmt.Errorf("session.op_timeout must be >= 0")
	}
	if cfg.Session.OpTimeout == 0 {
		cfg.Session.OpTimeout = roster.DefaultOpTimeout
	}

	if cfg.UsesSQL() {
		if err := cfg.Database.Normalize(); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}
	if cfg.UsesRedis() {
		if err := cfg.Redis.Normalize(); err != nil {
			return err
		}
	}
	return nil
}
