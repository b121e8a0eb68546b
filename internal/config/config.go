// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads sessionauth configuration from defaults, an optional
// YAML file and command-line flags, in increasing order of precedence.
package config

import (
	"log/slog"
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/holomush/sessionauth/internal/auth"
	"github.com/holomush/sessionauth/internal/xdg"
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Session policies.
const (
	PolicySingle = "single"
	PolicyMulti  = "multi"
)

// DatabaseURLEnv is consulted when store.database_url is not configured.
const DatabaseURLEnv = "DATABASE_URL"

// Config is the complete sessionauth configuration.
type Config struct {
	Store   StoreConfig   `koanf:"store" json:"store,omitempty"`
	Session SessionConfig `koanf:"session" json:"session,omitempty"`
	Log     LogConfig     `koanf:"log" json:"log,omitempty"`
	Metrics MetricsConfig `koanf:"metrics" json:"metrics,omitempty"`
}

// StoreConfig selects and locates the credential store.
type StoreConfig struct {
	Driver      string `koanf:"driver" json:"driver,omitempty" jsonschema:"enum=postgres,enum=sqlite,enum=memory,description=Credential store backend"`
	DatabaseURL string `koanf:"database_url" json:"database_url,omitempty" jsonschema:"description=PostgreSQL connection URL"`
	SQLitePath  string `koanf:"sqlite_path" json:"sqlite_path,omitempty" jsonschema:"description=SQLite database file"`
}

// SessionConfig controls session lifetime and storage strategy.
type SessionConfig struct {
	MaxAge time.Duration `koanf:"max_age" json:"max_age,omitempty" jsonschema:"description=Session lifetime; 0 never expires"`
	Policy string        `koanf:"policy" json:"policy,omitempty" jsonschema:"enum=single,enum=multi,description=single keeps one session per account"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Format string `koanf:"format" json:"format,omitempty" jsonschema:"enum=json,enum=text"`
	Level  string `koanf:"level" json:"level,omitempty" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
}

// MetricsConfig controls the observability server.
type MetricsConfig struct {
	Addr string `koanf:"addr" json:"addr,omitempty" jsonschema:"description=Listen address for /metrics and health probes"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Store: StoreConfig{
			Driver:     DriverPostgres,
			SQLitePath: xdg.DatabaseFile(),
		},
		Session: SessionConfig{
			MaxAge: auth.DefaultSessionMaxAge,
			Policy: PolicySingle,
		},
		Log: LogConfig{
			Format: "json",
			Level:  "info",
		},
		Metrics: MetricsConfig{
			Addr: "127.0.0.1:9100",
		},
	}
}

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"store":           "store.driver",
	"database-url":    "store.database_url",
	"sqlite-path":     "store.sqlite_path",
	"session-max-age": "session.max_age",
	"session-policy":  "session.policy",
	"log-format":      "log.format",
	"log-level":       "log.level",
	"metrics-addr":    "metrics.addr",
}

// RegisterFlags adds the configuration flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("store", d.Store.Driver, "credential store (postgres, sqlite, memory)")
	fs.String("database-url", "", "PostgreSQL URL (default $"+DatabaseURLEnv+")")
	fs.String("sqlite-path", d.Store.SQLitePath, "SQLite database file")
	fs.Duration("session-max-age", d.Session.MaxAge, "session lifetime, 0 for no expiry")
	fs.String("session-policy", d.Session.Policy, "session policy (single, multi)")
	fs.String("log-format", d.Log.Format, "log format (json, text)")
	fs.String("log-level", d.Log.Level, "log level (debug, info, warn, error)")
	fs.String("metrics-addr", d.Metrics.Addr, "observability listen address")
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and the flags set on fs (skipped when fs is nil). The file
// is validated against the configuration schema before it is applied.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := setDefaults(k); err != nil {
		return nil, err
	}

	if path != "" {
		provider := file.Provider(path)
		data, err := provider.ReadBytes()
		if err != nil {
			return nil, oops.Code("CONFIG_READ_FAILED").With("path", path).Wrap(err)
		}
		if err := ValidateYAML(data); err != nil {
			return nil, oops.Code("CONFIG_INVALID").With("path", path).Wrap(err)
		}
		if err := k.Load(provider, yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_PARSE_FAILED").With("path", path).Wrap(err)
		}
	}

	if fs != nil {
		if err := k.Load(posflag.ProviderWithFlag(fs, ".", k, flagValue), nil); err != nil {
			return nil, oops.Code("CONFIG_FLAGS_FAILED").Wrap(err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_UNMARSHAL_FAILED").Wrap(err)
	}

	if cfg.Store.DatabaseURL == "" {
		cfg.Store.DatabaseURL = os.Getenv(DatabaseURLEnv)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(k *koanf.Koanf) error {
	d := Default()
	defaults := map[string]any{
		"store.driver":       d.Store.Driver,
		"store.sqlite_path":  d.Store.SQLitePath,
		"session.max_age":    d.Session.MaxAge.String(),
		"session.policy":     d.Session.Policy,
		"log.format":         d.Log.Format,
		"log.level":          d.Log.Level,
		"metrics.addr":       d.Metrics.Addr,
		"store.database_url": d.Store.DatabaseURL,
	}
	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return oops.Code("CONFIG_DEFAULTS_FAILED").With("key", key).Wrap(err)
		}
	}
	return nil
}

// flagValue maps a flag to its configuration key. Flags that are not
// configuration flags are skipped.
func flagValue(f *pflag.Flag) (string, any) {
	key, ok := flagKeys[f.Name]
	if !ok {
		return "", nil
	}
	return key, f.Value.String()
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverPostgres:
		if c.Store.DatabaseURL == "" {
			return oops.Code("CONFIG_INVALID").
				With("key", "store.database_url").
				Errorf("database URL is required for the postgres store (set --database-url or $%s)", DatabaseURLEnv)
		}
	case DriverSQLite:
		if c.Store.SQLitePath == "" {
			return oops.Code("CONFIG_INVALID").
				With("key", "store.sqlite_path").
				Errorf("sqlite path is required for the sqlite store")
		}
	case DriverMemory:
	default:
		return oops.Code("CONFIG_INVALID").
			With("key", "store.driver").
			Errorf("unknown store driver %q", c.Store.Driver)
	}

	if c.Session.MaxAge < 0 {
		return oops.Code("CONFIG_INVALID").
			With("key", "session.max_age").
			Errorf("session max age cannot be negative, got %s", c.Session.MaxAge)
	}

	switch c.Session.Policy {
	case PolicySingle, PolicyMulti:
	default:
		return oops.Code("CONFIG_INVALID").
			With("key", "session.policy").
			Errorf("unknown session policy %q", c.Session.Policy)
	}

	switch c.Log.Format {
	case "json", "text":
	default:
		return oops.Code("CONFIG_INVALID").
			With("key", "log.format").
			Errorf("unknown log format %q", c.Log.Format)
	}

	if _, err := c.LogLevel(); err != nil {
		return err
	}
	return nil
}

// LogLevel parses the configured log level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, oops.Code("CONFIG_INVALID").
			With("key", "log.level").
			Wrap(err)
	}
	return level, nil
}
