// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/sessionauth/internal/auth"
	"github.com/holomush/sessionauth/internal/auth/memory"
	"github.com/holomush/sessionauth/internal/auth/postgres"
	"github.com/holomush/sessionauth/internal/auth/sqlite"
	"github.com/holomush/sessionauth/internal/config"
	"github.com/holomush/sessionauth/internal/observability"
	"github.com/holomush/sessionauth/internal/store"
	"github.com/holomush/sessionauth/internal/xdg"
)

// Deps contains injectable dependencies for the CLI.
// All fields with nil values will use their default implementations.
type Deps struct {
	// OpenBackend opens the configured credential store.
	// Default: openBackend
	OpenBackend func(ctx context.Context, cfg *config.Config) (*Backend, error)

	// NewMigrator creates a schema migrator for the configured store.
	// Default: newMigrator
	NewMigrator func(cfg *config.Config) (Migrator, error)

	// ReadPassword prompts for a password.
	// Default: readPassword
	ReadPassword func(cmd *cobra.Command, prompt string) (string, error)

	// NewObservabilityServer creates the metrics and health server.
	// Default: observability.NewServer
	NewObservabilityServer func(addr string, probe observability.ReadinessProbe, opts ...observability.Option) ObservabilityServer

	// Hasher hashes new passwords.
	// Default: auth.NewArgon2idHasher
	Hasher auth.PasswordHasher
}

func (d Deps) withDefaults() Deps {
	if d.OpenBackend == nil {
		d.OpenBackend = openBackend
	}
	if d.NewMigrator == nil {
		d.NewMigrator = newMigrator
	}
	if d.ReadPassword == nil {
		d.ReadPassword = readPassword
	}
	if d.NewObservabilityServer == nil {
		d.NewObservabilityServer = func(addr string, probe observability.ReadinessProbe, opts ...observability.Option) ObservabilityServer {
			return observability.NewServer(addr, probe, opts...)
		}
	}
	if d.Hasher == nil {
		d.Hasher = auth.NewArgon2idHasher()
	}
	return d
}

// Backend is an open credential store.
type Backend struct {
	Accounts auth.AccountRepository
	Sessions auth.SessionRepository
	Ping     func(ctx context.Context) error
	Close    func()
}

// Migrator wraps the methods used from store.Migrator.
type Migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (uint, bool, error)
	Force(version int) error
	PendingMigrations() ([]store.Migration, error)
	AppliedMigrations() ([]store.Migration, error)
	Dialect() store.Dialect
	Close() error
}

// ObservabilityServer wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
}

func openBackend(ctx context.Context, cfg *config.Config) (*Backend, error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		pool, err := store.OpenPostgres(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, err //nolint:wrapcheck // store errors carry their own codes
		}
		return &Backend{
			Accounts: postgres.NewAccountRepository(pool),
			Sessions: postgres.NewSessionRepository(pool),
			Ping:     pool.Ping,
			Close:    pool.Close,
		}, nil

	case config.DriverSQLite:
		if err := xdg.EnsureDir(filepath.Dir(cfg.Store.SQLitePath)); err != nil {
			return nil, err //nolint:wrapcheck // xdg errors carry their own codes
		}
		db, err := store.OpenSQLite(ctx, cfg.Store.SQLitePath)
		if err != nil {
			return nil, err //nolint:wrapcheck // store errors carry their own codes
		}
		return &Backend{
			Accounts: sqlite.NewAccountRepository(db),
			Sessions: sqlite.NewSessionRepository(db),
			Ping:     db.PingContext,
			Close:    func() { _ = db.Close() },
		}, nil

	case config.DriverMemory:
		slog.Warn("memory store selected; accounts and sessions are lost on exit")
		return &Backend{
			Accounts: memory.NewAccountRepository(),
			Sessions: memory.NewSessionRepository(),
			Ping:     func(context.Context) error { return nil },
			Close:    func() {},
		}, nil
	}
	return nil, oops.Code("CONFIG_INVALID").Errorf("unknown store driver %q", cfg.Store.Driver)
}

func newMigrator(cfg *config.Config) (Migrator, error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		return store.NewMigrator(cfg.Store.DatabaseURL) //nolint:wrapcheck // store errors carry their own codes
	case config.DriverSQLite:
		if err := xdg.EnsureDir(filepath.Dir(cfg.Store.SQLitePath)); err != nil {
			return nil, err //nolint:wrapcheck // xdg errors carry their own codes
		}
		return store.NewSQLiteMigrator(cfg.Store.SQLitePath) //nolint:wrapcheck // store errors carry their own codes
	}
	return nil, oops.Code("MIGRATION_UNSUPPORTED").
		With("driver", cfg.Store.Driver).
		Errorf("the %s store has no schema to migrate", cfg.Store.Driver)
}

// env is an assembled facade over an open backend.
type env struct {
	cfg     *config.Config
	backend *Backend
	policy  *auth.SessionPolicy
	service *auth.Service
}

// withEnv loads config, opens the backend and builds the facade for the
// duration of fn.
func (a *app) withEnv(cmd *cobra.Command, fn func(ctx context.Context, e *env) error) error {
	cfg, err := a.config(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	backend, err := a.deps.OpenBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	var sessions auth.SessionStore
	switch cfg.Session.Policy {
	case config.PolicyMulti:
		sessions = auth.NewRecordSessionStore(backend.Sessions)
	default:
		sessions = auth.NewAccountSessionStore(backend.Accounts)
	}

	policy, err := auth.NewSessionPolicy(sessions, cfg.Session.MaxAge)
	if err != nil {
		return err //nolint:wrapcheck // policy errors carry their own codes
	}
	service, err := auth.NewServiceWithLogger(backend.Accounts, policy, a.deps.Hasher, a.logger)
	if err != nil {
		return err //nolint:wrapcheck // service errors carry their own codes
	}

	return fn(ctx, &env{cfg: cfg, backend: backend, policy: policy, service: service})
}
