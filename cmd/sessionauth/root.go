// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/sessionauth/internal/auth"
	"github.com/holomush/sessionauth/internal/config"
	"github.com/holomush/sessionauth/internal/logging"
	"github.com/holomush/sessionauth/internal/xdg"
)

// Exit codes.
const (
	exitOK       = 0
	exitFailure  = 1
	exitRejected = 2
)

// app carries state shared by every subcommand of one root command.
type app struct {
	deps       Deps
	configFile string
	cfg        *config.Config
	logger     *slog.Logger
}

// NewRootCmd creates the root command for the sessionauth CLI.
func NewRootCmd() *cobra.Command {
	return newRootCmd(Deps{})
}

func newRootCmd(deps Deps) *cobra.Command {
	a := &app{deps: deps.withDefaults()}

	cmd := &cobra.Command{
		Use:   "sessionauth",
		Short: "Session-based authentication core",
		Long: `sessionauth manages accounts, password hashes, login sessions and
password reset tokens on PostgreSQL, SQLite or in memory.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&a.configFile, "config", "",
		"config file path (default "+xdg.ConfigFile()+" if present)")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(newMigrateCmd(a))
	cmd.AddCommand(newAccountCmd(a))
	cmd.AddCommand(newSessionCmd(a))
	cmd.AddCommand(newPasswordCmd(a))
	cmd.AddCommand(newConfigCmd(a))
	cmd.AddCommand(newServeCmd(a))

	return cmd
}

// configPath returns the explicit --config path, or the XDG default when
// that file exists.
func (a *app) configPath() string {
	if a.configFile != "" {
		return a.configFile
	}
	path := xdg.ConfigFile()
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return ""
	}
	return path
}

// config loads the configuration once and installs the configured logger.
func (a *app) config(cmd *cobra.Command) (*config.Config, error) {
	if a.cfg != nil {
		return a.cfg, nil
	}

	cfg, err := config.Load(a.configPath(), cmd.Flags())
	if err != nil {
		return nil, oops.With("operation", "load config").Wrap(err)
	}
	level, err := cfg.LogLevel()
	if err != nil {
		return nil, err //nolint:wrapcheck // config errors carry their own codes
	}

	a.cfg = cfg
	a.logger = logging.SetDefault(logging.Options{
		Service: "sessionauth",
		Version: version,
		Format:  cfg.Log.Format,
		Level:   level,
		Writer:  cmd.ErrOrStderr(),
	})
	return cfg, nil
}

// exitCode maps a command error to the process exit status. Rejected
// requests exit 2 so scripts can tell them from storage or setup failures.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	switch auth.KindOf(err) {
	case auth.KindStorageFailure:
		return exitFailure
	default:
		return exitRejected
	}
}
