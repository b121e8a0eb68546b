// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/sessionauth/internal/observability"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve metrics and health probes for the configured store",
		Long: `Serve Prometheus metrics on /metrics and health probes on
/healthz/liveness and /healthz/readiness until interrupted. Readiness
reflects whether the credential store answers a ping.

The sessionauth_*_total auth counters are not served here: this process
never logs anyone in. A process that embeds the auth service registers
them with observability.WithCollectors(auth.RegisterMetrics).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withEnv(cmd, func(ctx context.Context, e *env) error {
				ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
				defer stop()
				return serve(ctx, a, e)
			})
		},
	}
}

func serve(ctx context.Context, a *app, e *env) error {
	server := a.deps.NewObservabilityServer(e.cfg.Metrics.Addr, e.backend.Ping,
		observability.WithLogger(a.logger),
		observability.WithBuildInfo(version, commit),
	)
	errCh, err := server.Start()
	if err != nil {
		return oops.Code("SERVE_START_FAILED").With("addr", e.cfg.Metrics.Addr).Wrap(err)
	}
	a.logger.Info("serving",
		"addr", server.Addr(),
		"store", e.cfg.Store.Driver,
		"session_policy", e.cfg.Session.Policy,
		"session_max_age", e.cfg.Session.MaxAge.String())

	var serveErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutting down")
	case err, ok := <-errCh:
		if ok && err != nil {
			serveErr = oops.Code("SERVE_FAILED").Wrap(err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		a.logger.Warn("error stopping observability server", "error", err)
	}
	return serveErr
}
