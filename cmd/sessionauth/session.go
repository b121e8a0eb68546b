// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/sessionauth/internal/auth"
)

var errInvalidLogin = oops.Code("LOGIN_INVALID").Wrap(auth.ErrInvalidCredentials)

func newSessionCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Issue, inspect and destroy login sessions",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "login EMAIL",
		Short: "Verify a password and print a new session token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := a.deps.ReadPassword(cmd, "Password: ")
			if err != nil {
				return err
			}
			return a.withEnv(cmd, func(ctx context.Context, e *env) error {
				token, err := e.service.Login(ctx, args[0], password)
				if err != nil {
					return err //nolint:wrapcheck // auth errors carry their own codes
				}
				fmt.Fprintln(cmd.OutOrStdout(), token)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "create EMAIL",
		Short: "Print a new session token without checking a password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEnv(cmd, func(ctx context.Context, e *env) error {
				token, err := e.service.CreateSession(ctx, args[0])
				if err != nil {
					return err //nolint:wrapcheck // auth errors carry their own codes
				}
				fmt.Fprintln(cmd.OutOrStdout(), token)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "whoami TOKEN",
		Short: "Show the account owning an active session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEnv(cmd, func(ctx context.Context, e *env) error {
				account, err := e.service.Authenticate(ctx, args[0])
				if err != nil {
					return err //nolint:wrapcheck // auth errors carry their own codes
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", account.ID, account.Email)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "logout TOKEN",
		Short: "Destroy a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEnv(cmd, func(ctx context.Context, e *env) error {
				return e.service.Logout(ctx, args[0]) //nolint:wrapcheck // auth errors carry their own codes
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "logout-all EMAIL",
		Short: "Destroy every session of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEnv(cmd, func(ctx context.Context, e *env) error {
				account, err := e.backend.Accounts.GetByEmail(ctx, args[0])
				if errors.Is(err, auth.ErrNotFound) {
					return oops.Code("ACCOUNT_NOT_FOUND").With("email", args[0]).Wrap(auth.ErrUnknownAccount)
				}
				if err != nil {
					return err //nolint:wrapcheck // repository errors carry their own codes
				}
				return e.service.LogoutAccount(ctx, account.ID) //nolint:wrapcheck // auth errors carry their own codes
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "prune",
		Short: "Delete sessions older than the configured max age",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withEnv(cmd, func(ctx context.Context, e *env) error {
				n, err := e.policy.Prune(ctx)
				if err != nil {
					return err //nolint:wrapcheck // policy errors carry their own codes
				}
				cmd.Printf("Pruned %d expired sessions\n", n)
				return nil
			})
		},
	})

	return cmd
}
