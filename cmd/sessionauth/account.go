// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newAccountCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage accounts",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "register EMAIL",
		Short: "Register a new account",
		Long:  `Register a new account. The password is read from the terminal, or from the first line of stdin.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := a.deps.ReadPassword(cmd, "Password: ")
			if err != nil {
				return err
			}
			return a.withEnv(cmd, func(ctx context.Context, e *env) error {
				account, err := e.service.Register(ctx, args[0], password)
				if err != nil {
					return err //nolint:wrapcheck // auth errors carry their own codes
				}
				fmt.Fprintln(cmd.OutOrStdout(), account.ID.String())
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "check EMAIL",
		Short: "Check a password without creating a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := a.deps.ReadPassword(cmd, "Password: ")
			if err != nil {
				return err
			}
			return a.withEnv(cmd, func(ctx context.Context, e *env) error {
				if !e.service.ValidLogin(ctx, args[0], password) {
					return errInvalidLogin
				}
				fmt.Fprintln(cmd.OutOrStdout(), "valid")
				return nil
			})
		},
	})

	return cmd
}
