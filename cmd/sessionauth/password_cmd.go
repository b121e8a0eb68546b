// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newPasswordCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "password",
		Short: "Reset passwords with single-use tokens",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "reset-token EMAIL",
		Short: "Issue a reset token, invalidating any earlier one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEnv(cmd, func(ctx context.Context, e *env) error {
				token, err := e.service.IssueResetToken(ctx, args[0])
				if err != nil {
					return err //nolint:wrapcheck // auth errors carry their own codes
				}
				fmt.Fprintln(cmd.OutOrStdout(), token)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "update TOKEN",
		Short: "Set a new password using a reset token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := a.deps.ReadPassword(cmd, "New password: ")
			if err != nil {
				return err
			}
			return a.withEnv(cmd, func(ctx context.Context, e *env) error {
				if err := e.service.UpdatePassword(ctx, args[0], password); err != nil {
					return err //nolint:wrapcheck // auth errors carry their own codes
				}
				cmd.Println("Password updated")
				return nil
			})
		},
	})

	return cmd
}
