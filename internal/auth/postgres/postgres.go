// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package postgres implements the auth repositories on PostgreSQL.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/holomush/sessionauth/internal/auth"
)

// Constraint names from the postgres migrations.
const (
	constraintAccountEmail = "accounts_email_key"
	constraintSessionOwner = "sessions_account_id_fkey"
)

// poolIface is the subset of *pgxpool.Pool used by the repositories.
// pgxmock.PgxPoolIface satisfies it in unit tests.
type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// classifyConstraint maps constraint violations to auth sentinels. A unique
// violation on the email is a duplicate registration; any other unique
// violation is a token hash collision. Other errors are returned unchanged.
func classifyConstraint(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		if pgErr.ConstraintName == constraintAccountEmail {
			return errors.Join(auth.ErrDuplicateEmail, err)
		}
		return errors.Join(auth.ErrTokenCollision, err)
	case pgerrcode.ForeignKeyViolation:
		if pgErr.ConstraintName == constraintSessionOwner {
			return errors.Join(auth.ErrUnknownAccount, err)
		}
	}
	return err
}
