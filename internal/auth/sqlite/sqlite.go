// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package sqlite implements the auth repositories on an embedded SQLite
// database. Timestamps are stored as INTEGER unix nanoseconds.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/holomush/sessionauth/internal/auth"
)

// dbIface is the subset of *sql.DB used by the repositories.
type dbIface interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// classifyConstraint maps SQLite constraint failures to auth sentinels.
// SQLite reports the failing column rather than a constraint name, so the
// email column is recognized from the message.
func classifyConstraint(err error) error {
	var liteErr sqlite3.Error
	if !errors.As(err, &liteErr) || liteErr.Code != sqlite3.ErrConstraint {
		return err
	}

	switch liteErr.ExtendedCode {
	case sqlite3.ErrConstraintUnique:
		if strings.Contains(liteErr.Error(), "accounts.email") {
			return errors.Join(auth.ErrDuplicateEmail, err)
		}
		return errors.Join(auth.ErrTokenCollision, err)
	case sqlite3.ErrConstraintForeignKey:
		return errors.Join(auth.ErrUnknownAccount, err)
	}
	return err
}

func toNanos(t time.Time) int64 {
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func nullNanos(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
