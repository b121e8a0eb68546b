// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/sessionauth/internal/auth"
)

// SessionRepository implements auth.SessionRepository using SQLite.
type SessionRepository struct {
	db dbIface
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(db dbIface) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create stores a new session.
func (r *SessionRepository) Create(ctx context.Context, session *auth.Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, account_id, token_hash, created_at)
		VALUES (?, ?, ?, ?)
	`,
		session.ID.String(),
		session.AccountID.String(),
		session.TokenHash,
		toNanos(session.CreatedAt),
	)
	if err != nil {
		return oops.Code("SESSION_CREATE_FAILED").
			With("operation", "insert session").
			With("account_id", session.AccountID.String()).
			Wrap(classifyConstraint(err))
	}
	return nil
}

// GetByTokenHash retrieves a session by its token hash.
func (r *SessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*auth.Session, error) {
	var (
		idStr, accountIDStr string
		createdAt           int64
		session             auth.Session
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, account_id, token_hash, created_at
		FROM sessions
		WHERE token_hash = ?
	`, tokenHash).Scan(&idStr, &accountIDStr, &session.TokenHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_GET_FAILED").
			With("operation", "get session by token hash").
			Wrap(err)
	}

	if session.ID, err = ulid.Parse(idStr); err != nil {
		return nil, oops.Code("SESSION_INVALID_ID").With("id", idStr).Wrap(err)
	}
	if session.AccountID, err = ulid.Parse(accountIDStr); err != nil {
		return nil, oops.Code("SESSION_INVALID_ACCOUNT_ID").With("account_id", accountIDStr).Wrap(err)
	}
	session.CreatedAt = fromNanos(createdAt)
	return &session, nil
}

// DeleteByTokenHash removes a session and reports whether a row was removed.
func (r *SessionRepository) DeleteByTokenHash(ctx context.Context, tokenHash string) (bool, error) {
	n, err := r.exec(ctx, "delete session by token hash",
		`DELETE FROM sessions WHERE token_hash = ?`, tokenHash)
	return n > 0, err
}

// DeleteByAccount removes all sessions for an account.
func (r *SessionRepository) DeleteByAccount(ctx context.Context, accountID ulid.ULID) (int64, error) {
	return r.exec(ctx, "delete sessions by account",
		`DELETE FROM sessions WHERE account_id = ?`, accountID.String())
}

// DeleteCreatedBefore removes sessions created before cutoff.
func (r *SessionRepository) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return r.exec(ctx, "delete expired sessions",
		`DELETE FROM sessions WHERE created_at < ?`, toNanos(cutoff))
}

func (r *SessionRepository) exec(ctx context.Context, operation, query string, args ...any) (int64, error) {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, oops.Code("SESSION_DELETE_FAILED").With("operation", operation).Wrap(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, oops.Code("SESSION_DELETE_FAILED").With("operation", operation).Wrap(err)
	}
	return n, nil
}

var _ auth.SessionRepository = (*SessionRepository)(nil)
