// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// CookieName is the cookie under which transport layers carry the session token.
const CookieName = "session_id"

// DefaultSessionMaxAge is used when no max age is configured.
const DefaultSessionMaxAge = 24 * time.Hour

// Session is a persisted session record of the multi-session policy.
type Session struct {
	ID        ulid.ULID
	AccountID ulid.ULID
	TokenHash string
	CreatedAt time.Time
}

// NewSession creates a validated Session instance.
func NewSession(accountID ulid.ULID, tokenHash string, createdAt time.Time) (*Session, error) {
	if accountID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("SESSION_INVALID_ACCOUNT").Errorf("account ID cannot be zero")
	}
	if tokenHash == "" {
		return nil, oops.Code("SESSION_INVALID_HASH").Errorf("token hash cannot be empty")
	}
	if createdAt.IsZero() {
		return nil, oops.Code("SESSION_INVALID_CREATED_AT").Errorf("creation time cannot be zero")
	}
	return &Session{
		ID:        ulid.Make(),
		AccountID: accountID,
		TokenHash: tokenHash,
		CreatedAt: createdAt,
	}, nil
}

// IsExpiredAt reports whether the session is expired at now for maxAge.
func (s *Session) IsExpiredAt(now time.Time, maxAge time.Duration) bool {
	return SessionExpired(s.CreatedAt, now, maxAge)
}

// SessionExpired is the lazy expiry rule: a session is expired once more
// than maxAge has elapsed since createdAt. A session exactly maxAge old is
// still live. A maxAge of zero disables expiry.
func SessionExpired(createdAt, now time.Time, maxAge time.Duration) bool {
	if maxAge <= 0 {
		return false
	}
	return now.Sub(createdAt) > maxAge
}

// SessionRepository persists Session records keyed by token hash.
type SessionRepository interface {
	// Create stores a new session. Returns ErrTokenCollision if the token
	// hash is already stored.
	Create(ctx context.Context, session *Session) error

	// GetByTokenHash retrieves a session by its token hash.
	GetByTokenHash(ctx context.Context, tokenHash string) (*Session, error)

	// DeleteByTokenHash removes a session and reports whether a row was removed.
	DeleteByTokenHash(ctx context.Context, tokenHash string) (bool, error)

	// DeleteByAccount removes all sessions for an account.
	DeleteByAccount(ctx context.Context, accountID ulid.ULID) (int64, error)

	// DeleteCreatedBefore removes sessions created before cutoff.
	DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// SessionStore maps opaque session tokens to account IDs. Implementations
// choose where the mapping lives; see AccountSessionStore and
// RecordSessionStore.
type SessionStore interface {
	// Create issues a new token for accountID, recording createdAt.
	// The returned token is never empty on success.
	Create(ctx context.Context, accountID ulid.ULID, createdAt time.Time) (string, error)

	// FindOwner returns the account bound to token. Returns an error
	// wrapping ErrNotFound if no session matches and ErrSessionExpired if
	// more than maxAge has elapsed at now, whether or not the record still
	// exists.
	FindOwner(ctx context.Context, token string, now time.Time, maxAge time.Duration) (ulid.ULID, error)

	// Delete removes the session and reports whether one was removed.
	Delete(ctx context.Context, token string) (bool, error)

	// DeleteByAccount removes every session of accountID.
	DeleteByAccount(ctx context.Context, accountID ulid.ULID) (int64, error)

	// DeleteCreatedBefore physically removes sessions created before cutoff.
	DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
