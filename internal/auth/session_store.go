// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// maxTokenAttempts bounds retries when a freshly generated token hash is
// already stored. With 256-bit tokens a second attempt is never expected.
const maxTokenAttempts = 3

// issueToken generates tokens until write accepts one that does not collide.
func issueToken(ctx context.Context, write func(ctx context.Context, tokenHash string) error) (string, error) {
	var token string
	backoff := retry.WithMaxRetries(maxTokenAttempts-1, retry.NewConstant(time.Millisecond))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		t, hash, err := GenerateToken()
		if err != nil {
			return err
		}
		if err := write(ctx, hash); err != nil {
			if errors.Is(err, ErrTokenCollision) {
				return retry.RetryableError(err)
			}
			return err
		}
		token = t
		return nil
	})
	if err != nil {
		return "", err //nolint:wrapcheck // callers add operation context
	}
	return token, nil
}

// AccountSessionStore keeps at most one session per account, stored on the
// account record itself. Creating a session replaces any previous one.
type AccountSessionStore struct {
	accounts AccountRepository
}

// NewAccountSessionStore creates the single-session-per-account store.
func NewAccountSessionStore(accounts AccountRepository) *AccountSessionStore {
	return &AccountSessionStore{accounts: accounts}
}

// Create binds a new token to the account, superseding any prior token.
func (s *AccountSessionStore) Create(ctx context.Context, accountID ulid.ULID, createdAt time.Time) (string, error) {
	token, err := issueToken(ctx, func(ctx context.Context, hash string) error {
		return s.accounts.Update(ctx, accountID, AccountUpdate{
			Session: Set(&SessionBinding{TokenHash: hash, CreatedAt: createdAt}),
		})
	})
	if err != nil {
		return "", oops.Code("SESSION_CREATE_FAILED").
			With("account_id", accountID.String()).
			With("policy", "single").
			Wrap(err)
	}
	return token, nil
}

// FindOwner resolves token through the account's session binding.
func (s *AccountSessionStore) FindOwner(ctx context.Context, token string, now time.Time, maxAge time.Duration) (ulid.ULID, error) {
	if token == "" {
		return ulid.ULID{}, oops.Code("SESSION_NOT_FOUND").Wrap(ErrNotFound)
	}

	account, err := s.accounts.GetBySessionTokenHash(ctx, HashToken(token))
	if err != nil {
		return ulid.ULID{}, err //nolint:wrapcheck // repository errors carry their own codes
	}
	if account.SessionCreatedAt == nil {
		return ulid.ULID{}, oops.Code("SESSION_NOT_FOUND").Wrap(ErrNotFound)
	}
	if SessionExpired(*account.SessionCreatedAt, now, maxAge) {
		return ulid.ULID{}, oops.Code("SESSION_EXPIRED").
			With("account_id", account.ID.String()).
			Wrap(ErrSessionExpired)
	}
	return account.ID, nil
}

// Delete clears the binding holding token. Last writer wins if the owner
// logs in again concurrently.
func (s *AccountSessionStore) Delete(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}

	account, err := s.accounts.GetBySessionTokenHash(ctx, HashToken(token))
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err //nolint:wrapcheck // repository errors carry their own codes
	}
	return s.clear(ctx, account.ID)
}

// DeleteByAccount clears the account's binding, if any.
func (s *AccountSessionStore) DeleteByAccount(ctx context.Context, accountID ulid.ULID) (int64, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if errors.Is(err, ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err //nolint:wrapcheck // repository errors carry their own codes
	}
	if !account.HasSession() {
		return 0, nil
	}

	removed, err := s.clear(ctx, accountID)
	if err != nil || !removed {
		return 0, err
	}
	return 1, nil
}

// DeleteCreatedBefore clears bindings created before cutoff.
func (s *AccountSessionStore) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.accounts.ClearSessionsCreatedBefore(ctx, cutoff) //nolint:wrapcheck // repository errors carry their own codes
}

func (s *AccountSessionStore) clear(ctx context.Context, accountID ulid.ULID) (bool, error) {
	err := s.accounts.Update(ctx, accountID, AccountUpdate{Session: Set[*SessionBinding](nil)})
	if errors.Is(err, ErrUnknownAccount) {
		return false, nil
	}
	if err != nil {
		return false, err //nolint:wrapcheck // repository errors carry their own codes
	}
	return true, nil
}

// RecordSessionStore keeps one Session record per token, allowing any
// number of concurrent sessions per account.
type RecordSessionStore struct {
	sessions SessionRepository
}

// NewRecordSessionStore creates the multi-session store.
func NewRecordSessionStore(sessions SessionRepository) *RecordSessionStore {
	return &RecordSessionStore{sessions: sessions}
}

// Create persists a new Session record for accountID.
func (s *RecordSessionStore) Create(ctx context.Context, accountID ulid.ULID, createdAt time.Time) (string, error) {
	token, err := issueToken(ctx, func(ctx context.Context, hash string) error {
		session, err := NewSession(accountID, hash, createdAt)
		if err != nil {
			return err
		}
		return s.sessions.Create(ctx, session)
	})
	if err != nil {
		return "", oops.Code("SESSION_CREATE_FAILED").
			With("account_id", accountID.String()).
			With("policy", "multi").
			Wrap(err)
	}
	return token, nil
}

// FindOwner resolves token through its Session record.
func (s *RecordSessionStore) FindOwner(ctx context.Context, token string, now time.Time, maxAge time.Duration) (ulid.ULID, error) {
	if token == "" {
		return ulid.ULID{}, oops.Code("SESSION_NOT_FOUND").Wrap(ErrNotFound)
	}

	session, err := s.sessions.GetByTokenHash(ctx, HashToken(token))
	if err != nil {
		return ulid.ULID{}, err //nolint:wrapcheck // repository errors carry their own codes
	}
	if session.IsExpiredAt(now, maxAge) {
		return ulid.ULID{}, oops.Code("SESSION_EXPIRED").
			With("session_id", session.ID.String()).
			With("account_id", session.AccountID.String()).
			Wrap(ErrSessionExpired)
	}
	return session.AccountID, nil
}

// Delete removes the record holding token.
func (s *RecordSessionStore) Delete(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	return s.sessions.DeleteByTokenHash(ctx, HashToken(token)) //nolint:wrapcheck // repository errors carry their own codes
}

// DeleteByAccount removes every record of accountID.
func (s *RecordSessionStore) DeleteByAccount(ctx context.Context, accountID ulid.ULID) (int64, error) {
	return s.sessions.DeleteByAccount(ctx, accountID) //nolint:wrapcheck // repository errors carry their own codes
}

// DeleteCreatedBefore removes records created before cutoff.
func (s *RecordSessionStore) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.sessions.DeleteCreatedBefore(ctx, cutoff) //nolint:wrapcheck // repository errors carry their own codes
}

// Compile-time interface checks.
var (
	_ SessionStore = (*AccountSessionStore)(nil)
	_ SessionStore = (*RecordSessionStore)(nil)
)
