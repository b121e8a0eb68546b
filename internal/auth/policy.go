// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// SessionPolicy decides session validity. A session is Active while no more
// than maxAge has elapsed since creation, Expired afterwards, and Destroyed
// once deleted. Expiry is recomputed on every check; nothing is stored or
// scheduled when a session ages out.
type SessionPolicy struct {
	store  SessionStore
	maxAge time.Duration
	now    func() time.Time
}

// PolicyOption configures a SessionPolicy.
type PolicyOption func(*SessionPolicy)

// WithClock replaces time.Now as the policy's source of the current time.
func WithClock(now func() time.Time) PolicyOption {
	return func(p *SessionPolicy) {
		p.now = now
	}
}

// NewSessionPolicy creates a SessionPolicy. maxAge is fixed for the life of
// the policy; zero means sessions never expire.
func NewSessionPolicy(store SessionStore, maxAge time.Duration, opts ...PolicyOption) (*SessionPolicy, error) {
	if store == nil {
		return nil, oops.Code("POLICY_INVALID_CONFIG").Errorf("session store is required")
	}
	if maxAge < 0 {
		return nil, oops.Code("POLICY_INVALID_CONFIG").
			With("max_age", maxAge.String()).
			Errorf("session max age cannot be negative")
	}

	p := &SessionPolicy{
		store:  store,
		maxAge: maxAge,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.now == nil {
		return nil, oops.Code("POLICY_INVALID_CONFIG").Errorf("clock cannot be nil")
	}
	return p, nil
}

// MaxAge returns the configured session lifetime. Transport layers use it
// as the cookie lifetime.
func (p *SessionPolicy) MaxAge() time.Duration {
	return p.maxAge
}

// Issue creates an Active session for accountID and returns its token.
func (p *SessionPolicy) Issue(ctx context.Context, accountID ulid.ULID) (string, error) {
	token, err := p.store.Create(ctx, accountID, p.now())
	if err != nil {
		return "", err //nolint:wrapcheck // store errors carry their own codes
	}
	if token == "" {
		return "", oops.Code("SESSION_CREATE_FAILED").
			With("account_id", accountID.String()).
			Errorf("session store returned an empty token")
	}
	RecordSessionIssued()
	return token, nil
}

// Resolve returns the owner of an Active session. Missing, malformed and
// expired tokens all yield ErrNotAuthenticated; any other failure is
// returned as is.
func (p *SessionPolicy) Resolve(ctx context.Context, token string) (ulid.ULID, error) {
	if token == "" {
		RecordSessionCheck(SessionCheckMissing)
		return ulid.ULID{}, oops.Code("SESSION_INVALID").Wrap(ErrNotAuthenticated)
	}

	accountID, err := p.store.FindOwner(ctx, token, p.now(), p.maxAge)
	switch {
	case err == nil:
		RecordSessionCheck(SessionCheckValid)
		return accountID, nil
	case errors.Is(err, ErrNotFound):
		RecordSessionCheck(SessionCheckMissing)
		return ulid.ULID{}, oops.Code("SESSION_INVALID").Wrap(ErrNotAuthenticated)
	case errors.Is(err, ErrSessionExpired):
		RecordSessionCheck(SessionCheckExpired)
		return ulid.ULID{}, oops.Code("SESSION_INVALID").Wrap(ErrNotAuthenticated)
	default:
		RecordSessionCheck(SessionCheckError)
		return ulid.ULID{}, oops.Code("SESSION_VALIDATE_FAILED").
			With("operation", "find session owner").
			Wrap(err)
	}
}

// Destroy deletes the session holding token, whether Active or Expired.
// Destroying an unknown token is not an error.
func (p *SessionPolicy) Destroy(ctx context.Context, token string) (bool, error) {
	removed, err := p.store.Delete(ctx, token)
	if err != nil {
		return false, oops.Code("SESSION_DESTROY_FAILED").
			With("operation", "delete session").
			Wrap(err)
	}
	return removed, nil
}

// DestroyAccount deletes every session of accountID.
func (p *SessionPolicy) DestroyAccount(ctx context.Context, accountID ulid.ULID) (int64, error) {
	n, err := p.store.DeleteByAccount(ctx, accountID)
	if err != nil {
		return 0, oops.Code("SESSION_DESTROY_FAILED").
			With("operation", "delete account sessions").
			With("account_id", accountID.String()).
			Wrap(err)
	}
	return n, nil
}

// Prune physically removes sessions that are already Expired. It only
// reclaims storage: Resolve rejects expired sessions whether or not Prune
// has run. Returns 0 without touching the store when expiry is disabled.
func (p *SessionPolicy) Prune(ctx context.Context) (int64, error) {
	if p.maxAge <= 0 {
		return 0, nil
	}
	n, err := p.store.DeleteCreatedBefore(ctx, p.now().Add(-p.maxAge))
	if err != nil {
		return 0, oops.Code("SESSION_PRUNE_FAILED").
			With("max_age", p.maxAge.String()).
			Wrap(err)
	}
	return n, nil
}
