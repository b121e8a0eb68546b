// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package memory provides in-process implementations of the auth
// repositories. State lives for the life of the value; nothing is persisted.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/sessionauth/internal/auth"
)

// AccountRepository implements auth.AccountRepository in memory with the
// same uniqueness rules as the SQL stores: email, session token hash and
// reset token hash are each unique.
type AccountRepository struct {
	mu       sync.RWMutex
	accounts map[ulid.ULID]*auth.Account
	byEmail  map[string]ulid.ULID
	now      func() time.Time
}

// NewAccountRepository creates an empty AccountRepository.
func NewAccountRepository() *AccountRepository {
	return &AccountRepository{
		accounts: make(map[ulid.ULID]*auth.Account),
		byEmail:  make(map[string]ulid.ULID),
		now:      time.Now,
	}
}

// Create stores a new account.
func (r *AccountRepository) Create(_ context.Context, account *auth.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byEmail[account.Email]; taken {
		return oops.Code("ACCOUNT_EMAIL_TAKEN").
			With("email", account.Email).
			Wrap(auth.ErrDuplicateEmail)
	}
	if _, exists := r.accounts[account.ID]; exists {
		return oops.Code("ACCOUNT_CREATE_FAILED").
			With("id", account.ID.String()).
			Errorf("account id already exists")
	}

	stored := cloneAccount(account)
	r.accounts[stored.ID] = stored
	r.byEmail[stored.Email] = stored.ID
	return nil
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(_ context.Context, id ulid.ULID) (*auth.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, ok := r.accounts[id]
	if !ok {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return cloneAccount(account), nil
}

// GetByEmail retrieves an account by exact email.
func (r *AccountRepository) GetByEmail(_ context.Context, email string) (*auth.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			With("email", email).
			Wrap(auth.ErrNotFound)
	}
	return cloneAccount(r.accounts[id]), nil
}

// GetBySessionTokenHash retrieves the account bound to a session token hash.
func (r *AccountRepository) GetBySessionTokenHash(_ context.Context, tokenHash string) (*auth.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if account := r.findLocked(func(a *auth.Account) bool { return equalHash(a.SessionTokenHash, tokenHash) }); account != nil {
		return cloneAccount(account), nil
	}
	return nil, oops.Code("ACCOUNT_NOT_FOUND").Wrap(auth.ErrNotFound)
}

// GetByResetTokenHash retrieves the account holding a reset token hash.
func (r *AccountRepository) GetByResetTokenHash(_ context.Context, tokenHash string) (*auth.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if account := r.findLocked(func(a *auth.Account) bool { return equalHash(a.ResetTokenHash, tokenHash) }); account != nil {
		return cloneAccount(account), nil
	}
	return nil, oops.Code("ACCOUNT_NOT_FOUND").Wrap(auth.ErrNotFound)
}

// Update applies a partial update.
func (r *AccountRepository) Update(_ context.Context, id ulid.ULID, update auth.AccountUpdate) error {
	if err := update.Validate(); err != nil {
		return err //nolint:wrapcheck // validation errors carry their own codes
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	account, ok := r.accounts[id]
	if !ok {
		return oops.Code("ACCOUNT_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrUnknownAccount)
	}

	if binding, ok := update.Session.Get(); ok && binding != nil {
		if r.hashTakenLocked(id, binding.TokenHash) {
			return oops.Code("ACCOUNT_TOKEN_COLLISION").Wrap(auth.ErrTokenCollision)
		}
	}
	if hash, ok := update.ResetTokenHash.Get(); ok && hash != nil {
		if r.hashTakenLocked(id, *hash) {
			return oops.Code("ACCOUNT_TOKEN_COLLISION").Wrap(auth.ErrTokenCollision)
		}
	}

	update.Apply(account, r.now())
	return nil
}

// ConsumeResetToken swaps the password hash and clears the reset token.
func (r *AccountRepository) ConsumeResetToken(_ context.Context, tokenHash, passwordHash string) (ulid.ULID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	account := r.findLocked(func(a *auth.Account) bool { return equalHash(a.ResetTokenHash, tokenHash) })
	if account == nil {
		return ulid.ULID{}, oops.Code("RESET_TOKEN_NOT_FOUND").Wrap(auth.ErrNotFound)
	}

	auth.AccountUpdate{
		PasswordHash:   auth.Set(passwordHash),
		ResetTokenHash: auth.Set[*string](nil),
	}.Apply(account, r.now())
	return account.ID, nil
}

// ClearSessionsCreatedBefore removes session bindings older than cutoff.
func (r *AccountRepository) ClearSessionsCreatedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var cleared int64
	now := r.now()
	for _, account := range r.accounts {
		if account.SessionCreatedAt != nil && account.SessionCreatedAt.Before(cutoff) {
			auth.AccountUpdate{Session: auth.Set[*auth.SessionBinding](nil)}.Apply(account, now)
			cleared++
		}
	}
	return cleared, nil
}

func (r *AccountRepository) findLocked(match func(*auth.Account) bool) *auth.Account {
	for _, account := range r.accounts {
		if match(account) {
			return account
		}
	}
	return nil
}

// hashTakenLocked reports whether another account already stores hash as a
// session or reset token hash.
func (r *AccountRepository) hashTakenLocked(self ulid.ULID, hash string) bool {
	return r.findLocked(func(a *auth.Account) bool {
		return a.ID != self && (equalHash(a.SessionTokenHash, hash) || equalHash(a.ResetTokenHash, hash))
	}) != nil
}

func equalHash(stored *string, hash string) bool {
	return stored != nil && hash != "" && *stored == hash
}

func cloneAccount(a *auth.Account) *auth.Account {
	c := *a
	if a.SessionTokenHash != nil {
		v := *a.SessionTokenHash
		c.SessionTokenHash = &v
	}
	if a.SessionCreatedAt != nil {
		v := *a.SessionCreatedAt
		c.SessionCreatedAt = &v
	}
	if a.ResetTokenHash != nil {
		v := *a.ResetTokenHash
		c.ResetTokenHash = &v
	}
	return &c
}

// Compile-time interface check.
var _ auth.AccountRepository = (*AccountRepository)(nil)
