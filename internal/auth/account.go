// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// MaxEmailLength bounds stored email addresses.
const MaxEmailLength = 250

// Account is a user credential record.
// Email is compared case-sensitively, exactly as stored.
type Account struct {
	ID           ulid.ULID
	Email        string
	PasswordHash string

	// SessionTokenHash and SessionCreatedAt hold the live session of the
	// single-session policy. Both are nil when no session is bound.
	SessionTokenHash *string
	SessionCreatedAt *time.Time

	// ResetTokenHash is the digest of the only valid reset token, if any.
	ResetTokenHash *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewAccount creates a validated Account with a fresh ID.
func NewAccount(email, passwordHash string) (*Account, error) {
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, oops.Code("ACCOUNT_INVALID_HASH").Errorf("password hash cannot be empty")
	}

	now := time.Now()
	return &Account{
		ID:           ulid.Make(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// ValidateEmail performs the minimal shape check applied at registration.
// Deliverability is not the concern of this package.
func ValidateEmail(email string) error {
	if email == "" {
		return oops.Code("AUTH_INVALID_EMAIL").Wrap(ErrInvalidEmail)
	}
	if len(email) > MaxEmailLength {
		return oops.Code("AUTH_INVALID_EMAIL").
			With("max", MaxEmailLength).
			Wrap(ErrInvalidEmail)
	}
	if strings.TrimSpace(email) != email || !strings.Contains(email, "@") {
		return oops.Code("AUTH_INVALID_EMAIL").Wrap(ErrInvalidEmail)
	}
	return nil
}

// HasSession reports whether a single-session binding is stored.
func (a *Account) HasSession() bool {
	return a.SessionTokenHash != nil
}

// SessionBinding is the single-session state written onto an Account.
type SessionBinding struct {
	TokenHash string
	CreatedAt time.Time
}

// Optional carries one field of a partial update. The zero value leaves
// the stored value untouched.
type Optional[T any] struct {
	value T
	set   bool
}

// Set returns an Optional that writes v.
func Set[T any](v T) Optional[T] {
	return Optional[T]{value: v, set: true}
}

// Get returns the value and whether it was set.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.set
}

// IsSet reports whether the field participates in the update.
func (o Optional[T]) IsSet() bool {
	return o.set
}

// AccountUpdate is a typed partial update of the mutable Account fields.
// Pointer-typed fields are cleared by Set(nil).
type AccountUpdate struct {
	PasswordHash   Optional[string]
	Session        Optional[*SessionBinding]
	ResetTokenHash Optional[*string]
}

// Validate rejects updates that would change nothing.
func (u AccountUpdate) Validate() error {
	if !u.PasswordHash.IsSet() && !u.Session.IsSet() && !u.ResetTokenHash.IsSet() {
		return oops.Code("ACCOUNT_UPDATE_EMPTY").Wrap(ErrUnknownField)
	}
	if hash, ok := u.PasswordHash.Get(); ok && hash == "" {
		return oops.Code("ACCOUNT_INVALID_HASH").Errorf("password hash cannot be empty")
	}
	return nil
}

// Apply writes the set fields onto a and stamps UpdatedAt.
func (u AccountUpdate) Apply(a *Account, now time.Time) {
	if hash, ok := u.PasswordHash.Get(); ok {
		a.PasswordHash = hash
	}
	if binding, ok := u.Session.Get(); ok {
		if binding == nil {
			a.SessionTokenHash = nil
			a.SessionCreatedAt = nil
		} else {
			hash, created := binding.TokenHash, binding.CreatedAt
			a.SessionTokenHash = &hash
			a.SessionCreatedAt = &created
		}
	}
	if hash, ok := u.ResetTokenHash.Get(); ok {
		if hash == nil {
			a.ResetTokenHash = nil
		} else {
			h := *hash
			a.ResetTokenHash = &h
		}
	}
	a.UpdatedAt = now
}

// AccountRepository is the Credential Store.
//
// Lookups return an error wrapping ErrNotFound when no record matches.
// Create returns ErrDuplicateEmail when the email is taken; this is the
// single source of truth for email uniqueness. Writes that would store a
// session or reset token hash already held by another account return
// ErrTokenCollision.
type AccountRepository interface {
	// Create stores a new account.
	Create(ctx context.Context, account *Account) error

	// GetByID retrieves an account by ID.
	GetByID(ctx context.Context, id ulid.ULID) (*Account, error)

	// GetByEmail retrieves an account by exact email.
	GetByEmail(ctx context.Context, email string) (*Account, error)

	// GetBySessionTokenHash retrieves the account whose single-session
	// binding has the given token hash.
	GetBySessionTokenHash(ctx context.Context, tokenHash string) (*Account, error)

	// GetByResetTokenHash retrieves the account holding the reset token hash.
	GetByResetTokenHash(ctx context.Context, tokenHash string) (*Account, error)

	// Update applies a partial update. Returns ErrUnknownAccount if id is
	// absent and ErrUnknownField if the update names no field.
	Update(ctx context.Context, id ulid.ULID, update AccountUpdate) error

	// ConsumeResetToken sets the password hash and clears the reset token
	// in one conditional write on the row holding tokenHash. Returns the
	// account ID, or ErrNotFound if no row holds the token.
	ConsumeResetToken(ctx context.Context, tokenHash, passwordHash string) (ulid.ULID, error)

	// ClearSessionsCreatedBefore removes single-session bindings created
	// before cutoff and returns how many were cleared.
	ClearSessionsCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
