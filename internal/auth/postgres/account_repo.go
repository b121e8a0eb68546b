// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/sessionauth/internal/auth"
)

const accountColumns = `id, email, password_hash, session_token_hash, session_created_at,
		       reset_token_hash, created_at, updated_at`

// AccountRepository implements auth.AccountRepository using PostgreSQL.
type AccountRepository struct {
	pool poolIface
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(pool poolIface) *AccountRepository {
	return &AccountRepository{pool: pool}
}

// Create stores a new account.
func (r *AccountRepository) Create(ctx context.Context, account *auth.Account) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO accounts (
			id, email, password_hash, session_token_hash, session_created_at,
			reset_token_hash, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		account.ID.String(),
		account.Email,
		account.PasswordHash,
		account.SessionTokenHash,
		account.SessionCreatedAt,
		account.ResetTokenHash,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		return oops.Code("ACCOUNT_CREATE_FAILED").
			With("operation", "insert account").
			With("email", account.Email).
			Wrap(classifyConstraint(err))
	}
	return nil
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.Account, error) {
	return r.getOne(ctx, "id", id.String(), "ACCOUNT_GET_BY_ID_FAILED")
}

// GetByEmail retrieves an account by exact, case-sensitive email.
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*auth.Account, error) {
	return r.getOne(ctx, "email", email, "ACCOUNT_GET_BY_EMAIL_FAILED")
}

// GetBySessionTokenHash retrieves the account bound to a session token hash.
func (r *AccountRepository) GetBySessionTokenHash(ctx context.Context, tokenHash string) (*auth.Account, error) {
	return r.getOne(ctx, "session_token_hash", tokenHash, "ACCOUNT_GET_BY_SESSION_FAILED")
}

// GetByResetTokenHash retrieves the account holding a reset token hash.
func (r *AccountRepository) GetByResetTokenHash(ctx context.Context, tokenHash string) (*auth.Account, error) {
	return r.getOne(ctx, "reset_token_hash", tokenHash, "ACCOUNT_GET_BY_RESET_FAILED")
}

// getOne selects by a fixed, trusted column name.
func (r *AccountRepository) getOne(ctx context.Context, column, value, code string) (*auth.Account, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE `+column+` = $1
	`, value)

	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			With("by", column).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code(code).
			With("operation", "get account by "+column).
			Wrap(err)
	}
	return account, nil
}

// Update writes only the fields set in update.
func (r *AccountRepository) Update(ctx context.Context, id ulid.ULID, update auth.AccountUpdate) error {
	if err := update.Validate(); err != nil {
		return err //nolint:wrapcheck // validation errors carry their own codes
	}

	query, args := buildAccountUpdate(id, update, time.Now())
	result, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return oops.Code("ACCOUNT_UPDATE_FAILED").
			With("operation", "update account").
			With("id", id.String()).
			Wrap(classifyConstraint(err))
	}
	if result.RowsAffected() == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrUnknownAccount)
	}
	return nil
}

// buildAccountUpdate renders the UPDATE statement for the set fields of
// update. $1 is always the account ID.
func buildAccountUpdate(id ulid.ULID, update auth.AccountUpdate, now time.Time) (string, []any) {
	args := []any{id.String()}
	var sets []string
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if hash, ok := update.PasswordHash.Get(); ok {
		add("password_hash", hash)
	}
	if binding, ok := update.Session.Get(); ok {
		if binding == nil {
			add("session_token_hash", nil)
			add("session_created_at", nil)
		} else {
			add("session_token_hash", binding.TokenHash)
			add("session_created_at", binding.CreatedAt)
		}
	}
	if hash, ok := update.ResetTokenHash.Get(); ok {
		if hash == nil {
			add("reset_token_hash", nil)
		} else {
			add("reset_token_hash", *hash)
		}
	}
	add("updated_at", now)

	return "UPDATE accounts SET " + strings.Join(sets, ", ") + " WHERE id = $1", args
}

// ConsumeResetToken swaps the password hash and clears the reset token in
// one conditional statement, so concurrent callers cannot both succeed.
func (r *AccountRepository) ConsumeResetToken(ctx context.Context, tokenHash, passwordHash string) (ulid.ULID, error) {
	var idStr string
	err := r.pool.QueryRow(ctx, `
		UPDATE accounts
		SET password_hash = $2, reset_token_hash = NULL, updated_at = $3
		WHERE reset_token_hash = $1
		RETURNING id
	`, tokenHash, passwordHash, time.Now()).Scan(&idStr)
	if errors.Is(err, pgx.ErrNoRows) {
		return ulid.ULID{}, oops.Code("RESET_TOKEN_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return ulid.ULID{}, oops.Code("ACCOUNT_CONSUME_RESET_FAILED").
			With("operation", "consume reset token").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return ulid.ULID{}, oops.Code("ACCOUNT_INVALID_ID").
			With("id", idStr).
			Wrap(err)
	}
	return id, nil
}

// ClearSessionsCreatedBefore removes session bindings older than cutoff.
func (r *AccountRepository) ClearSessionsCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.pool.Exec(ctx, `
		UPDATE accounts
		SET session_token_hash = NULL, session_created_at = NULL, updated_at = $2
		WHERE session_created_at < $1
	`, cutoff, time.Now())
	if err != nil {
		return 0, oops.Code("ACCOUNT_CLEAR_SESSIONS_FAILED").
			With("operation", "clear expired sessions").
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// scanAccount scans a single row into an Account.
// Callers are responsible for handling pgx.ErrNoRows.
func scanAccount(row pgx.Row) (*auth.Account, error) {
	var (
		idStr            string
		account          auth.Account
		sessionTokenHash *string
		sessionCreatedAt *time.Time
		resetTokenHash   *string
	)

	err := row.Scan(
		&idStr,
		&account.Email,
		&account.PasswordHash,
		&sessionTokenHash,
		&sessionCreatedAt,
		&resetTokenHash,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // Callers wrap with context-specific info
		}
		return nil, oops.Code("ACCOUNT_SCAN_FAILED").
			With("operation", "scan account").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("ACCOUNT_INVALID_ID").
			With("operation", "parse account id").
			With("id", idStr).
			Wrap(err)
	}

	account.ID = id
	account.SessionTokenHash = sessionTokenHash
	account.SessionCreatedAt = sessionCreatedAt
	account.ResetTokenHash = resetTokenHash
	return &account, nil
}

// Compile-time interface check.
var _ auth.AccountRepository = (*AccountRepository)(nil)
