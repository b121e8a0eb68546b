// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/sessionauth/internal/auth"
)

const accountColumns = `id, email, password_hash, session_token_hash, session_created_at,
	reset_token_hash, created_at, updated_at`

// AccountRepository implements auth.AccountRepository using SQLite.
type AccountRepository struct {
	db dbIface
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(db dbIface) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create stores a new account.
func (r *AccountRepository) Create(ctx context.Context, account *auth.Account) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		account.ID.String(),
		account.Email,
		account.PasswordHash,
		nullString(account.SessionTokenHash),
		nullNanos(account.SessionCreatedAt),
		nullString(account.ResetTokenHash),
		toNanos(account.CreatedAt),
		toNanos(account.UpdatedAt),
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

func (r *AccountRepository) getOne(ctx context.Context, column, value, code string) (*auth.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE `+column+` = ?`, value)

	account, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
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
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return oops.Code("ACCOUNT_UPDATE_FAILED").
			With("operation", "update account").
			With("id", id.String()).
			Wrap(classifyConstraint(err))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return oops.Code("ACCOUNT_UPDATE_FAILED").
			With("operation", "rows affected").
			Wrap(err)
	}
	if affected == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrUnknownAccount)
	}
	return nil
}

// buildAccountUpdate renders the UPDATE statement for the set fields of
// update. The account ID is always the last argument.
func buildAccountUpdate(id ulid.ULID, update auth.AccountUpdate, now time.Time) (string, []any) {
	var (
		sets []string
		args []any
	)
	add := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
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
			add("session_created_at", toNanos(binding.CreatedAt))
		}
	}
	if hash, ok := update.ResetTokenHash.Get(); ok {
		add("reset_token_hash", nullString(hash))
	}
	add("updated_at", toNanos(now))

	args = append(args, id.String())
	return "UPDATE accounts SET " + strings.Join(sets, ", ") + " WHERE id = ?", args
}

// ConsumeResetToken swaps the password hash and clears the reset token in
// one conditional statement.
func (r *AccountRepository) ConsumeResetToken(ctx context.Context, tokenHash, passwordHash string) (ulid.ULID, error) {
	var idStr string
	err := r.db.QueryRowContext(ctx, `
		UPDATE accounts
		SET password_hash = ?, reset_token_hash = NULL, updated_at = ?
		WHERE reset_token_hash = ?
		RETURNING id
	`, passwordHash, toNanos(time.Now()), tokenHash).Scan(&idStr)
	if errors.Is(err, sql.ErrNoRows) {
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
	result, err := r.db.ExecContext(ctx, `
		UPDATE accounts
		SET session_token_hash = NULL, session_created_at = NULL, updated_at = ?
		WHERE session_created_at < ?
	`, toNanos(time.Now()), toNanos(cutoff))
	if err != nil {
		return 0, oops.Code("ACCOUNT_CLEAR_SESSIONS_FAILED").
			With("operation", "clear expired sessions").
			Wrap(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, oops.Code("ACCOUNT_CLEAR_SESSIONS_FAILED").
			With("operation", "rows affected").
			Wrap(err)
	}
	return n, nil
}

func scanAccount(row *sql.Row) (*auth.Account, error) {
	var (
		idStr            string
		account          auth.Account
		sessionTokenHash sql.NullString
		sessionCreatedAt sql.NullInt64
		resetTokenHash   sql.NullString
		createdAt        int64
		updatedAt        int64
	)

	err := row.Scan(
		&idStr,
		&account.Email,
		&account.PasswordHash,
		&sessionTokenHash,
		&sessionCreatedAt,
		&resetTokenHash,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err //nolint:wrapcheck // callers wrap with context-specific info
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
	account.CreatedAt = fromNanos(createdAt)
	account.UpdatedAt = fromNanos(updatedAt)
	if sessionTokenHash.Valid && sessionCreatedAt.Valid {
		hash, created := sessionTokenHash.String, fromNanos(sessionCreatedAt.Int64)
		account.SessionTokenHash = &hash
		account.SessionCreatedAt = &created
	}
	if resetTokenHash.Valid {
		hash := resetTokenHash.String
		account.ResetTokenHash = &hash
	}
	return &account, nil
}

var _ auth.AccountRepository = (*AccountRepository)(nil)
