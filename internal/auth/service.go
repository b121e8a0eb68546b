// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/holomush/sessionauth/pkg/errutil"
)

var tracer = otel.Tracer("github.com/holomush/sessionauth/internal/auth")

// dummyPasswordHash is verified when an email is unknown so that login
// takes the same time whether or not the account exists.
//
//nolint:gosec // G101: intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Service is the authentication facade: registration, login, session
// validation, logout and password reset.
type Service struct {
	accounts AccountRepository
	policy   *SessionPolicy
	hasher   PasswordHasher
	logger   *slog.Logger
}

// NewService creates a Service that logs to slog.Default().
func NewService(accounts AccountRepository, policy *SessionPolicy, hasher PasswordHasher) (*Service, error) {
	return NewServiceWithLogger(accounts, policy, hasher, slog.Default())
}

// NewServiceWithLogger creates a Service with an explicit logger.
func NewServiceWithLogger(accounts AccountRepository, policy *SessionPolicy, hasher PasswordHasher, logger *slog.Logger) (*Service, error) {
	if accounts == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("accounts repository is required")
	}
	if policy == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("session policy is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("password hasher is required")
	}
	if logger == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("logger is required")
	}
	return &Service{
		accounts: accounts,
		policy:   policy,
		hasher:   hasher,
		logger:   logger,
	}, nil
}

// SessionMaxAge returns the lifetime transport layers should give the
// session cookie. Zero means the session does not expire.
func (s *Service) SessionMaxAge() time.Duration {
	return s.policy.MaxAge()
}

// Register creates an account. Fails with ErrDuplicateEmail if the email is
// taken, including when a concurrent registration wins the race after the
// existence check.
func (s *Service) Register(ctx context.Context, email, password string) (account *Account, err error) {
	ctx, span := tracer.Start(ctx, "auth.Register")
	defer func() { endSpan(span, err) }()

	if err := ValidateEmail(email); err != nil {
		RecordRegistration(ResultFailure)
		return nil, err
	}
	if password == "" {
		RecordRegistration(ResultFailure)
		return nil, oops.Code("AUTH_EMPTY_PASSWORD").Wrap(ErrEmptyPassword)
	}

	_, lookupErr := s.accounts.GetByEmail(ctx, email)
	switch {
	case lookupErr == nil:
		RecordRegistration(ResultFailure)
		return nil, duplicateEmail(email)
	case !errors.Is(lookupErr, ErrNotFound):
		RecordRegistration(ResultError)
		return nil, s.storageFailure(ctx, "AUTH_REGISTER_FAILED", "get account by email", lookupErr)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		RecordRegistration(ResultError)
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	account, err = NewAccount(email, hash)
	if err != nil {
		RecordRegistration(ResultFailure)
		return nil, err
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			RecordRegistration(ResultFailure)
			return nil, duplicateEmail(email)
		}
		RecordRegistration(ResultError)
		return nil, s.storageFailure(ctx, "AUTH_REGISTER_FAILED", "create account", err)
	}

	RecordRegistration(ResultSuccess)
	s.logger.InfoContext(ctx, "account registered", "account_id", account.ID.String())
	return account, nil
}

// Login checks credentials and issues a session, returning its token.
// An unknown email and a wrong password both fail with
// ErrInvalidCredentials and take comparable time.
func (s *Service) Login(ctx context.Context, email, password string) (token string, err error) {
	ctx, span := tracer.Start(ctx, "auth.Login")
	defer func() { endSpan(span, err) }()

	account, err := s.verifyCredentials(ctx, email, password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			RecordLogin(ResultFailure)
		} else {
			RecordLogin(ResultError)
		}
		return "", err
	}
	span.SetAttributes(attribute.String("account.id", account.ID.String()))

	s.upgradeHash(ctx, account, password)

	token, err = s.policy.Issue(ctx, account.ID)
	if err != nil {
		RecordLogin(ResultError)
		return "", s.storageFailure(ctx, "AUTH_LOGIN_FAILED", "issue session", err)
	}

	RecordLogin(ResultSuccess)
	s.logger.InfoContext(ctx, "login succeeded", "account_id", account.ID.String())
	return token, nil
}

// ValidLogin reports whether the credentials are valid without issuing a
// session. Any failure, including storage failures, reads as false.
func (s *Service) ValidLogin(ctx context.Context, email, password string) bool {
	_, err := s.verifyCredentials(ctx, email, password)
	return err == nil
}

// CreateSession issues a session for the account registered under email
// without checking a password. Callers must have authenticated the user by
// other means.
func (s *Service) CreateSession(ctx context.Context, email string) (token string, err error) {
	ctx, span := tracer.Start(ctx, "auth.CreateSession")
	defer func() { endSpan(span, err) }()

	account, err := s.accountByEmail(ctx, email, "AUTH_CREATE_SESSION_FAILED")
	if err != nil {
		return "", err
	}

	token, err = s.policy.Issue(ctx, account.ID)
	if err != nil {
		return "", s.storageFailure(ctx, "AUTH_CREATE_SESSION_FAILED", "issue session", err)
	}
	return token, nil
}

// Authenticate returns the account owning an Active session. Missing,
// malformed and expired tokens fail with ErrNotAuthenticated.
func (s *Service) Authenticate(ctx context.Context, token string) (account *Account, err error) {
	ctx, span := tracer.Start(ctx, "auth.Authenticate")
	defer func() { endSpan(span, err) }()

	accountID, err := s.policy.Resolve(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotAuthenticated) {
			return nil, err
		}
		return nil, s.storageFailure(ctx, "AUTH_AUTHENTICATE_FAILED", "resolve session", err)
	}

	account, err = s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("SESSION_INVALID").
				With("account_id", accountID.String()).
				Wrap(ErrNotAuthenticated)
		}
		return nil, s.storageFailure(ctx, "AUTH_AUTHENTICATE_FAILED", "get account by id", err)
	}
	return account, nil
}

// Logout destroys the session holding token. Logging out an unknown or
// already destroyed session succeeds.
func (s *Service) Logout(ctx context.Context, token string) (err error) {
	ctx, span := tracer.Start(ctx, "auth.Logout")
	defer func() { endSpan(span, err) }()

	removed, err := s.policy.Destroy(ctx, token)
	if err != nil {
		return s.storageFailure(ctx, "AUTH_LOGOUT_FAILED", "destroy session", err)
	}
	if removed {
		s.logger.DebugContext(ctx, "session destroyed")
	}
	return nil
}

// LogoutAccount destroys every session of accountID. Unknown accounts and
// accounts without sessions succeed.
func (s *Service) LogoutAccount(ctx context.Context, accountID ulid.ULID) (err error) {
	ctx, span := tracer.Start(ctx, "auth.LogoutAccount",
		trace.WithAttributes(attribute.String("account.id", accountID.String())))
	defer func() { endSpan(span, err) }()

	n, err := s.policy.DestroyAccount(ctx, accountID)
	if err != nil {
		return s.storageFailure(ctx, "AUTH_LOGOUT_FAILED", "destroy account sessions", err)
	}
	s.logger.DebugContext(ctx, "account sessions destroyed",
		"account_id", accountID.String(),
		"count", n,
	)
	return nil
}

// IssueResetToken generates a reset token for the account registered under
// email and stores its hash, invalidating any earlier token. Fails with
// ErrUnknownAccount if no account has that email.
func (s *Service) IssueResetToken(ctx context.Context, email string) (token string, err error) {
	ctx, span := tracer.Start(ctx, "auth.IssueResetToken")
	defer func() { endSpan(span, err) }()

	account, err := s.accountByEmail(ctx, email, "RESET_REQUEST_FAILED")
	if err != nil {
		if errors.Is(err, ErrUnknownAccount) {
			RecordPasswordReset("issue", ResultFailure)
		} else {
			RecordPasswordReset("issue", ResultError)
		}
		return "", err
	}

	token, err = issueToken(ctx, func(ctx context.Context, hash string) error {
		return s.accounts.Update(ctx, account.ID, AccountUpdate{ResetTokenHash: Set(&hash)})
	})
	if err != nil {
		if errors.Is(err, ErrUnknownAccount) {
			RecordPasswordReset("issue", ResultFailure)
			return "", unknownAccount(email)
		}
		RecordPasswordReset("issue", ResultError)
		return "", s.storageFailure(ctx, "RESET_REQUEST_FAILED", "store reset token", err)
	}

	RecordPasswordReset("issue", ResultSuccess)
	s.logger.InfoContext(ctx, "reset token issued", "account_id", account.ID.String())
	return token, nil
}

// UpdatePassword sets a new password for the account holding the reset
// token and consumes the token in the same write. Fails with
// ErrInvalidToken if the token is unknown or already used.
func (s *Service) UpdatePassword(ctx context.Context, token, newPassword string) (err error) {
	ctx, span := tracer.Start(ctx, "auth.UpdatePassword")
	defer func() { endSpan(span, err) }()

	if newPassword == "" {
		RecordPasswordReset("consume", ResultFailure)
		return oops.Code("RESET_PASSWORD_EMPTY").Wrap(ErrEmptyPassword)
	}
	if token == "" {
		RecordPasswordReset("consume", ResultFailure)
		return invalidToken()
	}

	tokenHash := HashToken(token)
	if _, err := s.accounts.GetByResetTokenHash(ctx, tokenHash); err != nil {
		if errors.Is(err, ErrNotFound) {
			RecordPasswordReset("consume", ResultFailure)
			return invalidToken()
		}
		RecordPasswordReset("consume", ResultError)
		return s.storageFailure(ctx, "RESET_PASSWORD_FAILED", "get account by reset token", err)
	}

	passwordHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		RecordPasswordReset("consume", ResultError)
		return oops.Code("RESET_PASSWORD_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	accountID, err := s.accounts.ConsumeResetToken(ctx, tokenHash, passwordHash)
	if err != nil {
		// A concurrent reset consumed the token between lookup and write.
		if errors.Is(err, ErrNotFound) {
			RecordPasswordReset("consume", ResultFailure)
			return invalidToken()
		}
		RecordPasswordReset("consume", ResultError)
		return s.storageFailure(ctx, "RESET_PASSWORD_FAILED", "consume reset token", err)
	}

	RecordPasswordReset("consume", ResultSuccess)
	s.logger.InfoContext(ctx, "password updated", "account_id", accountID.String())
	return nil
}

// verifyCredentials always runs one hash verification, against a dummy
// hash when the email is unknown.
func (s *Service) verifyCredentials(ctx context.Context, email, password string) (*Account, error) {
	account, lookupErr := s.accounts.GetByEmail(ctx, email)

	targetHash := dummyPasswordHash
	switch {
	case lookupErr == nil:
		targetHash = account.PasswordHash
	case !errors.Is(lookupErr, ErrNotFound):
		return nil, s.storageFailure(ctx, "AUTH_LOGIN_FAILED", "get account by email", lookupErr)
	}

	valid := s.hasher.Verify(password, targetHash)
	if lookupErr != nil || !valid {
		return nil, oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(ErrInvalidCredentials)
	}
	return account, nil
}

// upgradeHash re-hashes a password stored under a weaker scheme. Failure
// is logged and does not fail the login.
func (s *Service) upgradeHash(ctx context.Context, account *Account, password string) {
	if !s.hasher.NeedsUpgrade(account.PasswordHash) {
		return
	}

	newHash, err := s.hasher.Hash(password)
	if err == nil {
		err = s.accounts.Update(ctx, account.ID, AccountUpdate{PasswordHash: Set(newHash)})
	}
	if err != nil {
		s.logger.WarnContext(ctx, "password hash upgrade failed",
			"account_id", account.ID.String(),
			"error", err,
		)
		return
	}
	account.PasswordHash = newHash
	s.logger.InfoContext(ctx, "password hash upgraded", "account_id", account.ID.String())
}

func (s *Service) accountByEmail(ctx context.Context, email, code string) (*Account, error) {
	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, unknownAccount(email)
		}
		return nil, s.storageFailure(ctx, code, "get account by email", err)
	}
	return account, nil
}

// storageFailure wraps an unexpected error and logs it. The result never
// matches any expected-outcome sentinel unless err already did.
func (s *Service) storageFailure(ctx context.Context, code, operation string, err error) error {
	wrapped := oops.Code(code).
		With("operation", operation).
		Wrap(err)
	errutil.LogError(ctx, s.logger, "auth storage failure", wrapped)
	return wrapped
}

func duplicateEmail(email string) error {
	return oops.Code("AUTH_DUPLICATE_EMAIL").
		With("email", email).
		Wrap(ErrDuplicateEmail)
}

func unknownAccount(email string) error {
	return oops.Code("AUTH_UNKNOWN_ACCOUNT").
		With("email", email).
		Wrap(ErrUnknownAccount)
}

func invalidToken() error {
	return oops.Code("RESET_TOKEN_INVALID").Wrap(ErrInvalidToken)
}

// endSpan marks the span failed for storage failures only; expected
// outcomes such as bad credentials are not span errors.
func endSpan(span trace.Span, err error) {
	if err != nil && KindOf(err) == KindStorageFailure {
		span.RecordError(err)
		span.SetStatus(codes.Error, "storage failure")
	}
	span.End()
}
