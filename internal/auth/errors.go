// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import "errors"

// ErrNotFound is returned by repositories when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Expected, recoverable outcomes. Service methods wrap these with oops so
// callers can match them with errors.Is or classify them with KindOf.
var (
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrUnknownAccount     = errors.New("unknown account")
	ErrUnknownField       = errors.New("update names no known account field")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrInvalidToken       = errors.New("invalid reset token")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrEmptyPassword      = errors.New("password cannot be empty")
)

// Internal conditions. Neither escapes the Service: an expired session is
// reported as ErrNotAuthenticated and a collision is retried.
var (
	ErrSessionExpired = errors.New("session expired")
	ErrTokenCollision = errors.New("token already in use")
)

// Kind classifies the outcome of a Service operation for transport layers.
type Kind int

// Outcome kinds.
const (
	KindOK Kind = iota
	KindDuplicateEmail
	KindUnknownAccount
	KindUnknownField
	KindInvalidCredentials
	KindNotAuthenticated
	KindInvalidToken
	KindInvalidInput
	KindStorageFailure
)

var kindNames = map[Kind]string{
	KindOK:                 "ok",
	KindDuplicateEmail:     "duplicate_email",
	KindUnknownAccount:     "unknown_account",
	KindUnknownField:       "unknown_field",
	KindInvalidCredentials: "invalid_credentials",
	KindNotAuthenticated:   "not_authenticated",
	KindInvalidToken:       "invalid_token",
	KindInvalidInput:       "invalid_input",
	KindStorageFailure:     "storage_failure",
}

// String returns the snake_case name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// KindOf maps an error returned by this package to its Kind.
// A nil error is KindOK. Any error that is not one of the expected outcomes
// is KindStorageFailure.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindOK
	case errors.Is(err, ErrDuplicateEmail):
		return KindDuplicateEmail
	case errors.Is(err, ErrUnknownAccount):
		return KindUnknownAccount
	case errors.Is(err, ErrUnknownField):
		return KindUnknownField
	case errors.Is(err, ErrInvalidCredentials):
		return KindInvalidCredentials
	case errors.Is(err, ErrNotAuthenticated), errors.Is(err, ErrSessionExpired):
		return KindNotAuthenticated
	case errors.Is(err, ErrInvalidToken):
		return KindInvalidToken
	case errors.Is(err, ErrInvalidEmail), errors.Is(err, ErrEmptyPassword):
		return KindInvalidInput
	default:
		return KindStorageFailure
	}
}
