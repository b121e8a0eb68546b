// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package auth provides session-based authentication.
//
// # Domain Types
//
// Domain types should be created using their constructors:
//   - NewAccount - creates an Account with a validated email and password hash
//   - NewSession - creates a Session record with a validated owner and token hash
//
// Accounts are changed only through AccountUpdate, a typed partial update, or
// AccountRepository.ConsumeResetToken.
//
// # Sessions
//
// A SessionStore maps opaque tokens to account IDs. Two strategies exist:
//   - AccountSessionStore - one session per account, stored on the account (default)
//   - RecordSessionStore - one Session record per token, many per account
//
// SessionPolicy sits on top of a store and owns the session lifetime. Expiry
// is evaluated lazily on every Resolve; nothing is swept in the background.
// Tokens are never persisted, only their SHA-256 digests.
//
// # Services
//
// Service coordinates the components: Register, Login, Authenticate, Logout,
// IssueResetToken and UpdatePassword. Expected outcomes are returned as
// errors wrapping the sentinels in errors.go; KindOf maps any returned error
// to a Kind for transport layers.
package auth
