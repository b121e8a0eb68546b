// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package memory

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/sessionauth/internal/auth"
)

// SessionRepository implements auth.SessionRepository in memory.
type SessionRepository struct {
	mu     sync.RWMutex
	byHash map[string]auth.Session
}

// NewSessionRepository creates an empty SessionRepository.
func NewSessionRepository() *SessionRepository {
	return &SessionRepository{byHash: make(map[string]auth.Session)}
}

// Create stores a new session.
func (r *SessionRepository) Create(_ context.Context, session *auth.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byHash[session.TokenHash]; exists {
		return oops.Code("SESSION_TOKEN_COLLISION").
			With("session_id", session.ID.String()).
			Wrap(auth.ErrTokenCollision)
	}
	r.byHash[session.TokenHash] = *session
	return nil
}

// GetByTokenHash retrieves a session by its token hash.
func (r *SessionRepository) GetByTokenHash(_ context.Context, tokenHash string) (*auth.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.byHash[tokenHash]
	if !ok {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	return &session, nil
}

// DeleteByTokenHash removes a session.
func (r *SessionRepository) DeleteByTokenHash(_ context.Context, tokenHash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byHash[tokenHash]; !ok {
		return false, nil
	}
	delete(r.byHash, tokenHash)
	return true, nil
}

// DeleteByAccount removes all sessions for an account.
func (r *SessionRepository) DeleteByAccount(_ context.Context, accountID ulid.ULID) (int64, error) {
	return r.deleteWhere(func(s auth.Session) bool { return s.AccountID == accountID }), nil
}

// DeleteCreatedBefore removes sessions created before cutoff.
func (r *SessionRepository) DeleteCreatedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	return r.deleteWhere(func(s auth.Session) bool { return s.CreatedAt.Before(cutoff) }), nil
}

// Len returns the number of stored sessions.
func (r *SessionRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byHash)
}

func (r *SessionRepository) deleteWhere(match func(auth.Session) bool) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for hash, session := range r.byHash {
		if match(session) {
			delete(r.byHash, hash)
			n++
		}
	}
	return n
}

// Compile-time interface check.
var _ auth.SessionRepository = (*SessionRepository)(nil)
