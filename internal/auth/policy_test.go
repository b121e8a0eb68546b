// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/holomush/sessionauth/internal/auth"
	"github.com/holomush/sessionauth/internal/auth/authtest"
	"github.com/holomush/sessionauth/internal/auth/memory"
	"github.com/holomush/sessionauth/pkg/errutil"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestNewSessionPolicy(t *testing.T) {
	store := new(authtest.SessionStore)

	t.Run("requires store", func(t *testing.T) {
		_, err := auth.NewSessionPolicy(nil, time.Hour)
		errutil.AssertErrorCode(t, err, "POLICY_INVALID_CONFIG")
	})

	t.Run("rejects negative max age", func(t *testing.T) {
		_, err := auth.NewSessionPolicy(store, -time.Second)
		errutil.AssertErrorCode(t, err, "POLICY_INVALID_CONFIG")
	})

	t.Run("rejects nil clock", func(t *testing.T) {
		_, err := auth.NewSessionPolicy(store, time.Hour, auth.WithClock(nil))
		errutil.AssertErrorCode(t, err, "POLICY_INVALID_CONFIG")
	})

	t.Run("zero max age allowed", func(t *testing.T) {
		policy, err := auth.NewSessionPolicy(store, 0)
		require.NoError(t, err)
		assert.Zero(t, policy.MaxAge())
	})
}

func TestSessionPolicy_Expiry(t *testing.T) {
	ctx := context.Background()
	maxAge := 30 * time.Minute

	for name, newStore := range sessionStores(t) {
		t.Run(name, func(t *testing.T) {
			tests := []struct {
				name    string
				elapsed time.Duration
				active  bool
			}{
				{"immediately", 0, true},
				{"just before max age", maxAge - time.Millisecond, true},
				{"at max age", maxAge, true},
				{"just after max age", maxAge + time.Millisecond, false},
			}

			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					clock := newFakeClock()
					store, accountID := newStore()
					policy, err := auth.NewSessionPolicy(store, maxAge, auth.WithClock(clock.Now))
					require.NoError(t, err)

					token, err := policy.Issue(ctx, accountID)
					require.NoError(t, err)

					clock.Advance(tt.elapsed)
					owner, err := policy.Resolve(ctx, token)
					if tt.active {
						require.NoError(t, err)
						assert.Equal(t, accountID, owner)
						return
					}
					assert.True(t, errors.Is(err, auth.ErrNotAuthenticated))
					assert.Equal(t, auth.KindNotAuthenticated, auth.KindOf(err))
				})
			}
		})
	}
}

func TestSessionPolicy_ZeroMaxAgeNeverExpires(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	accounts := memory.NewAccountRepository()
	account := mustAccount(t, accounts, "alice@example.com")

	policy, err := auth.NewSessionPolicy(auth.NewAccountSessionStore(accounts), 0, auth.WithClock(clock.Now))
	require.NoError(t, err)

	token, err := policy.Issue(ctx, account.ID)
	require.NoError(t, err)

	clock.Advance(10 * 365 * 24 * time.Hour)
	owner, err := policy.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, account.ID, owner)

	n, err := policy.Prune(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSessionPolicy_Resolve(t *testing.T) {
	ctx := context.Background()

	t.Run("empty token", func(t *testing.T) {
		store := new(authtest.SessionStore)
		policy, err := auth.NewSessionPolicy(store, time.Hour)
		require.NoError(t, err)

		_, err = policy.Resolve(ctx, "")
		assert.True(t, errors.Is(err, auth.ErrNotAuthenticated))
		errutil.AssertErrorCode(t, err, "SESSION_INVALID")
		store.AssertNotCalled(t, "FindOwner", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("storage failure is not an auth failure", func(t *testing.T) {
		store := new(authtest.SessionStore)
		policy, err := auth.NewSessionPolicy(store, time.Hour)
		require.NoError(t, err)
		boom := errors.New("db down")
		store.On("FindOwner", ctx, "tok", mock.AnythingOfType("time.Time"), time.Hour).
			Return(ulid.ULID{}, boom)

		_, err = policy.Resolve(ctx, "tok")
		require.Error(t, err)
		assert.False(t, errors.Is(err, auth.ErrNotAuthenticated))
		assert.True(t, errors.Is(err, boom))
		assert.Equal(t, auth.KindStorageFailure, auth.KindOf(err))
	})
}

func TestSessionPolicy_Issue(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	accountID := ulid.Make()

	t.Run("passes policy clock to store", func(t *testing.T) {
		store := new(authtest.SessionStore)
		policy, err := auth.NewSessionPolicy(store, time.Hour, auth.WithClock(clock.Now))
		require.NoError(t, err)
		store.On("Create", ctx, accountID, clock.Now()).Return("tok", nil)

		token, err := policy.Issue(ctx, accountID)
		require.NoError(t, err)
		assert.Equal(t, "tok", token)
		store.AssertExpectations(t)
	})

	t.Run("rejects empty token from store", func(t *testing.T) {
		store := new(authtest.SessionStore)
		policy, err := auth.NewSessionPolicy(store, time.Hour, auth.WithClock(clock.Now))
		require.NoError(t, err)
		store.On("Create", ctx, accountID, clock.Now()).Return("", nil)

		_, err = policy.Issue(ctx, accountID)
		errutil.AssertErrorCode(t, err, "SESSION_CREATE_FAILED")
	})
}

func TestSessionPolicy_Destroy(t *testing.T) {
	ctx := context.Background()

	for name, newStore := range sessionStores(t) {
		t.Run(name, func(t *testing.T) {
			clock := newFakeClock()
			store, accountID := newStore()
			policy, err := auth.NewSessionPolicy(store, time.Minute, auth.WithClock(clock.Now))
			require.NoError(t, err)

			token, err := policy.Issue(ctx, accountID)
			require.NoError(t, err)

			// Expired sessions can still be destroyed.
			clock.Advance(time.Hour)
			removed, err := policy.Destroy(ctx, token)
			require.NoError(t, err)
			assert.True(t, removed)

			removed, err = policy.Destroy(ctx, token)
			require.NoError(t, err)
			assert.False(t, removed)
		})
	}
}

func TestSessionPolicy_Prune(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	sessions := memory.NewSessionRepository()
	policy, err := auth.NewSessionPolicy(auth.NewRecordSessionStore(sessions), time.Hour, auth.WithClock(clock.Now))
	require.NoError(t, err)

	old, err := policy.Issue(ctx, ulid.Make())
	require.NoError(t, err)
	clock.Advance(90 * time.Minute)
	fresh, err := policy.Issue(ctx, ulid.Make())
	require.NoError(t, err)

	n, err := policy.Prune(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 1, sessions.Len())

	_, err = policy.Resolve(ctx, old)
	assert.True(t, errors.Is(err, auth.ErrNotAuthenticated))
	_, err = policy.Resolve(ctx, fresh)
	assert.NoError(t, err)
}

func TestSessionPolicy_PruneWrapsStoreError(t *testing.T) {
	ctx := context.Background()
	store := new(authtest.SessionStore)
	policy, err := auth.NewSessionPolicy(store, time.Hour)
	require.NoError(t, err)
	store.On("DeleteCreatedBefore", ctx, mock.AnythingOfType("time.Time")).Return(int64(0), errors.New("boom"))

	_, err = policy.Prune(ctx)
	require.Error(t, err)
	assert.Equal(t, auth.KindStorageFailure, auth.KindOf(err))
}
