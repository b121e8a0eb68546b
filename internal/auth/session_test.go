// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/sessionauth/internal/auth"
	"github.com/holomush/sessionauth/pkg/errutil"
)

func TestNewSession(t *testing.T) {
	accountID := ulid.Make()
	created := time.Now()

	t.Run("creates session", func(t *testing.T) {
		session, err := auth.NewSession(accountID, "hash", created)
		require.NoError(t, err)
		assert.NotEqual(t, ulid.ULID{}, session.ID)
		assert.Equal(t, accountID, session.AccountID)
		assert.Equal(t, "hash", session.TokenHash)
		assert.Equal(t, created, session.CreatedAt)
	})

	t.Run("rejects zero account", func(t *testing.T) {
		_, err := auth.NewSession(ulid.ULID{}, "hash", created)
		errutil.AssertErrorCode(t, err, "SESSION_INVALID_ACCOUNT")
	})

	t.Run("rejects empty hash", func(t *testing.T) {
		_, err := auth.NewSession(accountID, "", created)
		errutil.AssertErrorCode(t, err, "SESSION_INVALID_HASH")
	})

	t.Run("rejects zero creation time", func(t *testing.T) {
		_, err := auth.NewSession(accountID, "hash", time.Time{})
		errutil.AssertErrorCode(t, err, "SESSION_INVALID_CREATED_AT")
	})
}

func TestSessionExpired(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	maxAge := 10 * time.Minute

	tests := []struct {
		name    string
		elapsed time.Duration
		maxAge  time.Duration
		want    bool
	}{
		{"fresh", 0, maxAge, false},
		{"just before max age", maxAge - time.Nanosecond, maxAge, false},
		{"exactly max age", maxAge, maxAge, false},
		{"just after max age", maxAge + time.Nanosecond, maxAge, true},
		{"long after", 24 * time.Hour, maxAge, true},
		{"zero max age never expires", 365 * 24 * time.Hour, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, auth.SessionExpired(created, created.Add(tt.elapsed), tt.maxAge))
			session := &auth.Session{CreatedAt: created}
			assert.Equal(t, tt.want, session.IsExpiredAt(created.Add(tt.elapsed), tt.maxAge))
		})
	}
}
