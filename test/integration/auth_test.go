// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package integration

import (
	"context"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/holomush/sessionauth/internal/auth"
	"github.com/holomush/sessionauth/internal/auth/postgres"
)

var fastHasher = auth.NewArgon2idHasherWithParams(auth.Argon2Params{
	Time: 1, Memory: 1024, Threads: 1, SaltLen: 16, KeyLen: 32,
})

// clock is a settable time source shared by the policy under test.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type storeFactory func(accounts *postgres.AccountRepository) auth.SessionStore

func singleSession(accounts *postgres.AccountRepository) auth.SessionStore {
	return auth.NewAccountSessionStore(accounts)
}

func multiSession(*postgres.AccountRepository) auth.SessionStore {
	return auth.NewRecordSessionStore(postgres.NewSessionRepository(pool))
}

func newService(factory storeFactory, maxAge time.Duration, clk *clock) *auth.Service {
	accounts := postgres.NewAccountRepository(pool)
	policy, err := auth.NewSessionPolicy(factory(accounts), maxAge, auth.WithClock(clk.Now))
	Expect(err).NotTo(HaveOccurred())
	svc, err := auth.NewService(accounts, policy, fastHasher)
	Expect(err).NotTo(HaveOccurred())
	return svc
}

func describeAuth(policyName string, factory storeFactory) {
	Describe("with the "+policyName+" session policy", func() {
		var (
			ctx context.Context
			clk *clock
			svc *auth.Service
		)

		BeforeEach(func() {
			ctx = context.Background()
			truncate(ctx)
			clk = &clock{now: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)}
			svc = newService(factory, time.Hour, clk)
		})

		It("logs in, authenticates and logs out", func() {
			_, err := svc.Register(ctx, "a@x.com", "pw1")
			Expect(err).NotTo(HaveOccurred())

			token, err := svc.Login(ctx, "a@x.com", "pw1")
			Expect(err).NotTo(HaveOccurred())

			account, err := svc.Authenticate(ctx, token)
			Expect(err).NotTo(HaveOccurred())
			Expect(account.Email).To(Equal("a@x.com"))

			_, err = svc.Login(ctx, "a@x.com", "wrong")
			Expect(auth.KindOf(err)).To(Equal(auth.KindInvalidCredentials))

			Expect(svc.Logout(ctx, token)).To(Succeed())
			_, err = svc.Authenticate(ctx, token)
			Expect(auth.KindOf(err)).To(Equal(auth.KindNotAuthenticated))

			Expect(svc.Logout(ctx, token)).To(Succeed(), "second logout is a no-op")
		})

		It("rejects a second registration of the same email", func() {
			_, err := svc.Register(ctx, "a@x.com", "pw1")
			Expect(err).NotTo(HaveOccurred())
			_, err = svc.Register(ctx, "a@x.com", "other")
			Expect(auth.KindOf(err)).To(Equal(auth.KindDuplicateEmail))
		})

		It("resets a password with a single-use token", func() {
			_, err := svc.Register(ctx, "a@x.com", "pw1")
			Expect(err).NotTo(HaveOccurred())

			resetToken, err := svc.IssueResetToken(ctx, "a@x.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(svc.UpdatePassword(ctx, resetToken, "pw2")).To(Succeed())

			_, err = svc.Login(ctx, "a@x.com", "pw1")
			Expect(auth.KindOf(err)).To(Equal(auth.KindInvalidCredentials))
			_, err = svc.Login(ctx, "a@x.com", "pw2")
			Expect(err).NotTo(HaveOccurred())

			err = svc.UpdatePassword(ctx, resetToken, "pw3")
			Expect(auth.KindOf(err)).To(Equal(auth.KindInvalidToken))
		})

		It("expires sessions lazily at the max age", func() {
			_, err := svc.Register(ctx, "a@x.com", "pw1")
			Expect(err).NotTo(HaveOccurred())
			token, err := svc.Login(ctx, "a@x.com", "pw1")
			Expect(err).NotTo(HaveOccurred())

			clk.Advance(time.Hour - time.Second)
			_, err = svc.Authenticate(ctx, token)
			Expect(err).NotTo(HaveOccurred())

			clk.Advance(2 * time.Second)
			_, err = svc.Authenticate(ctx, token)
			Expect(auth.KindOf(err)).To(Equal(auth.KindNotAuthenticated))
		})

		It("ends every session of an account", func() {
			account, err := svc.Register(ctx, "a@x.com", "pw1")
			Expect(err).NotTo(HaveOccurred())
			token, err := svc.Login(ctx, "a@x.com", "pw1")
			Expect(err).NotTo(HaveOccurred())

			Expect(svc.LogoutAccount(ctx, account.ID)).To(Succeed())
			_, err = svc.Authenticate(ctx, token)
			Expect(auth.KindOf(err)).To(Equal(auth.KindNotAuthenticated))
		})
	})
}

var _ = Describe("Auth facade on PostgreSQL", func() {
	describeAuth("single", singleSession)
	describeAuth("multi", multiSession)

	It("keeps only the newest session under the single policy", func() {
		ctx := context.Background()
		truncate(ctx)
		svc := newService(singleSession, time.Hour, &clock{now: time.Now()})

		_, err := svc.Register(ctx, "a@x.com", "pw1")
		Expect(err).NotTo(HaveOccurred())
		first, err := svc.Login(ctx, "a@x.com", "pw1")
		Expect(err).NotTo(HaveOccurred())
		second, err := svc.Login(ctx, "a@x.com", "pw1")
		Expect(err).NotTo(HaveOccurred())

		_, err = svc.Authenticate(ctx, first)
		Expect(auth.KindOf(err)).To(Equal(auth.KindNotAuthenticated))
		_, err = svc.Authenticate(ctx, second)
		Expect(err).NotTo(HaveOccurred())
	})

	It("keeps concurrent sessions under the multi policy", func() {
		ctx := context.Background()
		truncate(ctx)
		svc := newService(multiSession, time.Hour, &clock{now: time.Now()})

		_, err := svc.Register(ctx, "a@x.com", "pw1")
		Expect(err).NotTo(HaveOccurred())
		first, err := svc.Login(ctx, "a@x.com", "pw1")
		Expect(err).NotTo(HaveOccurred())
		_, err = svc.Login(ctx, "a@x.com", "pw1")
		Expect(err).NotTo(HaveOccurred())

		_, err = svc.Authenticate(ctx, first)
		Expect(err).NotTo(HaveOccurred())
	})
})
