// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package cli_test

import (
	"context"
	"os/exec"
	"strings"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
)

// sessionauth runs the CLI against the test database and returns stdout.
// Status messages go to stderr, which is logged to the ginkgo writer.
func sessionauth(ctx context.Context, stdin string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "go", append([]string{"run", "."}, args...)...)
	cmd.Dir = "../../../cmd/sessionauth"
	cmd.Env = append(cmd.Environ(), "DATABASE_URL="+databaseURL, "XDG_CONFIG_HOME="+GinkgoT().TempDir())
	cmd.Stdin = strings.NewReader(stdin)

	var stderr strings.Builder
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	GinkgoWriter.Printf("sessionauth %v: %s\n", args, stderr.String())
	return strings.TrimSpace(string(out)), err
}

var _ = Describe("sessionauth CLI", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
		dropSchema(ctx)

		_, err := sessionauth(ctx, "", "migrate", "up")
		Expect(err).NotTo(HaveOccurred())
	})

	It("applies every migration", func() {
		var version int
		var dirty bool
		Expect(pool.QueryRow(ctx, "SELECT version, dirty FROM schema_migrations").
			Scan(&version, &dirty)).To(Succeed())
		Expect(version).To(Equal(2))
		Expect(dirty).To(BeFalse())
	})

	It("registers, logs in and resolves a session", func() {
		_, err := sessionauth(ctx, "pw1\n", "account", "register", "a@x.com")
		Expect(err).NotTo(HaveOccurred())

		var count int
		Expect(pool.QueryRow(ctx, "SELECT count(*) FROM accounts WHERE email = $1", "a@x.com").
			Scan(&count)).To(Succeed())
		Expect(count).To(Equal(1))

		token, err := sessionauth(ctx, "pw1\n", "session", "login", "a@x.com")
		Expect(err).NotTo(HaveOccurred())
		Expect(token).To(HaveLen(64))

		out, err := sessionauth(ctx, "", "session", "whoami", token)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("a@x.com"))

		_, err = sessionauth(ctx, "", "session", "logout", token)
		Expect(err).NotTo(HaveOccurred())

		_, err = sessionauth(ctx, "", "session", "whoami", token)
		Expect(err).To(HaveOccurred())
	})

	It("stores multi-policy sessions as records", func() {
		_, err := sessionauth(ctx, "pw1\n", "account", "register", "a@x.com")
		Expect(err).NotTo(HaveOccurred())

		for range 2 {
			_, err = sessionauth(ctx, "pw1\n", "session", "login", "a@x.com", "--session-policy=multi")
			Expect(err).NotTo(HaveOccurred())
		}

		var count int
		Expect(pool.QueryRow(ctx, "SELECT count(*) FROM sessions").Scan(&count)).To(Succeed())
		Expect(count).To(Equal(2))
	})

	It("exits non-zero for a wrong password", func() {
		_, err := sessionauth(ctx, "pw1\n", "account", "register", "a@x.com")
		Expect(err).NotTo(HaveOccurred())

		out, err := sessionauth(ctx, "nope\n", "session", "login", "a@x.com")
		Expect(err).To(HaveOccurred())
		Expect(out).To(BeEmpty())
	})
})
