// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package observability

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/holomush/sessionauth/internal/auth"
	"github.com/holomush/sessionauth/pkg/errutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// http.Client keep-alive connections are closed asynchronously.
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
	)
}

func startServer(t *testing.T, probe ReadinessProbe, opts ...Option) *Server {
	t.Helper()
	server := NewServer("127.0.0.1:0", probe, opts...)
	_, err := server.Start()
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Stop(ctx)
		http.DefaultClient.CloseIdleConnections()
	})
	require.NotEmpty(t, server.Addr())
	return server
}

func get(t *testing.T, server *Server, path string) (int, string) {
	t.Helper()
	resp, err := http.Get("http://" + server.Addr() + path)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestServer_Metrics(t *testing.T) {
	server := startServer(t, nil, WithBuildInfo("v1.2.3", "abc123"))

	status, body := get(t, server, "/metrics")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "# HELP")
	assert.Contains(t, body, "# TYPE")
	assert.Contains(t, body, "go_")
	assert.Contains(t, body, "process_")
	assert.Contains(t, body, `sessionauth_build_info{commit="abc123",version="v1.2.3"} 1`)
}

func TestServer_AuthMetrics(t *testing.T) {
	server := startServer(t, nil, WithCollectors(auth.RegisterMetrics))

	auth.RecordLogin(auth.ResultSuccess)
	auth.RecordSessionIssued()
	auth.RecordSessionCheck(auth.SessionCheckExpired)

	_, body := get(t, server, "/metrics")
	assert.Contains(t, body, `sessionauth_logins_total{result="success"}`)
	assert.Contains(t, body, "sessionauth_sessions_issued_total")
	assert.Contains(t, body, `sessionauth_session_checks_total{result="expired"}`)
}

func TestServer_SeparateRegistries(t *testing.T) {
	// The same collectors may back several servers.
	first := NewServer("127.0.0.1:0", nil, WithCollectors(auth.RegisterMetrics))
	second := NewServer("127.0.0.1:0", nil, WithCollectors(auth.RegisterMetrics))
	assert.NotSame(t, first.Registry(), second.Registry())
}

func TestServer_Liveness(t *testing.T) {
	server := startServer(t, func(context.Context) error { return errors.New("store down") })

	status, body := get(t, server, "/healthz/liveness")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", strings.TrimSpace(body))
}

func TestServer_Readiness(t *testing.T) {
	tests := []struct {
		name       string
		probe      ReadinessProbe
		wantStatus int
		wantBody   string
		wantGauge  string
	}{
		{"ready", func(context.Context) error { return nil }, http.StatusOK, "ok", "sessionauth_ready 1"},
		{
			"store unreachable",
			func(context.Context) error { return errors.New("dial tcp: connection refused") },
			http.StatusServiceUnavailable, "not ready", "sessionauth_ready 0",
		},
		{"nil probe", nil, http.StatusOK, "ok", "sessionauth_ready 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			server := startServer(t, tt.probe, WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))

			status, body := get(t, server, "/healthz/readiness")
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantBody, strings.TrimSpace(body))
			assert.NotContains(t, body, "connection refused")

			_, metrics := get(t, server, "/metrics")
			assert.Contains(t, metrics, tt.wantGauge)
		})
	}
}

func TestServer_ReadyAppliesProbeTimeout(t *testing.T) {
	server := NewServer("127.0.0.1:0", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, WithProbeTimeout(20*time.Millisecond))

	start := time.Now()
	err := server.Ready(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestServer_MethodNotAllowed(t *testing.T) {
	server := startServer(t, nil)

	resp, err := http.Post("http://"+server.Addr()+"/healthz/liveness", "text/plain", nil)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestServer_DoubleStartFails(t *testing.T) {
	server := startServer(t, nil)

	_, err := server.Start()
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "OBSERVABILITY_ALREADY_RUNNING")
}

func TestServer_StartOnBusyAddress(t *testing.T) {
	first := startServer(t, nil)

	second := NewServer(first.Addr(), nil)
	_, err := second.Start()
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "OBSERVABILITY_LISTEN_FAILED")

	// Stop after a failed Start is a no-op.
	assert.NoError(t, second.Stop(context.Background()))
}

func TestServer_StopIdempotent(t *testing.T) {
	server := NewServer("127.0.0.1:0", nil)

	assert.NoError(t, server.Stop(context.Background()), "stop before start")

	_, err := server.Start()
	require.NoError(t, err)
	assert.NoError(t, server.Stop(context.Background()))
	assert.NoError(t, server.Stop(context.Background()))
}

func TestServer_ErrorChannelReportsServeErrors(t *testing.T) {
	server := NewServer("127.0.0.1:0", nil)

	errCh, err := server.Start()
	require.NoError(t, err)

	// Closing the listener makes Serve fail after Start has returned.
	require.NoError(t, server.listener.Close())

	select {
	case serveErr := <-errCh:
		assert.Error(t, serveErr)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for serve error")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Stop(ctx)
}

func TestServer_ErrorChannelClosesOnNormalShutdown(t *testing.T) {
	server := NewServer("127.0.0.1:0", nil)

	errCh, err := server.Start()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, server.Stop(ctx))

	select {
	case err, ok := <-errCh:
		if ok {
			assert.NoError(t, err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for error channel to close")
	}
}
