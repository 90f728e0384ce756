// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flickbox Contributors

package observability

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/flickbox/flickbox/internal/auth"
)

// Metrics must satisfy the recorder the auth service reports to.
var _ auth.OutcomeRecorder = (*Metrics)(nil)

func startServer(t *testing.T, ready ReadinessChecker) (*Server, *Metrics) {
	t.Helper()
	registry := NewRegistry()
	metrics := NewMetrics(registry)
	server := NewServer("127.0.0.1:0", registry, ready, nil)

	_, err := server.Start()
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Stop(ctx)
	})
	require.NotEmpty(t, server.Addr())
	return server, metrics
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url) //nolint:gosec,noctx // test server
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestServer_Metrics(t *testing.T) {
	server, metrics := startServer(t, func() bool { return true })

	metrics.RecordAuthOutcome("login", "unauthorized")
	metrics.ObserveHTTPRequest(http.MethodPost, "/login", http.StatusUnauthorized, 12*time.Millisecond)

	status, body := get(t, "http://"+server.Addr()+"/metrics")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "# HELP")
	assert.Contains(t, body, "go_")
	assert.Contains(t, body, "process_")
	assert.Contains(t, body, `flickbox_auth_outcomes_total{operation="login",outcome="unauthorized"} 1`)
	assert.Contains(t, body, `flickbox_http_requests_total{method="POST",route="/login",status="401"} 1`)
	assert.Contains(t, body, "flickbox_http_request_duration_seconds_bucket")
}

func TestServer_Probes(t *testing.T) {
	var ready atomic.Bool
	server, _ := startServer(t, ready.Load)
	base := "http://" + server.Addr()

	status, body := get(t, base+"/healthz/liveness")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok\n", body)

	status, body = get(t, base+"/healthz/readiness")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "not ready\n", body)

	ready.Store(true)
	status, _ = get(t, base+"/healthz/readiness")
	assert.Equal(t, http.StatusOK, status)
}

func TestServer_NilReadinessIsReady(t *testing.T) {
	server, _ := startServer(t, nil)
	status, _ := get(t, "http://"+server.Addr()+"/healthz/readiness")
	assert.Equal(t, http.StatusOK, status)
}

func TestServer_Lifecycle(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	server := NewServer("127.0.0.1:0", prometheus.NewRegistry(), nil, nil)
	errCh, err := server.Start()
	require.NoError(t, err)

	_, err = server.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, server.Stop(ctx))
	require.NoError(t, server.Stop(ctx), "second stop is a no-op")

	_, open := <-errCh
	assert.False(t, open, "error channel closes on graceful stop")
}

func TestServer_ListenFailure(t *testing.T) {
	server := NewServer("256.0.0.1:bad", prometheus.NewRegistry(), nil, nil)
	_, err := server.Start()
	require.Error(t, err)

	_, err = server.Start()
	require.Error(t, err)
	assert.False(t, strings.Contains(err.Error(), "already running"), "failed start resets running state")
}

func TestMetrics_RecordAuthOutcome(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	metrics.RecordAuthOutcome("register", "success")
	metrics.RecordAuthOutcome("register", "success")
	metrics.RecordAuthOutcome("register", "conflict")

	assert.InDelta(t, 2, testutil.ToFloat64(metrics.AuthOutcomes.WithLabelValues("register", "success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.AuthOutcomes.WithLabelValues("register", "conflict")), 0)
}
