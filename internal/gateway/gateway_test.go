// ABOUTME: Tests for gateway wiring: route registration and shutdown
// ABOUTME: Uses an in-memory store and the assembled HTTP handler directly

package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anglerworks/angler-gateway/internal/config"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Server.HTTPAddr = "127.0.0.1:0"
	cfg.Database.Path = ":memory:"
	cfg.Auth.JWTSecret = "test-secret-0123456789abcdef0123"
	cfg.Auth.TokenTTL = config.DefaultTokenTTL
	cfg.Auth.WSAuthTimeout = config.DefaultWSAuthTimeout
	cfg.License.URL = "http://127.0.0.1:1"
	cfg.License.ProjectID = "test-project"
	cfg.License.Timeout = time.Second
	cfg.Metrics.Enabled = true
	cfg.Metrics.Path = "/metrics"
	return cfg
}

func newTestGateway(t *testing.T, cfg *config.Config) *Gateway {
	t.Helper()
	gw, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = gw.Shutdown(ctx)
	})
	return gw
}

func (g *Gateway) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	g.httpServer.Handler.ServeHTTP(rec, req)
	return rec
}

func TestGateway_Routes(t *testing.T) {
	gw := newTestGateway(t, testConfig())

	assert.Equal(t, http.StatusOK, gw.get(t, "/healthz").Code)
	assert.Equal(t, http.StatusOK, gw.get(t, "/").Code)
	assert.Equal(t, http.StatusOK, gw.get(t, "/api/ranking/alltime").Code)
	assert.Equal(t, http.StatusOK, gw.get(t, "/api/config/public").Code)
	assert.Equal(t, http.StatusOK, gw.get(t, "/metrics").Code)

	// A plain GET without an Upgrade header is rejected by the realtime
	// endpoint but the route exists.
	assert.NotEqual(t, http.StatusNotFound, gw.get(t, "/ws").Code)
}

func TestGateway_AdminDisabledWithoutPassword(t *testing.T) {
	gw := newTestGateway(t, testConfig())

	assert.Equal(t, http.StatusNotFound, gw.get(t, "/admin/login").Code)
}

func TestGateway_AdminEnabled(t *testing.T) {
	cfg := testConfig()
	cfg.Admin.PasswordHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"
	gw := newTestGateway(t, cfg)

	assert.Equal(t, http.StatusOK, gw.get(t, "/admin/login").Code)
}

func TestGateway_RunAndShutdown(t *testing.T) {
	gw, err := New(testConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- gw.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("gateway did not shut down")
	}
}
