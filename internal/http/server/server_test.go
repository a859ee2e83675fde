package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/licensegate/internal/config"
	"github.com/dropDatabas3/licensegate/internal/domain/repository"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &m))
	return m
}

func TestBuild_MemoryStack(t *testing.T) {
	t.Setenv("TOKEN_SECRET", testSecret)
	t.Setenv("RATE_ENABLED", "true")
	cfg, err := config.FromEnv()
	require.NoError(t, err)

	ctx := context.Background()
	app, err := Build(ctx, cfg)
	require.NoError(t, err)
	defer func() { assert.NoError(t, app.Close(ctx)) }()

	_, err = app.store.CreateLicense(ctx, repository.CreateLicenseInput{Key: "W-1"})
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	app.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/license/validate?key=W-1&deviceId=d", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "VALID", decode(t, rr)["reason"])

	// SIGHUP: el kill switch se prende sin reiniciar.
	cfg.Maintenance.Enabled = true
	app.Reload(ctx, cfg)
	rr = httptest.NewRecorder()
	app.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/license/validate?key=W-1&deviceId=d", nil))
	assert.Equal(t, "MAINTENANCE", decode(t, rr)["reason"])

	rr = httptest.NewRecorder()
	app.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	body := decode(t, rr)
	assert.Equal(t, true, body["maintenance"])

	rr = httptest.NewRecorder()
	app.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "license_validations_total")
}

func TestBuild_RedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	t.Setenv("TOKEN_SECRET", testSecret)
	t.Setenv("CACHE_KIND", "redis")
	t.Setenv("REDIS_ADDR", mr.Addr())
	t.Setenv("RATE_ENABLED", "true")
	t.Setenv("RATE_MAX_REQUESTS", "2")
	cfg, err := config.FromEnv()
	require.NoError(t, err)

	ctx := context.Background()
	app, err := Build(ctx, cfg)
	require.NoError(t, err)
	defer func() { _ = app.Close(ctx) }()

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rr := httptest.NewRecorder()
		app.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/version", nil))
		codes = append(codes, rr.Code)
	}
	assert.Equal(t, []int{200, 200, 429}, codes)

	rr := httptest.NewRecorder()
	app.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, "ok", decode(t, rr)["components"].(map[string]any)["cache"].(map[string]any)["status"])
}

func TestBuild_RateLimitUsesTrustedProxiesOnly(t *testing.T) {
	t.Setenv("TOKEN_SECRET", testSecret)
	t.Setenv("RATE_ENABLED", "true")
	t.Setenv("RATE_MAX_REQUESTS", "2")
	t.Setenv("RATE_WINDOW", "1h")

	hit := func(app *App, peer, xff string) int {
		req := httptest.NewRequest(http.MethodGet, "/v1/version", nil)
		req.RemoteAddr = peer
		req.Header.Set("X-Forwarded-For", xff)
		rr := httptest.NewRecorder()
		app.Handler.ServeHTTP(rr, req)
		return rr.Code
	}
	ctx := context.Background()

	// Sin proxies confiables, rotar X-Forwarded-For no saltea el límite.
	cfg, err := config.FromEnv()
	require.NoError(t, err)
	app, err := Build(ctx, cfg)
	require.NoError(t, err)
	codes := []int{
		hit(app, "198.51.100.4:1000", "203.0.113.1"),
		hit(app, "198.51.100.4:1001", "203.0.113.2"),
		hit(app, "198.51.100.4:1002", "203.0.113.3"),
	}
	assert.Equal(t, []int{200, 200, 429}, codes)
	require.NoError(t, app.Close(ctx))

	// Detrás de un proxy confiable cada cliente tiene su propio contador.
	t.Setenv("SERVER_TRUSTED_PROXIES", "10.0.0.0/8")
	cfg, err = config.FromEnv()
	require.NoError(t, err)
	app, err = Build(ctx, cfg)
	require.NoError(t, err)
	defer func() { _ = app.Close(ctx) }()
	codes = []int{
		hit(app, "10.0.0.5:1000", "203.0.113.1"),
		hit(app, "10.0.0.5:1001", "203.0.113.2"),
		hit(app, "10.0.0.5:1002", "203.0.113.3"),
	}
	assert.Equal(t, []int{200, 200, 200}, codes)
}

func TestBuild_RedisUnreachable(t *testing.T) {
	t.Setenv("TOKEN_SECRET", testSecret)
	t.Setenv("CACHE_KIND", "redis")
	t.Setenv("REDIS_ADDR", "127.0.0.1:1")
	cfg, err := config.FromEnv()
	require.NoError(t, err)

	_, err = Build(context.Background(), cfg)
	require.Error(t, err)
}

func TestServeListener_GracefulShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ServeListener(ctx, srv, ln, time.Second) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String())
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusNoContent
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}
