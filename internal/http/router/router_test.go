package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/licensegate/internal/domain/repository"
	healthctrl "github.com/dropDatabas3/licensegate/internal/http/controllers/health"
	licensectrl "github.com/dropDatabas3/licensegate/internal/http/controllers/license"
	tokenctrl "github.com/dropDatabas3/licensegate/internal/http/controllers/token"
	healthsvc "github.com/dropDatabas3/licensegate/internal/http/services/health"
	licensesvc "github.com/dropDatabas3/licensegate/internal/http/services/license"
	jwtx "github.com/dropDatabas3/licensegate/internal/jwt"
	"github.com/dropDatabas3/licensegate/internal/licensing"
	"github.com/dropDatabas3/licensegate/internal/metrics"
	"github.com/dropDatabas3/licensegate/internal/rate"
	"github.com/dropDatabas3/licensegate/internal/store/memory"
)

type testServer struct {
	*httptest.Server
	store *memory.Store
	sw    *licensing.Switch
}

func newTestServer(t *testing.T, limiter rate.Limiter) *testServer {
	t.Helper()
	st := memory.New()
	sw := licensing.NewSwitch(licensing.Snapshot{})
	iss, err := jwtx.NewIssuer("licensegate-test", []byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)

	svcs := licensesvc.NewServices(licensesvc.Deps{Store: st, Switch: sw, Issuer: iss})
	reg := prometheus.NewRegistry()
	require.NoError(t, metrics.Register(reg, nil))

	h := New(Deps{
		License: licensectrl.NewControllers(svcs),
		Token:   tokenctrl.NewVerifyController(),
		Health: healthctrl.NewHealthController(healthsvc.NewHealthService(healthsvc.Deps{
			DBCheck: st.Ping, Signer: iss, Switch: sw, Version: "test",
		})),
		Verifier: iss,
		Limiter:  limiter,
		Metrics:  promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, store: st, sw: sw}
}

func (s *testServer) get(t *testing.T, path string, header ...string) (int, map[string]any, http.Header) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, s.URL+path, nil)
	require.NoError(t, err)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	resp, err := s.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var body map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&body)
	return resp.StatusCode, body, resp.Header
}

func TestValidateFlow(t *testing.T) {
	s := newTestServer(t, nil)
	ctx := context.Background()
	_, err := s.store.CreateLicense(ctx, repository.CreateLicenseInput{Key: "ABC-1"})
	require.NoError(t, err)

	code, body, hdr := s.get(t, "/v1/license/validate?key=ABC-1&deviceId=devA&version=1.0")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["valid"])
	assert.Equal(t, "VALID", body["reason"])
	assert.Equal(t, "devA", body["deviceId"])
	assert.Equal(t, true, body["newDevice"])
	assert.NotEmpty(t, body["token"])
	assert.NotEmpty(t, body["expiresAt"])
	assert.Equal(t, "no-store", hdr.Get("Cache-Control"))
	token := body["token"].(string)

	// Alias viejo, mismo device: sin newDevice.
	code, body, _ = s.get(t, "/api/validate?key=ABC-1&deviceId=devA")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "VALID", body["reason"])
	_, hasNew := body["newDevice"]
	assert.False(t, hasNew)

	code, body, _ = s.get(t, "/v1/license/validate?key=ABC-1&deviceId=devB")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["valid"])
	assert.Equal(t, "DEVICE_MISMATCH", body["reason"])
	assert.Equal(t, "devB", body["deviceId"])
	assert.Equal(t, "devA", body["boundDeviceId"])
	_, hasToken := body["token"]
	assert.False(t, hasToken)

	// La credencial emitida abre /v1/token/verify.
	code, body, _ = s.get(t, "/v1/token/verify", "Authorization", "Bearer "+token)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "devA", body["deviceId"])

	code, body, _ = s.get(t, "/v1/token/verify", "Authorization", "Bearer nope")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "UNAUTHORIZED", body["code"])
}

func TestValidateOutcomes(t *testing.T) {
	s := newTestServer(t, nil)
	ctx := context.Background()
	_, err := s.store.CreateLicense(ctx, repository.CreateLicenseInput{Key: "REV-1"})
	require.NoError(t, err)
	require.NoError(t, s.store.RevokeLicense(ctx, "REV-1"))
	_, err = s.store.CreateLicense(ctx, repository.CreateLicenseInput{Key: "UPD-1"})
	require.NoError(t, err)
	url := "https://example.com/dl"
	_, err = s.store.SetActivePolicy(ctx, repository.SetPolicyInput{MinimumVersion: "2.0", CurrentVersion: "2.4", DownloadURL: &url})
	require.NoError(t, err)

	code, body, _ := s.get(t, "/v1/license/validate?deviceId=dev")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "INVALID_REQUEST", body["reason"])
	assert.Contains(t, body["message"], "key is required")

	code, body, _ = s.get(t, "/v1/license/validate?key=NOPE&deviceId=dev")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]any{"valid": false, "reason": "INVALID"}, body)

	code, body, _ = s.get(t, "/v1/license/validate?key=REV-1&deviceId=dev")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]any{"valid": false, "reason": "REVOKED"}, body)

	code, body, _ = s.get(t, "/v1/license/validate?key=UPD-1&deviceId=dev&version=1.5")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "UPDATE_REQUIRED", body["reason"])
	assert.Equal(t, true, body["newDevice"])
	notif, ok := body["updateNotification"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "1.5", notif["currentVersion"])
	assert.Equal(t, "2.0", notif["minimumVersion"])
	assert.Equal(t, "2.4", notif["latestVersion"])
	assert.Equal(t, url, notif["downloadUrl"])
	assert.NotEmpty(t, notif["message"])

	s.sw.Refresh(licensing.Snapshot{Maintenance: true, Message: "down for upgrade"})
	code, body, _ = s.get(t, "/v1/license/validate?key=UPD-1&deviceId=dev&version=9")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]any{"valid": false, "reason": "MAINTENANCE", "message": "down for upgrade"}, body)
	s.sw.Refresh(licensing.Snapshot{})

	s.store.Fail(assert.AnError)
	code, body, _ = s.get(t, "/v1/license/validate?key=UPD-1&deviceId=dev")
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, map[string]any{"valid": false, "reason": "ERROR"}, body)
	s.store.Fail(nil)
}

func TestStatusAndVersion(t *testing.T) {
	s := newTestServer(t, nil)
	ctx := context.Background()
	exp := time.Now().Add(72 * time.Hour)
	_, err := s.store.CreateLicense(ctx, repository.CreateLicenseInput{Key: "ST-1", ExpiresAt: &exp})
	require.NoError(t, err)

	code, body, _ := s.get(t, "/v1/version")
	assert.Equal(t, http.StatusOK, code)
	assert.Empty(t, body)

	code, body, _ = s.get(t, "/v1/license/status?key=ST-1&deviceId=devA")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "active", body["status"])
	assert.EqualValues(t, 3, body["daysRemaining"])
	assert.Equal(t, false, body["bound"])

	code, body, _ = s.get(t, "/v1/license/status")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "MISSING_FIELDS", body["code"])
}

func TestOperationalRoutes(t *testing.T) {
	s := newTestServer(t, nil)

	code, body, _ := s.get(t, "/readyz")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ready", body["status"])

	resp, err := s.Client().Get(s.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	code, body, _ = s.get(t, "/nope")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "ROUTE_NOT_FOUND", body["code"])

	resp, err = s.Client().Post(s.URL+"/v1/license/validate", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestRateLimitAppliesToLicenseRoutesOnly(t *testing.T) {
	s := newTestServer(t, rate.NewMemoryLimiter(1, time.Minute))

	code, _, _ := s.get(t, "/v1/version")
	assert.Equal(t, http.StatusOK, code)
	code, body, _ := s.get(t, "/v1/version")
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", body["code"])

	code, _, _ = s.get(t, "/readyz")
	assert.Equal(t, http.StatusOK, code)
}
