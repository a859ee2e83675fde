package helpers

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Key      string `query:"key" validate:"required,max=4"`
	DeviceID string `json:"deviceId" validate:"required"`
}

func TestValidateStruct(t *testing.T) {
	assert.NoError(t, ValidateStruct(sample{Key: "ab", DeviceID: "d"}))

	err := ValidateStruct(sample{Key: "abcdef"})
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "key must be at most 4 characters")
		assert.Contains(t, err.Error(), "deviceId is required")
	}
}

func TestClientIP_UntrustedPeerIgnoresHeaders(t *testing.T) {
	SetTrustedProxies(nil)

	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "198.51.100.4:5555"
	assert.Equal(t, "198.51.100.4", ClientIP(r))

	r.Header.Set("X-Forwarded-For", "203.0.113.9")
	r.Header.Set("X-Real-IP", "203.0.113.10")
	assert.Equal(t, "198.51.100.4", ClientIP(r), "a direct client cannot pick its own IP")
}

func TestClientIP_TrustedProxy(t *testing.T) {
	ps, err := ParseTrustedProxies([]string{"10.0.0.0/8", "192.168.1.1"})
	require.NoError(t, err)
	SetTrustedProxies(ps)
	defer SetTrustedProxies(nil)

	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", ClientIP(r))

	// El cliente puede anteponer lo que quiera; cuenta el primer hop no confiable
	// desde la derecha.
	r.Header.Set("X-Forwarded-For", "1.2.3.4, 203.0.113.9, 192.168.1.1")
	assert.Equal(t, "203.0.113.9", ClientIP(r))

	r.Header.Set("X-Forwarded-For", "10.1.1.1, 10.2.2.2")
	assert.Equal(t, "10.1.1.1", ClientIP(r), "all hops trusted: leftmost")

	r.Header.Set("X-Forwarded-For", "not-an-ip")
	assert.Equal(t, "10.0.0.1", ClientIP(r))

	r.Header.Del("X-Forwarded-For")
	r.Header.Set("X-Real-IP", "203.0.113.20")
	assert.Equal(t, "203.0.113.20", ClientIP(r))
}

func TestParseTrustedProxies_Invalid(t *testing.T) {
	_, err := ParseTrustedProxies([]string{"10.0.0.0/33"})
	assert.Error(t, err)
	_, err = ParseTrustedProxies([]string{"proxy.local"})
	assert.Error(t, err)

	ps, err := ParseTrustedProxies([]string{" ", "::1"})
	require.NoError(t, err)
	assert.Len(t, ps, 1)
}

func TestBearerToken(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	assert.Equal(t, "", BearerToken(r))

	r.Header.Set("Authorization", "Bearer abc.def.ghi")
	assert.Equal(t, "abc.def.ghi", BearerToken(r))

	r.Header.Set("Authorization", "bearer  xyz ")
	assert.Equal(t, "xyz", BearerToken(r))

	r.Header.Set("Authorization", "Basic Zm9vOmJhcg==")
	assert.Equal(t, "", BearerToken(r))
}
