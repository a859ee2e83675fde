package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("TOKEN_SECRET", testSecret)

	c, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "dev", c.App.Env)
	assert.Equal(t, ":8080", c.Server.Addr)
	assert.Equal(t, "memory", c.Storage.Driver)
	assert.Equal(t, "memory", c.Cache.Kind)
	assert.Equal(t, 30*time.Second, c.Cache.PolicyTTL)
	assert.Equal(t, time.Minute, c.Rate.Window)
	assert.Equal(t, 60, c.Rate.MaxRequests)
	assert.Equal(t, "licensegate", c.Token.Issuer)
	assert.Equal(t, 1024, c.Telemetry.QueueSize)
	assert.False(t, c.Maintenance.Enabled)
	assert.False(t, c.IsProd())
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	p := writeYAML(t, `
app:
  env: prod
  version: 2.3.0
server:
  addr: ":9000"
  shutdown_timeout: 5s
storage:
  driver: postgres
  dsn: postgres://u:p@db/licenses
  postgres:
    max_conns: 20
    min_conns: 2
    conn_max_lifetime: 30m
cache:
  kind: redis
  policy_ttl: 1m
  redis:
    addr: redis:6379
rate:
  enabled: true
  window: 10s
  max_requests: 5
token:
  issuer: https://license.example.com
  secret: ` + testSecret + `
maintenance:
  enabled: false
  message: scheduled work
`)
	t.Setenv("MAINTENANCE_MODE", "true")
	t.Setenv("REDIS_PREFIX", "lg")

	c, err := Load(p)
	require.NoError(t, err)
	assert.True(t, c.IsProd())
	assert.Equal(t, "2.3.0", c.App.Version)
	assert.Equal(t, ":9000", c.Server.Addr)
	assert.Equal(t, 5*time.Second, c.Server.ShutdownTimeout)
	assert.Equal(t, "postgres", c.Storage.Driver)
	assert.EqualValues(t, 20, c.Storage.Postgres.MaxConns)
	assert.Equal(t, 30*time.Minute, c.Storage.Postgres.ConnMaxLifetime)
	assert.Equal(t, "redis", c.Cache.Kind)
	assert.Equal(t, time.Minute, c.Cache.PolicyTTL)
	assert.Equal(t, "lg", c.Cache.Redis.Prefix)
	assert.Equal(t, 10*time.Second, c.Rate.Window)
	assert.Equal(t, "https://license.example.com", c.Token.Issuer)
	assert.True(t, c.Maintenance.Enabled, "env overrides yaml")
	assert.Equal(t, "scheduled work", c.Maintenance.Message)
}

func TestLoad_DSNImpliesPostgres(t *testing.T) {
	t.Setenv("TOKEN_SECRET", testSecret)
	t.Setenv("DATABASE_URL", "postgres://localhost/licenses")

	c, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "postgres", c.Storage.Driver)
	assert.Equal(t, "postgres://localhost/licenses", c.Storage.DSN)
}

func TestValidate_CollectsProblems(t *testing.T) {
	t.Setenv("TOKEN_SECRET", "short")
	t.Setenv("STORAGE_DRIVER", "postgres")
	t.Setenv("CACHE_KIND", "redis")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage.dsn is required")
	assert.Contains(t, err.Error(), "cache.redis.addr is required")
	assert.Contains(t, err.Error(), "token.secret must be at least 32 bytes")
}

func TestTrustedProxies_FromEnv(t *testing.T) {
	t.Setenv("TOKEN_SECRET", testSecret)
	t.Setenv("SERVER_TRUSTED_PROXIES", "10.0.0.0/8, 192.168.1.1")

	c, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.0/8", "192.168.1.1"}, c.Server.TrustedProxies)

	t.Setenv("SERVER_TRUSTED_PROXIES", "10.0.0.0/8,lb.internal")
	_, err = FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"lb.internal" is not an IP or CIDR`)
}

func TestValidate_UnknownDriver(t *testing.T) {
	t.Setenv("TOKEN_SECRET", testSecret)
	t.Setenv("STORAGE_DRIVER", "mongo")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `storage.driver "mongo" is not supported`)
}

func TestLoad_BadYAML(t *testing.T) {
	p := writeYAML(t, "server: [unclosed")
	_, err := Load(p)
	require.Error(t, err)
}

func TestLoadOrEnv_EmptyPath(t *testing.T) {
	t.Setenv("TOKEN_SECRET", testSecret)
	c, err := LoadOrEnv("  ")
	require.NoError(t, err)
	assert.Equal(t, "memory", c.Storage.Driver)
}
