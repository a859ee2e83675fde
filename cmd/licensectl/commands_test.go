package main

import (
	"bytes"
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/licensegate/internal/domain/repository"
	"github.com/dropDatabas3/licensegate/internal/store/memory"
)

func runCLI(t *testing.T, st *memory.Store, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd(&storeOpts{Driver: "memory"}, func(context.Context) (repository.Store, error) {
		return st, nil
	})
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestGenerateKeyFormat(t *testing.T) {
	re := regexp.MustCompile(`^[A-Z2-9]{4}-[A-Z2-9]{4}-[A-Z2-9]{4}-[A-Z2-9]{4}$`)
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		k, err := generateKey()
		require.NoError(t, err)
		assert.Regexp(t, re, k)
		assert.False(t, seen[k])
		seen[k] = true
	}
}

func TestParseExpiry(t *testing.T) {
	got, err := parseExpiry("")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = parseExpiry("2027-01-31")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2027, 1, 31, 23, 59, 59, 0, time.UTC), *got)

	got, err = parseExpiry("2027-01-31T10:00:00-03:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2027, 1, 31, 13, 0, 0, 0, time.UTC), *got)

	_, err = parseExpiry("next year")
	assert.Error(t, err)
}

func TestLicenseLifecycle(t *testing.T) {
	st := memory.New()
	ctx := context.Background()

	out, err := runCLI(t, st, "license", "create", "--key", "ABC-1", "--expires", "2030-06-01")
	require.NoError(t, err)
	var created repository.License
	require.NoError(t, json.Unmarshal([]byte(out), &created))
	assert.Equal(t, "ABC-1", created.Key)
	require.NotNil(t, created.ExpiresAt)

	_, err = runCLI(t, st, "license", "create", "--key", "ABC-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
	assert.NotContains(t, err.Error(), "ABC-1", "la key completa no se imprime")

	_, _, err = st.CreateBindingIfAbsent(ctx, "ABC-1", "dev-A", repository.DeviceSeen{})
	require.NoError(t, err)

	out, err = runCLI(t, st, "license", "show", "ABC-1")
	require.NoError(t, err)
	assert.Contains(t, out, `"dev-A"`)

	out, err = runCLI(t, st, "license", "revoke", "ABC-1")
	require.NoError(t, err)
	assert.Contains(t, out, "revoked")
	l, err := st.GetLicense(ctx, "ABC-1")
	require.NoError(t, err)
	assert.True(t, l.Revoked)

	_, err = runCLI(t, st, "license", "revoke", "NOPE")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestLicenseCreateGeneratesKey(t *testing.T) {
	st := memory.New()
	out, err := runCLI(t, st, "license", "create")
	require.NoError(t, err)
	var created repository.License
	require.NoError(t, json.Unmarshal([]byte(out), &created))
	assert.Len(t, created.Key, 19)
	assert.Nil(t, created.ExpiresAt)
}

func TestPolicyCommands(t *testing.T) {
	st := memory.New()

	out, err := runCLI(t, st, "policy", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "no active policy")

	_, err = runCLI(t, st, "policy", "set", "--min", "2.x", "--current", "2.0")
	require.Error(t, err)

	_, err = runCLI(t, st, "policy", "set", "--min", "1.5", "--current", "2.0", "--url", "https://dl.example.com")
	require.NoError(t, err)

	p, err := st.GetActivePolicy(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1.5", p.MinimumVersion)
	assert.Equal(t, "2.0", p.CurrentVersion)
	require.NotNil(t, p.DownloadURL)
	assert.Equal(t, "https://dl.example.com", *p.DownloadURL)
}

func TestMigrateRequiresPostgres(t *testing.T) {
	_, err := runCLI(t, memory.New(), "migrate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres")
}

func TestSecretGen(t *testing.T) {
	out, err := runCLI(t, memory.New(), "secret", "gen")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(bytes.TrimSpace([]byte(out))), 64)

	_, err = runCLI(t, memory.New(), "secret", "gen", "--bytes", "8")
	assert.Error(t, err)
}
