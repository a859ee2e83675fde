package licensing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, s string) Version {
	t.Helper()
	v, err := ParseVersion(s)
	require.NoError(t, err, s)
	return v
}

func TestCompare(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"1.9", "1.10", -1},
		{"1.10", "2.0", -1},
		{"1.9", "2.0", -1},
		{"1.2", "1.2.0", 0},
		{"1.2.0.0", "1.2", 0},
		{"2", "1.99.99", 1},
		{"1.0.1", "1.0", 1},
		{"v3.1", "3.1.0", 0},
	}
	for _, c := range cases {
		t.Run(c.a+"_vs_"+c.b, func(t *testing.T) {
			assert.Equal(t, c.want, Compare(mustParse(t, c.a), mustParse(t, c.b)))
			assert.Equal(t, -c.want, Compare(mustParse(t, c.b), mustParse(t, c.a)))
		})
	}
}

func TestParseVersionRejectsMalformed(t *testing.T) {
	for _, s := range []string{"", "  ", "1..2", "1.a", "-1.0", "1.2-beta", ".1", "1.", "99999999999999999999999"} {
		_, err := ParseVersion(s)
		assert.Error(t, err, "%q", s)
	}
}

func TestClientVersionDefaultsToOnePointZero(t *testing.T) {
	def := mustParse(t, "1.0")
	for _, s := range []string{"", "garbage", "1.x"} {
		assert.Equal(t, 0, Compare(def, ClientVersion(s)), "%q", s)
	}
	assert.Equal(t, "2.5.1", ClientVersion("2.5.1").String())
	assert.Equal(t, "1.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0", ClientVersion("1.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0").String())

	long := "9" + strings.Repeat(".9", MaxClientVersionLen/2)
	assert.Greater(t, len(long), MaxClientVersionLen)
	assert.Equal(t, 0, Compare(def, ClientVersion(long)))
}

func TestEvaluate(t *testing.T) {
	policy := &Policy{MinimumVersion: "1.10", CurrentVersion: "2.3", DownloadURL: "https://example.com/dl"}

	t.Run("no policy is fail open", func(t *testing.T) {
		assert.True(t, Evaluate("0.1", nil).OK)
		assert.True(t, Evaluate("0.1", &Policy{}).OK)
	})

	t.Run("older client fails with update info", func(t *testing.T) {
		res := Evaluate("1.9", policy)
		require.False(t, res.OK)
		require.NotNil(t, res.Info)
		assert.Equal(t, "1.9", res.Info.CurrentVersion)
		assert.Equal(t, "1.10", res.Info.MinimumVersion)
		assert.Equal(t, "2.3", res.Info.LatestVersion)
		assert.Equal(t, "https://example.com/dl", res.Info.DownloadURL)
		assert.NotEmpty(t, res.Info.Message)
	})

	t.Run("equal and newer pass", func(t *testing.T) {
		assert.True(t, Evaluate("1.10.0", policy).OK)
		assert.True(t, Evaluate("2.0", policy).OK)
	})

	t.Run("missing client version behaves as 1.0", func(t *testing.T) {
		assert.True(t, Evaluate("", &Policy{MinimumVersion: "1.0"}).OK)
		res := Evaluate("", &Policy{MinimumVersion: "1.0.1"})
		require.False(t, res.OK)
		assert.Equal(t, "1.0", res.Info.CurrentVersion)
	})

	t.Run("malformed policy minimum fails open", func(t *testing.T) {
		res := Evaluate("0.1", &Policy{MinimumVersion: "latest"})
		assert.True(t, res.OK)
		assert.True(t, res.PolicyMalformed)
	})
}
