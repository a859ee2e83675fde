package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel(" warning "))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("bogus"))
}

func TestFromFallsBackToSingleton(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	restore := Replace(zap.New(core))
	defer restore()

	From(context.Background()).Info("hello", Fingerprint("ABCD…WXYZ"))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "ABCD…WXYZ", logs.All()[0].ContextMap()["license_fp"])
}

func TestFromPrefersContextLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	ctx := ToContext(context.Background(), zap.New(core).With(RequestID("r-1")))

	From(ctx).Info("scoped")
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "r-1", logs.All()[0].ContextMap()["request_id"])
}

func TestBuildTestEnvIsNop(t *testing.T) {
	l := build(Config{Env: "test"})
	assert.False(t, l.Core().Enabled(zapcore.ErrorLevel))
}
