package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSetLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(nil) })

	L().Info("engine stalled", zap.String("vehicle", "a"))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "engine stalled", entry.Message)
	assert.Equal(t, "a", entry.ContextMap()["vehicle"])
}

func TestSetLoggerNilInstallsNop(t *testing.T) {
	SetLogger(nil)
	require.NotNil(t, L())
	assert.NotPanics(t, func() { L().Warn("dropped") })
}

func TestNew(t *testing.T) {
	for _, verbose := range []bool{true, false} {
		l, err := New(verbose)
		require.NoError(t, err)
		assert.NotNil(t, l)
	}
}
