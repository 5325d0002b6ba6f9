package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger_Levels(t *testing.T) {
	for _, lvl := range []string{"debug", "info", "warn", "error"} {
		l, err := NewLogger(lvl)
		require.NoError(t, err, lvl)
		assert.NotNil(t, l)
	}

	_, err := NewLogger("loud")
	assert.Error(t, err)
}

func TestLogger_ZeroValueIsSafe(t *testing.T) {
	var l Logger
	assert.NotPanics(t, func() {
		l.Debug("debug")
		l.Info("info")
		l.Warn("warn")
		l.Error("error")
	})
}

func TestLogger_WithCarriesFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := (&Logger{zap: zap.New(core)}).With(zap.String("session", "abc"))

	l.Debug("hidden")
	l.Info("shown", zap.Int("items", 2))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "shown", entries[0].Message)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "abc", ctx["session"])
	assert.Equal(t, int64(2), ctx["items"])
}
