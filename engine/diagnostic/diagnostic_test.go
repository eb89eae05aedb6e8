package diagnostic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestReporter_WarnCarriesKindAndName(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	r := NewReporter(zap.New(core))

	r.Warn(KindUnknownAnimation, "wave", "animation not registered", zap.Float32("duration", 0.5))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "animation not registered", entry.Message)
	ctx := entry.ContextMap()
	assert.Equal(t, "unknown_animation", ctx["kind"])
	assert.Equal(t, "wave", ctx["animation"])
}

func TestReporter_WarnOnceDeduplicatesPerReporter(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	r := NewReporter(zap.New(core))

	assert.True(t, r.WarnOnce("sad", KindIncompatibleClip, "sad", "no shared joints"))
	assert.False(t, r.WarnOnce("sad", KindIncompatibleClip, "sad", "no shared joints"))
	assert.Equal(t, 1, logs.Len())

	// A scoped reporter owns a fresh warned set.
	scoped := r.Scoped(zap.String("mixer", "m1"))
	assert.True(t, scoped.WarnOnce("sad", KindIncompatibleClip, "sad", "no shared joints"))
	require.Equal(t, 2, logs.Len())
	assert.Equal(t, "m1", logs.All()[1].ContextMap()["mixer"])
}

func TestNewReporter_NilLoggerIsNop(t *testing.T) {
	r := NewReporter(nil)
	assert.NotPanics(t, func() {
		r.Warn(KindLoadFailure, "idle", "load failed")
	})
	assert.NotNil(t, r.Logger())
}

func TestNewLogger_UnknownLevelFallsBackToInfo(t *testing.T) {
	l, err := NewLogger("loud")
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
}
