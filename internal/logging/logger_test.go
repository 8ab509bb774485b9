package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	for _, mode := range []string{"dev", "production"} {
		l, err := New(mode, "debug")
		require.NoError(t, err, mode)
		assert.NotNil(t, l.SugaredLogger)
	}

	_, err := New("dev", "loud")
	assert.Error(t, err)
}

func TestLogger_WithFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewWithCore(core).Named("roadmap").With("request_id", "abc")

	l.Info("generation finished", "kind", "ok")
	l.Debug("detail")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "roadmap", entries[0].LoggerName)
	fields := entries[0].ContextMap()
	assert.Equal(t, "abc", fields["request_id"])
	assert.Equal(t, "ok", fields["kind"])
}

func TestOrNop(t *testing.T) {
	assert.NotPanics(t, func() { OrNop(nil).Error("ignored") })
	l := Nop()
	assert.Same(t, l, OrNop(l))
}
