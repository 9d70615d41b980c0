package logging

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"testing"
)

func TestPublishCore(t *testing.T) {
	core, entries := NewPublishCore(zap.WarnLevel, 4)
	logger := zap.New(core).Named("level").With(zap.Int("arena", 2))
	logger.Info("ignored")
	logger.Warn("vote timed out", zap.String("kind", "kick"))
	require.Len(t, entries, 1, "should only publish enabled levels")
	entry := <-entries
	assert.Equal(t, "vote timed out", entry.Message)
	assert.Equal(t, zapcore.WarnLevel, entry.Level)
	assert.Equal(t, "level", entry.LoggerName)
	assert.Equal(t, int64(2), entry.Fields["arena"])
	assert.Equal(t, "kick", entry.Fields["kind"])
}

func TestPublishCoreOmitsPortal(t *testing.T) {
	core, entries := NewPublishCore(zap.DebugLevel, 4)
	zap.New(core).Named("portal").Error("publish failed")
	assert.Len(t, entries, 0, "should omit portal entries")
}

func TestPublishCoreDropsWhenFull(t *testing.T) {
	core, entries := NewPublishCore(zap.DebugLevel, 1)
	logger := zap.New(core)
	logger.Info("first")
	logger.Info("second")
	require.Len(t, entries, 1)
	assert.Equal(t, "first", (<-entries).Message)
}
