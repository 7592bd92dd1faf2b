package logging

import (
	"testing"
	"time"

	"github.com/fyrsmithlabs/dartrag/internal/config"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func sampledLogger(levels map[zapcore.Level]LevelSamplingConfig) (*zap.Logger, *observer.ObservedLogs) {
	core, observed := observer.New(TraceLevel)
	sampled := newSampledCore(core, SamplingConfig{
		Enabled: true,
		Tick:    config.Duration(time.Minute),
		Levels:  levels,
	})
	return zap.New(sampled), observed
}

func TestSampledCore_ErrorsNeverSampled(t *testing.T) {
	logger, observed := sampledLogger(DefaultLevelSamplingConfig())

	for i := 0; i < 500; i++ {
		logger.Error("embedding failed")
	}

	assert.Equal(t, 500, observed.FilterMessage("embedding failed").Len())
}

func TestSampledCore_InfoSampled(t *testing.T) {
	logger, observed := sampledLogger(map[zapcore.Level]LevelSamplingConfig{
		zapcore.InfoLevel: {Initial: 5, Thereafter: 0},
	})

	for i := 0; i < 50; i++ {
		logger.Info("chunk stored")
	}

	assert.Equal(t, 5, observed.FilterMessage("chunk stored").Len())
}

func TestSampledCore_LevelsIndependent(t *testing.T) {
	logger, observed := sampledLogger(map[zapcore.Level]LevelSamplingConfig{
		zapcore.InfoLevel: {Initial: 2, Thereafter: 0},
		zapcore.WarnLevel: {Initial: 3, Thereafter: 0},
	})

	for i := 0; i < 10; i++ {
		logger.Info("same message")
		logger.Warn("same message")
	}

	assert.Equal(t, 2, observed.FilterLevelExact(zapcore.InfoLevel).Len())
	assert.Equal(t, 3, observed.FilterLevelExact(zapcore.WarnLevel).Len())
}

func TestSampledCore_UnlistedLevelDropped(t *testing.T) {
	logger, observed := sampledLogger(map[zapcore.Level]LevelSamplingConfig{
		zapcore.InfoLevel: {Initial: 10, Thereafter: 0},
	})

	logger.Debug("debug without entry")
	logger.Info("info with entry")

	assert.Equal(t, 0, observed.FilterMessage("debug without entry").Len())
	assert.Equal(t, 1, observed.FilterMessage("info with entry").Len())
}

func TestSampledCore_Disabled(t *testing.T) {
	core, observed := observer.New(zapcore.DebugLevel)
	logger := zap.New(newSampledCore(core, SamplingConfig{Enabled: false}))

	for i := 0; i < 200; i++ {
		logger.Info("not sampled")
	}

	assert.Equal(t, 200, observed.Len())
}
