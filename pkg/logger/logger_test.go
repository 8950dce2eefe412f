package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInitAndGet(t *testing.T) {
	require.NoError(t, Init(Config{Level: "debug", Encoding: "json"}))
	log := Get()
	require.NotNil(t, log)
	assert.True(t, log.Core().Enabled(zap.DebugLevel))
}

func TestInitBadLevel(t *testing.T) {
	require.Error(t, Init(Config{Level: "shouting"}))
}

func TestGetBeforeInitReturnsUsableLogger(t *testing.T) {
	log := Get()
	require.NotNil(t, log)
	log.Info("no-op is fine")
}
