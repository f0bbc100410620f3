package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 10.0, cfg.FrameInterval)
	assert.Equal(t, 1920, cfg.FrameWidth)
	assert.Equal(t, 1080, cfg.FrameHeight)
	assert.Equal(t, 0.4, cfg.FrameConfidence)
	assert.Equal(t, 0.7, cfg.ZoneConfidence)
	assert.Equal(t, 5*time.Minute, cfg.EngineTimeout)
	assert.Equal(t, "video.processing", cfg.RabbitMQProcessingQueue)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("FRAME_INTERVAL_SECONDS", "2.5")
	t.Setenv("ENGINE_TIMEOUT", "30s")
	t.Setenv("ENGINE_CONCURRENCY", "8")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 2.5, cfg.FrameInterval)
	assert.Equal(t, 30*time.Second, cfg.EngineTimeout)
	assert.Equal(t, 8, cfg.EngineConcurrency)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("RECONCILE_STALE_AFTER", "soon")

	_, err := Load()
	assert.Error(t, err)
}
