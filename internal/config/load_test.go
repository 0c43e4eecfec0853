package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BIOTRACK_DATABASE_URL", "postgres://localhost:5432/biotrack")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, time.Minute, cfg.App.TickInterval)
	assert.Equal(t, 64, cfg.App.QueueSize)
	assert.Equal(t, 2, cfg.App.WorkerCount)
	assert.Equal(t, "postgres://localhost:5432/biotrack", cfg.Database.URL)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("BIOTRACK_DATABASE_URL", "postgres://localhost:5432/biotrack")
	t.Setenv("BIOTRACK_APP_LOG_LEVEL", "debug")
	t.Setenv("BIOTRACK_APP_TICK_INTERVAL", "30s")
	t.Setenv("BIOTRACK_APP_QUEUE_SIZE", "128")
	t.Setenv("BIOTRACK_APP_WORKER_COUNT", "4")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, 30*time.Second, cfg.App.TickInterval)
	assert.Equal(t, 128, cfg.App.QueueSize)
	assert.Equal(t, 4, cfg.App.WorkerCount)
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("BIOTRACK_DATABASE_URL", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestLoadRejectsBadLogLevel(t *testing.T) {
	t.Setenv("BIOTRACK_DATABASE_URL", "postgres://localhost:5432/biotrack")
	t.Setenv("BIOTRACK_APP_LOG_LEVEL", "verbose")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}
