package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)

	assert.Equal(t, 5*time.Second, cfg.Sandbox.Timeout)
	assert.Equal(t, 4, cfg.Sandbox.PoolSize)
	assert.Equal(t, 100, cfg.Sandbox.MaxTimers)

	assert.Equal(t, time.Second, cfg.Assistant.Delay)
	assert.Equal(t, 1500*time.Millisecond, cfg.Contact.Delay)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)

	assert.Equal(t, 20, cfg.RateLimit.RequestsPerSecond)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 50, cfg.RateLimit.RunsPerSecond)
	assert.True(t, cfg.Tracing.Enabled)
	assert.Equal(t, []string{"*"}, cfg.CORS.Origins)
}

func TestLoadMatchesDefault(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default().Sandbox, cfg.Sandbox)
	assert.Equal(t, Default().Assistant, cfg.Assistant)
	assert.Equal(t, Default().Tracing, cfg.Tracing)
	assert.Equal(t, Default().RateLimit, cfg.RateLimit)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"PORT":               "9000",
		"HOST":               "127.0.0.1",
		"SANDBOX_TIMEOUT":    "250ms",
		"SANDBOX_POOL_SIZE":  "2",
		"SANDBOX_MAX_TIMERS": "10",
		"ASSISTANT_DELAY":    "0s",
		"CONTACT_DELAY":      "10ms",
		"LOG_LEVEL":          "debug",
		"LOG_DEV":            "true",
		"RATE_LIMIT_ENABLED": "false",
		"CORS_ORIGINS":       "http://localhost:3000,https://codefixlab.dev",
	}
	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 250*time.Millisecond, cfg.Sandbox.Timeout)
	assert.Equal(t, 2, cfg.Sandbox.PoolSize)
	assert.Equal(t, 10, cfg.Sandbox.MaxTimers)
	assert.Equal(t, time.Duration(0), cfg.Assistant.Delay)
	assert.Equal(t, 10*time.Millisecond, cfg.Contact.Delay)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)
	assert.False(t, cfg.RateLimit.Enabled)
	assert.Equal(t, []string{"http://localhost:3000", "https://codefixlab.dev"}, cfg.CORS.Origins)
}

func TestLoadInvalidDuration(t *testing.T) {
	t.Setenv("SANDBOX_TIMEOUT", "soon")

	_, err := Load()
	assert.Error(t, err)

	cfg := LoadOrDefault()
	assert.Equal(t, 5*time.Second, cfg.Sandbox.Timeout)
}
