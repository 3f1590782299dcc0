package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadUsesDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":5000", cfg.Port)
	require.Equal(t, int64(4096), cfg.MaxMessageSize)
	require.Equal(t, time.Second, cfg.RateLimitRefill)
	require.NotEmpty(t, cfg.AllowedOrigins)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", ":9999")
	t.Setenv("ALLOWED_ORIGINS", "http://a.example,http://b.example")
	t.Setenv("RATE_LIMIT_BURST", "42")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":9999", cfg.Port)
	require.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.AllowedOrigins)
	require.Equal(t, 42, cfg.RateLimitBurst)
	require.Equal(t, 2*time.Second, cfg.RateLimitRefill)
}

func TestSanitizeRepairsZeroValues(t *testing.T) {
	cfg := &Config{}
	cfg.Sanitize()

	require.Equal(t, ":5000", cfg.Port)
	require.Equal(t, int64(4096), cfg.MaxMessageSize)
	require.Equal(t, 256, cfg.SendBufferSize)
	require.Equal(t, 10, cfg.RateLimitBurst)
	require.Equal(t, time.Second, cfg.RateLimitRefill)
	require.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}
