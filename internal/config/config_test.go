package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadClient_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadClient()
	require.NoError(t, err)
	assert.Equal(t, "https://towerman.app", cfg.ServerURL)
	assert.Equal(t, "wss://towerman.app", cfg.SocketURL)
	assert.Equal(t, 5*time.Second, cfg.PingInterval)
	assert.Equal(t, 200*time.Millisecond, cfg.HandshakeInterval)
	assert.Equal(t, 5, cfg.HandshakeAttempts)
	assert.Equal(t, 2500*time.Millisecond, cfg.ErrorTTL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoadRelay_FromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("RELAY_ADDR", ":9999")
	t.Setenv("DATABASE_URL", "postgres://localhost/towerman")
	t.Setenv("RELAY_READ_TIMEOUT", "1m")
	t.Setenv("RELAY_ORIGIN_PATTERNS", "localhost:*,127.0.0.1:*")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadRelay()
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Addr)
	assert.Equal(t, "postgres://localhost/towerman", cfg.DatabaseURL)
	assert.Equal(t, time.Minute, cfg.ReadTimeout)
	assert.Equal(t, 3*time.Second, cfg.WriteTimeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, []string{"localhost:*", "127.0.0.1:*"}, cfg.OriginPatterns)
}

func TestLoad_BadDuration(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TOWERMAN_PING_INTERVAL", "soon")

	_, err := LoadClient()
	assert.Error(t, err)
}
