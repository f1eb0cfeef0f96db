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

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8094, cfg.Server.HTTPPort)
	assert.Equal(t, 10, cfg.Backend.PageLimit)
	assert.Equal(t, 15*time.Second, cfg.Backend.RequestTimeout)
	assert.True(t, cfg.Polling.Enabled)
	assert.Equal(t, 30*time.Second, cfg.Polling.StatsInterval)
	assert.Equal(t, 60*time.Second, cfg.Polling.NotificationsInterval)
	assert.Equal(t, time.Hour, cfg.Geocode.CacheTTL)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Backend: BackendConfig{BaseURL: "http://localhost:5000/api", PageLimit: 10},
			Server:  ServerConfig{HTTPPort: 8094},
		}
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, base().Validate())
	})

	t.Run("missing backend url", func(t *testing.T) {
		cfg := base()
		cfg.Backend.BaseURL = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("non-positive page limit", func(t *testing.T) {
		cfg := base()
		cfg.Backend.PageLimit = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("missing http port", func(t *testing.T) {
		cfg := base()
		cfg.Server.HTTPPort = 0
		assert.Error(t, cfg.Validate())
	})
}
