package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Eibon7/roastr-ai-sub021/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("partial file keeps defaults for the rest", func(t *testing.T) {
		path := writeConfig(t, `
server:
  port: 9090
webhook:
  tolerance: 120s
  insecure_skip_verification: true
`)

		cfg, err := config.Load(path)

		require.NoError(t, err)
		assert.Equal(t, 9090, cfg.Server.Port)
		assert.Equal(t, 120*time.Second, cfg.Webhook.Tolerance)
		assert.True(t, cfg.Webhook.InsecureSkipVerification)

		// untouched sections fall back to defaults
		assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
		assert.Equal(t, int64(1048576), cfg.Webhook.MaxBodyBytes)
		assert.Equal(t, 24*time.Hour, cfg.Webhook.IdempotencyTTL)
		assert.Equal(t, time.Hour, cfg.Webhook.ReapInterval)
		assert.Equal(t, 100, cfg.Webhook.RateLimitRequests)
		assert.Equal(t, time.Minute, cfg.Webhook.RateLimitWindow)
		assert.Equal(t, "info", cfg.Logging.Level)
		assert.True(t, cfg.Logging.JSON)
	})

	t.Run("empty file yields all defaults", func(t *testing.T) {
		path := writeConfig(t, "")

		cfg, err := config.Load(path)

		require.NoError(t, err)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, 300*time.Second, cfg.Webhook.Tolerance)
		assert.Equal(t, "providers.yaml", cfg.Webhook.ProvidersFile)
		assert.False(t, cfg.Webhook.InsecureSkipVerification)
	})

	t.Run("malformed file errors", func(t *testing.T) {
		path := writeConfig(t, "server: [not a map")

		_, err := config.Load(path)

		require.Error(t, err)
	})
}
