package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"diary_console/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMustLoadPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
env: dev
api:
  base_url: "https://mod.example.com/api"
  timeout: 10s
defaults:
  limit: 25
metrics:
  enabled: true
  addr: ":9999"
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	cfg := config.MustLoadPath(path)

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "https://mod.example.com/api", cfg.API.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.API.Timeout)
	assert.Equal(t, 25, cfg.Defaults.Limit)
	assert.Equal(t, 1, cfg.Defaults.Page, "unset fields keep defaults")
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, ":9999", cfg.Metrics.Addr)
}

func TestMustLoadPath_MissingFile(t *testing.T) {
	assert.Panics(t, func() {
		config.MustLoadPath(filepath.Join(t.TempDir(), "nope.yaml"))
	})
}
