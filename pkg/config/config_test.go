package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, "LogWise", cfg.Logging.Name)
	assert.Equal(t, "generic", cfg.Logging.Framework)
	assert.Equal(t, "https://generativelanguage.googleapis.com/v1beta/models", cfg.Gemini.BaseURL)
	assert.Equal(t, "gemini-1.5-flash", cfg.Gemini.Model)
	assert.Zero(t, cfg.Gemini.Timeout, "no timeout beyond the transport default")
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.True(t, cfg.Cache.CacheErrors, "failed calls are cached unless disabled")
	assert.False(t, cfg.Breaker.Enabled)
	assert.False(t, cfg.RateLimit.Enabled)
	assert.False(t, cfg.Metrics.CountTokens)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, Default().Gemini.Model, cfg.Gemini.Model)
	assert.Equal(t, Default().Cache.KeyPrefix, cfg.Cache.KeyPrefix)
	assert.True(t, cfg.Cache.CacheErrors)
}

func TestLoad_OverridesFromFile(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: debug
  framework: net/http
gemini:
  model: gemini-2.0-flash
  api_key: from-file
  timeout: 15s
cache:
  cache_errors: false
breaker:
  enabled: true
  consecutive_failures: 3
models:
  gpt-4: 0.03
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "net/http", cfg.Logging.Framework)
	assert.Equal(t, "gemini-2.0-flash", cfg.Gemini.Model)
	assert.Equal(t, "from-file", cfg.Gemini.APIKey)
	assert.Equal(t, 15*time.Second, cfg.Gemini.Timeout)
	assert.False(t, cfg.Cache.CacheErrors)
	assert.True(t, cfg.Breaker.Enabled)
	assert.Equal(t, uint32(3), cfg.Breaker.ConsecutiveFailures)
	assert.InDelta(t, 0.03, cfg.Models["gpt-4"], 1e-9)

	// Untouched keys keep their defaults.
	assert.Equal(t, Default().Gemini.BaseURL, cfg.Gemini.BaseURL)
	assert.Equal(t, "memory", cfg.Cache.Backend)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("LOGWISE_GEMINI_API_KEY", "from-env")
	t.Setenv("LOGWISE_CACHE_BACKEND", "redis")

	path := writeConfig(t, "gemini:\n  api_key: from-file\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Gemini.APIKey)
	assert.Equal(t, "redis", cfg.Cache.Backend)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "gemini: [unterminated\n")

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadAndWatch_InitialLoad(t *testing.T) {
	path := writeConfig(t, "logging:\n  level: WARNING\n")

	store, err := LoadAndWatch(path)
	require.NoError(t, err)

	cfg := store.Get()
	require.NotNil(t, cfg)
	assert.Equal(t, "WARNING", cfg.Logging.Level)
}

func TestStore_GetReturnsCopy(t *testing.T) {
	store := NewStore(Default())

	cfg := store.Get()
	cfg.Gemini.Model = "mutated"

	assert.Equal(t, "gemini-1.5-flash", store.Get().Gemini.Model)
}

func TestStore_GetClonesModels(t *testing.T) {
	cfg := Default()
	cfg.Models["gpt-4"] = 0.03
	store := NewStore(cfg)

	got := store.Get()
	got.Models["gpt-4"] = 1
	got.Models["extra"] = 2

	assert.Equal(t, map[string]float64{"gpt-4": 0.03}, store.Get().Models)
}

func TestStore_OnChange(t *testing.T) {
	store := NewStore(Default())

	var seen []string
	store.OnChange(func(c *Config) { seen = append(seen, c.Logging.Level) })

	next := Default()
	next.Logging.Level = "DEBUG"
	store.Set(next)

	assert.Equal(t, []string{"DEBUG"}, seen)
	assert.Equal(t, "DEBUG", store.Get().Logging.Level)
}

func TestStore_GetNil(t *testing.T) {
	var store Store
	assert.Nil(t, store.Get())
}
