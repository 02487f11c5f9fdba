package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/favsync/internal/failure"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://example.com", cfg.Scrape.URL)
	assert.Equal(t, "//li[contains(@class, 'favorite-item')]", cfg.Scrape.Selector)
	assert.True(t, cfg.Browser.Headless)
	assert.True(t, cfg.Browser.NoSandbox)
	assert.True(t, cfg.Browser.DisableDevShm)
	assert.Equal(t, 60*time.Second, cfg.Browser.NavTimeout())
	assert.Equal(t, "https://api.notion.com", cfg.Notion.BaseURL)
	assert.Equal(t, "2021-08-16", cfg.Notion.Version)
	assert.Equal(t, 30*time.Second, cfg.Notion.Timeout())
	assert.Equal(t, 3, cfg.Notion.MaxRetries)
	assert.False(t, cfg.Publish.SkipEmpty)
	assert.Equal(t, "favsync", cfg.Metrics.Job)
}

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
scrape:
  url: https://bookmarks.internal/me
  selector: ".sidebar .favorite-item"
browser:
  exec_path: /usr/bin/chromium
  headless: false
  nav_timeout_seconds: 15
notion:
  base_url: http://localhost:9999
  max_retries: 0
publish:
  skip_empty: true
logging:
  development: false
  level: debug
metrics:
  pushgateway_url: http://pushgateway:9091
`
	require.NoError(t, os.WriteFile(path, []byte(configYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://bookmarks.internal/me", cfg.Scrape.URL)
	assert.Equal(t, ".sidebar .favorite-item", cfg.Scrape.Selector)
	assert.Equal(t, "/usr/bin/chromium", cfg.Browser.ExecPath)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, 15*time.Second, cfg.Browser.NavTimeout())
	assert.Equal(t, "http://localhost:9999", cfg.Notion.BaseURL)
	assert.Equal(t, 0, cfg.Notion.MaxRetries)
	assert.True(t, cfg.Publish.SkipEmpty)
	assert.False(t, cfg.Logging.Development)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "http://pushgateway:9091", cfg.Metrics.PushgatewayURL)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("FAVSYNC_SCRAPE_URL", "https://env.example.org/favs")
	t.Setenv("FAVSYNC_NOTION_MAX_RETRIES", "5")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.org/favs", cfg.Scrape.URL)
	assert.Equal(t, 5, cfg.Notion.MaxRetries)
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Equal(t, failure.KindConfig, failure.KindOf(err))
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base, err := Load("")
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty url", func(c *Config) { c.Scrape.URL = "" }, "scrape.url"},
		{"relative url", func(c *Config) { c.Scrape.URL = "/favorites" }, "scrape.url"},
		{"empty selector", func(c *Config) { c.Scrape.Selector = "  " }, "scrape.selector"},
		{"nav timeout", func(c *Config) { c.Browser.NavTimeoutSec = 0 }, "browser.nav_timeout_seconds"},
		{"base url", func(c *Config) { c.Notion.BaseURL = "" }, "notion.base_url"},
		{"http timeout", func(c *Config) { c.Notion.TimeoutSeconds = -1 }, "notion.timeout_seconds"},
		{"retries", func(c *Config) { c.Notion.MaxRetries = -1 }, "notion.max_retries"},
		{"backoff", func(c *Config) { c.Notion.BackoffMaxMs = 1 }, "notion.backoff_max_ms"},
		{"log level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadDotenv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("FAVSYNC_TEST_DOTENV=loaded\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("FAVSYNC_TEST_DOTENV") })

	require.NoError(t, LoadDotenv(path))
	assert.Equal(t, "loaded", os.Getenv("FAVSYNC_TEST_DOTENV"))

	require.NoError(t, LoadDotenv(filepath.Join(dir, "missing.env")))
	require.NoError(t, LoadDotenv(""))
}
