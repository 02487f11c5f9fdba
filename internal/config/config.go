// Package config loads and validates favsync configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/JakeFAU/favsync/internal/failure"
)

// Config captures every knob of a sync run. Credentials live apart in
// Credentials so they never end up in a config file.
type Config struct {
	Scrape  ScrapeConfig  `mapstructure:"scrape"`
	Browser BrowserConfig `mapstructure:"browser"`
	Notion  NotionConfig  `mapstructure:"notion"`
	Publish PublishConfig `mapstructure:"publish"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// ScrapeConfig names the page holding the favorites and how to find them.
type ScrapeConfig struct {
	// URL is the page the browser navigates to.
	URL string `mapstructure:"url"`
	// Selector matches favorite elements. XPath when it starts with "/" or
	// "(", CSS otherwise.
	Selector string `mapstructure:"selector"`
}

// BrowserConfig controls the headless Chrome launch.
type BrowserConfig struct {
	ExecPath      string `mapstructure:"exec_path"`
	Headless      bool   `mapstructure:"headless"`
	NoSandbox     bool   `mapstructure:"no_sandbox"`
	DisableDevShm bool   `mapstructure:"disable_dev_shm"`
	NavTimeoutSec int    `mapstructure:"nav_timeout_seconds"`
	UserAgent     string `mapstructure:"user_agent"`
}

// NotionConfig configures the remote document API client.
type NotionConfig struct {
	BaseURL          string `mapstructure:"base_url"`
	Version          string `mapstructure:"version"`
	TimeoutSeconds   int    `mapstructure:"timeout_seconds"`
	MaxRetries       int    `mapstructure:"max_retries"`
	BackoffInitialMs int    `mapstructure:"backoff_initial_ms"`
	BackoffMaxMs     int    `mapstructure:"backoff_max_ms"`
}

// PublishConfig tunes how scraped items are written.
type PublishConfig struct {
	// SkipEmpty suppresses the append call when nothing was scraped.
	SkipEmpty bool `mapstructure:"skip_empty"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// MetricsConfig configures the optional Pushgateway export.
type MetricsConfig struct {
	PushgatewayURL string `mapstructure:"pushgateway_url"`
	Job            string `mapstructure:"job"`
}

// Load builds a Config from defaults, an optional file, and FAVSYNC_* env vars.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FAVSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, failure.New(failure.KindConfig, "read config", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, failure.New(failure.KindConfig, "unmarshal config", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, failure.New(failure.KindConfig, "validate config", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("scrape.url", "https://example.com")
	v.SetDefault("scrape.selector", "//li[contains(@class, 'favorite-item')]")
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.no_sandbox", true)
	v.SetDefault("browser.disable_dev_shm", true)
	v.SetDefault("browser.nav_timeout_seconds", 60)
	v.SetDefault("browser.user_agent", "")
	v.SetDefault("notion.base_url", "https://api.notion.com")
	v.SetDefault("notion.version", "2021-08-16")
	v.SetDefault("notion.timeout_seconds", 30)
	v.SetDefault("notion.max_retries", 3)
	v.SetDefault("notion.backoff_initial_ms", 500)
	v.SetDefault("notion.backoff_max_ms", 5000)
	v.SetDefault("publish.skip_empty", false)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
	v.SetDefault("metrics.pushgateway_url", "")
	v.SetDefault("metrics.job", "favsync")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Scrape.URL) == "" {
		return fmt.Errorf("scrape.url must be set")
	}
	if u, err := url.Parse(c.Scrape.URL); err != nil || !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("scrape.url must be an absolute URL, got %q", c.Scrape.URL)
	}
	if strings.TrimSpace(c.Scrape.Selector) == "" {
		return fmt.Errorf("scrape.selector must be set")
	}
	if c.Browser.NavTimeoutSec <= 0 {
		return fmt.Errorf("browser.nav_timeout_seconds must be > 0")
	}
	if strings.TrimSpace(c.Notion.BaseURL) == "" {
		return fmt.Errorf("notion.base_url must be set")
	}
	if c.Notion.TimeoutSeconds <= 0 {
		return fmt.Errorf("notion.timeout_seconds must be > 0")
	}
	if c.Notion.MaxRetries < 0 {
		return fmt.Errorf("notion.max_retries must be >= 0")
	}
	if c.Notion.BackoffInitialMs < 0 || c.Notion.BackoffMaxMs < c.Notion.BackoffInitialMs {
		return fmt.Errorf("notion.backoff_max_ms must be >= notion.backoff_initial_ms >= 0")
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level %q is not a valid level", c.Logging.Level)
	}
	return nil
}

// NavTimeout returns the per-step browser timeout.
func (c BrowserConfig) NavTimeout() time.Duration {
	return time.Duration(c.NavTimeoutSec) * time.Second
}

// Timeout returns the per-request HTTP timeout.
func (c NotionConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// LoadDotenv merges a dotenv file into the process environment without
// overriding variables that are already set. A missing file is not an error.
func LoadDotenv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return failure.New(failure.KindConfig, "load dotenv", err)
	}
	return nil
}
