// Package app builds the long-lived services of a favsync invocation and
// wires them into the sync pipeline.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/favsync/internal/browser"
	"github.com/JakeFAU/favsync/internal/config"
	"github.com/JakeFAU/favsync/internal/favorites"
	"github.com/JakeFAU/favsync/internal/id/uuid"
	"github.com/JakeFAU/favsync/internal/logging"
	"github.com/JakeFAU/favsync/internal/metrics"
	"github.com/JakeFAU/favsync/internal/notion"
	"github.com/JakeFAU/favsync/internal/pipeline"
	"github.com/JakeFAU/favsync/internal/publisher"
	"github.com/JakeFAU/favsync/internal/verify"
)

// Options locates configuration sources.
type Options struct {
	ConfigPath string
	EnvFile    string
}

// App holds the services shared by the CLI commands.
type App struct {
	cfg     config.Config
	creds   config.Credentials
	logger  *zap.Logger
	notion  *notion.Client
	metrics *metrics.Recorder
	launch  pipeline.LaunchFunc
}

// NewApp loads configuration and credentials and builds the services. It
// fails before any browser or network activity when configuration is
// missing or invalid.
func NewApp(_ context.Context, opts Options) (*App, error) {
	if err := config.LoadDotenv(opts.EnvFile); err != nil {
		return nil, err
	}
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	creds, err := config.LoadCredentials()
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	logger.Info("credentials loaded",
		zap.String("api_key", creds.MaskedKey()),
		zap.String("page_id", creds.PageID),
	)

	rec := metrics.New()
	client, err := notion.NewClient(notionConfig(cfg.Notion, creds), logger.Named("notion"), rec)
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("init notion client: %w", err)
	}

	a := &App{
		cfg:     cfg,
		creds:   creds,
		logger:  logger,
		notion:  client,
		metrics: rec,
	}
	a.launch = a.launchBrowser
	return a, nil
}

// GetLogger returns the shared logger.
func (a *App) GetLogger() *zap.Logger {
	return a.logger
}

// GetConfig returns the loaded configuration.
func (a *App) GetConfig() config.Config {
	return a.cfg
}

// Verify runs the standalone access check.
func (a *App) Verify(ctx context.Context) (string, error) {
	return verify.New(a.notion, a.logger.Named("verify")).Verify(ctx, a.creds.PageID)
}

// Sync runs one full pass and pushes run metrics when a gateway is set.
func (a *App) Sync(ctx context.Context) (pipeline.Report, error) {
	runner, err := pipeline.NewRunner(pipeline.Deps{
		PageID: a.creds.PageID,
		Target: favorites.Target{
			URL:      a.cfg.Scrape.URL,
			Selector: a.cfg.Scrape.Selector,
		},
		Verifier:  verify.New(a.notion, a.logger.Named("verify")),
		Launch:    a.launch,
		Publisher: publisher.New(a.notion, publisher.Options{SkipEmpty: a.cfg.Publish.SkipEmpty}, a.logger.Named("publisher"), a.metrics),
		IDs:       uuid.New(),
		Metrics:   a.metrics,
		Logger:    a.logger,
	})
	if err != nil {
		return pipeline.Report{}, err
	}

	report, runErr := runner.Run(ctx)
	a.pushMetrics(report.RunID)
	return report, runErr
}

// Close flushes the logger.
func (a *App) Close() {
	// Sync on stderr-backed loggers can fail with EINVAL; nothing to do about it.
	_ = a.logger.Sync()
}

func (a *App) launchBrowser(ctx context.Context) (pipeline.Session, error) {
	session, err := browser.Launch(ctx, browserOptions(a.cfg.Browser), a.logger.Named("browser"))
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (a *App) pushMetrics(runID string) {
	if a.cfg.Metrics.PushgatewayURL == "" {
		return
	}
	// The run context may already be canceled by a signal; push regardless.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.metrics.Push(ctx, a.cfg.Metrics.PushgatewayURL, a.cfg.Metrics.Job, runID); err != nil {
		a.logger.Warn("failed to push metrics", zap.Error(err))
	}
}

func notionConfig(cfg config.NotionConfig, creds config.Credentials) notion.Config {
	return notion.Config{
		BaseURL:      cfg.BaseURL,
		APIKey:       creds.APIKey,
		Version:      cfg.Version,
		Timeout:      cfg.Timeout(),
		MaxRetries:   cfg.MaxRetries,
		RetryWait:    time.Duration(cfg.BackoffInitialMs) * time.Millisecond,
		RetryMaxWait: time.Duration(cfg.BackoffMaxMs) * time.Millisecond,
	}
}

func browserOptions(cfg config.BrowserConfig) browser.Options {
	return browser.Options{
		ExecPath:          cfg.ExecPath,
		Headless:          cfg.Headless,
		NoSandbox:         cfg.NoSandbox,
		DisableDevShm:     cfg.DisableDevShm,
		UserAgent:         cfg.UserAgent,
		NavigationTimeout: cfg.NavTimeout(),
	}
}
