package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/favsync/internal/app"
	"github.com/JakeFAU/favsync/internal/logging"
	"github.com/JakeFAU/favsync/internal/pipeline"
)

var (
	cfgFile string
	envFile string
)

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App defines the application interface that commands will use.
// This allows us to inject a mock app during tests.
type App interface {
	Close()
	GetLogger() *zap.Logger
	Verify(ctx context.Context) (string, error)
	Sync(ctx context.Context) (pipeline.Report, error)
}

// newApp is the application factory. It's a variable so tests can replace it.
var newApp = func(ctx context.Context, opts app.Options) (App, error) {
	return app.NewApp(ctx, opts)
}

// newRootCmd creates and configures the root command. Running it without a
// subcommand performs a sync.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "favsync",
		Short: "Copy a web page's favorites list into a Notion page.",
		Long: `favsync opens a headless Chrome, collects the text of every favorite
item on the configured page, and appends each one as a paragraph block to
a Notion page. Credentials come from the environment:

  NOTION_API_KEY_My_Selenium_Notion_Integration (or NOTION_API_KEY)
  NOTION_PAGE_ID_My_Selenium_Notion_Integration (or NOTION_PAGE_ID)`,
		SilenceUsage:  true,
		SilenceErrors: true,

		// Configuration and credentials are loaded here, before any subcommand
		// touches the browser or the network.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := newApp(cmd.Context(), app.Options{
				ConfigPath: cfgFile,
				EnvFile:    envFile,
			})
			if err != nil {
				return fmt.Errorf("initialize application: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(App); ok && appInstance != nil {
				appInstance.Close()
			}
		},

		RunE: runSyncCommand,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file merged into the environment if present")

	cmd.AddCommand(newSyncCmd())
	cmd.AddCommand(newVerifyCmd())

	return cmd
}

// Execute is the main entry point. SIGINT and SIGTERM cancel the run context
// so an open browser is still closed on the way out.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err == nil {
		return
	}

	// The application logger may never have been built, so failures are
	// reported through a fresh production logger.
	logger, logErr := logging.New(false, "error")
	if logErr != nil {
		fmt.Fprintf(os.Stderr, "favsync: %v\n", err)
		os.Exit(1)
	}
	logger.Fatal("Command execution failed", zap.Error(err))
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}
