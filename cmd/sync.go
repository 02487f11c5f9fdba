// Package cmd defines and implements the CLI commands for the favsync executable.
package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newSyncCmd creates the 'sync' subcommand, which performs one scrape and
// publish pass and exits.
func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Scrape favorites and append them to the Notion page",
		RunE:  runSyncCommand,
	}
}

func runSyncCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}

	report, err := appInstance.Sync(cmd.Context())
	if err != nil {
		return err
	}

	appInstance.GetLogger().Info("sync command finished",
		zap.String("run_id", report.RunID),
		zap.String("outcome", report.Outcome),
	)
	return nil
}
