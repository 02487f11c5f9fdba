package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/favsync/internal/failure"
)

// newVerifyCmd creates the 'verify' subcommand. It only checks that the
// integration can read the page.
func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check that the integration can read the Notion page",
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}

			title, err := appInstance.Verify(cmd.Context())
			switch {
			case err == nil:
				fmt.Fprintln(cmd.OutOrStdout(), title)
				return nil
			case failure.KindOf(err) == failure.KindAPI:
				return err
			default:
				appInstance.GetLogger().Info("page reachable without a readable title", zap.Error(err))
				return nil
			}
		},
	}
}
