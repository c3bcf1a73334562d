package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/dbmcco/redrift/internal/app"
	"github.com/dbmcco/redrift/internal/models"
	"github.com/dbmcco/redrift/internal/ports/primary"
	"github.com/dbmcco/redrift/internal/wire"
)

// VerifyCmd returns the verification command.
func VerifyCmd() *cobra.Command {
	var (
		taskID  string
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Run a task's verification suite and persist the result",
		Long: `Run the verify commands and structural assertions from the task's
redrift contract and persist the report under
.workgraph/.redrift/verify/. Drift checks read that state instead of
re-running the suite.

Exits 0 when green, 3 when there are findings.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if taskID == "" {
				return usageError("--task is required")
			}

			c, err := wire.Build(flagDir(cmd))
			if err != nil {
				return err
			}

			resp, err := c.Verify.VerifyTask(context.Background(), primary.VerifyRequest{TaskID: taskID})
			if err != nil {
				return err
			}

			if jsonOut {
				if err := emitJSON(resp.Report); err != nil {
					return err
				}
			} else {
				printVerification(resp.Report, resp.StatePath)
			}

			if resp.Report.Score != models.ScoreGreen {
				return &ExitError{Code: app.ExitFindings}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&taskID, "task", "", "task id to verify")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "emit the report as JSON")

	return cmd
}
