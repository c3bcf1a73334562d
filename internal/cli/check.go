package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/dbmcco/redrift/internal/app"
	"github.com/dbmcco/redrift/internal/ports/primary"
	"github.com/dbmcco/redrift/internal/wire"
)

// CheckCmd returns the drift evaluation command.
func CheckCmd() *cobra.Command {
	var (
		taskID          string
		jsonOut         bool
		writeLog        bool
		createFollowups bool
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Evaluate migration drift for one task",
		Long: `Evaluate a task's redrift contract: audits required artifacts per
phase, unresolved follow-ups in the task lineage, and the persisted
verification state. A task without a contract block evaluates green.

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

			resp, err := c.Drift.CheckTask(context.Background(), primary.CheckRequest{
				TaskID:          taskID,
				WriteLog:        writeLog,
				CreateFollowups: createFollowups,
			})
			if err != nil {
				return err
			}

			if jsonOut {
				if err := emitJSON(resp.Report); err != nil {
					return err
				}
			} else {
				printReport(resp.Report)
			}

			if len(resp.Report.Findings) > 0 {
				return &ExitError{Code: app.ExitFindings}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&taskID, "task", "", "task id to evaluate")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "emit the report as JSON")
	cmd.Flags().BoolVar(&writeLog, "write-log", false, "append a summary line to the task's wg log")
	cmd.Flags().BoolVar(&createFollowups, "create-followups", false, "spawn follow-up tasks for findings")

	return cmd
}
