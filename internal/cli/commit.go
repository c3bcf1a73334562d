package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dbmcco/redrift/internal/ports/primary"
	"github.com/dbmcco/redrift/internal/wire"
)

// CommitCmd returns the checkpoint commit command.
func CommitCmd() *cobra.Command {
	var (
		taskID   string
		phase    string
		message  string
		noVerify bool
		dryRun   bool
		writeLog bool
		jsonOut  bool
	)

	cmd := &cobra.Command{
		Use:   "commit",
		Short: "Create a structured checkpoint commit for a task",
		Long: `Stage the working tree minus drift-suite state and commit it with a
structured subject: redrift(<phase>): <subject> [<task-id>]. The phase
is inferred from generated execution task ids when --phase is omitted.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if taskID == "" {
				return usageError("--task is required")
			}

			c, err := wire.Build(flagDir(cmd))
			if err != nil {
				return err
			}

			resp, err := c.Commit.CommitCheckpoint(context.Background(), primary.CommitRequest{
				TaskID:   taskID,
				Phase:    phase,
				Message:  message,
				NoVerify: noVerify,
				WriteLog: writeLog,
				DryRun:   dryRun,
			})
			if err != nil {
				return err
			}

			if jsonOut {
				return emitJSON(resp)
			}
			if resp.DryRun {
				fmt.Printf("Would commit: %s\n", resp.CommitMessage)
			} else {
				fmt.Printf("Committed %s: %s\n", resp.CommitSHA, resp.CommitMessage)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&taskID, "task", "", "task id the checkpoint belongs to")
	cmd.Flags().StringVar(&phase, "phase", "", "checkpoint phase (root, analyze, respec, design, build)")
	cmd.Flags().StringVar(&message, "message", "", "commit subject (default: task title)")
	cmd.Flags().BoolVar(&noVerify, "no-verify", false, "pass --no-verify to git commit")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show the commit message without committing")
	cmd.Flags().BoolVar(&writeLog, "write-log", false, "append a commit line to the task's wg log")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "emit the result as JSON")

	return cmd
}
