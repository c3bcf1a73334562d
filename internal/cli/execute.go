package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dbmcco/redrift/internal/app"
	"github.com/dbmcco/redrift/internal/ports/primary"
	"github.com/dbmcco/redrift/internal/wire"
)

// ExecuteCmd returns the execution-lane command.
func ExecuteCmd() *cobra.Command {
	var (
		taskID          string
		v2Repo          string
		jsonOut         bool
		writeLog        bool
		createFollowups bool
		phaseChecks     bool
		phaseFollowups  bool
		startService    bool
	)

	cmd := &cobra.Command{
		Use:   "execute",
		Short: "Build the phase-task lane and run the plugin suite",
		Long: `Create the four-phase execution lane (analyze, respec, design, build)
for a contract task, then run the sibling drift plugins against it.
With --v2-repo, bootstrap a sibling repository first and create the
lane there.

Exits 0 when the suite is clean, 3 on findings; any other plugin exit
aborts the run and is propagated.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if taskID == "" {
				return usageError("--task is required")
			}

			c, err := wire.Build(flagDir(cmd))
			if err != nil {
				return err
			}

			resp, err := c.Execute.ExecuteLane(context.Background(), primary.ExecuteRequest{
				TaskID:          taskID,
				V2Repo:          v2Repo,
				WriteLog:        writeLog,
				CreateFollowups: createFollowups,
				PhaseChecks:     phaseChecks,
				PhaseFollowups:  phaseFollowups,
				StartService:    startService,
			})
			if err != nil {
				return err
			}

			if jsonOut {
				if err := emitJSON(resp); err != nil {
					return err
				}
			} else {
				printExecute(resp)
			}

			if resp.ExitCode != app.ExitOK {
				return &ExitError{Code: resp.ExitCode}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&taskID, "task", "", "contract task id to execute")
	cmd.Flags().StringVar(&v2Repo, "v2-repo", "", "bootstrap a v2 repository: 'auto' for the sibling default, or an explicit path")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "emit the summary as JSON")
	cmd.Flags().BoolVar(&writeLog, "write-log", false, "pass --write-log to the plugin checks")
	cmd.Flags().BoolVar(&createFollowups, "create-followups", false, "pass --create-followups to the root suite check")
	cmd.Flags().BoolVar(&phaseChecks, "phase-checks", false, "also run the suite against each generated phase task")
	cmd.Flags().BoolVar(&phaseFollowups, "phase-followups", false, "allow follow-up spawning during phase checks")
	cmd.Flags().BoolVar(&startService, "start-service", false, "start the workgraph service in the target repo afterwards")

	return cmd
}

func printExecute(resp *primary.ExecuteResponse) {
	fmt.Printf("Redrift execute - %s (%s)\n", resp.TaskTitle, resp.TaskID)
	fmt.Printf("Target repo: %s\n", resp.TargetRepo)
	for _, note := range resp.BootstrapNotes {
		fmt.Printf("  bootstrap: %s\n", note)
	}
	if len(resp.PhaseTasks) > 0 {
		fmt.Println("Phase tasks:")
		for _, id := range resp.PhaseTasks {
			fmt.Printf("  - %s\n", id)
		}
	}
	for _, suite := range resp.SuiteResults {
		fmt.Printf("Suite check %s: exit %d\n", suite.TaskID, suite.ExitCode)
		for _, p := range suite.Plugins {
			line := fmt.Sprintf("  %s: exit %d", p.Plugin, p.ExitCode)
			if p.Note != "" {
				line += " (" + p.Note + ")"
			}
			fmt.Println(line)
		}
	}
	if resp.ServiceStarted {
		fmt.Println("Workgraph service started.")
	} else if resp.ServiceError != "" {
		fmt.Printf("Workgraph service start failed: %s\n", resp.ServiceError)
	}
}
