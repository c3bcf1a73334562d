package cli

import (
	"github.com/spf13/cobra"
)

// WgCmd returns the workgraph command group: check, verify, execute, and
// commit all operate on tasks in a workgraph-managed repository.
func WgCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wg",
		Short: "Operate on workgraph tasks carrying redrift contracts",
		Long: `Workgraph operations for redrift contracts:
- check:   evaluate migration drift for one task
- verify:  run the contract's verification suite and persist the result
- execute: build the v2 execution lane and run the plugin suite
- commit:  create a structured checkpoint commit`,
	}

	cmd.PersistentFlags().String("dir", "", "workgraph directory or project root (default: search upward)")

	cmd.AddCommand(CheckCmd())
	cmd.AddCommand(VerifyCmd())
	cmd.AddCommand(ExecuteCmd())
	cmd.AddCommand(CommitCmd())

	return cmd
}

func flagDir(cmd *cobra.Command) string {
	dir, _ := cmd.Flags().GetString("dir")
	return dir
}
