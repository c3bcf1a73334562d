package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dbmcco/redrift/internal/cli"
	"github.com/dbmcco/redrift/internal/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "redrift",
		Short:   "redrift - migration drift gate for v2 rebuild lanes",
		Version: version.String(),
		Long: `redrift gates v2 rebuild work on explicit contracts. Tasks declare a
TOML contract in a fenced block; redrift audits the phase artifacts the
contract requires, tracks follow-up lineage, and refuses to go green
until the contract's verification suite has run clean.`,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(cli.WgCmd())

	if err := rootCmd.Execute(); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
