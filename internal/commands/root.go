// Package commands implements the spendwise command line.
package commands

import (
	"github.com/spf13/cobra"
)

// Version is set via ldflags during build.
var Version = "dev"

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "spendwise",
		Short:   "Expense and recurring bill tracking",
		Version: Version,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newServeCommand(),
		newSummaryCommand(),
		newExportCommand(),
		newTokenCommand(),
		newMigrateCommand(),
	)

	return rootCmd
}
