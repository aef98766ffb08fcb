// Package cli implements the spacer command line.
package cli

import (
	"github.com/spf13/cobra"
)

type rootOptions struct {
	tenant    string
	dbPath    string
	transport string
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:           "spacer",
		Short:         "Spaced-repetition flashcard scheduler",
		Long:          "Spacer schedules flashcard reviews with SM-2 and a short learning phase, and serves them over MCP and HTTP.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVar(&opts.tenant, "tenant", "default", "Tenant that owns the notes and cards")
	rootCmd.PersistentFlags().StringVar(&opts.dbPath, "db", "", "Database path (overrides SPACER_DB_PATH)")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newServeCmd(opts))
	rootCmd.AddCommand(newNoteCmd(opts))
	rootCmd.AddCommand(newCardCmd(opts))
	rootCmd.AddCommand(newReviewCmd(opts))
	rootCmd.AddCommand(newStopCmd(opts))
	rootCmd.AddCommand(newSelectCmd(opts, "due", "List cards due for review"))
	rootCmd.AddCommand(newSelectCmd(opts, "scheduled", "List cards due later"))
	rootCmd.AddCommand(newSelectCmd(opts, "new", "List cards that were never reviewed"))
	rootCmd.AddCommand(newForecastCmd(opts))
	rootCmd.AddCommand(newExportCmd(opts))
	rootCmd.AddCommand(newImportCmd(opts))
	rootCmd.AddCommand(newAPIKeyCmd(opts))
	return rootCmd
}

// Execute runs the command line.
func Execute() error {
	return NewRootCmd().Execute()
}
