package cmd

import (
	"github.com/spf13/cobra"
)

var dryrunSelector selectorFlags

var dryrunCmd = &cobra.Command{
	Use:   "dry-run",
	Short: "Report what a purge would delete without deleting anything",
	Long: `Dry-run runs the purge workflow up to the report: it checks the
collection, ensures the identifier index, counts matches and shows examples.
Nothing is deleted, regardless of configuration.

Note that a missing index is still created, since counting without one
can be expensive on large collections.

Example:
  gopurge dry-run --collection orders --pattern '^TEST-'
  gopurge dry-run --job test-orders`,
	RunE:         runDryRun,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(dryrunCmd)
	dryrunSelector.register(dryrunCmd)
}

func runDryRun(cmd *cobra.Command, args []string) error {
	return runWorkflow(cmd, &dryrunSelector, false, true, 0)
}
