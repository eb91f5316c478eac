package cmd

import (
	"github.com/spf13/cobra"
)

var (
	purgeSelector     selectorFlags
	purgeExecute      bool
	purgeDelaySeconds float64
)

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete records whose identifier matches a pattern",
	Long: `Purge finds every record in a collection or table whose identifier field
matches a regular expression and deletes them.

Runs are dry-run unless --execute is given (or the configuration sets
safety.dry_run: false). A live run shows matching examples, waits for the
confirmation window and then deletes everything matching in one operation.
Press Ctrl+C during the window to abort without deleting.

Workflow:
  1. Verify the collection exists
  2. Ensure an index on the identifier field (created if missing)
  3. Count matching records
  4. Show up to 5 examples (skipped above 10000 matches)
  5. Dry run: report and stop. Live: wait, delete, verify none remain

Example:
  gopurge purge --collection orders --pattern '^TEST-'
  gopurge purge --job test-orders --execute
  gopurge purge --backend mysql --collection orders --field order_ref --pattern 'qa[0-9]+' --execute --delay 10`,
	RunE:         runPurge,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(purgeCmd)

	purgeSelector.register(purgeCmd)
	purgeCmd.Flags().BoolVar(&purgeExecute, "execute", false,
		"Perform the deletion (default is dry-run)")
	purgeCmd.Flags().Float64Var(&purgeDelaySeconds, "delay", 0,
		"Override confirmation window in seconds before deleting")
}

func runPurge(cmd *cobra.Command, args []string) error {
	return runWorkflow(cmd, &purgeSelector, purgeExecute, false, purgeDelaySeconds)
}
