package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var listJobsCmd = &cobra.Command{
	Use:   "list-jobs",
	Short: "List all jobs defined in configuration",
	Long: `List-jobs displays all purge jobs defined in the configuration file
along with their match settings.

Example:
  gopurge list-jobs --config gopurge.yaml`,
	RunE: runListJobs,
}

func init() {
	rootCmd.AddCommand(listJobsCmd)
}

func runListJobs(cmd *cobra.Command, args []string) error {
	configFile := GetConfigFile()

	cfg, err := loadConfig(true)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	jobNames := cfg.ListJobs()

	if len(jobNames) == 0 {
		cmd.Printf("No jobs defined in %s\n", configFile)
		return nil
	}

	sort.Strings(jobNames)

	cmd.Printf("Jobs defined in %s:\n\n", configFile)

	for i, jobName := range jobNames {
		raw, err := cfg.GetJob(jobName)
		if err != nil {
			return fmt.Errorf("failed to get job %q: %w", jobName, err)
		}
		job := raw.WithDefaults()

		matching := "case-insensitive"
		if !job.IsCaseInsensitive() {
			matching = "case-sensitive"
		}

		cmd.Printf("%d. %s\n", i+1, jobName)
		cmd.Printf("   Backend:       %s\n", job.Backend)
		cmd.Printf("   Collection:    %s\n", job.Collection)
		cmd.Printf("   Field:         %s\n", job.Field)
		cmd.Printf("   Pattern:       %s\n", job.Pattern)
		cmd.Printf("   Matching:      %s\n", matching)

		if i < len(jobNames)-1 {
			cmd.Println()
		}
	}

	cmd.Printf("\nTotal: %d job(s)\n", len(jobNames))
	return nil
}
