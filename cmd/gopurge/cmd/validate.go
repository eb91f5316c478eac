package cmd

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/gopurge/internal/config"
	"github.com/dbsmedya/gopurge/internal/database"
	"github.com/dbsmedya/gopurge/internal/purge"
	"github.com/dbsmedya/gopurge/internal/store"
)

var validateSelector selectorFlags

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and run preflight checks",
	Long: `Validate checks the configuration and runs read-only preflight checks
against the database. It never creates indexes or deletes records.

Checks performed:
  - Configuration syntax and required fields
  - Pattern advisories (leading wildcard, case-insensitive matching)
  - Database connectivity
  - Collection or table existence
  - Index on the identifier field

Without --job or selector flags every configured job is checked.

Example:
  gopurge validate --config gopurge.yaml
  gopurge validate --job test-orders
  gopurge validate --backend mysql --collection orders --pattern '^TEST-'`,
	RunE:         runValidate,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateSelector.register(validateCmd)
}

// preflightResult is what validate learned about one job.
type preflightResult struct {
	Exists  bool
	Index   string
	Leading bool
}

// preflight runs the read-only checks for one job against st.
func preflight(ctx context.Context, st store.Store, job config.JobConfig) (preflightResult, error) {
	var res preflightResult

	exists, err := st.CollectionExists(ctx, job.Collection)
	if err != nil {
		return res, fmt.Errorf("collection check failed: %w", err)
	}
	res.Exists = exists
	if !exists {
		return res, nil
	}

	indexes, err := st.ListIndexes(ctx, job.Collection)
	if err != nil {
		return res, fmt.Errorf("index listing failed: %w", err)
	}
	if idx, ok := store.FindCovering(indexes, job.Field); ok {
		res.Index = idx.Name
		res.Leading = idx.Leads(job.Field)
	}
	return res, nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, jobs, err := validateTargets()
	if err != nil {
		return err
	}

	log, _, err := newRunLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	log.Info("Starting validation checks...")

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	dbManager := database.NewManager(cfg)
	defer dbManager.Close()

	cmd.Printf("\n=== Configuration Validation ===\n")
	cmd.Printf("Config file: %s\n", GetConfigFile())
	cmd.Printf("Jobs to check: %d\n\n", len(jobs))

	names := make([]string, 0, len(jobs))
	for name := range jobs {
		names = append(names, name)
	}
	sort.Strings(names)

	connected := make(map[string]error)
	hasErrors := false
	for _, name := range names {
		job := jobs[name]
		cmd.Printf("--- Job: %s ---\n", name)
		cmd.Printf("Target: %s %s.%s =~ /%s/\n", job.Backend, job.Collection, job.Field, job.Pattern)

		for _, advisory := range purge.PatternAdvisories(job.Pattern, job.IsCaseInsensitive()) {
			cmd.Printf("⚠️  %s\n", advisory)
		}

		connErr, tried := connected[job.Backend]
		if !tried {
			connErr = dbManager.Connect(ctx, job.Backend)
			connected[job.Backend] = connErr
		}
		if connErr != nil {
			cmd.Printf("❌ Connection failed: %v\n\n", connErr)
			hasErrors = true
			continue
		}

		st, err := dbManager.Store(job.Backend)
		if err != nil {
			cmd.Printf("❌ %v\n\n", err)
			hasErrors = true
			continue
		}

		res, err := preflight(ctx, st, job)
		switch {
		case err != nil:
			cmd.Printf("❌ Preflight checks failed: %v\n\n", err)
			hasErrors = true
			continue
		case !res.Exists:
			cmd.Printf("❌ Collection %q does not exist in %s\n\n", job.Collection, st.Name())
			hasErrors = true
			continue
		case res.Index == "":
			cmd.Printf("⚠️  No index on %q; a purge will create one\n", job.Field)
		case !res.Leading:
			cmd.Printf("⚠️  Index %s includes %q but does not lead with it\n", res.Index, job.Field)
		default:
			cmd.Printf("Index: %s\n", res.Index)
		}

		cmd.Printf("✅ All checks passed\n\n")
	}

	if hasErrors {
		return fmt.Errorf("validation failed for one or more jobs")
	}

	cmd.Println("=== Validation Complete ===")
	cmd.Println("✅ All jobs validated successfully")
	return nil
}

// validateTargets resolves either the single job described by flags or
// every configured job.
func validateTargets() (*config.Config, map[string]config.JobConfig, error) {
	overrides := GetCLIOverrides()

	if validateSelector.empty() {
		cfg, err := loadConfig(true)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg.ApplyOverrides(overrides.LogLevel, overrides.LogFormat, false, 0)
		if err := cfg.Validate(); err != nil {
			return nil, nil, fmt.Errorf("invalid configuration: %w", err)
		}
		jobs := make(map[string]config.JobConfig, len(cfg.Jobs))
		for name, job := range cfg.Jobs {
			jobs[name] = job.WithDefaults()
		}
		return cfg, jobs, nil
	}

	cfg, name, job, err := resolveRun(&validateSelector, false, true, 0)
	if err != nil {
		return nil, nil, err
	}
	return cfg, map[string]config.JobConfig{name: job}, nil
}
