package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/gookit/color"
	"github.com/spf13/cobra"

	"github.com/dbsmedya/gopurge/internal/config"
	"github.com/dbsmedya/gopurge/internal/database"
	"github.com/dbsmedya/gopurge/internal/lock"
	"github.com/dbsmedya/gopurge/internal/logger"
	"github.com/dbsmedya/gopurge/internal/purge"
	"github.com/dbsmedya/gopurge/internal/report"
)

// selectorFlags picks the purge target: a named job, ad-hoc flags, or a
// job with some fields overridden by flags.
type selectorFlags struct {
	job           string
	backend       string
	collection    string
	field         string
	pattern       string
	caseSensitive bool
}

func (s *selectorFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&s.job, "job", "j", "",
		"Job name from configuration file")
	cmd.Flags().StringVar(&s.backend, "backend", "",
		"Database backend (mongodb, mysql); default mongodb")
	cmd.Flags().StringVar(&s.collection, "collection", "",
		"Target collection or table")
	cmd.Flags().StringVar(&s.field, "field", "",
		"Identifier field to match (default orderId)")
	cmd.Flags().StringVar(&s.pattern, "pattern", "",
		"Regular expression matched against the identifier field")
	cmd.Flags().BoolVar(&s.caseSensitive, "case-sensitive", false,
		"Match case-sensitively (default is case-insensitive)")
}

func (s *selectorFlags) selector() config.JobSelector {
	return config.JobSelector{
		Backend:       s.backend,
		Collection:    s.collection,
		Field:         s.field,
		Pattern:       s.pattern,
		CaseSensitive: s.caseSensitive,
	}
}

func (s *selectorFlags) empty() bool {
	return s.job == "" && s.backend == "" && s.collection == "" &&
		s.field == "" && s.pattern == "" && !s.caseSensitive
}

// loadConfig loads .env and the configuration file. A missing file is only
// tolerated for the default path unless strict is set.
func loadConfig(strict bool) (*config.Config, error) {
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, err
	}

	configFile := GetConfigFile()
	if strict || configFile != DefaultConfigFile {
		return config.Load(configFile)
	}
	return config.LoadOptional(configFile)
}

// newRunLogger builds the logger for one invocation, tagged with a fresh run id.
func newRunLogger(cfg *config.Config) (*logger.Logger, string, error) {
	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return nil, "", fmt.Errorf("failed to initialize logger: %w", err)
	}
	runID := uuid.NewString()
	return log.WithRun(runID), runID, nil
}

// newSink returns the console report sink for w.
func newSink(w io.Writer) report.Sink {
	colored := !GetCLIOverrides().NoColor && w == os.Stdout && color.SupportColor()
	return report.NewConsole(w, colored)
}

// buildOptions maps a resolved job and the safety section onto purge options.
func buildOptions(cfg *config.Config, job config.JobConfig) purge.Options {
	return purge.Options{
		DryRun:          cfg.Safety.DryRun,
		Collection:      job.Collection,
		Field:           job.Field,
		Pattern:         job.Pattern,
		CaseInsensitive: job.IsCaseInsensitive(),
		ConfirmDelay:    cfg.Safety.ConfirmDelay(),
		SampleThreshold: cfg.Safety.SampleThreshold,
		SampleSize:      cfg.Safety.SampleSize,
	}
}

// resolveRun loads configuration and resolves the target job. forceDryRun
// pins dry-run regardless of config and flags.
func resolveRun(sel *selectorFlags, execute, forceDryRun bool, delaySeconds float64) (*config.Config, string, config.JobConfig, error) {
	cfg, err := loadConfig(false)
	if err != nil {
		return nil, "", config.JobConfig{}, fmt.Errorf("failed to load config: %w", err)
	}

	overrides := GetCLIOverrides()
	cfg.ApplyOverrides(overrides.LogLevel, overrides.LogFormat, execute, delaySeconds)
	if forceDryRun {
		cfg.Safety.DryRun = true
	}

	job, err := cfg.ResolveJob(sel.job, sel.selector())
	if err != nil {
		return nil, "", config.JobConfig{}, err
	}
	if err := cfg.ValidateBackend(job.Backend); err != nil {
		return nil, "", config.JobConfig{}, err
	}

	name := sel.job
	if name == "" {
		name = "adhoc"
	}
	return cfg, name, job, nil
}

// runWorkflow connects to the job's backend and runs one purge.
func runWorkflow(cmd *cobra.Command, sel *selectorFlags, execute, forceDryRun bool, delaySeconds float64) error {
	cfg, jobName, job, err := resolveRun(sel, execute, forceDryRun, delaySeconds)
	if err != nil {
		return err
	}

	log, runID, err := newRunLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()
	log = log.WithJob(jobName)

	opts := buildOptions(cfg, job)
	log.Infow("Starting gopurge",
		"run_id", runID,
		"backend", job.Backend,
		"collection", job.Collection,
		"dry_run", opts.DryRun,
	)

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := database.WithShutdownSignals(parent, func(sig os.Signal) {
		log.Warnw("Received shutdown signal", "signal", sig.String())
	})
	defer stop()

	dbManager := database.NewManager(cfg)
	if err := dbManager.Connect(ctx, job.Backend); err != nil {
		return fmt.Errorf("failed to connect to %s: %w", job.Backend, err)
	}
	defer dbManager.Close()

	st, err := dbManager.Store(job.Backend)
	if err != nil {
		return err
	}

	wf, err := purge.NewWorkflow(st, opts, newSink(cmd.OutOrStdout()), purge.SleepWaiter{}, log)
	if err != nil {
		return err
	}

	var rep *purge.Report
	start := time.Now()
	run := func() error {
		var runErr error
		rep, runErr = wf.Run(ctx)
		return runErr
	}

	// MySQL runs hold a per-table advisory lock; a concurrent run against
	// the same table fails with lock.ErrLockTimeout.
	if job.Backend == config.BackendMySQL {
		err = lock.NewTargetLock(dbManager.MySQL, cfg.MySQL.Database, job.Collection).
			WithLock(ctx, lock.TimeoutShort, run)
	} else {
		err = run()
	}

	fields := []interface{}{"elapsed", time.Since(start)}
	if rep != nil {
		fields = append(fields,
			"state", string(rep.State),
			"matched", rep.MatchedCount,
			"warnings", len(rep.Warnings),
		)
		if rep.DeletedCount != nil {
			fields = append(fields, "deleted", *rep.DeletedCount)
		}
		if rep.ResidualCount != nil {
			fields = append(fields, "residual", *rep.ResidualCount)
		}
	}
	if err != nil {
		log.Errorw("gopurge failed", append(fields, "error", err)...)
		return err
	}
	log.Infow("gopurge finished", fields...)
	return nil
}
