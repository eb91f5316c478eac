package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment variable overrides (GOPURGE_MONGODB_URI, ...).
const EnvPrefix = "GOPURGE"

// Load reads configuration from the specified file path.
// It supports YAML files and performs environment variable substitution.
func Load(configPath string) (*Config, error) {
	v := newViper()

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	// Read the config file
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return LoadFromViper(v)
}

// LoadOptional behaves like Load but falls back to defaults plus environment
// when the file does not exist. Used when the config path was not given
// explicitly and every setting may come from flags.
func LoadOptional(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); errors.Is(err, fs.ErrNotExist) {
		return LoadFromViper(newViper())
	}
	return Load(configPath)
}

// LoadFromViper creates a Config from an existing Viper instance.
// Useful for testing or when Viper is configured externally.
func LoadFromViper(v *viper.Viper) (*Config, error) {
	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := substituteEnvVars(cfg); err != nil {
		return nil, fmt.Errorf("failed to substitute environment variables: %w", err)
	}

	return cfg, nil
}

// LoadDotEnv loads variables from the given .env files into the process
// environment. Missing files are ignored; existing variables win.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// newViper returns a Viper instance with defaults registered so that
// GOPURGE_* environment variables are picked up by Unmarshal.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	d := DefaultConfig()
	v.SetDefault("mongodb.uri", d.MongoDB.URI)
	v.SetDefault("mongodb.database", d.MongoDB.Database)
	v.SetDefault("mongodb.timeout_ms", d.MongoDB.TimeoutMS)
	v.SetDefault("mysql.host", d.MySQL.Host)
	v.SetDefault("mysql.port", d.MySQL.Port)
	v.SetDefault("mysql.user", d.MySQL.User)
	v.SetDefault("mysql.password", d.MySQL.Password)
	v.SetDefault("mysql.database", d.MySQL.Database)
	v.SetDefault("mysql.tls", d.MySQL.TLS)
	v.SetDefault("mysql.max_connections", d.MySQL.MaxConnections)
	v.SetDefault("mysql.max_idle_connections", d.MySQL.MaxIdleConnections)
	v.SetDefault("safety.dry_run", d.Safety.DryRun)
	v.SetDefault("safety.confirm_delay_seconds", d.Safety.ConfirmDelaySeconds)
	v.SetDefault("safety.sample_threshold", d.Safety.SampleThreshold)
	v.SetDefault("safety.sample_size", d.Safety.SampleSize)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.output", d.Logging.Output)
	return v
}

// envVarPattern matches ${VAR_NAME} or $VAR_NAME patterns
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// substituteEnvVars replaces ${VAR_NAME} patterns with environment variable values.
func substituteEnvVars(cfg *Config) error {
	cfg.MongoDB.URI = expandEnvVar(cfg.MongoDB.URI)
	cfg.MongoDB.Database = expandEnvVar(cfg.MongoDB.Database)

	cfg.MySQL.Host = expandEnvVar(cfg.MySQL.Host)
	cfg.MySQL.User = expandEnvVar(cfg.MySQL.User)
	cfg.MySQL.Password = expandEnvVar(cfg.MySQL.Password)
	cfg.MySQL.Database = expandEnvVar(cfg.MySQL.Database)

	cfg.Logging.Output = expandEnvVar(cfg.Logging.Output)

	return nil
}

// expandEnvVar expands environment variables in the format ${VAR} or $VAR.
func expandEnvVar(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		var varName string
		if strings.HasPrefix(match, "${") {
			varName = match[2 : len(match)-1]
		} else {
			varName = match[1:]
		}

		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		// Return original if env var not found
		return match
	})
}

// GetJob retrieves a specific job configuration by name.
func (c *Config) GetJob(name string) (*JobConfig, error) {
	job, exists := c.Jobs[name]
	if !exists {
		return nil, fmt.Errorf("job %q not found in configuration", name)
	}
	return &job, nil
}

// ListJobs returns all job names defined in the configuration.
func (c *Config) ListJobs() []string {
	jobs := make([]string, 0, len(c.Jobs))
	for name := range c.Jobs {
		jobs = append(jobs, name)
	}
	return jobs
}

// ApplyOverrides applies CLI flag overrides to the global configuration.
// Only non-zero/non-empty values are applied.
func (c *Config) ApplyOverrides(logLevel, logFormat string, execute bool, confirmDelaySeconds float64) {
	if logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFormat != "" {
		c.Logging.Format = logFormat
	}
	if execute {
		c.Safety.DryRun = false
	}
	if confirmDelaySeconds > 0 {
		c.Safety.ConfirmDelaySeconds = confirmDelaySeconds
	}
}

// JobSelector carries per-run job fields given on the command line.
type JobSelector struct {
	Backend       string
	Collection    string
	Field         string
	Pattern       string
	CaseSensitive bool
}

// ResolveJob combines a named job (optional) with CLI selector values and
// defaults, then validates the result.
func (c *Config) ResolveJob(name string, sel JobSelector) (JobConfig, error) {
	var job JobConfig
	if name != "" {
		j, err := c.GetJob(name)
		if err != nil {
			return JobConfig{}, err
		}
		job = *j
	}

	if sel.Backend != "" {
		job.Backend = sel.Backend
	}
	if sel.Collection != "" {
		job.Collection = sel.Collection
	}
	if sel.Field != "" {
		job.Field = sel.Field
	}
	if sel.Pattern != "" {
		job.Pattern = sel.Pattern
	}
	if sel.CaseSensitive {
		insensitive := false
		job.CaseInsensitive = &insensitive
	}

	job = job.WithDefaults()

	prefix := "job"
	if name != "" {
		prefix = "jobs." + name
	}
	if errs := validateJob(prefix, &job); len(errs) > 0 {
		return JobConfig{}, errs
	}
	return job, nil
}
