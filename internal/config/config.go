// Package config provides configuration structures and loading for GoPurge.
package config

import "time"

// Supported storage backends.
const (
	BackendMongoDB = "mongodb"
	BackendMySQL   = "mysql"
)

// Config represents the complete application configuration.
type Config struct {
	MongoDB MongoConfig          `yaml:"mongodb" mapstructure:"mongodb"`
	MySQL   DatabaseConfig       `yaml:"mysql" mapstructure:"mysql"`
	Jobs    map[string]JobConfig `yaml:"jobs" mapstructure:"jobs"`
	Safety  SafetyConfig         `yaml:"safety" mapstructure:"safety"`
	Logging LoggingConfig        `yaml:"logging" mapstructure:"logging"`
}

// MongoConfig represents a MongoDB connection configuration.
type MongoConfig struct {
	URI       string `yaml:"uri" mapstructure:"uri"`
	Database  string `yaml:"database" mapstructure:"database"`
	TimeoutMS int    `yaml:"timeout_ms" mapstructure:"timeout_ms"` // server selection timeout
}

// DatabaseConfig represents a MySQL database connection configuration.
type DatabaseConfig struct {
	Host               string `yaml:"host" mapstructure:"host"`
	Port               int    `yaml:"port" mapstructure:"port"`
	User               string `yaml:"user" mapstructure:"user"`
	Password           string `yaml:"password" mapstructure:"password"`
	Database           string `yaml:"database" mapstructure:"database"`
	TLS                string `yaml:"tls" mapstructure:"tls"` // disable, preferred, required
	MaxConnections     int    `yaml:"max_connections" mapstructure:"max_connections"`
	MaxIdleConnections int    `yaml:"max_idle_connections" mapstructure:"max_idle_connections"`
}

// JobConfig describes one cleanup target: which records to match and where.
type JobConfig struct {
	Backend         string `yaml:"backend" mapstructure:"backend"` // mongodb or mysql
	Collection      string `yaml:"collection" mapstructure:"collection"`
	Field           string `yaml:"field" mapstructure:"field"`
	Pattern         string `yaml:"pattern" mapstructure:"pattern"`
	CaseInsensitive *bool  `yaml:"case_insensitive,omitempty" mapstructure:"case_insensitive"`
}

// SafetyConfig represents the guard rails around destructive runs.
type SafetyConfig struct {
	DryRun              bool    `yaml:"dry_run" mapstructure:"dry_run"`
	ConfirmDelaySeconds float64 `yaml:"confirm_delay_seconds" mapstructure:"confirm_delay_seconds"`
	SampleThreshold     int64   `yaml:"sample_threshold" mapstructure:"sample_threshold"`
	SampleSize          int64   `yaml:"sample_size" mapstructure:"sample_size"`
}

// LoggingConfig represents logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json or text
	Output string `yaml:"output" mapstructure:"output"` // stdout, stderr, or file path
}

// Defaults shared by the config layer and the CLI.
const (
	DefaultField           = "orderId"
	DefaultConfirmDelay    = 5.0
	DefaultSampleThreshold = 10000
	DefaultSampleSize      = 5
)

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		MongoDB: MongoConfig{
			URI:       "mongodb://localhost:27017",
			TimeoutMS: 5000,
		},
		MySQL: DatabaseConfig{
			Port:               3306,
			TLS:                "preferred",
			MaxConnections:     4,
			MaxIdleConnections: 2,
		},
		Safety: SafetyConfig{
			DryRun:              true,
			ConfirmDelaySeconds: DefaultConfirmDelay,
			SampleThreshold:     DefaultSampleThreshold,
			SampleSize:          DefaultSampleSize,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// ConfirmDelay returns the confirmation window as a duration.
func (s SafetyConfig) ConfirmDelay() time.Duration {
	return time.Duration(s.ConfirmDelaySeconds * float64(time.Second))
}

// IsCaseInsensitive reports whether matching ignores case. Unset means true.
func (jc *JobConfig) IsCaseInsensitive() bool {
	if jc.CaseInsensitive == nil {
		return true
	}
	return *jc.CaseInsensitive
}

// WithDefaults returns a copy of the job with empty fields filled in.
func (jc JobConfig) WithDefaults() JobConfig {
	if jc.Backend == "" {
		jc.Backend = BackendMongoDB
	}
	if jc.Field == "" {
		jc.Field = DefaultField
	}
	return jc
}
