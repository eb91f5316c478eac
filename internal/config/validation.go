package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dbsmedya/gopurge/internal/sqlutil"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// Validate checks the configuration for required fields and valid values.
// Connection settings are only checked for backends some job uses.
func (c *Config) Validate() error {
	var errors ValidationErrors

	if len(c.Jobs) == 0 {
		errors = append(errors, ValidationError{
			Field:   "jobs",
			Message: "at least one job must be defined",
		})
	}

	names := c.ListJobs()
	sort.Strings(names)
	backends := make(map[string]bool)
	for _, name := range names {
		job := c.Jobs[name].WithDefaults()
		backends[job.Backend] = true
		errors = append(errors, validateJob("jobs."+name, &job)...)
	}

	if backends[BackendMongoDB] {
		errors = append(errors, c.validateMongo()...)
	}
	if backends[BackendMySQL] {
		errors = append(errors, c.validateMySQL()...)
	}

	errors = append(errors, c.validateSafety()...)
	errors = append(errors, c.validateLogging()...)

	if len(errors) > 0 {
		return errors
	}
	return nil
}

// ValidateBackend checks the connection settings and global sections needed
// to run a single job against the given backend.
func (c *Config) ValidateBackend(backend string) error {
	var errors ValidationErrors

	switch backend {
	case BackendMongoDB:
		errors = append(errors, c.validateMongo()...)
	case BackendMySQL:
		errors = append(errors, c.validateMySQL()...)
	default:
		errors = append(errors, ValidationError{
			Field:   "backend",
			Message: fmt.Sprintf("unsupported backend %q (use 'mongodb' or 'mysql')", backend),
		})
	}

	errors = append(errors, c.validateSafety()...)
	errors = append(errors, c.validateLogging()...)

	if len(errors) > 0 {
		return errors
	}
	return nil
}

func validateJob(prefix string, job *JobConfig) ValidationErrors {
	var errors ValidationErrors

	validBackends := map[string]bool{BackendMongoDB: true, BackendMySQL: true}
	if !validBackends[job.Backend] {
		errors = append(errors, ValidationError{
			Field:   prefix + ".backend",
			Message: "backend must be 'mongodb' or 'mysql'",
		})
	}

	if job.Collection == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".collection",
			Message: "collection is required",
		})
	}

	if strings.TrimSpace(job.Pattern) == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".pattern",
			Message: "pattern is required",
		})
	}

	if job.Field == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".field",
			Message: "field is required",
		})
	}

	// MySQL identifiers end up in SQL text; restrict them.
	if job.Backend == BackendMySQL {
		if job.Collection != "" && !sqlutil.IsValidIdentifier(job.Collection) {
			errors = append(errors, ValidationError{
				Field:   prefix + ".collection",
				Message: "table name must contain only alphanumeric characters and underscores",
			})
		}
		if job.Field != "" && !sqlutil.IsValidIdentifier(job.Field) {
			errors = append(errors, ValidationError{
				Field:   prefix + ".field",
				Message: "column name must contain only alphanumeric characters and underscores",
			})
		}
	}

	return errors
}

func (c *Config) validateMongo() ValidationErrors {
	var errors ValidationErrors

	if c.MongoDB.URI == "" {
		errors = append(errors, ValidationError{
			Field:   "mongodb.uri",
			Message: "uri is required",
		})
	} else if !strings.HasPrefix(c.MongoDB.URI, "mongodb://") && !strings.HasPrefix(c.MongoDB.URI, "mongodb+srv://") {
		errors = append(errors, ValidationError{
			Field:   "mongodb.uri",
			Message: "uri must start with 'mongodb://' or 'mongodb+srv://'",
		})
	}

	if c.MongoDB.Database == "" {
		errors = append(errors, ValidationError{
			Field:   "mongodb.database",
			Message: "database name is required",
		})
	}

	if c.MongoDB.TimeoutMS < 0 {
		errors = append(errors, ValidationError{
			Field:   "mongodb.timeout_ms",
			Message: "timeout_ms cannot be negative",
		})
	}

	return errors
}

func (c *Config) validateMySQL() ValidationErrors {
	var errors ValidationErrors
	db := &c.MySQL
	prefix := "mysql"

	if db.Host == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".host",
			Message: "host is required",
		})
	}

	if db.Port <= 0 || db.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".port",
			Message: "port must be between 1 and 65535",
		})
	}

	if db.User == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".user",
			Message: "user is required",
		})
	}

	if db.Database == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".database",
			Message: "database name is required",
		})
	}

	validTLS := map[string]bool{"disable": true, "preferred": true, "required": true, "": true}
	if !validTLS[db.TLS] {
		errors = append(errors, ValidationError{
			Field:   prefix + ".tls",
			Message: "tls must be 'disable', 'preferred', or 'required'",
		})
	}

	if db.MaxConnections < 0 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".max_connections",
			Message: "max_connections cannot be negative",
		})
	}

	if db.MaxIdleConnections < 0 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".max_idle_connections",
			Message: "max_idle_connections cannot be negative",
		})
	}

	return errors
}

func (c *Config) validateSafety() ValidationErrors {
	var errors ValidationErrors

	if c.Safety.ConfirmDelaySeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "safety.confirm_delay_seconds",
			Message: "confirm_delay_seconds cannot be negative",
		})
	}

	if c.Safety.SampleThreshold < 0 {
		errors = append(errors, ValidationError{
			Field:   "safety.sample_threshold",
			Message: "sample_threshold cannot be negative",
		})
	}

	if c.Safety.SampleSize < 0 {
		errors = append(errors, ValidationError{
			Field:   "safety.sample_size",
			Message: "sample_size cannot be negative",
		})
	}

	return errors
}

func (c *Config) validateLogging() ValidationErrors {
	var errors ValidationErrors

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true, "": true}
	if !validLevels[c.Logging.Level] {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Message: "level must be 'debug', 'info', 'warn', or 'error'",
		})
	}

	validFormats := map[string]bool{"json": true, "text": true, "": true}
	if !validFormats[c.Logging.Format] {
		errors = append(errors, ValidationError{
			Field:   "logging.format",
			Message: "format must be 'json' or 'text'",
		})
	}

	return errors
}
