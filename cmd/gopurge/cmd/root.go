package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags at build time)
var (
	Version = "0.0.1-dev"
	Commit  = "unknown"
)

// DefaultConfigFile is read when --config is not given. It may be absent.
const DefaultConfigFile = "gopurge.yaml"

// CLI flags that override config file values
var (
	cfgFile   string
	envFile   string
	logLevel  string
	logFormat string
	noColor   bool
)

var rootCmd = &cobra.Command{
	Use:   "gopurge",
	Short: "Safe bulk delete by identifier pattern",
	Long: `A CLI tool for deleting test or junk records from MongoDB collections
and MySQL tables whose identifier field matches a pattern.

Safety features:
  - Dry-run by default; live deletion requires --execute
  - Verifies the collection exists before touching anything
  - Ensures an index on the identifier field, creating one if missing
  - Shows matching examples before deleting
  - Waits a confirmation window (Ctrl+C aborts) before deleting
  - Re-counts afterwards to verify nothing matching remains`,
	Version: Version,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", DefaultConfigFile,
		"Path to configuration file (optional when the default is absent)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env",
		"Dotenv file loaded before the configuration, if present")

	// Logging overrides
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "",
		"Override log format (json, text)")

	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false,
		"Disable colored report output")
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}

// CLIOverrides contains flag values that override config file settings
type CLIOverrides struct {
	LogLevel  string
	LogFormat string
	NoColor   bool
}

// GetCLIOverrides returns the CLI flag override values
func GetCLIOverrides() CLIOverrides {
	return CLIOverrides{
		LogLevel:  logLevel,
		LogFormat: logFormat,
		NoColor:   noColor,
	}
}
