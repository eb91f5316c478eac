package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const testConfig = `mongodb:
  uri: mongodb://localhost:27017
  database: shop

mysql:
  host: 127.0.0.1
  port: 3306
  user: root
  password: test
  database: shop

safety:
  dry_run: true
  confirm_delay_seconds: 2
  sample_threshold: 500
  sample_size: 3

jobs:
  test-orders:
    collection: orders
    pattern: "^TEST-"
  qa-refs:
    backend: mysql
    collection: orders
    field: order_ref
    pattern: "qa[0-9]+"
    case_insensitive: false
`

// useConfig points the package-level flags at a temporary config file and
// restores them when the test ends.
func useConfig(t *testing.T, content string) string {
	t.Helper()

	origCfg, origEnv := cfgFile, envFile
	t.Cleanup(func() {
		cfgFile, envFile = origCfg, origEnv
	})

	dir := t.TempDir()
	path := filepath.Join(dir, "gopurge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfgFile = path
	envFile = filepath.Join(dir, ".env")
	return path
}
