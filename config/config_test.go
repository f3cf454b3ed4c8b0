package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/expense-ledger/config"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// chdir moves into dir for the duration of the test.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.True(t, cfg.Ledger.AtomicWrites)
	assert.Equal(t, 5*time.Second, cfg.Ledger.ReadTimeout)
	assert.Equal(t, "USD", cfg.Ledger.DefaultCurrency)
	assert.True(t, cfg.Audit.Enabled)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	path := writeFile(t, "ledger.yaml", `
server:
  port: 9090
  cors_origins: ["https://ledger.example"]
store:
  driver: memory
ledger:
  atomic_writes: false
  read_timeout: 250ms
log:
  format: json
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"https://ledger.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.False(t, cfg.Ledger.AtomicWrites)
	assert.Equal(t, 250*time.Millisecond, cfg.Ledger.ReadTimeout)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.NotNil(t, cfg.Log.Logger())
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	chdir(t, t.TempDir())
	path := writeFile(t, "ledger.yaml", "store:\n  driver: memory\n")
	t.Setenv("LEDGER_STORE_DRIVER", "sqlite")
	t.Setenv("LEDGER_STORE_PATH", "/tmp/env.db")
	t.Setenv("LEDGER_AUDIT_BUFFER_SIZE", "7")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "/tmp/env.db", cfg.Store.Path)
	assert.Equal(t, 7, cfg.Audit.BufferSize)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("LEDGER_SERVER_PORT=7070\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("LEDGER_SERVER_PORT") })

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestLoad_Invalid(t *testing.T) {
	chdir(t, t.TempDir())

	_, err := config.Load(writeFile(t, "bad.yaml", "store:\n  driver: postgres\n"))
	assert.Error(t, err)

	_, err = config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err, "an explicit path must exist")
}
