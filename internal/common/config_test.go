package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTestConfig() *Config {
	cfg := NewDefaultConfig()
	cfg.Timezone = "Asia/Bangkok"
	cfg.Resolver.UniverseFile = "./tickers.toml"
	return cfg
}

func TestValidateRequiresTimezone(t *testing.T) {
	cfg := validTestConfig()
	cfg.Timezone = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Timezone")
}

func TestValidateRejectsUnknownTimezone(t *testing.T) {
	cfg := validTestConfig()
	cfg.Timezone = "Mars/Olympus_Mons"

	err := cfg.Validate()
	assert.Error(t, err)
}

func TestValidateRequiresUniverseFile(t *testing.T) {
	cfg := validTestConfig()
	cfg.Resolver.UniverseFile = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UniverseFile")
}

func TestValidateRejectsBadSchedule(t *testing.T) {
	cfg := validTestConfig()
	cfg.Precompute.Schedule = "not a cron expression"

	err := cfg.Validate()
	assert.Error(t, err)
}

func TestValidateArtifactsBackend(t *testing.T) {
	cfg := validTestConfig()
	cfg.Artifacts.Backend = "s3"
	cfg.Artifacts.S3.Bucket = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket")

	cfg.Artifacts.S3.Bucket = "daybook-artifacts"
	assert.NoError(t, cfg.Validate())
}

func TestValidateAcceptsDefaultsWithRequiredFields(t *testing.T) {
	cfg := validTestConfig()
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromFilesMergesAndOverrides(t *testing.T) {
	dir := t.TempDir()

	base := filepath.Join(dir, "base.toml")
	require.NoError(t, os.WriteFile(base, []byte(`
timezone = "Asia/Bangkok"

[resolver]
universe_file = "./tickers.toml"

[storage.sqlite]
path = "./base.db"
`), 0644))

	override := filepath.Join(dir, "override.toml")
	require.NoError(t, os.WriteFile(override, []byte(`
[storage.sqlite]
path = "./override.db"
`), 0644))

	cfg, err := LoadFromFiles(base, override)
	require.NoError(t, err)

	assert.Equal(t, "Asia/Bangkok", cfg.Timezone)
	assert.Equal(t, "./override.db", cfg.Storage.SQLite.Path)
	// Defaults survive when files don't mention them
	assert.Equal(t, 10, cfg.MarketData.RateLimit)
}

func TestLoadFromFilesParsesDurationStrings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "durations.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
timezone = "Asia/Bangkok"

[marketdata]
timeout = "45s"
retry_backoff = "500ms"

[precompute]
batch_timeout = "1h"
worker_timeout = "90s"
`), 0644))

	cfg, err := LoadFromFiles(path)
	require.NoError(t, err)

	assert.Equal(t, 45*time.Second, cfg.MarketData.Timeout.Std())
	assert.Equal(t, 500*time.Millisecond, cfg.MarketData.RetryBackoff.Std())
	assert.Equal(t, time.Hour, cfg.Precompute.BatchTimeout.Std())
	assert.Equal(t, 90*time.Second, cfg.Precompute.WorkerTimeout.Std())
}

func TestLoadFromFilesRejectsBadDuration(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[marketdata]
timeout = "soon"
`), 0644))

	_, err := LoadFromFiles(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duration")
}

// The shipped local config must load as-is; a sample file the process
// auto-discovers but cannot parse is a broken deployment.
func TestLoadShippedLocalConfig(t *testing.T) {
	cfg, err := LoadFromFiles("../../deployments/local/daybook.toml")
	require.NoError(t, err)

	assert.Equal(t, "Asia/Bangkok", cfg.Timezone)
	assert.Equal(t, 30*time.Second, cfg.MarketData.Timeout.Std())
	assert.Equal(t, 2*time.Second, cfg.MarketData.RetryBackoff.Std())
	assert.Equal(t, 30*time.Minute, cfg.Precompute.BatchTimeout.Std())
	assert.Equal(t, 5*time.Minute, cfg.Precompute.WorkerTimeout.Std())
	assert.NoError(t, cfg.Validate())
}

func TestEnvOverridesWinOverFiles(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.toml")
	require.NoError(t, os.WriteFile(base, []byte(`timezone = "Asia/Bangkok"`), 0644))

	t.Setenv("DAYBOOK_TIMEZONE", "Australia/Sydney")
	t.Setenv("DAYBOOK_SQLITE_PATH", "/tmp/env.db")

	cfg, err := LoadFromFiles(base)
	require.NoError(t, err)

	assert.Equal(t, "Australia/Sydney", cfg.Timezone)
	assert.Equal(t, "/tmp/env.db", cfg.Storage.SQLite.Path)
}

func TestLocation(t *testing.T) {
	cfg := validTestConfig()
	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Bangkok", loc.String())

	cfg.Timezone = ""
	_, err = cfg.Location()
	assert.Error(t, err)
}
