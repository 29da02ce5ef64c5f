package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable LoadFromEnv reads.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"SEMVAL_ACCOUNTS_FILE", "SEMVAL_CONCURRENCY", "SEMVAL_QUERY_RPS", "SEMVAL_QUERY_BURST",
		"LOG_LEVEL", "LOG_FORMAT",
		"S3_KEY_ID", "S3_SECRET", "S3_ENDPOINT", "S3_REGION",
		"GCS_KEY_FILE", "AZURE_STORAGE_ACCOUNT", "AZURE_STORAGE_KEY",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "accounts.yaml", cfg.AccountsFile)
	assert.Equal(t, 1, cfg.Concurrency)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "auto", cfg.LogFormat)
	assert.Nil(t, cfg.Limiter())
	assert.False(t, cfg.HasS3Config())
	assert.Empty(t, cfg.Warnings)
}

func TestLoadFromEnv_AllVarsSet(t *testing.T) {
	clearEnv(t)
	keyFile := filepath.Join(t.TempDir(), "sa.json")
	require.NoError(t, os.WriteFile(keyFile, []byte("{}"), 0o600))

	t.Setenv("SEMVAL_ACCOUNTS_FILE", "/etc/semval/accounts.yaml")
	t.Setenv("SEMVAL_CONCURRENCY", "4")
	t.Setenv("SEMVAL_QUERY_RPS", "2.5")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("S3_KEY_ID", "testkey")
	t.Setenv("S3_SECRET", "testsecret")
	t.Setenv("S3_ENDPOINT", "s3.example.com")
	t.Setenv("GCS_KEY_FILE", keyFile)
	t.Setenv("AZURE_STORAGE_ACCOUNT", "acct")
	t.Setenv("AZURE_STORAGE_KEY", "a2V5")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "/etc/semval/accounts.yaml", cfg.AccountsFile)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.Equal(t, "json", cfg.LogFormat)
	assert.True(t, cfg.HasS3Config())

	lim := cfg.Limiter()
	require.NotNil(t, lim)
	assert.Equal(t, 1, lim.Burst())

	src := cfg.Source()
	assert.Equal(t, "s3.example.com", src.S3Endpoint)
	assert.Equal(t, keyFile, src.GCSKeyFile)
	assert.Equal(t, "acct", src.AzureAccount)
}

func TestLoadFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		errContains string
	}{
		{"concurrency too high", map[string]string{"SEMVAL_CONCURRENCY": "500"}, "Concurrency"},
		{"negative rps", map[string]string{"SEMVAL_QUERY_RPS": "-1"}, "QueryRPS"},
		{"unknown log level", map[string]string{"LOG_LEVEL": "verbose"}, "LogLevel"},
		{"unknown log format", map[string]string{"LOG_FORMAT": "xml"}, "LogFormat"},
		{"missing gcs key file", map[string]string{"GCS_KEY_FILE": "/does/not/exist.json"}, "GCSKeyFile"},
		{"azure account without key", map[string]string{"AZURE_STORAGE_ACCOUNT": "acct"}, "AzureKey"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := LoadFromEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errContains)
		})
	}
}

func TestLoadFromEnv_Warnings(t *testing.T) {
	clearEnv(t)
	t.Setenv("SEMVAL_CONCURRENCY", "many")
	t.Setenv("S3_KEY_ID", "only-the-key")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Concurrency)
	require.Len(t, cfg.Warnings, 2)
	assert.Contains(t, cfg.Warnings[0], "SEMVAL_CONCURRENCY")
	assert.Contains(t, cfg.Warnings[1], "S3 credentials are incomplete")
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
	}
	for _, tc := range tests {
		t.Run(tc.level, func(t *testing.T) {
			cfg := &Config{LogLevel: tc.level}
			assert.Equal(t, tc.want, cfg.SlogLevel())
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	content := `# comment
SEMVAL_TEST_PLAIN=plain
SEMVAL_TEST_DQ="double quoted"
export SEMVAL_TEST_EXPORTED='single'
SEMVAL_TEST_PRESET=from-file

not a pair
`
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o600))

	for _, k := range []string{"SEMVAL_TEST_PLAIN", "SEMVAL_TEST_DQ", "SEMVAL_TEST_EXPORTED"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
	t.Setenv("SEMVAL_TEST_PRESET", "from-env")

	require.NoError(t, LoadDotEnv(envFile))
	t.Cleanup(func() {
		for _, k := range []string{"SEMVAL_TEST_PLAIN", "SEMVAL_TEST_DQ", "SEMVAL_TEST_EXPORTED"} {
			_ = os.Unsetenv(k)
		}
	})

	assert.Equal(t, "plain", os.Getenv("SEMVAL_TEST_PLAIN"))
	assert.Equal(t, "double quoted", os.Getenv("SEMVAL_TEST_DQ"))
	assert.Equal(t, "single", os.Getenv("SEMVAL_TEST_EXPORTED"))
	assert.Equal(t, "from-env", os.Getenv("SEMVAL_TEST_PRESET"), "environment takes precedence")
}

func TestLoadDotEnv_MissingFile(t *testing.T) {
	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "nope.env")))
}
