// Package config handles application configuration and environment loading.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/time/rate"

	"semval/internal/source"
)

// Config holds the validator's runtime configuration.
type Config struct {
	AccountsFile string // YAML file mapping account identifiers to warehouse connections

	// Cross-check tuning
	Concurrency int     `validate:"gte=1,lte=64"` // tables verified at once (default 1)
	QueryRPS    float64 `validate:"gte=0"`        // verification queries per second; 0 disables throttling
	QueryBurst  int     `validate:"gte=0"`        // limiter burst (default 1)

	LogLevel  string `validate:"oneof=debug info warn warning error"` // default "info"
	LogFormat string `validate:"oneof=auto text json"`                // default "auto"

	// Object storage credentials are optional; empty when not configured.
	S3KeyID      string
	S3Secret     string
	S3Endpoint   string
	S3Region     string
	GCSKeyFile   string `validate:"omitempty,file"`
	AzureAccount string `validate:"required_with=AzureKey"`
	AzureKey     string `validate:"required_with=AzureAccount"`

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string
}

var validate = validator.New()

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// HasS3Config returns true if S3 credentials are set.
func (c *Config) HasS3Config() bool {
	return c.S3KeyID != "" && c.S3Secret != ""
}

// Source returns the object-storage settings for document fetching.
func (c *Config) Source() source.Config {
	return source.Config{
		S3KeyID:      c.S3KeyID,
		S3Secret:     c.S3Secret,
		S3Endpoint:   c.S3Endpoint,
		S3Region:     c.S3Region,
		GCSKeyFile:   c.GCSKeyFile,
		AzureAccount: c.AzureAccount,
		AzureKey:     c.AzureKey,
	}
}

// Limiter returns the verification-query rate limiter, or nil when
// throttling is disabled.
func (c *Config) Limiter() *rate.Limiter {
	if c.QueryRPS <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(c.QueryRPS), c.QueryBurst)
}

// LoadFromEnv loads configuration from environment variables and validates it.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		AccountsFile: os.Getenv("SEMVAL_ACCOUNTS_FILE"),
		LogLevel:     strings.ToLower(os.Getenv("LOG_LEVEL")),
		LogFormat:    strings.ToLower(os.Getenv("LOG_FORMAT")),
		S3KeyID:      os.Getenv("S3_KEY_ID"),
		S3Secret:     os.Getenv("S3_SECRET"),
		S3Endpoint:   os.Getenv("S3_ENDPOINT"),
		S3Region:     os.Getenv("S3_REGION"),
		GCSKeyFile:   os.Getenv("GCS_KEY_FILE"),
		AzureAccount: os.Getenv("AZURE_STORAGE_ACCOUNT"),
		AzureKey:     os.Getenv("AZURE_STORAGE_KEY"),
	}

	if v := os.Getenv("SEMVAL_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Concurrency = n
		} else {
			cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("ignoring SEMVAL_CONCURRENCY=%q: not an integer", v))
		}
	}
	if v := os.Getenv("SEMVAL_QUERY_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.QueryRPS = f
		} else {
			cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("ignoring SEMVAL_QUERY_RPS=%q: not a number", v))
		}
	}
	if v := os.Getenv("SEMVAL_QUERY_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.QueryBurst = n
		} else {
			cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("ignoring SEMVAL_QUERY_BURST=%q: not an integer", v))
		}
	}

	// Defaults
	if cfg.AccountsFile == "" {
		cfg.AccountsFile = "accounts.yaml"
	}
	if cfg.Concurrency == 0 {
		cfg.Concurrency = 1
	}
	if cfg.QueryRPS > 0 && cfg.QueryBurst == 0 {
		cfg.QueryBurst = 1
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "auto"
	}
	if (cfg.S3KeyID == "") != (cfg.S3Secret == "") {
		cfg.Warnings = append(cfg.Warnings, "S3 credentials are incomplete: set both S3_KEY_ID and S3_SECRET")
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadDotEnv reads a .env file and sets any variables not already in the environment.
// Lines must be in KEY=VALUE format. Comments (#) and blank lines are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil // .env not found is not an error
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(strings.TrimPrefix(line, "export "), "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = stripQuotes(strings.TrimSpace(value))
		if _, set := os.LookupEnv(key); set {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf("setenv %s: %w", key, err)
		}
	}
	return scanner.Err()
}

// stripQuotes removes surrounding double or single quotes from a value.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
