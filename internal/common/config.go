// Package common provides shared configuration, logging, and utilities.
package common

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration
type Config struct {
	Environment string `toml:"environment"` // "development" or "production"

	// Timezone is the canonical timezone for business-date computation.
	// Every calendar date written to or read from the report store is derived
	// in this timezone. There is no default: an unset timezone must stop the
	// process at startup instead of silently falling back to the platform zone.
	Timezone string `toml:"timezone" validate:"required,timezone"`

	Storage    StorageConfig    `toml:"storage"`
	Resolver   ResolverConfig   `toml:"resolver"`
	MarketData MarketDataConfig `toml:"marketdata"`
	Precompute PrecomputeConfig `toml:"precompute"`
	Artifacts  ArtifactsConfig  `toml:"artifacts"`
	Logging    LoggingConfig    `toml:"logging"`
}

type StorageConfig struct {
	SQLite SQLiteConfig `toml:"sqlite"`
	Badger BadgerConfig `toml:"badger"`
}

// SQLiteConfig represents report-store database configuration
type SQLiteConfig struct {
	Path          string `toml:"path" validate:"required"` // Database file path
	CacheSizeMB   int    `toml:"cache_size_mb"`
	BusyTimeoutMS int    `toml:"busy_timeout_ms"`
	WALMode       bool   `toml:"wal_mode"`
}

// BadgerConfig represents batch-run store configuration
type BadgerConfig struct {
	Path           string `toml:"path" validate:"required"` // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"`         // Delete database on startup for clean test runs
}

// ResolverConfig contains configuration for the ticker reference table
type ResolverConfig struct {
	UniverseFile string `toml:"universe_file" validate:"required"` // TOML file with the ticker reference table
}

// Duration is a time.Duration that unmarshals from TOML strings like
// "30s" or "5m".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// MarketDataConfig contains configuration for the upstream market data API
type MarketDataConfig struct {
	BaseURL      string   `toml:"base_url"`
	APIKey       string   `toml:"api_key"`
	RateLimit    int      `toml:"rate_limit"`    // Requests per second
	Timeout      Duration `toml:"timeout"`       // HTTP request timeout, e.g. "30s"
	MaxRetries   int      `toml:"max_retries"`   // Bounded retries for upstream fetches
	RetryBackoff Duration `toml:"retry_backoff"` // Initial backoff, doubled per attempt
}

// PrecomputeConfig contains configuration for the daily precompute cycle
type PrecomputeConfig struct {
	Schedule      string   `toml:"schedule" validate:"required"` // Cron schedule for the daily run
	BatchTimeout  Duration `toml:"batch_timeout"`                // Max time to wait for all workers in a batch
	WorkerTimeout Duration `toml:"worker_timeout"`               // Max time for one worker run
	HistoryDays   int      `toml:"history_days"`                 // Price history window fetched per report
	PDFEnabled    bool     `toml:"pdf_enabled"`                  // Render and store PDF artifacts
}

// ArtifactsConfig selects where rendered PDF artifacts are stored
type ArtifactsConfig struct {
	Backend    string                `toml:"backend" validate:"oneof=filesystem s3"` // "filesystem" or "s3"
	Filesystem FilesystemArtifactCfg `toml:"filesystem"`
	S3         S3ArtifactCfg         `toml:"s3"`
}

type FilesystemArtifactCfg struct {
	Dir string `toml:"dir"`
}

type S3ArtifactCfg struct {
	Bucket          string `toml:"bucket"`
	Region          string `toml:"region"`
	Endpoint        string `toml:"endpoint"` // Optional custom endpoint (MinIO etc.)
	AccessKeyID     string `toml:"access_key_id"`
	SecretAccessKey string `toml:"secret_access_key"`
	PathStyle       bool   `toml:"path_style"`
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs
}

// NewDefaultConfig creates a configuration with default values.
// Timezone and the universe file deliberately have no default: they are
// boundary configuration the operator must set explicitly.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Storage: StorageConfig{
			SQLite: SQLiteConfig{
				Path:          "./data/reports.db",
				CacheSizeMB:   64,
				BusyTimeoutMS: 5000,
				WALMode:       true,
			},
			Badger: BadgerConfig{
				Path: "./data/batches",
			},
		},
		MarketData: MarketDataConfig{
			BaseURL:      "https://eodhd.com/api",
			RateLimit:    10,
			Timeout:      Duration(30 * time.Second),
			MaxRetries:   3,
			RetryBackoff: Duration(2 * time.Second),
		},
		Precompute: PrecomputeConfig{
			Schedule:      "30 18 * * 1-5", // Weekday evenings in the canonical timezone
			BatchTimeout:  Duration(30 * time.Minute),
			WorkerTimeout: Duration(5 * time.Minute),
			HistoryDays:   30,
			PDFEnabled:    true,
		},
		Artifacts: ArtifactsConfig{
			Backend: "filesystem",
			Filesystem: FilesystemArtifactCfg{
				Dir: "./data/artifacts",
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout", "file"},
			TimeFormat: "15:04:05",
		},
	}
}

// LoadFromFiles loads configuration from multiple files with priority:
// defaults -> file1 -> file2 -> ... -> env. Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// Validate checks that all required boundary configuration is present.
// Called once at startup; any failure here must terminate the process
// before the scheduler or any storage connection is created.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		var errs validator.ValidationErrors
		if errors.As(err, &errs) {
			fields := make([]string, 0, len(errs))
			for _, fe := range errs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := ValidateSchedule(c.Precompute.Schedule); err != nil {
		return fmt.Errorf("invalid precompute schedule: %w", err)
	}

	if c.Artifacts.Backend == "s3" && c.Artifacts.S3.Bucket == "" {
		return fmt.Errorf("invalid configuration: artifacts.s3.bucket required when backend is s3")
	}
	if c.Artifacts.Backend == "filesystem" && c.Artifacts.Filesystem.Dir == "" {
		return fmt.Errorf("invalid configuration: artifacts.filesystem.dir required when backend is filesystem")
	}

	return nil
}

// Location resolves the configured canonical timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return nil, fmt.Errorf("timezone not configured")
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("DAYBOOK_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if tz := os.Getenv("DAYBOOK_TIMEZONE"); tz != "" {
		config.Timezone = tz
	}

	// Storage configuration
	if path := os.Getenv("DAYBOOK_SQLITE_PATH"); path != "" {
		config.Storage.SQLite.Path = path
	}
	if path := os.Getenv("DAYBOOK_BADGER_PATH"); path != "" {
		config.Storage.Badger.Path = path
	}

	// Resolver configuration
	if path := os.Getenv("DAYBOOK_UNIVERSE_FILE"); path != "" {
		config.Resolver.UniverseFile = path
	}

	// Market data configuration
	if apiKey := os.Getenv("DAYBOOK_MARKETDATA_API_KEY"); apiKey != "" {
		config.MarketData.APIKey = apiKey
	}
	if baseURL := os.Getenv("DAYBOOK_MARKETDATA_BASE_URL"); baseURL != "" {
		config.MarketData.BaseURL = baseURL
	}
	if rateLimit := os.Getenv("DAYBOOK_MARKETDATA_RATE_LIMIT"); rateLimit != "" {
		if rl, err := strconv.Atoi(rateLimit); err == nil {
			config.MarketData.RateLimit = rl
		}
	}
	if retries := os.Getenv("DAYBOOK_MARKETDATA_MAX_RETRIES"); retries != "" {
		if r, err := strconv.Atoi(retries); err == nil {
			config.MarketData.MaxRetries = r
		}
	}

	// Precompute configuration
	if schedule := os.Getenv("DAYBOOK_PRECOMPUTE_SCHEDULE"); schedule != "" {
		config.Precompute.Schedule = schedule
	}
	if pdfEnabled := os.Getenv("DAYBOOK_PRECOMPUTE_PDF_ENABLED"); pdfEnabled != "" {
		if enabled, err := strconv.ParseBool(pdfEnabled); err == nil {
			config.Precompute.PDFEnabled = enabled
		}
	}

	// Artifacts configuration
	if backend := os.Getenv("DAYBOOK_ARTIFACTS_BACKEND"); backend != "" {
		config.Artifacts.Backend = backend
	}
	if bucket := os.Getenv("DAYBOOK_ARTIFACTS_S3_BUCKET"); bucket != "" {
		config.Artifacts.S3.Bucket = bucket
	}
	if region := os.Getenv("DAYBOOK_ARTIFACTS_S3_REGION"); region != "" {
		config.Artifacts.S3.Region = region
	}
	if accessKey := os.Getenv("AWS_ACCESS_KEY_ID"); accessKey != "" && config.Artifacts.S3.AccessKeyID == "" {
		config.Artifacts.S3.AccessKeyID = accessKey
	}
	if secretKey := os.Getenv("AWS_SECRET_ACCESS_KEY"); secretKey != "" && config.Artifacts.S3.SecretAccessKey == "" {
		config.Artifacts.S3.SecretAccessKey = secretKey
	}

	// Logging configuration
	if level := os.Getenv("DAYBOOK_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("DAYBOOK_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}
}

// ValidateSchedule validates a cron schedule expression
func ValidateSchedule(schedule string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	return nil
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
