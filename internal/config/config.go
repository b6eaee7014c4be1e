// Package config loads pipeline settings from the environment. A .env file
// in the working directory is honored when present.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/berrylab/swd-weather-etl/internal/trap"
)

// Merge policies for joining the new year's trap rows with weather summaries.
const (
	MergeInner = "inner"
	MergeLeft  = "left"
)

// Config holds all pipeline settings, populated from environment variables.
// No stage reads the environment directly; everything flows through here.
type Config struct {
	// Source and output paths.
	TrapCountsPath   string
	TrapMetadataPath string
	HistoryPath      string
	OutputPath       string
	WeatherDir       string
	SchemaPath       string

	// Remote weather archive.
	BaseURL      string
	FetchWorkers int
	FetchTimeout time.Duration

	// Years: metadata is looked up at ReferenceYear, new counts and weather
	// are tagged and fetched for TargetYear.
	ReferenceYear int
	TargetYear    int

	// Raw trap grid geometry.
	TrapLayout trap.Layout

	// Raw weather file missing-value sentinel.
	MissingSentinel string

	MergePolicy string

	LogLevel    string
	LogFormat   string
	MetricsAddr string // empty disables the metrics listener
}

// Load reads configuration from the environment, applying defaults where
// unset.
func Load() (*Config, error) {
	// Best effort; absent .env just means plain env vars.
	_ = godotenv.Load()

	fetchTimeout, err := envDuration("FETCH_TIMEOUT", "15s")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		TrapCountsPath:   os.Getenv("TRAP_COUNTS_PATH"),
		TrapMetadataPath: os.Getenv("TRAP_METADATA_PATH"),
		HistoryPath:      os.Getenv("TRAP_HISTORY_PATH"),
		OutputPath:       envOrDefault("OUTPUT_PATH", "analysis.csv"),
		WeatherDir:       envOrDefault("WEATHER_DIR", "weather"),
		SchemaPath:       os.Getenv("WEATHER_SCHEMA_PATH"),

		BaseURL:      os.Getenv("WEATHER_BASE_URL"),
		FetchWorkers: envInt("FETCH_WORKERS", 4),
		FetchTimeout: fetchTimeout,

		ReferenceYear: envInt("REFERENCE_YEAR", 0),
		TargetYear:    envInt("TARGET_YEAR", 0),

		TrapLayout: trap.Layout{
			StartRow: envInt("TRAP_START_ROW", 2),
			StartCol: envInt("TRAP_START_COL", 4),
			DataRows: envInt("TRAP_DATA_ROWS", 0),
			NumCols:  envInt("TRAP_NUM_COLS", 0),
		},

		MissingSentinel: envOrDefault("WEATHER_MISSING_SENTINEL", "M"),
		MergePolicy:     envOrDefault("MERGE_POLICY", MergeInner),

		LogLevel:    envOrDefault("LOG_LEVEL", "info"),
		LogFormat:   envOrDefault("LOG_FORMAT", "json"),
		MetricsAddr: os.Getenv("METRICS_ADDR"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.TrapCountsPath == "":
		return errors.New("TRAP_COUNTS_PATH is required")
	case c.TrapMetadataPath == "":
		return errors.New("TRAP_METADATA_PATH is required")
	case c.SchemaPath == "":
		return errors.New("WEATHER_SCHEMA_PATH is required")
	case c.BaseURL == "":
		return errors.New("WEATHER_BASE_URL is required")
	case c.TargetYear <= 0:
		return errors.New("TARGET_YEAR is required")
	case c.ReferenceYear <= 0:
		return errors.New("REFERENCE_YEAR is required")
	case c.TrapLayout.DataRows <= 0:
		return errors.New("TRAP_DATA_ROWS is required")
	case c.TrapLayout.NumCols <= 0:
		return errors.New("TRAP_NUM_COLS is required")
	case c.FetchWorkers <= 0:
		return errors.New("FETCH_WORKERS must be positive")
	case c.FetchTimeout <= 0:
		return errors.New("FETCH_TIMEOUT must be positive")
	}

	if c.MergePolicy != MergeInner && c.MergePolicy != MergeLeft {
		return fmt.Errorf("MERGE_POLICY must be %q or %q", MergeInner, MergeLeft)
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key, fallback string) (time.Duration, error) {
	s := envOrDefault(key, fallback)
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
