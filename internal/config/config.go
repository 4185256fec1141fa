// Package config loads runtime settings from the environment, an optional
// .env file and an optional YAML file.
//
// Precedence, lowest first: built-in defaults, YAML file, environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Log         LogConfig         `yaml:"log"`
	HTTP        HTTPConfig        `yaml:"http"`
	Storage     StorageConfig     `yaml:"storage"`
	DexScreener DexScreenerConfig `yaml:"dexscreener"`
	Helius      HeliusConfig      `yaml:"helius"`
	Anthropic   AnthropicConfig   `yaml:"anthropic"`
	Pipeline    PipelineConfig    `yaml:"pipeline"`
	Jobs        JobsConfig        `yaml:"jobs"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

type HTTPConfig struct {
	Addr       string `yaml:"addr"`
	CronSecret string `yaml:"cron_secret"`
}

type StorageConfig struct {
	UseMemory     bool   `yaml:"use_memory"`
	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickHouseDSN string `yaml:"clickhouse_dsn"` // optional stats history
}

type DexScreenerConfig struct {
	BaseURL       string  `yaml:"base_url"`
	ChainID       string  `yaml:"chain_id"`
	RatePerSecond float64 `yaml:"rate_per_second"`
	Burst         int     `yaml:"burst"`
}

type HeliusConfig struct {
	APIKey  string `yaml:"api_key"` // empty disables metadata fallback
	BaseURL string `yaml:"base_url"`
}

type AnthropicConfig struct {
	APIKey             string `yaml:"api_key"` // empty disables classification
	BaseURL            string `yaml:"base_url"`
	Model              string `yaml:"model"`
	DetailedModel      string `yaml:"detailed_model"`
	MaxConcurrentCalls int    `yaml:"max_concurrent_calls"`
}

type PipelineConfig struct {
	Interval           time.Duration `yaml:"interval"` // scheduler period in serve mode
	Cooldown           time.Duration `yaml:"cooldown"`
	StatsRefreshWindow time.Duration `yaml:"stats_refresh_window"`
	StatsPace          time.Duration `yaml:"stats_pace"`
	SweepPace          time.Duration `yaml:"sweep_pace"`
	ClassifyGroupSize  int           `yaml:"classify_group_size"`
	PendingLimit       int           `yaml:"pending_limit"`
}

type JobsConfig struct {
	Workers     int           `yaml:"workers"`
	Capacity    int           `yaml:"capacity"`
	MaxAttempts int           `yaml:"max_attempts"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Log:  LogConfig{Level: "info", Format: "text"},
		HTTP: HTTPConfig{Addr: ":8080"},
		DexScreener: DexScreenerConfig{
			BaseURL:       "https://api.dexscreener.com",
			ChainID:       "solana",
			RatePerSecond: 5,
			Burst:         5,
		},
		Helius: HeliusConfig{BaseURL: "https://mainnet.helius-rpc.com/"},
		Anthropic: AnthropicConfig{
			Model:              "claude-3-5-haiku-20241022",
			DetailedModel:      "claude-sonnet-4-20250514",
			MaxConcurrentCalls: 20,
		},
		Pipeline: PipelineConfig{
			Interval:           5 * time.Minute,
			Cooldown:           60 * time.Second,
			StatsRefreshWindow: 30 * time.Second,
			StatsPace:          200 * time.Millisecond,
			SweepPace:          100 * time.Millisecond,
			ClassifyGroupSize:  20,
			PendingLimit:       20,
		},
		Jobs: JobsConfig{
			Workers:     1,
			Capacity:    16,
			MaxAttempts: 3,
			RetryDelay:  2 * time.Second,
		},
	}
}

// Load builds the configuration. A missing .env file is not an error;
// yamlPath may be empty.
func Load(yamlPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if yamlPath != "" {
		if err := cfg.overlayFile(yamlPath); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing YAML: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)

	c.HTTP.Addr = getEnv("HTTP_ADDR", c.HTTP.Addr)
	c.HTTP.CronSecret = getEnv("CRON_SECRET", c.HTTP.CronSecret)

	c.Storage.UseMemory = getEnvBool("USE_MEMORY", c.Storage.UseMemory)
	c.Storage.PostgresDSN = getEnv("POSTGRES_DSN", c.Storage.PostgresDSN)
	c.Storage.ClickHouseDSN = getEnv("CLICKHOUSE_DSN", c.Storage.ClickHouseDSN)

	c.DexScreener.BaseURL = getEnv("DEXSCREENER_BASE_URL", c.DexScreener.BaseURL)
	c.DexScreener.ChainID = getEnv("DEXSCREENER_CHAIN_ID", c.DexScreener.ChainID)
	c.DexScreener.RatePerSecond = getEnvFloat("DEXSCREENER_RATE_PER_SECOND", c.DexScreener.RatePerSecond)
	c.DexScreener.Burst = getEnvInt("DEXSCREENER_BURST", c.DexScreener.Burst)

	c.Helius.APIKey = getEnv("HELIUS_API_KEY", c.Helius.APIKey)
	c.Helius.BaseURL = getEnv("HELIUS_BASE_URL", c.Helius.BaseURL)

	c.Anthropic.APIKey = getEnv("ANTHROPIC_API_KEY", c.Anthropic.APIKey)
	c.Anthropic.BaseURL = getEnv("ANTHROPIC_BASE_URL", c.Anthropic.BaseURL)
	c.Anthropic.Model = getEnv("ANTHROPIC_MODEL", c.Anthropic.Model)
	c.Anthropic.DetailedModel = getEnv("ANTHROPIC_DETAILED_MODEL", c.Anthropic.DetailedModel)
	c.Anthropic.MaxConcurrentCalls = getEnvInt("ANTHROPIC_MAX_CONCURRENT_CALLS", c.Anthropic.MaxConcurrentCalls)

	c.Pipeline.Interval = getEnvDuration("PIPELINE_INTERVAL", c.Pipeline.Interval)
	c.Pipeline.Cooldown = getEnvDuration("PIPELINE_COOLDOWN", c.Pipeline.Cooldown)
	c.Pipeline.StatsRefreshWindow = getEnvDuration("STATS_REFRESH_WINDOW", c.Pipeline.StatsRefreshWindow)
	c.Pipeline.StatsPace = getEnvDuration("STATS_PACE", c.Pipeline.StatsPace)
	c.Pipeline.SweepPace = getEnvDuration("SWEEP_PACE", c.Pipeline.SweepPace)
	c.Pipeline.ClassifyGroupSize = getEnvInt("CLASSIFY_GROUP_SIZE", c.Pipeline.ClassifyGroupSize)
	c.Pipeline.PendingLimit = getEnvInt("PENDING_LIMIT", c.Pipeline.PendingLimit)

	c.Jobs.Workers = getEnvInt("JOB_WORKERS", c.Jobs.Workers)
	c.Jobs.Capacity = getEnvInt("JOB_CAPACITY", c.Jobs.Capacity)
	c.Jobs.MaxAttempts = getEnvInt("JOB_MAX_ATTEMPTS", c.Jobs.MaxAttempts)
	c.Jobs.RetryDelay = getEnvDuration("JOB_RETRY_DELAY", c.Jobs.RetryDelay)
}

// Validate reports every missing or out-of-range value at once.
func (c *Config) Validate() error {
	var errs []error
	if !c.Storage.UseMemory && c.Storage.PostgresDSN == "" {
		errs = append(errs, errors.New("POSTGRES_DSN is required (or set USE_MEMORY=true)"))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.Log.Format))
	}
	if c.DexScreener.BaseURL == "" {
		errs = append(errs, errors.New("DEXSCREENER_BASE_URL is required"))
	}
	if c.DexScreener.RatePerSecond <= 0 || c.DexScreener.Burst <= 0 {
		errs = append(errs, errors.New("DEXSCREENER_RATE_PER_SECOND and DEXSCREENER_BURST must be positive"))
	}
	if c.Pipeline.Cooldown <= 0 {
		errs = append(errs, errors.New("PIPELINE_COOLDOWN must be positive"))
	}
	if c.Pipeline.Interval < c.Pipeline.Cooldown {
		errs = append(errs, fmt.Errorf("PIPELINE_INTERVAL (%s) must not be shorter than PIPELINE_COOLDOWN (%s)",
			c.Pipeline.Interval, c.Pipeline.Cooldown))
	}
	if c.Pipeline.ClassifyGroupSize <= 0 {
		errs = append(errs, errors.New("CLASSIFY_GROUP_SIZE must be positive"))
	}
	if c.Anthropic.MaxConcurrentCalls <= 0 {
		errs = append(errs, errors.New("ANTHROPIC_MAX_CONCURRENT_CALLS must be positive"))
	}
	if c.Jobs.MaxAttempts <= 0 {
		errs = append(errs, errors.New("JOB_MAX_ATTEMPTS must be positive"))
	}
	return errors.Join(errs...)
}

// ClassificationEnabled reports whether an oracle key is configured.
func (c *Config) ClassificationEnabled() bool {
	return c.Anthropic.APIKey != ""
}

// MetadataFallbackEnabled reports whether a Helius key is configured.
func (c *Config) MetadataFallbackEnabled() bool {
	return c.Helius.APIKey != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
