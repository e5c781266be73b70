package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	DefaultProfileURL = "https://truthsocial.com/@realDonaldTrump"
	DefaultModel      = "google/gemma-3-12b-it:free"
	DefaultBufSize    = 100
	MaxPostCount      = 5
)

// Config holds all runtime settings. Everything comes from environment
// variables; there is no config file and no persisted state.
type Config struct {
	Discord    DiscordConfig
	OpenRouter OpenRouterConfig
	Scrape     ScrapeConfig
	Guard      GuardConfig

	LogLevel string `env:"LOG_LEVEL" envDefault:"INFO"`
}

type DiscordConfig struct {
	Token string `env:"DISCORD_BOT_TOKEN"`
}

type OpenRouterConfig struct {
	APIKey         string        `env:"OPENROUTER_API_KEY"`
	Model          string        `env:"OPENROUTER_MODEL" envDefault:"google/gemma-3-12b-it:free"`
	AutoSelectFree bool          `env:"OPENROUTER_AUTO_SELECT_FREE" envDefault:"true"`
	FreeKeyword    string        `env:"OPENROUTER_FREE_KEYWORD" envDefault:"free"`
	RefreshHours   int           `env:"OPENROUTER_FREE_MODEL_REFRESH_HOURS" envDefault:"168" validate:"min=1"`
	RequestTimeout time.Duration `env:"OPENROUTER_REQUEST_TIMEOUT" envDefault:"15s" validate:"min=1s"`
	SmokeTestLimit int           `env:"OPENROUTER_SMOKE_TEST_LIMIT" envDefault:"5" validate:"min=1"`
	SmokeTestDelay time.Duration `env:"OPENROUTER_SMOKE_TEST_DELAY" envDefault:"500ms" validate:"min=0"`
}

type ScrapeConfig struct {
	ProfileURL   string        `env:"TRUMPBOT_PROFILE_URL" envDefault:"https://truthsocial.com/@realDonaldTrump" validate:"url"`
	Timeout      time.Duration `env:"TRUMPBOT_SCRAPE_TIMEOUT" envDefault:"90s" validate:"min=1s"`
	FetchRetries int           `env:"TRUMPBOT_FETCH_RETRIES" envDefault:"3" validate:"min=1"`
	FetchDelay   time.Duration `env:"TRUMPBOT_FETCH_RETRY_DELAY" envDefault:"5s" validate:"min=1s"`
	StartupLimit int           `env:"TRUMPBOT_STARTUP_RETRIES" envDefault:"5" validate:"min=0"`
	StartupDelay time.Duration `env:"TRUMPBOT_STARTUP_RETRY_DELAY" envDefault:"10s" validate:"min=1s"`
}

type GuardConfig struct {
	MemoryLimitMB uint64        `env:"APP_MEMORY_LIMIT_MB" envDefault:"1900" validate:"min=1"`
	Interval      time.Duration `env:"TRUMPBOT_GUARD_INTERVAL" envDefault:"5m" validate:"min=1s"`
	CacheTrim     time.Duration `env:"TRUMPBOT_CACHE_TRIM_INTERVAL" envDefault:"15m" validate:"min=1s"`
}

// Load reads the environment (an optional .env file first) into a Config.
func Load() (*Config, error) {
	// Missing .env is fine; explicit env vars always win.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// RefreshInterval returns the model refresh period.
func (c OpenRouterConfig) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshHours) * time.Hour
}

// SlogLevel maps LOG_LEVEL onto a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToUpper(strings.TrimSpace(c.LogLevel)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ClampCount bounds a requested post count to the supported 1..5 range.
func ClampCount(n int) int {
	if n < 1 {
		return 1
	}
	if n > MaxPostCount {
		return MaxPostCount
	}
	return n
}
