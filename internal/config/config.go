package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jwebster45206/murder-valley/pkg/puzzle"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level

	// RedisURL selects the Redis session store and event broadcaster.
	// Empty keeps sessions in memory and disables events.
	RedisURL      string
	SessionTTL    time.Duration
	PuzzleFile    string // empty uses the built-in puzzle
	Thresholds    puzzle.Thresholds
	EventsEnabled bool
}

// Load reads configuration from the environment. Malformed numbers and
// durations are reported rather than silently defaulted.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    parseLogLevel(getEnv("LOG_LEVEL", "info")),
		RedisURL:    getEnv("REDIS_URL", ""),
		PuzzleFile:  getEnv("PUZZLE_FILE", ""),
	}

	ttl, err := time.ParseDuration(getEnv("SESSION_TTL", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_TTL: %w", err)
	}
	cfg.SessionTTL = ttl

	warningMax, err := strconv.Atoi(getEnv("WARNING_MAX_MISMATCHES", strconv.Itoa(puzzle.DefaultWarningMax)))
	if err != nil {
		return nil, fmt.Errorf("invalid WARNING_MAX_MISMATCHES: %w", err)
	}
	cfg.Thresholds = puzzle.Thresholds{WarningMax: warningMax}

	events, err := strconv.ParseBool(getEnv("EVENTS_ENABLED", strconv.FormatBool(cfg.RedisURL != "")))
	if err != nil {
		return nil, fmt.Errorf("invalid EVENTS_ENABLED: %w", err)
	}
	cfg.EventsEnabled = events

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that parsed but make no sense together.
func (c *Config) Validate() error {
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %s", c.SessionTTL)
	}
	if err := c.Thresholds.Validate(); err != nil {
		return fmt.Errorf("invalid WARNING_MAX_MISMATCHES: %w", err)
	}
	if c.EventsEnabled && c.RedisURL == "" {
		return fmt.Errorf("EVENTS_ENABLED requires REDIS_URL")
	}
	return nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
