// Package config loads service configuration from the environment, with
// an optional .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all service configuration.
type Config struct {
	// HTTPAddr is the listen address of the HTTP adapter. Default: ":8080".
	HTTPAddr string

	DB       DBConfig
	Sessions SessionConfig
	Redis    RedisConfig
	RabbitMQ RabbitMQConfig

	// LogMode selects the logger: "dev" or "prod".
	LogMode string

	// MaxQuestions is the budget of a session started without one.
	MaxQuestions int

	// CORSOrigins lists allowed browser origins. Empty allows all.
	CORSOrigins []string
}

// DBConfig selects the SQL backend.
type DBConfig struct {
	Driver string // "sqlite" or "postgres"
	DSN    string // empty selects the driver's default
}

// SessionConfig controls where sessions live and how long.
type SessionConfig struct {
	// Backend is "sql" or "redis".
	Backend string

	// TTL expires redis sessions. Default: 24h.
	TTL time.Duration

	// CompletedRetention is how long completed sessions are kept before a
	// sweep removes them. Default: 168h.
	CompletedRetention time.Duration

	// AbandonedTTL removes incomplete sessions idle for longer. 0 disables.
	AbandonedTTL time.Duration
}

// RedisConfig holds the redis connection used by the redis backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RabbitMQConfig holds the event publisher settings. An empty URI
// disables publishing.
type RabbitMQConfig struct {
	URI      string
	Exchange string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		HTTPAddr: ":8080",
		DB: DBConfig{
			Driver: "sqlite",
		},
		Sessions: SessionConfig{
			Backend:            "sql",
			TTL:                24 * time.Hour,
			CompletedRetention: 7 * 24 * time.Hour,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		RabbitMQ: RabbitMQConfig{
			Exchange: "quiz.events",
		},
		LogMode:      "dev",
		MaxQuestions: 10,
	}
}

// Load reads .env when present, then the environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds a Config from environment variables, falling back to
// defaults for unset values.
func FromEnv() (Config, error) {
	cfg := DefaultConfig()
	var err error

	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("DB_DRIVER"); v != "" {
		cfg.DB.Driver = v
	}
	cfg.DB.DSN = os.Getenv("DB_DSN")

	if v := os.Getenv("SESSION_BACKEND"); v != "" {
		cfg.Sessions.Backend = v
	}
	if cfg.Sessions.TTL, err = duration("SESSION_TTL", cfg.Sessions.TTL); err != nil {
		return cfg, err
	}
	if cfg.Sessions.CompletedRetention, err = duration("COMPLETED_RETENTION", cfg.Sessions.CompletedRetention); err != nil {
		return cfg, err
	}
	if cfg.Sessions.AbandonedTTL, err = duration("ABANDONED_TTL", cfg.Sessions.AbandonedTTL); err != nil {
		return cfg, err
	}

	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	cfg.Redis.Password = os.Getenv("REDIS_PASSWORD")
	if cfg.Redis.DB, err = integer("REDIS_DB", cfg.Redis.DB); err != nil {
		return cfg, err
	}

	cfg.RabbitMQ.URI = os.Getenv("RABBITMQ_URI")
	if v := os.Getenv("RABBITMQ_EXCHANGE"); v != "" {
		cfg.RabbitMQ.Exchange = v
	}

	if v := os.Getenv("LOG_MODE"); v != "" {
		cfg.LogMode = v
	}
	if cfg.MaxQuestions, err = integer("DEFAULT_MAX_QUESTIONS", cfg.MaxQuestions); err != nil {
		return cfg, err
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, o)
			}
		}
	}

	return cfg, cfg.Validate()
}

// Validate checks enumerated values and ranges.
func (c Config) Validate() error {
	switch c.DB.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown DB_DRIVER: %q", c.DB.Driver)
	}
	switch c.Sessions.Backend {
	case "sql", "redis":
	default:
		return fmt.Errorf("unknown SESSION_BACKEND: %q", c.Sessions.Backend)
	}
	switch c.LogMode {
	case "dev", "prod":
	default:
		return fmt.Errorf("unknown LOG_MODE: %q", c.LogMode)
	}
	if c.MaxQuestions < 1 {
		return fmt.Errorf("DEFAULT_MAX_QUESTIONS must be positive, got %d", c.MaxQuestions)
	}
	if c.Sessions.AbandonedTTL < 0 || c.Sessions.CompletedRetention < 0 {
		return fmt.Errorf("session retention durations must not be negative")
	}
	return nil
}

func duration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback, fmt.Errorf("%s=%q is not a valid duration: %w", key, v, err)
	}
	return d, nil
}

func integer(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback, fmt.Errorf("%s=%q is not an integer: %w", key, v, err)
	}
	return n, nil
}
