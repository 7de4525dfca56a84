// Package config loads service configuration from environment variables,
// with an optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION STRUCTURE
// ══════════════════════════════════════════════════════════════════════════════

// Config holds all service configuration.
type Config struct {
	App      AppConfig
	HTTP     HTTPConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Progress ProgressConfig
}

// AppConfig holds application-level settings.
type AppConfig struct {
	// Env is the deployment environment: development, staging, production.
	Env string

	// LogLevel is one of debug, info, warn, error.
	LogLevel string
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RequestTimeout time.Duration

	// ServiceTokens are accepted on regular API routes. Empty disables
	// authentication; allowed only outside production.
	ServiceTokens []string

	// AdminTokens are accepted on the admin reset route.
	AdminTokens []string
}

// DatabaseConfig holds PostgreSQL settings.
type DatabaseConfig struct {
	// Disabled switches the service to the in-memory store. Intended for
	// local development and tests.
	Disabled bool

	URL            string
	MaxConns       int32
	MinConns       int32
	ConnectTimeout time.Duration
	QueryTimeout   time.Duration
}

// RedisConfig holds Redis cache settings.
type RedisConfig struct {
	// Disabled runs the service without the snapshot cache.
	Disabled bool

	URL      string
	Addr     string
	Password string
	DB       int
}

// ProgressConfig holds gamification-engine settings.
type ProgressConfig struct {
	// CacheTTL bounds staleness of cached snapshots.
	CacheTTL time.Duration
}

// ══════════════════════════════════════════════════════════════════════════════
// LOADING
// ══════════════════════════════════════════════════════════════════════════════

// Load reads configuration from the environment. A .env file in the
// working directory is loaded first if present; real environment
// variables win over it.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		App: AppConfig{
			Env:      env("APP_ENV", "development"),
			LogLevel: env("LOG_LEVEL", "info"),
		},
		HTTP: HTTPConfig{
			Host:           env("HTTP_HOST", "0.0.0.0"),
			Port:           envInt("HTTP_PORT", 8080),
			ReadTimeout:    envDuration("HTTP_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   envDuration("HTTP_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:    envDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
			RequestTimeout: envDuration("HTTP_REQUEST_TIMEOUT", 10*time.Second),
			ServiceTokens:  envList("SERVICE_TOKENS"),
			AdminTokens:    envList("ADMIN_TOKENS"),
		},
		Database: DatabaseConfig{
			Disabled:       envBool("DATABASE_DISABLED", false),
			URL:            env("DATABASE_URL", ""),
			MaxConns:       int32(envInt("DATABASE_MAX_CONNS", 10)),
			MinConns:       int32(envInt("DATABASE_MIN_CONNS", 2)),
			ConnectTimeout: envDuration("DATABASE_CONNECT_TIMEOUT", 10*time.Second),
			QueryTimeout:   envDuration("DATABASE_QUERY_TIMEOUT", 5*time.Second),
		},
		Redis: RedisConfig{
			Disabled: envBool("REDIS_DISABLED", false),
			URL:      env("REDIS_URL", ""),
			Addr:     env("REDIS_ADDR", "localhost:6379"),
			Password: env("REDIS_PASSWORD", ""),
			DB:       envInt("REDIS_DB", 0),
		},
		Progress: ProgressConfig{
			CacheTTL: envDuration("PROGRESS_CACHE_TTL", 5*time.Minute),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("config: invalid HTTP_PORT %d", c.HTTP.Port)
	}
	if !c.Database.Disabled && c.Database.URL == "" {
		return fmt.Errorf("config: DATABASE_URL is required unless DATABASE_DISABLED=true")
	}
	if c.IsProduction() {
		if len(c.HTTP.ServiceTokens) == 0 {
			return fmt.Errorf("config: SERVICE_TOKENS is required in production")
		}
		if len(c.HTTP.AdminTokens) == 0 {
			return fmt.Errorf("config: ADMIN_TOKENS is required in production")
		}
		if c.Database.Disabled {
			return fmt.Errorf("config: in-memory store is not allowed in production")
		}
	}
	return nil
}

// IsProduction reports whether the service runs in production.
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// ══════════════════════════════════════════════════════════════════════════════
// ENV HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func env(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// envList parses a comma-separated list, dropping empty entries.
func envList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
