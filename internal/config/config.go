// Package config provides configuration structures and loading for the oil price API.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// MinTokenSecretLength is the shortest accepted signing secret.
const MinTokenSecretLength = 60

// Config holds all configuration for the oil price API.
type Config struct {
	// PostgreSQL connection string
	PostgresDSN string
	// Log level (debug, info, warn, error)
	LogLevel string
	// Log format (json, console)
	LogFormat string
	// HTTP server address
	HTTPAddr string
	// Gin mode (release, debug, test)
	GinMode string
	// Run database migrations before serving
	MigrateOnStart bool
	// Omit store error details from 5xx response bodies
	HideInternalErrors bool
	// Token settings
	Token TokenConfig
	// Connection pool settings
	Database DatabaseConfig
}

// TokenConfig holds configuration for issued bearer tokens.
type TokenConfig struct {
	// Lifetime of an issued token
	TTL time.Duration
	// Fixed signing secret. Empty means a random secret per process.
	Secret string
}

// DatabaseConfig holds connection pool configuration.
type DatabaseConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		PostgresDSN:    "",
		LogLevel:       "info",
		LogFormat:      "json",
		HTTPAddr:       ":8080",
		GinMode:        "release",
		MigrateOnStart: true,
		Token: TokenConfig{
			TTL: 30 * 24 * time.Hour,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
	}
}

// LoadFromEnv loads configuration from environment variables.
func (c *Config) LoadFromEnv() {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.PostgresDSN = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		c.PostgresDSN = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.LogFormat = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		c.HTTPAddr = v
	}
	if v := os.Getenv("GIN_MODE"); v != "" {
		c.GinMode = v
	}
	if v := os.Getenv("MIGRATE_ON_START"); v != "" {
		c.MigrateOnStart = strings.ToLower(v) == "true"
	}
	if v := os.Getenv("HIDE_INTERNAL_ERRORS"); v != "" {
		c.HideInternalErrors = strings.ToLower(v) == "true"
	}
	if v := os.Getenv("TOKEN_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Token.TTL = d
		}
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.Token.Secret = v
	}
	if v := os.Getenv("DB_MAX_OPEN_CONNS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			c.Database.MaxOpenConns = i
		}
	}
	if v := os.Getenv("DB_MAX_IDLE_CONNS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			c.Database.MaxIdleConns = i
		}
	}
	if v := os.Getenv("DB_CONN_MAX_LIFETIME"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Database.ConnMaxLifetime = d
		}
	}
}

// Validate reports configuration values the service cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.PostgresDSN == "" {
		errs = append(errs, errors.New("--postgres-dsn is required"))
	}
	if c.Token.TTL <= 0 {
		errs = append(errs, fmt.Errorf("token ttl must be positive, got %s", c.Token.TTL))
	}
	if c.Token.Secret != "" && len(c.Token.Secret) < MinTokenSecretLength {
		errs = append(errs, fmt.Errorf("jwt secret must be at least %d characters", MinTokenSecretLength))
	}
	if c.Database.MaxOpenConns < 1 {
		errs = append(errs, fmt.Errorf("db max open conns must be at least 1, got %d", c.Database.MaxOpenConns))
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.LogFormat))
	}
	return errors.Join(errs...)
}
