// Package main provides the entry point for the oil price API CLI.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/andygrunwald/oil-price-api/internal/config"
	"github.com/andygrunwald/oil-price-api/internal/database"
)

var (
	// Version is set at build time.
	Version = "dev"
	// Commit is set at build time.
	Commit = "none"
	// BuildDate is set at build time.
	BuildDate = "unknown"
)

var cfg *config.Config

func main() {
	// A missing .env file is fine.
	_ = godotenv.Load()

	cfg = config.DefaultConfig()
	cfg.LoadFromEnv()

	rootCmd := &cobra.Command{
		Use:   "oilpriceapi",
		Short: "Oil Price API - Providers, delivery zones and heating oil prices over REST",
		Long: `Oil Price API is a JWT authenticated REST service that manages heating oil
price providers, their delivery zones, recorded prices and scraping runs,
stored in a PostgreSQL database.

Features:
  - Client registration with Argon2id hashed secrets
  - Bearer tokens for all mutating routes
  - Transactional zone assignment and price recording
  - Embedded database migrations
  - Prometheus metrics endpoint
  - Status endpoint for operational visibility`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfg.PostgresDSN, "postgres-dsn", cfg.PostgresDSN, "PostgreSQL connection string")
	rootCmd.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format (json, console)")
	rootCmd.PersistentFlags().IntVar(&cfg.Database.MaxOpenConns, "db-max-open-conns", cfg.Database.MaxOpenConns, "Maximum number of open database connections")
	rootCmd.PersistentFlags().IntVar(&cfg.Database.MaxIdleConns, "db-max-idle-conns", cfg.Database.MaxIdleConns, "Maximum number of idle database connections")
	rootCmd.PersistentFlags().DurationVar(&cfg.Database.ConnMaxLifetime, "db-conn-max-lifetime", cfg.Database.ConnMaxLifetime, "Maximum lifetime of a database connection")

	// Add subcommands
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setupLogger() zerolog.Logger {
	var logger zerolog.Logger

	// Set log level
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Set log format
	if cfg.LogFormat == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Logger()
	}

	return logger
}

// openDatabase validates the configuration and connects to PostgreSQL.
func openDatabase(logger zerolog.Logger) (*database.DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	db, err := database.New(cfg.PostgresDSN, cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	return db, nil
}
