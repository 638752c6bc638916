package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/andygrunwald/oil-price-api/internal/auth"
	"github.com/andygrunwald/oil-price-api/internal/http"
	"github.com/andygrunwald/oil-price-api/internal/service"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API server",
		Long:  "Starts the oil price API. Pending database migrations are applied first unless disabled.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger()

			logger.Info().
				Str("version", Version).
				Str("commit", Commit).
				Str("buildDate", BuildDate).
				Str("httpAddr", cfg.HTTPAddr).
				Dur("tokenTTL", cfg.Token.TTL).
				Bool("migrateOnStart", cfg.MigrateOnStart).
				Msg("starting oil price API")

			// Connect to database
			db, err := openDatabase(logger)
			if err != nil {
				return err
			}
			defer db.Close()

			if cfg.MigrateOnStart {
				if err := db.RunMigrations(); err != nil {
					return fmt.Errorf("migrating database: %w", err)
				}
			}

			// The signing key lives only as long as the process unless fixed
			// by configuration.
			key := []byte(cfg.Token.Secret)
			if len(key) == 0 {
				key, err = auth.GenerateKey()
				if err != nil {
					return err
				}
				logger.Info().Msg("generated token signing key, tokens are invalidated on restart")
			}
			tokens := auth.NewTokenService(key, cfg.Token.TTL)

			store := service.NewStore(db)
			credentials := service.NewCredentials(store, auth.NewHasher(auth.DefaultParams()), tokens, logger)
			catalog := service.NewCatalog(store, logger)

			gin.SetMode(cfg.GinMode)

			// Create HTTP server
			httpServer := http.NewServer(http.Options{
				Addr:               cfg.HTTPAddr,
				Version:            Version,
				HideInternalErrors: cfg.HideInternalErrors,
				Credentials:        credentials,
				Catalog:            catalog,
				Tokens:             tokens,
				DB:                 db,
			}, logger)

			// Setup signal handling
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			// Start HTTP server in goroutine
			go func() {
				if err := httpServer.Start(); err != nil {
					logger.Error().Err(err).Msg("HTTP server error")
					cancel()
				}
			}()

			// Wait for signal
			select {
			case sig := <-sigCh:
				logger.Info().Str("signal", sig.String()).Msg("received signal, shutting down")
			case <-ctx.Done():
			}

			// Graceful shutdown
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer shutdownCancel()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("HTTP server shutdown error")
			}

			logger.Info().Msg("shutdown complete")
			return nil
		},
	}

	cmd.Flags().StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP server address")
	cmd.Flags().StringVar(&cfg.GinMode, "gin-mode", cfg.GinMode, "Gin mode (release, debug, test)")
	cmd.Flags().DurationVar(&cfg.Token.TTL, "token-ttl", cfg.Token.TTL, "Lifetime of issued bearer tokens")
	cmd.Flags().BoolVar(&cfg.MigrateOnStart, "migrate", cfg.MigrateOnStart, "Apply pending database migrations on start")
	cmd.Flags().BoolVar(&cfg.HideInternalErrors, "hide-internal-errors", cfg.HideInternalErrors, "Omit database error details from 5xx responses")

	return cmd
}
