package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/andygrunwald/oil-price-api/internal/auth"
	"github.com/andygrunwald/oil-price-api/internal/service"
)

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage API clients",
	}

	var clientID, clientSecret string

	create := &cobra.Command{
		Use:   "create",
		Short: "Register an API client",
		Long:  "Registers an API client directly in the database, e.g. to provision the scraper.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger()

			db, err := openDatabase(logger)
			if err != nil {
				return err
			}
			defer db.Close()

			// Registration does not issue tokens, any key will do.
			key, err := auth.GenerateKey()
			if err != nil {
				return err
			}

			credentials := service.NewCredentials(
				service.NewStore(db),
				auth.NewHasher(auth.DefaultParams()),
				auth.NewTokenService(key, cfg.Token.TTL),
				logger,
			)

			if err := credentials.Register(cmd.Context(), clientID, clientSecret); err != nil {
				return fmt.Errorf("registering client %q: %w", clientID, err)
			}
			return nil
		},
	}

	create.Flags().StringVar(&clientID, "client-id", "", "Client id (required)")
	create.Flags().StringVar(&clientSecret, "client-secret", "", "Client secret (required)")
	_ = create.MarkFlagRequired("client-id")
	_ = create.MarkFlagRequired("client-secret")

	cmd.AddCommand(create)
	return cmd
}
