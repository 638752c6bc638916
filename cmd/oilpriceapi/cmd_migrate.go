package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
		Long:  "Applies or rolls back the database migrations embedded in the binary.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger()

			db, err := openDatabase(logger)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.RunMigrations(); err != nil {
				return fmt.Errorf("migrating database: %w", err)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back all migrations, dropping every table",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger()

			db, err := openDatabase(logger)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.MigrateDown(); err != nil {
				return fmt.Errorf("rolling back database: %w", err)
			}

			logger.Info().Msg("rolled back all migrations")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger()

			db, err := openDatabase(logger)
			if err != nil {
				return err
			}
			defer db.Close()

			status, err := db.MigrationVersion()
			if err != nil {
				return err
			}

			if !status.Applied {
				fmt.Println("no migrations applied")
				return nil
			}
			fmt.Printf("version: %d (dirty: %t)\n", status.Version, status.Dirty)
			return nil
		},
	})

	return cmd
}
