package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database/postgres"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending PostgreSQL migrations",
	Long: `Apply pending PostgreSQL schema migrations.

The server applies migrations on startup as well; this command is meant for
deploy pipelines that migrate before rolling out new instances.

Examples:
  face-attendance migrate
  face-attendance migrate --status`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)

	migrateCmd.Flags().Bool("status", false, "List applied migrations without applying anything")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}

	pool, err := postgres.NewPool(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to create PostgreSQL pool: %w", err)
	}
	defer pool.Close()

	ctx := context.Background()

	if mustGetBool(cmd, "status") {
		applied, err := pool.MigrationsApplied(ctx)
		if err != nil {
			return fmt.Errorf("listing migrations: %w", err)
		}
		if len(applied) == 0 {
			fmt.Println("No migrations applied")
			return nil
		}
		for _, version := range applied {
			fmt.Printf("  %s\n", version)
		}
		return nil
	}

	files, err := pool.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("migrating: %w", err)
	}
	if len(files) == 0 {
		fmt.Println("Database is up to date")
		return nil
	}
	fmt.Printf("Applied %d migration(s)\n", len(files))
	return nil
}
