package app

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/campuslink/campuslink-server/database"
)

func newMigrateUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply pending database migrations",
		Long: `Apply all pending database migrations to bring the schema up to date.
This command will read the database connection parameters from the config file
and apply all migrations that haven't been run yet.`,
		RunE: runMigrateUp,
	}
}

func runMigrateUp(cmd *cobra.Command, _ []string) error {
	cfg, m, err := setupMigration(cmd)
	if err != nil {
		return err
	}
	defer closeMigrator(m)

	ok, err := confirm(cmd, fmt.Sprintf("Apply migrations to %s@%s:%d/%s?",
		cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database))
	if err != nil {
		return err
	}
	if !ok {
		slog.Info("Migration cancelled by user")
		return nil
	}

	slog.Info("Applying database migrations...")
	if err := database.Up(m); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	logVersion(m, "Migrations applied successfully")
	return nil
}
