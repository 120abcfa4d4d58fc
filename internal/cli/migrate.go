package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/information-sharing-networks/saturn-demo/internal/config"
	"github.com/information-sharing-networks/saturn-demo/internal/database"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database migrations",
	Long: `Apply the embedded schema migrations to DATABASE_URL.

The server does this at startup unless MIGRATE_ON_START=false.`,
	RunE: runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	if cfg.DatabaseURL == "" || cfg.DatabaseURL == config.MemoryDatabaseURL {
		return errors.New("DATABASE_URL must point to a PostgreSQL database")
	}

	pool, err := pgxpool.New(cmd.Context(), cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("unable to create connection pool: %w", err)
	}
	defer pool.Close()

	if err := database.Migrate(cmd.Context(), pool); err != nil {
		return err
	}
	v, err := database.MigrationVersion(cmd.Context(), pool)
	if err != nil {
		return err
	}
	appLogger.Info("database migrated", slog.Int64("version", v))
	return nil
}
