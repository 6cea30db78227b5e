package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wellnessgrid/backend/internal/config"
	"github.com/wellnessgrid/backend/internal/logger"
	"github.com/wellnessgrid/backend/internal/repository/sqlstore"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the SQL store tables",
	Long: `Run the schema migration for the postgres or sqlite store. The supabase
store is migrated with the Supabase CLI instead.`,
	RunE: runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync(log)

	if cfg.Store.Driver == config.StoreSupabase {
		return fmt.Errorf("migrate is not supported for the %s store", cfg.Store.Driver)
	}

	store, err := sqlstore.Open(sqlstore.Config{
		Driver:        cfg.Store.Driver,
		DSN:           cfg.Store.DSN,
		SlowThreshold: cfg.Store.SlowThreshold,
	})
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.Store.Driver, err)
	}
	defer store.Close()

	if err := store.Migrate(cmd.Context()); err != nil {
		return err
	}

	log.Info("migration complete", logger.String("driver", cfg.Store.Driver))
	return nil
}
