package main

import (
	"fmt"
	"log/slog"
	"os"

	"z7shop/internal/config"
	"z7shop/internal/database"
	"z7shop/internal/logger"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "z7shop",
		Short:         "Z7 Neck Brackets storefront API",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newCreateAdminCmd(),
		newConsumeEventsCmd(),
	)
	return root
}

// bootstrap loads configuration, installs the default logger and opens the database.
func bootstrap() (*config.Config, *slog.Logger, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}
	log := logger.SetupDefault(os.Stdout, cfg.IsProduction())

	db, err := database.Open(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, err
	}
	// SQLite has no migration files; keep its schema in step with the models.
	if cfg.DBDriver == "sqlite" {
		if err := database.AutoMigrate(db); err != nil {
			return nil, nil, nil, err
		}
	}
	return cfg, log, db, nil
}
