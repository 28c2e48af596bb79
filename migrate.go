package main

import (
	"fmt"
	"log/slog"

	"z7shop/internal/config"
	"z7shop/internal/database"
	"z7shop/internal/logger"

	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	var down bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply (or roll back one) database migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			log := logger.SetupDefault(cmd.OutOrStdout(), cfg.IsProduction())

			if cfg.DBDriver == "sqlite" {
				if down {
					return fmt.Errorf("rollback is not supported for sqlite")
				}
				db, err := database.Open(cfg.DBDriver, cfg.DatabaseURL)
				if err != nil {
					return err
				}
				if err := database.AutoMigrate(db); err != nil {
					return err
				}
				log.Info("sqlite schema migrated")
				return nil
			}

			if down {
				if err := database.RollbackMigration(cfg.DatabaseURL); err != nil {
					return err
				}
				log.Info("rolled back one migration")
				return nil
			}
			if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
				return err
			}
			log.Info("migrations applied", slog.String("driver", cfg.DBDriver))
			return nil
		},
	}
	cmd.Flags().BoolVar(&down, "down", false, "roll back the most recent migration")
	return cmd
}
