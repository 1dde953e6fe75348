package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/OldStager01/traffic-autoscaler/internal/logger"
	"github.com/OldStager01/traffic-autoscaler/pkg/database"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			db, err := database.New(cfg.Database.ToDBConfig())
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer db.Close()

			timeout := cfg.Database.MigrationTimeout
			if timeout <= 0 {
				timeout = time.Minute
			}
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			logger.Info("Running database migrations")
			applied, err := database.NewMigrator(db).Run(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			if len(applied) == 0 {
				logger.Info("Database schema is up to date")
				return nil
			}
			logger.Infof("Applied %d migrations: %v", len(applied), applied)
			return nil
		},
	}
}
