package main

import (
	"github.com/LavaJover/shvark-affiliate-ledger/internal/infrastructure/migrate"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/infrastructure/postgres"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(func(db *gorm.DB, path string, log *zap.Logger) error {
				return migrate.RunMigrations(db, path, log)
			})
		},
	})

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back the last migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(func(db *gorm.DB, path string, log *zap.Logger) error {
				return migrate.RollbackMigrations(db, path, steps, log)
			})
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	cmd.AddCommand(down)

	return cmd
}

func withDB(fn func(db *gorm.DB, migrationsPath string, log *zap.Logger) error) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	db, err := postgres.InitDB(cfg)
	if err != nil {
		return err
	}
	defer postgres.Close(db) //nolint:errcheck

	return fn(db, cfg.LedgerDB.MigrationsPath, log)
}
