package main

import (
	"fmt"

	"group-chat/internal/config"
	"group-chat/internal/db"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

func newMigrateCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := openDatabase(cfg)
			if err != nil {
				return err
			}
			defer database.Close()

			if err := database.AutoMigrate(cmd.Context()); err != nil {
				return err
			}
			log.Info("✅ Database Schema Initialized", "driver", cfg.DBDriver)
			return nil
		},
	}
}

func openDatabase(cfg *config.Config) (*db.Database, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("DB_DSN is not set")
	}
	database, err := db.NewDatabase(cfg.DBDriver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", cfg.DBDriver, err)
	}
	log.Info("✅ Connected to database", "driver", cfg.DBDriver)
	return database, nil
}
