package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Shivanand-hulikatti/runclub/internal/database"
)

var migrateDownSteps int

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply Postgres schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Database.Driver != "postgres" {
			return fmt.Errorf("migrate applies to the postgres driver; sqlite applies its schema on open")
		}
		if migrateDownSteps > 0 {
			return database.MigrateDown(cfg.Database, migrateDownSteps)
		}
		return database.Migrate(cfg.Database)
	},
}

func init() {
	migrateCmd.Flags().IntVar(&migrateDownSteps, "down", 0, "roll back this many migrations instead of migrating up")
}
