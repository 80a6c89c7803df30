package cmd

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/speedystriders/tracker/internal/config"
	"github.com/speedystriders/tracker/internal/db"
	"github.com/speedystriders/tracker/internal/logger"

	"github.com/spf13/cobra"
)

func MigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migrations",
	}

	cmd.AddCommand(migrateStepCmd("up", "Apply all pending migrations", db.RunMigrations))
	cmd.AddCommand(migrateStepCmd("down", "Roll back the latest migration", db.MigrateDown))
	cmd.AddCommand(migrateStatusCmd())
	return cmd
}

func migrateStepCmd(use, short string, step func(*sql.DB, string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()

			database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
			if err != nil {
				return err
			}
			defer db.Close(database)

			err = step(database.DB, cfg.DBDriver)
			if err != nil {
				return err
			}

			version, err := db.Version(database.DB, cfg.DBDriver)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrate %s: schema version %d\n", use, version)
			return nil
		},
	}
}

func migrateStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()

			database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
			if err != nil {
				return err
			}
			defer db.Close(database)

			version, err := db.Version(database.DB, cfg.DBDriver)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (%s)\n", version, cfg.DBDriver)
			return nil
		},
	}
}

func loadConfig() *config.Config {
	cfg := config.Load()
	logger.Init(logger.Options{
		Development: cfg.IsDevelopment(),
		Environment: cfg.AppEnv,
		Output:      os.Stderr,
	})
	return cfg
}
