package main

import (
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/ghuser/lostfound/migrations"
	"github.com/ghuser/lostfound/pkg/config"
	"github.com/ghuser/lostfound/pkg/database"
	"github.com/ghuser/lostfound/pkg/logger"
	"github.com/ghuser/lostfound/pkg/migrator"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "migrate", Short: "Database schema migrations"}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := database.Open(cmd.Context(), cfg, logger.New(cfg))
			if err != nil {
				return err
			}
			defer db.Close() //nolint:errcheck

			n, err := migrator.RunMigrations(cmd.Context(), db.DB(), db.Driver(), migrationFiles(db.Driver()))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s) on %s\n", n, db.Driver())
			return nil
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := database.Open(cmd.Context(), cfg, logger.New(cfg))
			if err != nil {
				return err
			}
			defer db.Close() //nolint:errcheck

			v, err := migrator.Version(cmd.Context(), db.DB(), db.Driver(), migrationFiles(db.Driver()))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s schema version %d\n", db.Driver(), v)
			return nil
		},
	}

	cmd.AddCommand(up, status)
	return cmd
}

func migrationFiles(driver string) fs.FS {
	if driver == config.DriverSQLite {
		return migrations.SQLite()
	}
	return migrations.Postgres()
}
