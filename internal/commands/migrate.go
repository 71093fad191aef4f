package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"spendwise/internal/cli"
	"spendwise/internal/config"
	"spendwise/internal/log"
	"spendwise/internal/storage"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations for the configured backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := cli.Bootstrap(log.ComponentStorage, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			var (
				dialect storage.Dialect
				dsn     string
			)
			switch cfg.DataBackend {
			case config.BackendSQLite:
				dialect, dsn = storage.DialectSQLite, cfg.SQLiteDBPath
			case config.BackendPostgres:
				dialect, dsn = storage.DialectPostgres, cfg.DatabaseURL
			default:
				return fmt.Errorf("backend %q has no schema to migrate", cfg.DataBackend)
			}

			if err := storage.RunMigrations(dialect, dsn); err != nil {
				return err
			}
			version, dirty, err := storage.MigrationVersion(dialect, dsn)
			if err != nil {
				return err
			}
			logger.Info("Migrations applied", log.FieldBackend, string(dialect), "version", version)
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s schema at version %d (dirty=%t)\n", dialect, version, dirty)
			return err
		},
	}
}
