package cli

import (
	"github.com/Ramsey-B/fern/config"
	"github.com/spf13/cobra"
)

var (
	migrateVersion int
	migrateForce   int
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Long: `Apply the SQL migrations under DB_MIGRATION_FOLDER_PATH.

Without --version the latest migration is applied. --force marks a dirty
database as clean at the given version before migrating.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("version") {
			cfg.DatabaseMigrationVersion = migrateVersion
		}
		if cmd.Flags().Changed("force") {
			cfg.DatabaseMigrationForce = migrateForce
		}

		logger, flush, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer flush()

		a, err := newApp(cmd.Context(), cfg, logger, appOptions{migrate: true})
		if err != nil {
			return err
		}
		return a.close(cmd.Context())
	},
}

func init() {
	migrateCmd.Flags().IntVar(&migrateVersion, "version", 0, "target migration version (0 = latest)")
	migrateCmd.Flags().IntVar(&migrateForce, "force", 0, "force the schema version before migrating")
}
