package cmd

import (
	"fmt"

	"github.com/quatton/qseq/pkg/db"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig(cmd)
		if err != nil {
			return err
		}
		logger, err := newLogger(cfg)
		if err != nil {
			return err
		}
		env, err := loadEnv()
		if err != nil {
			return err
		}

		database, err := db.New(cmd.Context(), env.DB)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer database.Close()

		logger.Info("running migrations", "database", env.DB.Database, "host", env.DB.Host)
		if err := db.Migrate(cmd.Context(), database, logger); err != nil {
			return fmt.Errorf("failed to migrate: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
