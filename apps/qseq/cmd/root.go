package cmd

import (
	"context"
	"errors"
	"os"

	"github.com/quatton/qseq/pkg/config"
	"github.com/spf13/cobra"
)

type contextKey string

const configContextKey contextKey = "qseqconfig"

var (
	cfgFile string
	envFile string
	rootCmd = &cobra.Command{
		Use:   "qseq",
		Short: "Post-process PacBio Revio SMRT cells",
		Long: `qseq validates SMRT cells transferred from a Revio instrument, parses
their reports into metrics, stores the metrics in the status database and
registers the cell's files in the housekeeper. Each cell is processed once;
a completed cell carries a post_processing_completed marker.

Pipeline settings come from qseq.yaml, QSEQ_* variables and flags.
Connections come from DB_*, S3_* and VALKEY_* variables or a .env file.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}

			ctx := context.WithValue(cmd.Context(), configContextKey, cfg)
			cmd.SetContext(ctx)
			return nil
		},
	}
)

// GetConfig retrieves the Config from the command context
func GetConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, ok := cmd.Context().Value(configContextKey).(*config.Config)
	if !ok {
		return nil, errors.New("no config in context")
	}
	return cfg, nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML). Default: qseq.yaml or qseq.yml in the working directory")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file with connection settings (default .env)")
	rootCmd.PersistentFlags().String("sequencing-dir", "", "root directory of the instrument's run directories")
	rootCmd.PersistentFlags().String("log-level", "", "debug, info, warn or error")
}
