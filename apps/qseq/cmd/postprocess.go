package cmd

import (
	"github.com/spf13/cobra"
)

var postProcessCmd = &cobra.Command{
	Use:     "post-process",
	Aliases: []string{"pp"},
	Short:   "Post-process SMRT cells",
}

var postProcessRunCmd = &cobra.Command{
	Use:   "run <run-name>",
	Short: "Post-process one SMRT cell",
	Long: `Post-process one SMRT cell, named <run>/<plate>_<well>, for example
r84202_20240522_133539/1_A01. A cell that already carries the completion
marker is skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig(cmd)
		if err != nil {
			return err
		}
		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.postProcess.PostProcess(cmd.Context(), args[0], cfg.DryRun); err != nil {
			a.logger.Error("post-processing failed", "run", args[0], "error", err)
			return err
		}
		return nil
	},
}

var postProcessAllCmd = &cobra.Command{
	Use:   "all",
	Short: "Post-process every SMRT cell that is not yet complete",
	Long: `Discover every cell under the sequencing directory and post-process
those without a completion marker. A failing cell does not stop the others;
the command fails if any cell failed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig(cmd)
		if err != nil {
			return err
		}
		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.postProcess.PostProcessAllUnprocessed(cmd.Context(), cfg.DryRun); err != nil {
			a.logger.Error("post-processing finished with failures", "error", err)
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(postProcessCmd)
	postProcessCmd.AddCommand(postProcessRunCmd)
	postProcessCmd.AddCommand(postProcessAllCmd)

	postProcessCmd.PersistentFlags().Bool("dry-run", false, "roll back database changes and skip file registration")
	postProcessAllCmd.Flags().Int("workers", 1, "number of cells processed at once")
}
