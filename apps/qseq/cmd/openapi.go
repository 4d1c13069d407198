package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/quatton/qseq/pkg/qapi"
	"github.com/spf13/cobra"
)

var openapiCmd = &cobra.Command{
	Use:     "openapi",
	Aliases: []string{"spec"},
	Short:   "Print the OpenAPI document of the HTTP API",
	Long:    `Outputs the OpenAPI document of the qseq API without connecting to any service.`,
	Args:    cobra.NoArgs,
	RunE:    generateOpenAPI,
}

var (
	openapiOutput    string
	openapiDowngrade bool
)

func init() {
	rootCmd.AddCommand(openapiCmd)
	openapiCmd.Flags().StringVarP(&openapiOutput, "output", "o", "", "Write output to file (default stdout)")
	openapiCmd.Flags().BoolVar(&openapiDowngrade, "downgrade", true, "Downgrade OpenAPI to 3.0 when generating the document")
}

func generateOpenAPI(cmd *cobra.Command, args []string) error {
	api := qapi.NewApi(nil)

	var (
		doc []byte
		err error
	)
	if openapiDowngrade {
		doc, err = api.Api.OpenAPI().Downgrade()
	} else {
		doc, err = json.Marshal(api.Api.OpenAPI())
	}
	if err != nil {
		return fmt.Errorf("failed to generate OpenAPI document: %w", err)
	}

	if openapiOutput == "" {
		fmt.Fprintln(cmd.OutOrStdout(), string(doc))
		return nil
	}
	if err := os.WriteFile(openapiOutput, doc, 0o644); err != nil {
		return fmt.Errorf("failed to write OpenAPI document to %s: %w", openapiOutput, err)
	}
	return nil
}
