package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/senacormf/email2kafka-tester-cli/internal/config"
)

// GenerateConfigOptions holds flags for the generate-config command.
type GenerateConfigOptions struct {
	*RootOptions
	OutputPath string
}

// NewGenerateConfigCommand creates the generate-config command.
func NewGenerateConfigCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GenerateConfigOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "generate-config",
		Short: "Generate a placeholder YAML test configuration",
		Long: `Write a YAML test configuration template with guidance comments.

The template lists every section the tester understands with <REQUIRED> and
<OPTIONAL> placeholders. An existing file is never overwritten.

Example:
  email2kafka-tester generate-config
  email2kafka-tester generate-config --output ./env/staging.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			resolved, err := config.WritePlaceholderConfiguration(opts.OutputPath)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to write configuration template", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), resolved)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.OutputPath, "output", config.DefaultConfigFilename,
		"path to the YAML test configuration template to write")

	return cmd
}
