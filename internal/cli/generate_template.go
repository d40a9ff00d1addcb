package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/senacormf/email2kafka-tester-cli/internal/config"
	"github.com/senacormf/email2kafka-tester-cli/internal/template"
)

// GenerateTemplateOptions holds flags for the generate-template command.
type GenerateTemplateOptions struct {
	*RootOptions
	ConfigPath string
	OutputPath string
}

// NewGenerateTemplateCommand creates the generate-template command.
func NewGenerateTemplateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GenerateTemplateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "generate-template",
		Short: "Generate a test template workbook from the configured schema",
		Long: `Generate an Excel test template workbook whose Expected columns are
derived from the event schema referenced by the configuration.

Example:
  email2kafka-tester generate-template --config config.yaml --output cases.xlsx`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerateTemplate(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "path to the YAML test configuration file")
	cmd.Flags().StringVar(&opts.OutputPath, "output", "", "path to the test template workbook to write")
	_ = cmd.MarkFlagRequired("config")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func runGenerateTemplate(opts *GenerateTemplateOptions, cmd *cobra.Command) error {
	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load configuration", err)
	}
	if err := template.GenerateWorkbook(settings.Schema.Type, settings.Schema.Text, settings.Fields, opts.OutputPath); err != nil {
		return WrapExitError(ExitCommandError, "failed to generate template workbook", err)
	}

	resolved, err := filepath.Abs(opts.OutputPath)
	if err != nil {
		resolved = opts.OutputPath
	}
	fmt.Fprintln(cmd.OutOrStdout(), resolved)
	return nil
}
