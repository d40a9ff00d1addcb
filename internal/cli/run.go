package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/senacormf/email2kafka-tester-cli/internal/report"
	"github.com/senacormf/email2kafka-tester-cli/internal/run"
)

// runExecutor abstracts run.Runner for testing.
type runExecutor interface {
	Execute(ctx context.Context, req run.Request) (run.Outcome, error)
}

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	ConfigPath string
	InputPath  string
	OutputDir  string
	DryRun     bool

	// Executor allows overriding the run executor (for testing).
	// If nil, defaults to run.NewRunner().
	Executor runExecutor
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	cmd, _ := newRunCommand(rootOpts)
	return cmd
}

func newRunCommand(rootOpts *RootOptions) (*cobra.Command, *RunOptions) {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute the tests defined in a filled template workbook",
		Long: `Send the enabled test mails over SMTP while consuming the configured
Kafka topic, match the observed events against the test cases, and write a
results workbook next to the input (or into --output-dir).

With --dry-run neither SMTP nor Kafka is touched; a skipped-results workbook
is written instead.

Example:
  email2kafka-tester run --config config.yaml --input cases.xlsx
  email2kafka-tester run --config config.yaml --input cases.xlsx --dry-run`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidation(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "path to the YAML test configuration file")
	cmd.Flags().StringVar(&opts.InputPath, "input", "", "path to the filled test template workbook")
	cmd.Flags().StringVar(&opts.OutputDir, "output-dir", "", "optional directory for storing result workbooks")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "skip SMTP/Kafka interactions and write a skipped-results workbook")
	_ = cmd.MarkFlagRequired("config")
	_ = cmd.MarkFlagRequired("input")

	return cmd, opts
}

func runValidation(opts *RunOptions, cmd *cobra.Command) error {
	executor := opts.Executor
	if executor == nil {
		executor = run.NewRunner()
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	outcome, err := executor.Execute(ctx, run.Request{
		ConfigPath: opts.ConfigPath,
		InputPath:  opts.InputPath,
		OutputDir:  opts.OutputDir,
		DryRun:     opts.DryRun,
	})
	if err != nil {
		var execErr *run.ExecutionError
		if errors.As(err, &execErr) {
			return WrapExitError(ExitFailure, "run failed", err)
		}
		return WrapExitError(ExitCommandError, "run failed", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), report.RenderSummary(outcome.Cases, outcome.Result, outcome.SendStatus))
	fmt.Fprintln(cmd.OutOrStdout(), outcome.OutputPath)
	return nil
}
