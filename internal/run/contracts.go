package run

import (
	"fmt"

	"github.com/senacormf/email2kafka-tester-cli/internal/mail"
	"github.com/senacormf/email2kafka-tester-cli/internal/matching"
	"github.com/senacormf/email2kafka-tester-cli/internal/template"
)

// Request is the input contract for executing one run.
type Request struct {
	ConfigPath string
	InputPath  string
	OutputDir  string
	DryRun     bool
}

// Outcome is the output contract of one completed run. It carries
// everything the CLI needs to render the summary.
type Outcome struct {
	OutputPath string
	SentOK     int
	DryRun     bool
	Cases      []template.TestCase
	Result     matching.Result
	SendStatus map[string]mail.SendStatus
}

// ExecutionError represents a run that could not be completed.
type ExecutionError struct {
	Message string
}

func (e *ExecutionError) Error() string {
	return e.Message
}

func executionErrorf(format string, args ...any) *ExecutionError {
	return &ExecutionError{Message: fmt.Sprintf(format, args...)}
}
