package template

import "fmt"

// TestCase is the normalized representation of one workbook row.
//
// ExpectedValues maps flattened schema paths to raw cell text; the
// expectation-rule language interprets them at validation time.
type TestCase struct {
	RowNumber      int
	ID             string
	Tags           []string
	Enabled        bool
	Notes          string
	From           string
	Subject        string
	Body           string
	Attachment     string
	ExpectedValues map[string]any
}

// ValidationError represents a workbook that cannot be used for a run.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validationErrorf(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}
