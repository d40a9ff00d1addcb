package report

import (
	"fmt"
	"time"
)

// MatchStatus is the rendered status of a test case in the Match column.
type MatchStatus string

const (
	StatusOK         MatchStatus = "OK"
	StatusSendFailed MatchStatus = "SEND_FAILED"
	StatusSkipped    MatchStatus = "SKIPPED"
	StatusConflict   MatchStatus = "CONFLICT"
	StatusNotFound   MatchStatus = "NOT_FOUND"
)

// RunMetadata is rendered into the RunInfo sheet.
type RunMetadata struct {
	RunStart   time.Time
	InputPath  string
	OutputPath string
	KafkaTopic string
	Timeout    time.Duration
	SentOK     int
}

// Error represents a results workbook that could not be written.
type Error struct {
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func errorf(format string, args ...any) *Error {
	return &Error{Message: fmt.Sprintf(format, args...)}
}
