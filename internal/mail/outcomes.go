package mail

import (
	"fmt"
	"time"
)

// SendStatus is the outcome of one send attempt.
type SendStatus string

const (
	StatusSent    SendStatus = "sent"
	StatusFailed  SendStatus = "failed"
	StatusSkipped SendStatus = "skipped"
)

// SendResult is the per-test-case outcome of dispatch. SentAt is zero
// unless the status is sent; ErrorMessage is empty unless it is failed.
type SendResult struct {
	TestID       string
	Status       SendStatus
	SentAt       time.Time
	ErrorMessage string
}

func sentResult(testID string) SendResult {
	return SendResult{TestID: testID, Status: StatusSent, SentAt: time.Now().UTC()}
}

func failedResult(testID string, err error) SendResult {
	return SendResult{TestID: testID, Status: StatusFailed, ErrorMessage: err.Error()}
}

func skippedResult(testID string) SendResult {
	return SendResult{TestID: testID, Status: StatusSkipped}
}

// CompositionError represents a message that could not be built, most
// often because of an attachment problem.
type CompositionError struct {
	Message string
}

func (e *CompositionError) Error() string {
	return e.Message
}

func compositionErrorf(format string, args ...any) *CompositionError {
	return &CompositionError{Message: fmt.Sprintf(format, args...)}
}
