package config

import (
	"fmt"
	"time"

	"github.com/senacormf/email2kafka-tester-cli/internal/schema"
)

// Error represents an invalid or unreadable configuration file.
type Error struct {
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func errorf(format string, args ...any) *Error {
	return &Error{Message: fmt.Sprintf(format, args...)}
}

// SchemaSettings holds the normalized event schema definition.
//
// SourcePath is empty when the schema was given inline.
type SchemaSettings struct {
	Type       schema.Type
	Text       string
	SourcePath string
}

// MatchingSettings names the flattened field paths used to correlate
// stream records with test cases.
type MatchingSettings struct {
	FromField    string
	SubjectField string
}

// SMTPSettings is the outbound mail server connectivity configuration.
type SMTPSettings struct {
	Host        string
	Port        int
	Username    string
	Password    string
	UseSTARTTLS bool
	UseSSL      bool
	Timeout     time.Duration
	Parallelism int
}

// MailSettings is the destination mailbox configuration.
type MailSettings struct {
	ToAddress string
	CC        []string
	BCC       []string
}

// KafkaSettings is the stream consumer configuration. Security holds
// arbitrary key/value overrides passed through to the consumer verbatim.
type KafkaSettings struct {
	BootstrapServers []string
	Topic            string
	GroupID          string
	Security         map[string]any
	Timeout          time.Duration
	PollInterval     time.Duration
	AutoOffsetReset  string
}

// Settings is the fully validated configuration aggregate.
//
// Document and Fields carry the parsed and flattened event schema so
// downstream components never re-parse the schema text.
type Settings struct {
	Path     string
	Schema   SchemaSettings
	Matching MatchingSettings
	SMTP     SMTPSettings
	Mail     MailSettings
	Kafka    KafkaSettings

	Document schema.Document
	Fields   []schema.FlattenedField
}
