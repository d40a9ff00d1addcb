package stream

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/senacormf/email2kafka-tester-cli/internal/avro"
	"github.com/senacormf/email2kafka-tester-cli/internal/config"
	"github.com/senacormf/email2kafka-tester-cli/internal/schema"
)

// DefaultGroupID is used when the configuration does not name a consumer
// group.
const DefaultGroupID = "email2kafka-tester"

// Error represents a failed consumption run: a transport error or a
// message that could not be decoded against the event schema.
type Error struct {
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func errorf(format string, args ...any) *Error {
	return &Error{Message: fmt.Sprintf(format, args...)}
}

// Consumer is the subset of the Kafka consumer API the reader needs.
// *kafka.Consumer satisfies it; tests substitute a scripted fake.
type Consumer interface {
	SubscribeTopics(topics []string, rebalanceCb kafka.RebalanceCb) error
	Poll(timeoutMs int) kafka.Event
	Close() error
}

// Message is one retained stream message: its decoded record plus the
// flattened view over the configured field paths. Key is empty when the
// message had no key or the key was not valid UTF-8.
type Message struct {
	Key       string
	Value     map[string]any
	Timestamp time.Time
	Flattened map[string]any
}

// Reader consumes a topic and decodes retained messages.
type Reader struct {
	settings config.KafkaSettings
	fields   []schema.FlattenedField
	dialect  schema.Type
	decoder  *avro.Decoder
	consumer Consumer
}

// NewReader builds a reader backed by a real Kafka consumer. The schema
// document drives payload decoding; only the avsc dialect can be decoded,
// which is checked when the first message arrives.
func NewReader(settings config.KafkaSettings, doc schema.Document, fields []schema.FlattenedField) (*Reader, error) {
	consumer, err := newConsumer(settings)
	if err != nil {
		return nil, errorf("failed to create Kafka consumer: %v", err)
	}
	return NewReaderWithConsumer(settings, doc, fields, consumer)
}

// NewReaderWithConsumer builds a reader over a caller-supplied consumer.
func NewReaderWithConsumer(settings config.KafkaSettings, doc schema.Document, fields []schema.FlattenedField, consumer Consumer) (*Reader, error) {
	r := &Reader{
		settings: settings,
		fields:   fields,
		dialect:  doc.Type,
		consumer: consumer,
	}
	if doc.Type == schema.TypeAvro {
		decoder, err := avro.NewDecoder(doc.Root)
		if err != nil {
			return nil, err
		}
		r.decoder = decoder
	}
	return r, nil
}

func newConsumer(settings config.KafkaSettings) (*kafka.Consumer, error) {
	groupID := settings.GroupID
	if groupID == "" {
		groupID = DefaultGroupID
	}
	cm := kafka.ConfigMap{
		"bootstrap.servers":    strings.Join(settings.BootstrapServers, ","),
		"group.id":             groupID,
		"enable.auto.commit":   false,
		"auto.offset.reset":    settings.AutoOffsetReset,
		"enable.partition.eof": true,
	}
	for key, value := range settings.Security {
		cm[key] = value
	}
	return kafka.NewConsumer(&cm)
}

// ReadFrom polls the topic until start+timeout and returns every message
// with a broker timestamp at or after start, decoded and flattened.
//
// Empty polls, partition-EOF signals, and messages from before the window
// keep the loop running. Transport errors and decode failures end the run;
// the consumer is closed either way.
func (r *Reader) ReadFrom(ctx context.Context, start time.Time) ([]Message, error) {
	if err := r.consumer.SubscribeTopics([]string{r.settings.Topic}, nil); err != nil {
		return nil, errorf("failed to subscribe to topic %s: %v", r.settings.Topic, err)
	}
	defer r.consumer.Close()

	deadline := start.Add(r.settings.Timeout)
	pollMs := int(r.settings.PollInterval / time.Millisecond)

	var messages []Message
	for time.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return nil, errorf("consumption canceled: %v", err)
		}

		event := r.consumer.Poll(pollMs)
		if event == nil {
			continue
		}

		switch ev := event.(type) {
		case kafka.PartitionEOF:
			continue
		case kafka.Error:
			if ev.Code() == kafka.ErrPartitionEOF {
				continue
			}
			return nil, errorf("Kafka error: %v", ev)
		case *kafka.Message:
			if ev.TimestampType == kafka.TimestampNotAvailable {
				continue
			}
			if ev.Timestamp.Before(start) {
				continue
			}
			message, err := r.decodeMessage(ev)
			if err != nil {
				return nil, err
			}
			messages = append(messages, message)
		}
	}
	return messages, nil
}

func (r *Reader) decodeMessage(raw *kafka.Message) (Message, error) {
	if raw.Value == nil {
		return Message{}, errorf("received empty message payload")
	}

	if r.dialect != schema.TypeAvro {
		return Message{}, errorf("Kafka decoding for %s is not supported in run mode; use an avsc schema in the config", r.dialect)
	}

	decoded, err := r.decoder.Decode(raw.Value)
	if err != nil {
		return Message{}, err
	}
	flattened, err := r.flatten(decoded)
	if err != nil {
		return Message{}, err
	}

	return Message{
		Key:       decodeKey(raw.Key),
		Value:     decoded,
		Timestamp: raw.Timestamp,
		Flattened: flattened,
	}, nil
}

// flatten projects a decoded record onto the configured field paths. A
// path whose intermediate segments do not resolve to nested maps is a
// decode error for the whole message.
func (r *Reader) flatten(payload map[string]any) (map[string]any, error) {
	flattened := make(map[string]any, len(r.fields))
	for _, field := range r.fields {
		var value any = payload
		for _, part := range strings.Split(field.Path, ".") {
			m, ok := value.(map[string]any)
			if !ok {
				return nil, errorf("missing schema field %s", field.Path)
			}
			value = m[part]
		}
		flattened[field.Path] = value
	}
	return flattened, nil
}

func decodeKey(key []byte) string {
	if key == nil || !utf8.Valid(key) {
		return ""
	}
	return string(key)
}
