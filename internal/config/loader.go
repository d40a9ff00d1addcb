package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/senacormf/email2kafka-tester-cli/internal/schema"
)

// Defaults applied when optional keys are absent.
const (
	defaultSMTPTimeout     = 30 * time.Second
	defaultParallelism     = 4
	defaultKafkaTimeout    = 600 * time.Second
	defaultPollInterval    = 500 * time.Millisecond
	defaultAutoOffsetReset = "latest"
)

type rawConfig struct {
	Schema   map[string]rawSchemaDefinition `yaml:"schema"`
	Matching *rawMatching                   `yaml:"matching"`
	SMTP     *rawSMTP                       `yaml:"smtp"`
	Mail     *rawMail                       `yaml:"mail"`
	Kafka    *rawKafka                      `yaml:"kafka"`
}

// rawSchemaDefinition accepts either a bare string (inline schema text) or
// a mapping with inline/path keys.
type rawSchemaDefinition struct {
	Inline string
	Path   string
}

func (d *rawSchemaDefinition) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		return node.Decode(&d.Inline)
	}
	var aux struct {
		Inline string `yaml:"inline"`
		Path   string `yaml:"path"`
	}
	if err := node.Decode(&aux); err != nil {
		return err
	}
	d.Inline = aux.Inline
	d.Path = aux.Path
	return nil
}

// stringList accepts either a single string or a list of strings.
type stringList []string

func (l *stringList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		*l = stringList{s}
		return nil
	}
	var items []string
	if err := node.Decode(&items); err != nil {
		return err
	}
	*l = items
	return nil
}

type rawMatching struct {
	FromField    string `yaml:"from_field"`
	SubjectField string `yaml:"subject_field"`
}

type rawSMTP struct {
	Host           string `yaml:"host"`
	Port           *int   `yaml:"port"`
	Username       string `yaml:"username"`
	Password       string `yaml:"password"`
	UseSSL         bool   `yaml:"use_ssl"`
	UseSTARTTLS    *bool  `yaml:"use_starttls"`
	TimeoutSeconds *int   `yaml:"timeout_seconds"`
	Parallelism    *int   `yaml:"parallelism"`
}

type rawMail struct {
	ToAddress string     `yaml:"to_address"`
	CC        stringList `yaml:"cc"`
	BCC       stringList `yaml:"bcc"`
}

type rawKafka struct {
	BootstrapServers stringList     `yaml:"bootstrap_servers"`
	Topic            string         `yaml:"topic"`
	GroupID          string         `yaml:"group_id"`
	Security         map[string]any `yaml:"security"`
	TimeoutSeconds   *int           `yaml:"timeout_seconds"`
	PollIntervalMs   *int           `yaml:"poll_interval_ms"`
	AutoOffsetReset  string         `yaml:"auto_offset_reset"`
}

// Load reads, parses, and validates a configuration file. The embedded
// event schema is parsed and flattened as part of validation.
func Load(path string) (Settings, error) {
	text, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Settings{}, errorf("configuration file not found: %s", path)
		}
		return Settings{}, errorf("failed to read configuration file: %v", err)
	}

	var raw rawConfig
	if err := yaml.Unmarshal(text, &raw); err != nil {
		return Settings{}, errorf("failed to parse configuration file: %v", err)
	}

	schemaSettings, err := parseSchemaSection(raw.Schema, filepath.Dir(path))
	if err != nil {
		return Settings{}, err
	}

	doc, err := schema.ParseDocument(schemaSettings.Type, schemaSettings.Text)
	if err != nil {
		return Settings{}, &Error{Message: err.Error()}
	}
	fields, err := schema.Flatten(doc)
	if err != nil {
		return Settings{}, &Error{Message: err.Error()}
	}

	matching, err := parseMatchingSection(raw.Matching, fields)
	if err != nil {
		return Settings{}, err
	}
	smtp, err := parseSMTPSection(raw.SMTP)
	if err != nil {
		return Settings{}, err
	}
	mail, err := parseMailSection(raw.Mail)
	if err != nil {
		return Settings{}, err
	}
	kafka, err := parseKafkaSection(raw.Kafka)
	if err != nil {
		return Settings{}, err
	}

	return Settings{
		Path:     path,
		Schema:   schemaSettings,
		Matching: matching,
		SMTP:     smtp,
		Mail:     mail,
		Kafka:    kafka,
		Document: doc,
		Fields:   fields,
	}, nil
}

func parseSchemaSection(section map[string]rawSchemaDefinition, baseDir string) (SchemaSettings, error) {
	if section == nil {
		return SchemaSettings{}, errorf("configuration section %q is required", "schema")
	}

	var types []schema.Type
	for _, t := range []schema.Type{schema.TypeAvro, schema.TypeJSONSchema} {
		if def, ok := section[string(t)]; ok && (def.Inline != "" || def.Path != "") {
			types = append(types, t)
		}
	}
	if len(types) != 1 {
		return SchemaSettings{}, errorf("exactly one event schema type (avsc or json_schema) must be provided")
	}

	schemaType := types[0]
	def := section[string(schemaType)]
	if def.Inline != "" && def.Path != "" {
		return SchemaSettings{}, errorf("schema definition must not set both inline and path")
	}

	if def.Inline != "" {
		if strings.TrimSpace(def.Inline) == "" {
			return SchemaSettings{}, errorf("schema text cannot be empty")
		}
		return SchemaSettings{Type: schemaType, Text: def.Inline}, nil
	}

	schemaPath := def.Path
	if !filepath.IsAbs(schemaPath) {
		schemaPath = filepath.Join(baseDir, schemaPath)
	}
	text, err := os.ReadFile(schemaPath)
	if err != nil {
		return SchemaSettings{}, errorf("schema file not found: %s", schemaPath)
	}
	if strings.TrimSpace(string(text)) == "" {
		return SchemaSettings{}, errorf("schema text cannot be empty")
	}
	return SchemaSettings{Type: schemaType, Text: string(text), SourcePath: schemaPath}, nil
}

func parseMatchingSection(section *rawMatching, fields []schema.FlattenedField) (MatchingSettings, error) {
	if section == nil {
		return MatchingSettings{}, errorf("configuration section %q is required", "matching")
	}
	fromField, err := requireNonEmpty(section.FromField, "matching.from_field")
	if err != nil {
		return MatchingSettings{}, err
	}
	subjectField, err := requireNonEmpty(section.SubjectField, "matching.subject_field")
	if err != nil {
		return MatchingSettings{}, err
	}

	available := make(map[string]bool, len(fields))
	for _, f := range fields {
		available[f.Path] = true
	}
	for _, check := range []struct{ value, label string }{
		{fromField, "matching.from_field"},
		{subjectField, "matching.subject_field"},
	} {
		if !available[check.value] {
			return MatchingSettings{}, errorf("%s %q does not exist in schema", check.label, check.value)
		}
	}

	return MatchingSettings{FromField: fromField, SubjectField: subjectField}, nil
}

func parseSMTPSection(section *rawSMTP) (SMTPSettings, error) {
	if section == nil {
		return SMTPSettings{}, errorf("configuration section %q is required", "smtp")
	}
	host, err := requireNonEmpty(section.Host, "smtp.host")
	if err != nil {
		return SMTPSettings{}, err
	}
	port, err := requirePositive(section.Port, 0, "smtp.port")
	if err != nil {
		return SMTPSettings{}, err
	}
	timeoutSeconds, err := requirePositive(section.TimeoutSeconds, int(defaultSMTPTimeout/time.Second), "smtp.timeout_seconds")
	if err != nil {
		return SMTPSettings{}, err
	}
	parallelism, err := requirePositive(section.Parallelism, defaultParallelism, "smtp.parallelism")
	if err != nil {
		return SMTPSettings{}, err
	}

	// STARTTLS defaults to on unless implicit SSL is requested.
	useSTARTTLS := !section.UseSSL
	if section.UseSTARTTLS != nil {
		useSTARTTLS = *section.UseSTARTTLS
	}

	return SMTPSettings{
		Host:        host,
		Port:        port,
		Username:    strings.TrimSpace(section.Username),
		Password:    strings.TrimSpace(section.Password),
		UseSTARTTLS: useSTARTTLS,
		UseSSL:      section.UseSSL,
		Timeout:     time.Duration(timeoutSeconds) * time.Second,
		Parallelism: parallelism,
	}, nil
}

func parseMailSection(section *rawMail) (MailSettings, error) {
	if section == nil {
		return MailSettings{}, errorf("configuration section %q is required", "mail")
	}
	toAddress, err := requireNonEmpty(section.ToAddress, "mail.to_address")
	if err != nil {
		return MailSettings{}, err
	}
	return MailSettings{
		ToAddress: toAddress,
		CC:        trimNonEmpty(section.CC),
		BCC:       trimNonEmpty(section.BCC),
	}, nil
}

func parseKafkaSection(section *rawKafka) (KafkaSettings, error) {
	if section == nil {
		return KafkaSettings{}, errorf("configuration section %q is required", "kafka")
	}
	servers := normalizeBootstrapServers(section.BootstrapServers)
	if len(servers) == 0 {
		return KafkaSettings{}, errorf("kafka.bootstrap_servers must contain at least one server")
	}
	topic, err := requireNonEmpty(section.Topic, "kafka.topic")
	if err != nil {
		return KafkaSettings{}, err
	}
	timeoutSeconds, err := requirePositive(section.TimeoutSeconds, int(defaultKafkaTimeout/time.Second), "kafka.timeout_seconds")
	if err != nil {
		return KafkaSettings{}, err
	}
	pollIntervalMs, err := requirePositive(section.PollIntervalMs, int(defaultPollInterval/time.Millisecond), "kafka.poll_interval_ms")
	if err != nil {
		return KafkaSettings{}, err
	}

	autoOffsetReset := strings.ToLower(strings.TrimSpace(section.AutoOffsetReset))
	if autoOffsetReset == "" {
		autoOffsetReset = defaultAutoOffsetReset
	}

	security := section.Security
	if security == nil {
		security = map[string]any{}
	}

	return KafkaSettings{
		BootstrapServers: servers,
		Topic:            topic,
		GroupID:          strings.TrimSpace(section.GroupID),
		Security:         security,
		Timeout:          time.Duration(timeoutSeconds) * time.Second,
		PollInterval:     time.Duration(pollIntervalMs) * time.Millisecond,
		AutoOffsetReset:  autoOffsetReset,
	}, nil
}

// normalizeBootstrapServers flattens list entries and splits comma-joined
// strings, dropping empty fragments.
func normalizeBootstrapServers(raw stringList) []string {
	var servers []string
	for _, entry := range raw {
		for _, part := range strings.Split(entry, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				servers = append(servers, trimmed)
			}
		}
	}
	return servers
}

func trimNonEmpty(values []string) []string {
	var out []string
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func requireNonEmpty(value, label string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", errorf("%s must not be empty", label)
	}
	return trimmed, nil
}

// requirePositive resolves an optional integer against its default and
// rejects non-positive values. A zero fallback means the key is required.
func requirePositive(value *int, fallback int, label string) (int, error) {
	if value == nil {
		if fallback == 0 {
			return 0, errorf("%s is required", label)
		}
		return fallback, nil
	}
	if *value <= 0 {
		return 0, errorf("%s must be greater than zero", label)
	}
	return *value, nil
}
