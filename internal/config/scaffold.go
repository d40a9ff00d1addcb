package config

import (
	"os"
	"path/filepath"
)

// DefaultConfigFilename is the scaffold destination when none is given.
const DefaultConfigFilename = "config.yaml"

const scaffoldTemplate = `# Test configuration template for email2kafka-tester.
# Replace every <REQUIRED> placeholder before running generate-template or run.
# Replace <OPTIONAL> placeholders only when your setup needs them.

schema:
  # Choose exactly one event schema type (avsc or json_schema).
  avsc:
    # Provide either inline event schema JSON text or an event schema path.
    inline: "<REQUIRED>"
    # path: "<OPTIONAL>"
  # json_schema:
  #   inline: "<OPTIONAL>"
  #   path: "<OPTIONAL>"

matching:
  # matching.from_field and matching.subject_field must be flattened event schema paths.
  from_field: "<REQUIRED>"
  subject_field: "<REQUIRED>"

smtp:
  host: "<REQUIRED>"
  port: "<REQUIRED>"
  username: "<OPTIONAL>"
  password: "<OPTIONAL>"
  use_ssl: "<OPTIONAL>"
  use_starttls: "<OPTIONAL>"
  timeout_seconds: "<OPTIONAL>"
  parallelism: "<OPTIONAL>"

mail:
  to_address: "<REQUIRED>"
  cc:
    - "<OPTIONAL>"
  bcc:
    - "<OPTIONAL>"

kafka:
  bootstrap_servers:
    - "<REQUIRED>"
  topic: "<REQUIRED>"
  group_id: "<OPTIONAL>"
  security:
    sasl.username: "<OPTIONAL>"
    sasl.password: "<OPTIONAL>"
    security.protocol: "<OPTIONAL>"
    sasl.mechanisms: "<OPTIONAL>"
  timeout_seconds: "<OPTIONAL>"
  poll_interval_ms: "<OPTIONAL>"
  auto_offset_reset: "<OPTIONAL>"
`

// PlaceholderConfiguration returns the YAML configuration template with
// placeholders and inline guidance.
func PlaceholderConfiguration() string {
	return scaffoldTemplate
}

// WritePlaceholderConfiguration writes the configuration template to
// outputPath and returns the absolute destination. An existing file is
// never overwritten.
func WritePlaceholderConfiguration(outputPath string) (string, error) {
	resolved, err := filepath.Abs(outputPath)
	if err != nil {
		return "", errorf("cannot resolve output path %s: %v", outputPath, err)
	}
	if _, err := os.Stat(resolved); err == nil {
		return "", errorf("test configuration file already exists: %s", resolved)
	}
	if err := os.WriteFile(resolved, []byte(scaffoldTemplate), 0o644); err != nil {
		return "", errorf("failed to write configuration template: %v", err)
	}
	return resolved, nil
}
