package run

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	gomail "github.com/wneessen/go-mail"

	"github.com/senacormf/email2kafka-tester-cli/internal/config"
	"github.com/senacormf/email2kafka-tester-cli/internal/mail"
	"github.com/senacormf/email2kafka-tester-cli/internal/stream"
	"github.com/senacormf/email2kafka-tester-cli/internal/template"
)

const runConfig = `
schema:
  avsc:
    inline: |
      {
        "type": "record",
        "name": "MailEvent",
        "fields": [
          {"name": "from", "type": "string"},
          {"name": "subject", "type": ["null", "string"]},
          {"name": "score", "type": "double"}
        ]
      }
matching:
  from_field: from
  subject_field: subject
smtp:
  host: smtp.example.com
  port: 587
mail:
  to_address: inbox@example.com
kafka:
  bootstrap_servers:
    - broker:9092
  topic: mail-events
  timeout_seconds: 1
  poll_interval_ms: 1
`

type recordingSender struct {
	sent    []string
	failAll bool
}

func (s *recordingSender) Send(msg *gomail.Msg) error {
	if values := msg.GetGenHeader("X-Test-Id"); len(values) > 0 {
		s.sent = append(s.sent, values[0])
	}
	if s.failAll {
		return assert.AnError
	}
	return nil
}

type stubReader struct {
	messages []stream.Message
	err      error
	called   bool
}

func (r *stubReader) ReadFrom(_ context.Context, _ time.Time) ([]stream.Message, error) {
	r.called = true
	return r.messages, r.err
}

func writeRunConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(runConfig), 0o644))
	return path
}

func writeRunTemplate(t *testing.T, dir string, settings config.Settings) string {
	t.Helper()
	path := filepath.Join(dir, "cases.xlsx")
	require.NoError(t, template.GenerateWorkbook(settings.Schema.Type, settings.Schema.Text, settings.Fields, path))

	rows := [][]string{
		{"tc-1", "", "true", "", "alice@example.com", "S1", "body", "", "alice@example.com", "S1", "3,14+-0,2"},
		{"tc-2", "", "false", "", "bob@example.com", "S2", "", "", "", "", ""},
	}
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	for r, row := range rows {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+3)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(template.TestCasesSheet, cell, value))
		}
	}
	require.NoError(t, f.Save())
	return path
}

func setupRun(t *testing.T) (configPath, inputPath string) {
	t.Helper()
	dir := t.TempDir()
	configPath = writeRunConfig(t, dir)
	settings, err := config.Load(configPath)
	require.NoError(t, err)
	inputPath = writeRunTemplate(t, dir, settings)
	return configPath, inputPath
}

func observedMessage(from, subject string, score float64) stream.Message {
	return stream.Message{
		Timestamp: time.Now(),
		Flattened: map[string]any{"from": from, "subject": subject, "score": score},
	}
}

func TestExecute_LiveRun(t *testing.T) {
	configPath, inputPath := setupRun(t)
	sender := &recordingSender{}
	reader := &stubReader{messages: []stream.Message{
		observedMessage("alice@example.com", "S1", 3.3),
	}}

	runner := NewRunner(
		WithSender(sender),
		WithEventReaderFactory(func(config.Settings) (EventReader, error) { return reader, nil }),
	)
	outcome, err := runner.Execute(context.Background(), Request{
		ConfigPath: configPath,
		InputPath:  inputPath,
	})
	require.NoError(t, err)

	assert.True(t, reader.called, "consumption runs alongside dispatch")
	assert.Equal(t, []string{"tc-1"}, sender.sent, "only enabled cases are dispatched")
	assert.Equal(t, 1, outcome.SentOK)
	assert.False(t, outcome.DryRun)

	require.Len(t, outcome.Result.Matches, 1)
	assert.True(t, outcome.Result.Matches[0].Passed())
	assert.Equal(t, mail.StatusSkipped, outcome.SendStatus["tc-2"])

	assert.FileExists(t, outcome.OutputPath)
	assert.Contains(t, filepath.Base(outcome.OutputPath), "cases-results-")

	f, err := excelize.OpenFile(outcome.OutputPath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(template.TestCasesSheet)
	require.NoError(t, err)
	assert.Equal(t, "OK", rows[2][14])
	assert.Equal(t, "SKIPPED", rows[3][14])
}

func TestExecute_DryRunTouchesNeitherSMTPNorKafka(t *testing.T) {
	configPath, inputPath := setupRun(t)
	sender := &recordingSender{}
	reader := &stubReader{}
	factoryCalled := false

	runner := NewRunner(
		WithSender(sender),
		WithEventReaderFactory(func(config.Settings) (EventReader, error) {
			factoryCalled = true
			return reader, nil
		}),
	)
	outcome, err := runner.Execute(context.Background(), Request{
		ConfigPath: configPath,
		InputPath:  inputPath,
		DryRun:     true,
	})
	require.NoError(t, err)

	assert.True(t, outcome.DryRun)
	assert.Zero(t, outcome.SentOK)
	assert.Empty(t, sender.sent)
	assert.False(t, factoryCalled)
	assert.Equal(t, mail.StatusSkipped, outcome.SendStatus["tc-1"])
	assert.Equal(t, []string{"tc-1"}, outcome.Result.UnmatchedExpectedIDs)

	f, err := excelize.OpenFile(outcome.OutputPath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(template.TestCasesSheet)
	require.NoError(t, err)
	assert.Equal(t, "SKIPPED", rows[2][14])
	assert.Equal(t, "SKIPPED", rows[3][14])
}

func TestExecute_SendFailureIsReportedNotFatal(t *testing.T) {
	configPath, inputPath := setupRun(t)
	sender := &recordingSender{failAll: true}
	reader := &stubReader{}

	runner := NewRunner(
		WithSender(sender),
		WithEventReaderFactory(func(config.Settings) (EventReader, error) { return reader, nil }),
	)
	outcome, err := runner.Execute(context.Background(), Request{
		ConfigPath: configPath,
		InputPath:  inputPath,
	})
	require.NoError(t, err)

	assert.Zero(t, outcome.SentOK)
	assert.Equal(t, mail.StatusFailed, outcome.SendStatus["tc-1"])
	assert.Empty(t, outcome.Result.UnmatchedExpectedIDs, "failed sends produce no expected events")

	f, err := excelize.OpenFile(outcome.OutputPath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(template.TestCasesSheet)
	require.NoError(t, err)
	assert.Equal(t, "SEND_FAILED", rows[2][14])
}

func TestExecute_ConsumptionErrorIsFatal(t *testing.T) {
	configPath, inputPath := setupRun(t)
	reader := &stubReader{err: &stream.Error{Message: "Kafka error: down"}}

	runner := NewRunner(
		WithSender(&recordingSender{}),
		WithEventReaderFactory(func(config.Settings) (EventReader, error) { return reader, nil }),
	)
	_, err := runner.Execute(context.Background(), Request{
		ConfigPath: configPath,
		InputPath:  inputPath,
	})
	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Contains(t, execErr.Message, "Kafka error")
}

func TestExecute_OutputDirOverride(t *testing.T) {
	configPath, inputPath := setupRun(t)
	outputDir := t.TempDir()

	runner := NewRunner(
		WithSender(&recordingSender{}),
		WithEventReaderFactory(func(config.Settings) (EventReader, error) { return &stubReader{}, nil }),
	)
	outcome, err := runner.Execute(context.Background(), Request{
		ConfigPath: configPath,
		InputPath:  inputPath,
		OutputDir:  outputDir,
	})
	require.NoError(t, err)
	assert.Equal(t, outputDir, filepath.Dir(outcome.OutputPath))
}

func TestExecute_LiveRunRequiresAvroSchema(t *testing.T) {
	dir := t.TempDir()
	configText := `
schema:
  json_schema:
    inline: |
      {"type": "object", "properties": {"from": {"type": "string"}, "subject": {"type": "string"}}}
matching:
  from_field: from
  subject_field: subject
smtp: {host: smtp.example.com, port: 587}
mail: {to_address: inbox@example.com}
kafka: {bootstrap_servers: [broker:9092], topic: t}
`
	configPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(configText), 0o644))

	settings, err := config.Load(configPath)
	require.NoError(t, err)
	inputPath := filepath.Join(dir, "cases.xlsx")
	require.NoError(t, template.GenerateWorkbook(settings.Schema.Type, settings.Schema.Text, settings.Fields, inputPath))

	f, err := excelize.OpenFile(inputPath)
	require.NoError(t, err)
	row := []string{"tc-1", "", "true", "", "a@example.com", "S", "", "", "", ""}
	for c, value := range row {
		cell, err := excelize.CoordinatesToCellName(c+1, 3)
		require.NoError(t, err)
		require.NoError(t, f.SetCellValue(template.TestCasesSheet, cell, value))
	}
	require.NoError(t, f.Save())
	require.NoError(t, f.Close())

	runner := NewRunner(WithSender(&recordingSender{}))
	_, err = runner.Execute(context.Background(), Request{ConfigPath: configPath, InputPath: inputPath})
	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Contains(t, execErr.Message, "requires schema.avsc")

	// The same inputs are fine in dry-run mode.
	outcome, err := runner.Execute(context.Background(), Request{ConfigPath: configPath, InputPath: inputPath, DryRun: true})
	require.NoError(t, err)
	assert.True(t, outcome.DryRun)
}

func TestResolveOutputPath(t *testing.T) {
	now := time.Date(2026, 8, 24, 10, 30, 0, 0, time.UTC)
	path := resolveOutputPath(filepath.Join("data", "cases.xlsx"), "", now)
	assert.Equal(t, filepath.Join("data", "cases-results-20260824-103000.xlsx"), path)

	path = resolveOutputPath(filepath.Join("data", "cases.xlsx"), "out", now)
	assert.Equal(t, filepath.Join("out", "cases-results-20260824-103000.xlsx"), path)
}
