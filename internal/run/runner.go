package run

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/senacormf/email2kafka-tester-cli/internal/config"
	"github.com/senacormf/email2kafka-tester-cli/internal/mail"
	"github.com/senacormf/email2kafka-tester-cli/internal/matching"
	"github.com/senacormf/email2kafka-tester-cli/internal/report"
	"github.com/senacormf/email2kafka-tester-cli/internal/schema"
	"github.com/senacormf/email2kafka-tester-cli/internal/stream"
	"github.com/senacormf/email2kafka-tester-cli/internal/template"
)

// EventReader consumes the topic under test for one time window.
// *stream.Reader satisfies it; tests substitute fakes.
type EventReader interface {
	ReadFrom(ctx context.Context, start time.Time) ([]stream.Message, error)
}

// Option customizes a Runner, mainly for tests.
type Option func(*Runner)

// WithSender replaces the SMTP sender.
func WithSender(sender mail.Sender) Option {
	return func(r *Runner) { r.sender = sender }
}

// WithEventReaderFactory replaces the Kafka reader construction.
func WithEventReaderFactory(factory func(settings config.Settings) (EventReader, error)) Option {
	return func(r *Runner) { r.readerFactory = factory }
}

// WithLogger sets the runner's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

// Runner executes validation runs.
type Runner struct {
	sender        mail.Sender
	readerFactory func(settings config.Settings) (EventReader, error)
	logger        *slog.Logger
	now           func() time.Time
}

// NewRunner builds a runner with production defaults.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		readerFactory: func(settings config.Settings) (EventReader, error) {
			return stream.NewReader(settings.Kafka, settings.Document, settings.Fields)
		},
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type artifacts struct {
	settings        config.Settings
	cases           []template.TestCase
	attachmentsBase string
}

type execution struct {
	sendStatus map[string]mail.SendStatus
	sentOK     int
	result     matching.Result
}

// Execute runs one full validation: dispatch, consumption, matching, and
// results writing. In dry-run mode SMTP and Kafka are never touched and
// the workbook reports every enabled case as skipped.
func (r *Runner) Execute(ctx context.Context, req Request) (Outcome, error) {
	loaded, err := r.loadArtifacts(req)
	if err != nil {
		return Outcome{}, err
	}

	var reader EventReader
	if !req.DryRun {
		reader, err = r.prepareLiveRun(loaded)
		if err != nil {
			return Outcome{}, err
		}
	}

	runStart := r.now().UTC()
	var exec execution
	if req.DryRun {
		exec = executeDryRun(loaded.cases)
	} else {
		exec, err = r.executeLiveRun(ctx, loaded, reader, runStart)
		if err != nil {
			return Outcome{}, err
		}
	}

	outputPath := resolveOutputPath(req.InputPath, req.OutputDir, r.now().UTC())
	meta := report.RunMetadata{
		RunStart:   runStart,
		InputPath:  req.InputPath,
		OutputPath: outputPath,
		KafkaTopic: loaded.settings.Kafka.Topic,
		Timeout:    loaded.settings.Kafka.Timeout,
		SentOK:     exec.sentOK,
	}
	if err := report.WriteResultsWorkbook(
		req.InputPath, outputPath,
		loaded.settings.Schema.Type, loaded.settings.Schema.Text,
		loaded.settings.Fields, loaded.cases,
		exec.result, meta, exec.sendStatus,
	); err != nil {
		return Outcome{}, executionErrorf("%v", err)
	}

	r.logger.Info("run completed",
		"output", outputPath,
		"sent_ok", exec.sentOK,
		"matched", len(exec.result.Matches),
		"dry_run", req.DryRun,
	)

	return Outcome{
		OutputPath: outputPath,
		SentOK:     exec.sentOK,
		DryRun:     req.DryRun,
		Cases:      loaded.cases,
		Result:     exec.result,
		SendStatus: exec.sendStatus,
	}, nil
}

func (r *Runner) loadArtifacts(req Request) (artifacts, error) {
	settings, err := config.Load(req.ConfigPath)
	if err != nil {
		return artifacts{}, executionErrorf("%v", err)
	}
	cases, err := template.ReadWorkbook(req.InputPath, settings.Fields)
	if err != nil {
		return artifacts{}, executionErrorf("%v", err)
	}

	base, err := filepath.Abs(req.InputPath)
	if err != nil {
		return artifacts{}, executionErrorf("cannot resolve input path %s: %v", req.InputPath, err)
	}

	r.logger.Debug("run artifacts loaded",
		"config", req.ConfigPath,
		"cases", len(cases),
		"fields", len(settings.Fields),
	)
	return artifacts{
		settings:        settings,
		cases:           cases,
		attachmentsBase: filepath.Dir(base),
	}, nil
}

func (r *Runner) prepareLiveRun(loaded artifacts) (EventReader, error) {
	if loaded.settings.Schema.Type != schema.TypeAvro {
		return nil, executionErrorf("run mode requires schema.avsc for Kafka decoding")
	}
	if err := mail.ValidateAttachments(loaded.cases, loaded.attachmentsBase); err != nil {
		return nil, executionErrorf("%v", err)
	}
	reader, err := r.readerFactory(loaded.settings)
	if err != nil {
		return nil, executionErrorf("%v", err)
	}
	return reader, nil
}

func executeDryRun(cases []template.TestCase) execution {
	sendStatus := make(map[string]mail.SendStatus)
	var unmatched []string
	for _, tc := range cases {
		if tc.Enabled {
			sendStatus[tc.ID] = mail.StatusSkipped
			unmatched = append(unmatched, tc.ID)
		}
	}
	return execution{
		sendStatus: sendStatus,
		result:     matching.Result{UnmatchedExpectedIDs: unmatched},
	}
}

// executeLiveRun overlaps topic consumption with mail dispatch: the
// consumer starts first so no event published during dispatch is missed,
// and both sides are joined before matching begins.
func (r *Runner) executeLiveRun(ctx context.Context, loaded artifacts, reader EventReader, runStart time.Time) (execution, error) {
	sender := r.sender
	if sender == nil {
		sender = mail.NewSMTPSender(loaded.settings.SMTP)
	}
	dispatcher := mail.NewDispatcher(sender, loaded.settings.SMTP, loaded.settings.Mail, loaded.attachmentsBase)

	var messages []stream.Message
	var group errgroup.Group
	group.Go(func() error {
		read, err := reader.ReadFrom(ctx, runStart)
		if err != nil {
			return err
		}
		messages = read
		return nil
	})

	sendResults := dispatcher.SendAll(loaded.cases)
	if err := group.Wait(); err != nil {
		return execution{}, executionErrorf("%v", err)
	}
	r.logger.Debug("consumption window closed", "messages", len(messages))

	sendStatus := make(map[string]mail.SendStatus, len(sendResults))
	sentOK := 0
	for _, result := range sendResults {
		sendStatus[result.TestID] = result.Status
		if result.Status == mail.StatusSent {
			sentOK++
		}
	}

	var sentCases []template.TestCase
	for _, tc := range loaded.cases {
		if sendStatus[tc.ID] == mail.StatusSent {
			sentCases = append(sentCases, tc)
		}
	}

	matchCfg := matching.Config{
		FromField:    loaded.settings.Matching.FromField,
		SubjectField: loaded.settings.Matching.SubjectField,
	}
	result := matching.Evaluate(matchCfg, loaded.settings.Fields, toExpectedEvents(sentCases), toActualEvents(messages))

	return execution{
		sendStatus: sendStatus,
		sentOK:     sentOK,
		result:     result,
	}, nil
}

func toExpectedEvents(cases []template.TestCase) []matching.ExpectedEvent {
	events := make([]matching.ExpectedEvent, 0, len(cases))
	for _, tc := range cases {
		events = append(events, matching.ExpectedEvent{
			ID:             tc.ID,
			Enabled:        tc.Enabled,
			Sender:         tc.From,
			Subject:        tc.Subject,
			ExpectedValues: tc.ExpectedValues,
		})
	}
	return events
}

func toActualEvents(messages []stream.Message) []matching.ActualEvent {
	events := make([]matching.ActualEvent, 0, len(messages))
	for _, message := range messages {
		events = append(events, matching.ActualEvent{Flattened: message.Flattened})
	}
	return events
}

func resolveOutputPath(inputPath, outputDir string, now time.Time) string {
	dir := outputDir
	if dir == "" {
		dir = filepath.Dir(inputPath)
	}
	stem := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	return filepath.Join(dir, fmt.Sprintf("%s-results-%s.xlsx", stem, now.Format("20060102-150405")))
}
