package mail

import (
	gomail "github.com/wneessen/go-mail"
	"golang.org/x/sync/errgroup"

	"github.com/senacormf/email2kafka-tester-cli/internal/config"
	"github.com/senacormf/email2kafka-tester-cli/internal/template"
)

// Sender delivers one composed message. The SMTP implementation dials a
// fresh connection per message; tests substitute a fake.
type Sender interface {
	Send(msg *gomail.Msg) error
}

type smtpSender struct {
	settings config.SMTPSettings
}

// NewSMTPSender builds a sender that delivers via the configured SMTP
// server.
func NewSMTPSender(settings config.SMTPSettings) Sender {
	return &smtpSender{settings: settings}
}

func (s *smtpSender) Send(msg *gomail.Msg) error {
	opts := []gomail.Option{
		gomail.WithPort(s.settings.Port),
		gomail.WithTimeout(s.settings.Timeout),
	}
	switch {
	case s.settings.UseSSL:
		opts = append(opts, gomail.WithSSL())
	case s.settings.UseSTARTTLS:
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSMandatory))
	default:
		opts = append(opts, gomail.WithTLSPolicy(gomail.NoTLS))
	}
	if s.settings.Username != "" && s.settings.Password != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.settings.Username),
			gomail.WithPassword(s.settings.Password),
		)
	}

	client, err := gomail.NewClient(s.settings.Host, opts...)
	if err != nil {
		return err
	}
	return client.DialAndSend(msg)
}

// Dispatcher sends the mails for a run.
type Dispatcher struct {
	sender          Sender
	smtp            config.SMTPSettings
	mail            config.MailSettings
	attachmentsBase string
}

// NewDispatcher builds a dispatcher using the given sender.
func NewDispatcher(sender Sender, smtp config.SMTPSettings, mailSettings config.MailSettings, attachmentsBase string) *Dispatcher {
	return &Dispatcher{
		sender:          sender,
		smtp:            smtp,
		mail:            mailSettings,
		attachmentsBase: attachmentsBase,
	}
}

// SendAll composes and sends the mail for every enabled test case,
// bounded by the configured parallelism. Disabled cases are reported as
// skipped. One failed send never affects the others, and results come
// back in test-case order.
func (d *Dispatcher) SendAll(cases []template.TestCase) []SendResult {
	results := make([]SendResult, len(cases))

	parallelism := d.smtp.Parallelism
	if parallelism < 1 {
		parallelism = 1
	}

	var group errgroup.Group
	group.SetLimit(parallelism)
	for i, tc := range cases {
		if !tc.Enabled {
			results[i] = skippedResult(tc.ID)
			continue
		}
		i, tc := i, tc
		group.Go(func() error {
			results[i] = d.sendSingle(tc)
			return nil
		})
	}
	// Tasks never return errors; failures are recorded per result slot.
	_ = group.Wait()

	return results
}

func (d *Dispatcher) sendSingle(tc template.TestCase) SendResult {
	msg, err := Compose(tc, d.mail, d.attachmentsBase)
	if err != nil {
		return failedResult(tc.ID, err)
	}
	if err := d.sender.Send(msg); err != nil {
		return failedResult(tc.ID, err)
	}
	return sentResult(tc.ID)
}
