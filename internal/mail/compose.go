package mail

import (
	"bytes"
	"strings"

	"github.com/google/uuid"
	gomail "github.com/wneessen/go-mail"

	"github.com/senacormf/email2kafka-tester-cli/internal/config"
	"github.com/senacormf/email2kafka-tester-cli/internal/template"
)

// Compose builds the outbound message for one test case. The test id
// travels in the X-Test-Id header so observed mails can be traced back.
func Compose(tc template.TestCase, settings config.MailSettings, attachmentsBase string) (*gomail.Msg, error) {
	msg := gomail.NewMsg()
	msg.SetMessageIDWithValue(uuid.NewString())

	if err := msg.From(tc.From); err != nil {
		return nil, compositionErrorf("invalid sender address %q: %v", tc.From, err)
	}
	if err := msg.To(settings.ToAddress); err != nil {
		return nil, compositionErrorf("invalid recipient address %q: %v", settings.ToAddress, err)
	}
	if len(settings.CC) > 0 {
		if err := msg.Cc(settings.CC...); err != nil {
			return nil, compositionErrorf("invalid cc address list: %v", err)
		}
	}
	if len(settings.BCC) > 0 {
		if err := msg.Bcc(settings.BCC...); err != nil {
			return nil, compositionErrorf("invalid bcc address list: %v", err)
		}
	}
	msg.Subject(tc.Subject)
	msg.SetGenHeader("X-Test-Id", tc.ID)

	msg.SetBodyString(gomail.TypeTextPlain, tc.Body)
	msg.AddAlternativeString(gomail.TypeTextHTML, renderHTMLBody(tc.Body))

	attachments, err := parseAttachments(tc.Attachment, attachmentsBase)
	if err != nil {
		return nil, err
	}
	for _, att := range attachments {
		if err := msg.AttachReader(att.Filename, bytes.NewReader(att.Data),
			gomail.WithFileContentType(gomail.ContentType(att.ContentType))); err != nil {
			return nil, compositionErrorf("failed to attach %s: %v", att.Filename, err)
		}
	}

	return msg, nil
}

func renderHTMLBody(plainText string) string {
	escaped := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		"\n", "<br>",
	).Replace(plainText)
	if escaped == "" {
		escaped = "No content provided."
	}
	return "<html><body><h2>Test Execution</h2><p>" + escaped + "</p></body></html>"
}
