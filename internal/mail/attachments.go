package mail

import (
	"mime"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/senacormf/email2kafka-tester-cli/internal/template"
)

// Attachment is one file to attach to a composed message.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

var windowsPathPrefix = regexp.MustCompile(`^[A-Za-z]:\\`)

// parseAttachments interprets a test case's attachment cell. When the
// first non-empty line looks like a file path, every line is read as a
// file. Any other text is rendered into a single generated PDF.
func parseAttachments(raw, baseDir string) ([]Attachment, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	normalized := strings.ReplaceAll(value, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")
	var lines []string
	for _, line := range strings.Split(normalized, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	if len(lines) == 0 {
		return nil, nil
	}

	if looksLikePath(lines[0]) {
		attachments := make([]Attachment, 0, len(lines))
		for _, line := range lines {
			attachment, err := attachmentFromPath(line, baseDir)
			if err != nil {
				return nil, err
			}
			attachments = append(attachments, attachment)
		}
		return attachments, nil
	}

	pdf, err := textToPDF(strings.Join(lines, "\n"))
	if err != nil {
		return nil, err
	}
	return []Attachment{{Filename: "attachment.pdf", ContentType: "application/pdf", Data: pdf}}, nil
}

func looksLikePath(value string) bool {
	if strings.HasPrefix(value, "./") || strings.HasPrefix(value, "/") || strings.HasPrefix(value, `.\`) {
		return true
	}
	return windowsPathPrefix.MatchString(value)
}

func attachmentFromPath(value, baseDir string) (Attachment, error) {
	candidate := value
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(baseDir, candidate)
	}
	data, err := os.ReadFile(candidate)
	if err != nil {
		return Attachment{}, compositionErrorf("attachment file not found: %s", candidate)
	}
	contentType := mime.TypeByExtension(filepath.Ext(candidate))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return Attachment{
		Filename:    filepath.Base(candidate),
		ContentType: contentType,
		Data:        data,
	}, nil
}

// ValidateAttachments fails fast when an enabled test case references an
// attachment that cannot be built, before any mail is sent.
func ValidateAttachments(cases []template.TestCase, baseDir string) error {
	for _, tc := range cases {
		if !tc.Enabled {
			continue
		}
		if _, err := parseAttachments(tc.Attachment, baseDir); err != nil {
			return err
		}
	}
	return nil
}
