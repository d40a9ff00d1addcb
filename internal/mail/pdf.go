package mail

import (
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// textToPDF renders plain text into a minimal single-page PDF. The text is
// embedded as a hex-encoded string so arbitrary UTF-8 content survives the
// Latin-1 document encoding.
func textToPDF(text string) ([]byte, error) {
	hexStream := hex.EncodeToString([]byte(text))
	contentStream := fmt.Sprintf("BT /F1 12 Tf 72 720 Td <%s> Tj ET", hexStream)
	return serializePDF(pdfObjects(contentStream))
}

func pdfObjects(contentStream string) []string {
	object := func(id int, body string) string {
		return fmt.Sprintf("%d 0 obj\n%s\nendobj\n", id, body)
	}
	return []string{
		object(1, "<< /Type /Catalog /Pages 2 0 R >>"),
		object(2, "<< /Type /Pages /Kids [3 0 R] /Count 1 >>"),
		object(3, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] "+
			"/Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>"),
		object(4, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(contentStream), contentStream)),
		object(5, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>"),
	}
}

func serializePDF(objects []string) ([]byte, error) {
	header := "%PDF-1.4\n"

	var body strings.Builder
	body.WriteString(header)
	offsets := make([]int, 0, len(objects))
	for _, obj := range objects {
		offsets = append(offsets, body.Len())
		body.WriteString(obj)
	}
	xrefOffset := body.Len()

	body.WriteString(fmt.Sprintf("xref\n0 %d\n", len(objects)+1))
	body.WriteString("0000000000 65535 f \n")
	for _, offset := range offsets {
		body.WriteString(fmt.Sprintf("%010d 00000 n \n", offset))
	}
	body.WriteString(fmt.Sprintf("trailer<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF", len(objects)+1, xrefOffset))

	encoded, err := charmap.ISO8859_1.NewEncoder().String(body.String())
	if err != nil {
		return nil, compositionErrorf("failed to serialize PDF attachment: %v", err)
	}
	return []byte(encoded), nil
}
