package document

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// EmptyTextPlaceholder stands in for PDFs with no extractable text so the
// slot still carries something displayable.
const EmptyTextPlaceholder = "[PDF contains no extractable text]"

// ExtractText pulls plain text out of PDF bytes, one "[Page N]" section per
// page. Pages that fail to extract contribute an empty section rather than
// failing the whole upload.
func ExtractText(data []byte) (string, int, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, fmt.Errorf("open pdf: %w", err)
	}

	pages := reader.NumPage()
	parts := make([]string, 0, pages)
	hasText := false
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			parts = append(parts, fmt.Sprintf("[Page %d]\n", i))
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			text = ""
		}
		if strings.TrimSpace(text) != "" {
			hasText = true
		}
		parts = append(parts, fmt.Sprintf("[Page %d]\n%s", i, text))
	}

	if !hasText {
		return EmptyTextPlaceholder, pages, nil
	}
	return strings.TrimSpace(strings.Join(parts, "\n\n")), pages, nil
}
