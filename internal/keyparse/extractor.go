package keyparse

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/gradescan/gradescan/internal/model"
)

// ParseFile extracts text from an answer-key PDF and parses it into a
// structured AnswerKey. A missing file or a non-PDF extension is a
// fatal input error, returned immediately.
func ParseFile(path string) (*model.AnswerKey, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("answer key file not found: %s", path)
	}
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".pdf" {
		return nil, fmt.Errorf("expected PDF answer key, got %q", ext)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read answer key: %w", err)
	}

	text, err := ExtractText(data)
	if err != nil {
		return nil, fmt.Errorf("extract answer key text: %w", err)
	}
	return Parse(text), nil
}

// ExtractText pulls plain text out of PDF bytes, page by page. Pages
// that fail to parse are skipped rather than aborting the whole key.
func ExtractText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open PDF: %w", err)
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}
