package reference

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"

	readability "codeberg.org/readeck/go-readability/v2"
)

type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// Run extracts the readable text of an HTML page. Markup is dropped since
// the result feeds prompts, not rendering.
func (e *Extractor) Run(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("HTML data is empty")
	}

	article, err := readability.FromReader(bytes.NewReader(data), nil)
	if err != nil {
		return "", fmt.Errorf("failed to extract content: %w", err)
	}
	if article.Node == nil {
		return "", fmt.Errorf("no content extracted from HTML data")
	}

	var buf bytes.Buffer
	if err := article.RenderText(&buf); err != nil {
		return "", fmt.Errorf("failed to render extracted content: %w", err)
	}

	text := strings.TrimSpace(buf.String())
	if text == "" {
		return "", fmt.Errorf("no content extracted from HTML data")
	}

	slog.Debug("Content extracted successfully",
		"title", article.Title(),
		"content_length", len(text))

	return text, nil
}
