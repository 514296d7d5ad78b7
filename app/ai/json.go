package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseJSON decodes a JSON object or array out of raw model output. Models
// wrap structured answers in markdown fences or conversational framing, so
// the payload is located by fence markers first, then by outermost brackets.
func ParseJSON(raw string, v interface{}) error {
	s := strings.TrimSpace(raw)

	if fenced, ok := extractFenced(s); ok {
		s = fenced
	}

	start := strings.IndexAny(s, "{[")
	if start == -1 {
		return fmt.Errorf("no JSON payload in model output")
	}

	var closing byte
	if s[start] == '{' {
		closing = '}'
	} else {
		closing = ']'
	}

	end := strings.LastIndexByte(s, closing)
	if end <= start {
		return fmt.Errorf("unterminated JSON payload in model output")
	}

	if err := json.Unmarshal([]byte(s[start:end+1]), v); err != nil {
		return fmt.Errorf("failed to parse model output: %w", err)
	}

	return nil
}

// extractFenced returns the content of the first markdown code fence
func extractFenced(s string) (string, bool) {
	start := strings.Index(s, "```")
	if start == -1 {
		return "", false
	}

	rest := s[start+3:]
	if newline := strings.IndexByte(rest, '\n'); newline != -1 {
		// Skip the language tag on the opening fence line.
		tag := strings.TrimSpace(rest[:newline])
		if tag == "" || !strings.ContainsAny(tag, "{[") {
			rest = rest[newline+1:]
		}
	}

	end := strings.Index(rest, "```")
	if end == -1 {
		return strings.TrimSpace(rest), true
	}
	return strings.TrimSpace(rest[:end]), true
}
