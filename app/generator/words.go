package generator

import (
	"regexp"
	"strings"
)

var imagePlaceholderPattern = regexp.MustCompile(`\[IMG\d+\]`)

// CountWords counts content length as runes excluding spaces and line
// breaks, which measures CJK and latin text consistently enough for the
// target-length checks.
func CountWords(content string) int {
	count := 0
	for _, r := range content {
		switch r {
		case ' ', '\n', '\r', '\t':
			continue
		default:
			count++
		}
	}
	return count
}

// cleanDraftContent strips artifacts models leave in article bodies
func cleanDraftContent(content string) string {
	content = imagePlaceholderPattern.ReplaceAllString(content, "")
	return strings.TrimSpace(content)
}

// truncateRunes cuts a string to at most n runes without splitting a
// multi-byte character
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// tailRunes returns the last n runes of a string without splitting a
// multi-byte character
func tailRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}

// stripFences removes a wrapping markdown code fence from plain text
// completions such as story chapters
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		if newline := strings.IndexByte(text, '\n'); newline != -1 {
			text = text[newline+1:]
		}
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
