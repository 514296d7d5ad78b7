package pilot

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
)

// TopicHash reduces a topic to its 32-character dedup ledger key.
// Normalization lowercases the text and keeps only letters, digits and
// underscores, so casing, punctuation and spacing variants of the same
// topic collide on the same key.
func TopicHash(topic string) string {
	var normalized strings.Builder

	for _, r := range strings.ToLower(topic) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			normalized.WriteRune(r)
		}
	}

	sum := sha256.Sum256([]byte(normalized.String()))

	return hex.EncodeToString(sum[:])[:32]
}
