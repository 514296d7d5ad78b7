package pilot

import (
	"testing"
)

func TestTopicHashIgnoresCaseAndPunctuation(t *testing.T) {
	base := TopicHash("Go Concurrency Patterns")

	variants := []string{
		"go concurrency patterns",
		"GO CONCURRENCY PATTERNS",
		"Go, Concurrency... Patterns!",
		"  Go   Concurrency Patterns?  ",
		"Go-Concurrency-Patterns",
	}

	for _, variant := range variants {
		if got := TopicHash(variant); got != base {
			t.Errorf("Expected %q to hash like the base topic, got %s", variant, got)
		}
	}
}

func TestTopicHashDistinguishesTopics(t *testing.T) {
	if TopicHash("Go Concurrency") == TopicHash("Go Generics") {
		t.Error("Expected different topics to hash differently")
	}
}

func TestTopicHashKeepsUnderscoresAndDigits(t *testing.T) {
	if TopicHash("net_http 2") == TopicHash("nethttp 2") {
		t.Error("Expected underscores to stay significant")
	}
	if TopicHash("http2") == TopicHash("http3") {
		t.Error("Expected digits to stay significant")
	}
}

func TestTopicHashHandlesUnicode(t *testing.T) {
	base := TopicHash("Go语言并发模式")

	if got := TopicHash("Go语言并发模式！！"); got != base {
		t.Errorf("Expected punctuation-only variant to match, got %s", got)
	}
	if TopicHash("Go语言并发模式") == TopicHash("Go语言内存模型") {
		t.Error("Expected different unicode topics to hash differently")
	}
}

func TestTopicHashShape(t *testing.T) {
	hash := TopicHash("any topic at all")

	if len(hash) != 32 {
		t.Fatalf("Expected 32 hex characters, got %d", len(hash))
	}
	for _, r := range hash {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			t.Fatalf("Expected lowercase hex, got %q in %s", r, hash)
		}
	}
}
