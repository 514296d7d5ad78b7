package ai

import (
	"testing"
)

type topicPlan struct {
	Topic string   `json:"topic"`
	Tags  []string `json:"tags"`
}

func TestParseJSONPlain(t *testing.T) {
	var plan topicPlan
	err := ParseJSON(`{"topic": "Go concurrency", "tags": ["go", "channels"]}`, &plan)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if plan.Topic != "Go concurrency" {
		t.Errorf("Expected topic, got %q", plan.Topic)
	}
	if len(plan.Tags) != 2 {
		t.Errorf("Expected 2 tags, got %d", len(plan.Tags))
	}
}

func TestParseJSONMarkdownFence(t *testing.T) {
	raw := "```json\n{\"topic\": \"fenced\"}\n```"

	var plan topicPlan
	if err := ParseJSON(raw, &plan); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if plan.Topic != "fenced" {
		t.Errorf("Expected fenced content parsed, got %q", plan.Topic)
	}
}

func TestParseJSONBareFence(t *testing.T) {
	raw := "```\n{\"topic\": \"bare fence\"}\n```"

	var plan topicPlan
	if err := ParseJSON(raw, &plan); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if plan.Topic != "bare fence" {
		t.Errorf("Expected bare fence content parsed, got %q", plan.Topic)
	}
}

func TestParseJSONConversationalWrapping(t *testing.T) {
	raw := `Here is the plan you asked for:

{"topic": "wrapped", "tags": ["a"]}

Let me know if you need changes.`

	var plan topicPlan
	if err := ParseJSON(raw, &plan); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if plan.Topic != "wrapped" {
		t.Errorf("Expected wrapped content parsed, got %q", plan.Topic)
	}
}

func TestParseJSONArray(t *testing.T) {
	raw := "Sure:\n```json\n[\"first topic\", \"second topic\"]\n```"

	var topics []string
	if err := ParseJSON(raw, &topics); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(topics) != 2 || topics[0] != "first topic" {
		t.Errorf("Expected 2 topics, got %v", topics)
	}
}

func TestParseJSONNoPayload(t *testing.T) {
	var plan topicPlan
	if err := ParseJSON("I could not produce a plan.", &plan); err == nil {
		t.Error("Expected error for output without JSON")
	}
}

func TestParseJSONMalformed(t *testing.T) {
	var plan topicPlan
	if err := ParseJSON(`{"topic": "unclosed`, &plan); err == nil {
		t.Error("Expected error for malformed JSON")
	}
}
