package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lysyi3m/content-pilot/app/cfg"
)

func testProviders(names ...string) map[string]cfg.ProviderCfg {
	providers := make(map[string]cfg.ProviderCfg)
	for _, name := range names {
		providers[name] = cfg.ProviderCfg{
			APIKey:  "test-key",
			BaseURL: "https://api.example.com/v1",
			Model:   name + "-model",
		}
	}
	return providers
}

func TestResolvePreferredProvider(t *testing.T) {
	registry := newRegistry(testProviders("openai", "claude"), 10*time.Second)

	client, err := registry.Resolve("claude")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if client.Name() != "claude" {
		t.Errorf("Expected preferred provider claude, got %s", client.Name())
	}
}

func TestResolveFallsBackToPriorityOrder(t *testing.T) {
	registry := newRegistry(testProviders("qwen", "deepseek"), 10*time.Second)

	// Preferred provider has no key configured.
	client, err := registry.Resolve("claude")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if client.Name() != "deepseek" {
		t.Errorf("Expected deepseek (first configured in priority order), got %s", client.Name())
	}
}

func TestResolveNoPreference(t *testing.T) {
	registry := newRegistry(testProviders("gemini", "zhipu"), 10*time.Second)

	client, err := registry.Resolve("")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if client.Name() != "zhipu" {
		t.Errorf("Expected zhipu (first configured in priority order), got %s", client.Name())
	}
}

func TestResolveNoProvidersConfigured(t *testing.T) {
	registry := newRegistry(map[string]cfg.ProviderCfg{
		"openai": {BaseURL: "https://api.openai.com/v1", Model: "gpt-5"},
	}, 10*time.Second)

	if registry.Count() != 0 {
		t.Errorf("Expected providers without keys to be skipped, got %d", registry.Count())
	}

	_, err := registry.Resolve("")
	if !errors.Is(err, ErrNoProviderConfigured) {
		t.Errorf("Expected ErrNoProviderConfigured, got %v", err)
	}
}

func TestNextProviderInPriorityOrder(t *testing.T) {
	registry := newRegistry(testProviders("openai", "claude", "moonshot"), 10*time.Second)

	client, ok := registry.Next("claude")
	if !ok {
		t.Fatal("Expected a fallback provider after claude")
	}
	if client.Name() != "moonshot" {
		t.Errorf("Expected moonshot after claude, got %s", client.Name())
	}

	if _, ok := registry.Next("moonshot"); ok {
		t.Error("Expected no fallback provider after the last configured one")
	}
}

func TestClaudeUsesAnthropicClient(t *testing.T) {
	registry := newRegistry(testProviders("claude", "openai"), 10*time.Second)

	client, err := registry.Resolve("claude")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if _, ok := client.(*anthropicClient); !ok {
		t.Errorf("Expected claude to use the anthropic codec, got %T", client)
	}

	client, err = registry.Resolve("openai")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if _, ok := client.(*openAIClient); !ok {
		t.Errorf("Expected openai to use the OpenAI codec, got %T", client)
	}
}

func TestProvidersListedInPriorityOrder(t *testing.T) {
	registry := newRegistry(testProviders("gemini", "openai", "qwen"), 10*time.Second)

	infos := registry.Providers()
	if len(infos) != 3 {
		t.Fatalf("Expected 3 providers, got %d", len(infos))
	}

	expected := []string{"openai", "qwen", "gemini"}
	for i, name := range expected {
		if infos[i].Name != name {
			t.Errorf("Expected provider %d to be %s, got %s", i, name, infos[i].Name)
		}
	}
	if infos[0].Model != "openai-model" {
		t.Errorf("Expected model openai-model, got %s", infos[0].Model)
	}
}

func TestIsTransient(t *testing.T) {
	if !IsTransient(&ProviderError{Provider: "openai", StatusCode: 429, Transient: true}) {
		t.Error("Expected rate limit error to be transient")
	}
	if !IsTransient(&ProviderError{Provider: "openai", StatusCode: 503, Transient: true}) {
		t.Error("Expected server error to be transient")
	}
	if IsTransient(&ProviderError{Provider: "openai", StatusCode: 401, Transient: false}) {
		t.Error("Expected auth error to be permanent")
	}
	if !IsTransient(context.DeadlineExceeded) {
		t.Error("Expected deadline exceeded to be transient")
	}
	if IsTransient(errors.New("some other error")) {
		t.Error("Expected unclassified error to be permanent")
	}
}

func TestTransientStatus(t *testing.T) {
	transient := []int{429, 500, 502, 503}
	for _, code := range transient {
		if !transientStatus(code) {
			t.Errorf("Expected status %d to be transient", code)
		}
	}

	permanent := []int{400, 401, 403, 404, 422}
	for _, code := range permanent {
		if transientStatus(code) {
			t.Errorf("Expected status %d to be permanent", code)
		}
	}
}
