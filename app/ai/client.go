package ai

import (
	"context"
	"sync"
	"time"

	"github.com/lysyi3m/content-pilot/app/cfg"
)

const (
	defaultTemperature = 0.8
	defaultMaxTokens   = 4096
)

// providerPriority is the fixed fallback order used when a direction has no
// provider preference or its preferred provider fails
var providerPriority = []string{
	"openai",
	"deepseek",
	"claude",
	"qwen",
	"zhipu",
	"moonshot",
	"doubao",
	"gemini",
}

// Client produces one completion per call. Implementations are safe for
// concurrent use.
type Client interface {
	Name() string
	Model() string
	Complete(ctx context.Context, system, prompt string) (string, error)
	Health(ctx context.Context) error
}

// ProviderInfo describes one configured provider for status reporting
type ProviderInfo struct {
	Name  string `json:"name"`
	Model string `json:"model"`
}

// Registry holds the configured provider clients and resolves which one
// serves a generation request
type Registry struct {
	clients map[string]Client
}

// NewRegistry builds clients for every provider with an API key set
func NewRegistry() *Registry {
	c := cfg.Get()
	return newRegistry(c.Providers, time.Duration(c.GenerationTimeout)*time.Second)
}

func newRegistry(providers map[string]cfg.ProviderCfg, timeout time.Duration) *Registry {
	clients := make(map[string]Client)
	for name, p := range providers {
		if p.APIKey == "" {
			continue
		}
		if name == "claude" {
			clients[name] = newAnthropicClient(name, p, timeout)
		} else {
			clients[name] = newOpenAIClient(name, p, timeout)
		}
	}
	return &Registry{clients: clients}
}

// Resolve returns the preferred provider when configured, otherwise the
// first configured provider in priority order
func (r *Registry) Resolve(preferred string) (Client, error) {
	if preferred != "" {
		if client, ok := r.clients[preferred]; ok {
			return client, nil
		}
	}
	for _, name := range providerPriority {
		if client, ok := r.clients[name]; ok {
			return client, nil
		}
	}
	return nil, ErrNoProviderConfigured
}

// Next returns the first configured provider that follows the given one in
// priority order. Used for the single fallback retry after a transient
// failure.
func (r *Registry) Next(after string) (Client, bool) {
	passed := false
	for _, name := range providerPriority {
		if name == after {
			passed = true
			continue
		}
		if !passed {
			continue
		}
		if client, ok := r.clients[name]; ok {
			return client, true
		}
	}
	return nil, false
}

// Count returns the number of configured providers
func (r *Registry) Count() int {
	return len(r.clients)
}

// Providers lists the configured providers in priority order
func (r *Registry) Providers() []ProviderInfo {
	infos := make([]ProviderInfo, 0, len(r.clients))
	for _, name := range providerPriority {
		if client, ok := r.clients[name]; ok {
			infos = append(infos, ProviderInfo{Name: client.Name(), Model: client.Model()})
		}
	}
	return infos
}

// CheckHealth probes every configured provider concurrently. The returned
// map holds nil for providers that answered and the probe error otherwise.
func (r *Registry) CheckHealth(ctx context.Context) map[string]error {
	results := make(map[string]error, len(r.clients))

	var mu sync.Mutex
	var wg sync.WaitGroup
	for name, client := range r.clients {
		wg.Add(1)
		go func(name string, client Client) {
			defer wg.Done()
			err := client.Health(ctx)
			mu.Lock()
			results[name] = err
			mu.Unlock()
		}(name, client)
	}
	wg.Wait()

	return results
}
