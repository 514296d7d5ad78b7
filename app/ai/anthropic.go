package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lysyi3m/content-pilot/app/cfg"
)

const anthropicVersion = "2023-06-01"

// anthropicClient speaks the Anthropic messages API, which differs from the
// OpenAI-compatible surface in auth headers, payload shape and response shape
type anthropicClient struct {
	name       string
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

func newAnthropicClient(name string, p cfg.ProviderCfg, timeout time.Duration) *anthropicClient {
	return &anthropicClient{
		name:    name,
		apiKey:  p.APIKey,
		baseURL: strings.TrimSuffix(p.BaseURL, "/"),
		model:   p.Model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *anthropicClient) Name() string {
	return c.name
}

func (c *anthropicClient) Model() string {
	return c.model
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	Temperature float64            `json:"temperature"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *apiError `json:"error"`
}

func (c *anthropicClient) Complete(ctx context.Context, system, prompt string) (string, error) {
	payload, err := json.Marshal(anthropicRequest{
		Model:       c.model,
		MaxTokens:   defaultMaxTokens,
		System:      system,
		Messages:    []anthropicMessage{{Role: "user", Content: prompt}},
		Temperature: defaultTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode completion request: %w", err)
	}

	body, err := c.post(ctx, payload)
	if err != nil {
		return "", err
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &ProviderError{Provider: c.name, Message: fmt.Sprintf("failed to decode response: %v", err), Transient: true}
	}
	if parsed.Error != nil {
		return "", &ProviderError{Provider: c.name, Message: parsed.Error.Message, Transient: true}
	}

	var text strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return "", &ProviderError{Provider: c.name, Message: "empty completion", Transient: true}
	}

	return strings.TrimSpace(text.String()), nil
}

// Health sends a one-token message so status probes can tell whether the
// provider accepts requests at all without spending a real generation.
func (c *anthropicClient) Health(ctx context.Context) error {
	payload, err := json.Marshal(anthropicRequest{
		Model:     c.model,
		MaxTokens: 1,
		Messages:  []anthropicMessage{{Role: "user", Content: "ping"}},
	})
	if err != nil {
		return fmt.Errorf("failed to encode health request: %w", err)
	}

	_, err = c.post(ctx, payload)
	return err
}

func (c *anthropicClient) post(ctx context.Context, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ProviderError{Provider: c.name, Message: err.Error(), Transient: true}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProviderError{Provider: c.name, Message: err.Error(), Transient: true}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{
			Provider:   c.name,
			StatusCode: resp.StatusCode,
			Message:    apiErrorMessage(body),
			Transient:  transientStatus(resp.StatusCode),
		}
	}

	return body, nil
}
