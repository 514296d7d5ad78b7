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

// openAIClient speaks the OpenAI-compatible chat completions API. All
// catalog providers except claude expose this surface.
type openAIClient struct {
	name       string
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

func newOpenAIClient(name string, p cfg.ProviderCfg, timeout time.Duration) *openAIClient {
	return &openAIClient{
		name:    name,
		apiKey:  p.APIKey,
		baseURL: strings.TrimSuffix(p.BaseURL, "/"),
		model:   p.Model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *openAIClient) Name() string {
	return c.name
}

func (c *openAIClient) Model() string {
	return c.model
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *apiError `json:"error"`
}

type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (c *openAIClient) Complete(ctx context.Context, system, prompt string) (string, error) {
	messages := make([]chatMessage, 0, 2)
	if system != "" {
		messages = append(messages, chatMessage{Role: "system", Content: system})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	payload, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: defaultTemperature,
		MaxTokens:   defaultMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode completion request: %w", err)
	}

	body, err := c.post(ctx, payload)
	if err != nil {
		return "", err
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &ProviderError{Provider: c.name, Message: fmt.Sprintf("failed to decode response: %v", err), Transient: true}
	}
	if parsed.Error != nil {
		return "", &ProviderError{Provider: c.name, Message: parsed.Error.Message, Transient: true}
	}
	if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		return "", &ProviderError{Provider: c.name, Message: "empty completion", Transient: true}
	}

	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

// Health sends a one-token completion so status probes can tell whether the
// provider accepts requests at all without spending a real generation.
func (c *openAIClient) Health(ctx context.Context) error {
	payload, err := json.Marshal(chatRequest{
		Model:     c.model,
		Messages:  []chatMessage{{Role: "user", Content: "ping"}},
		MaxTokens: 1,
	})
	if err != nil {
		return fmt.Errorf("failed to encode health request: %w", err)
	}

	_, err = c.post(ctx, payload)
	return err
}

func (c *openAIClient) post(ctx context.Context, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

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

// apiErrorMessage extracts the error message from a provider error body,
// falling back to the raw body when it is not the expected JSON shape
func apiErrorMessage(body []byte) string {
	var wrapped struct {
		Error apiError `json:"error"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.Error.Message != "" {
		return wrapped.Error.Message
	}

	message := strings.TrimSpace(string(body))
	if len(message) > 200 {
		message = message[:200]
	}
	if message == "" {
		message = "request failed"
	}
	return message
}
