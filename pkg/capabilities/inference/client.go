// Package inference provides the HTTP client for the text generation
// capability consumed by AI nodes.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const defaultTimeout = 60 * time.Second

// ProviderError is a failure reported by the inference provider (quota,
// invalid model name, provider-side timeout).
type ProviderError struct {
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("inference provider returned %d: %s", e.StatusCode, e.Message)
}

// Client calls a provider-compatible text generation endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates an inference client for the given provider endpoint.
func NewClient(baseURL, apiKey string, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger.With("module", "inference_client"),
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type generateResponse struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

// Generate renders a completion for prompt using the named model. Provider
// failures are returned as *ProviderError.
func (c *Client) Generate(ctx context.Context, model, prompt string) (string, error) {
	payload, err := json.Marshal(generateRequest{Model: model, Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("failed to marshal inference request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/generate", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build inference request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("inference request failed: %w", err)
	}

	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Warn("Failed to close inference response body", "error", closeErr)
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read inference response: %w", err)
	}

	var parsed generateResponse
	if err := json.Unmarshal(body, &parsed); err != nil && resp.StatusCode < 300 {
		return "", fmt.Errorf("failed to decode inference response: %w", err)
	}

	if resp.StatusCode >= 300 {
		message := parsed.Error
		if message == "" {
			message = string(body)
		}

		return "", &ProviderError{StatusCode: resp.StatusCode, Message: message}
	}

	return parsed.Text, nil
}
