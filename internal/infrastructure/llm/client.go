package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"NewsDigest/internal/config"
	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

const (
	serviceName        = "completion"
	defaultSystem      = "You are a precise AI news analyst. Answer with valid JSON only."
	defaultMaxTokens   = 4000
	defaultTemperature = 0.2
	errorBodyLimit     = 2048
)

// Client implements ports.Completer against an OpenAI-compatible chat completion API
// with Perplexity search options.
type Client struct {
	endpoint   string
	model      string
	apiKey     string
	httpClient *http.Client
}

var _ ports.Completer = (*Client)(nil)

// NewClient builds a client from configuration.
func NewClient(cfg config.CompletionConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		endpoint:   strings.TrimSpace(cfg.Endpoint),
		model:      strings.TrimSpace(cfg.Model),
		apiKey:     strings.TrimSpace(cfg.APIKey),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model               string        `json:"model"`
	Messages            []chatMessage `json:"messages"`
	MaxTokens           int           `json:"max_tokens,omitempty"`
	Temperature         float64       `json:"temperature"`
	SearchRecencyFilter string        `json:"search_recency_filter,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		Text string `json:"text"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends one prompt and returns the raw text of the first choice.
func (c *Client) Complete(ctx context.Context, req ports.CompletionRequest) (string, error) {
	if c == nil {
		return "", domain.Wrap(domain.ErrConfiguration, serviceName, "complete", "client is nil", nil)
	}
	if c.apiKey == "" {
		return "", domain.Wrap(domain.ErrConfiguration, serviceName, "complete", "api key is not configured", nil)
	}
	if c.endpoint == "" || c.model == "" {
		return "", domain.Wrap(domain.ErrConfiguration, serviceName, "complete", "endpoint or model is not configured", nil)
	}

	payload := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: safePrompt(req.SystemPrompt)},
			{Role: "user", Content: req.Prompt},
		},
		MaxTokens:           req.MaxTokens,
		Temperature:         req.Temperature,
		SearchRecencyFilter: req.RecencyFilter,
	}
	if payload.MaxTokens <= 0 {
		payload.MaxTokens = defaultMaxTokens
	}
	if payload.Temperature == 0 {
		payload.Temperature = defaultTemperature
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal completion payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", domain.Wrap(domain.ErrTransport, serviceName, "complete", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return "", &domain.UpstreamError{Service: serviceName, StatusCode: resp.StatusCode, Body: string(snippet)}
	}

	var completion chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", domain.Wrap(domain.ErrTransport, serviceName, "decode response", "", err)
	}
	if completion.Error != nil {
		return "", domain.Wrap(domain.ErrTransport, serviceName, "complete", strings.TrimSpace(completion.Error.Message), nil)
	}
	for _, choice := range completion.Choices {
		if content := strings.TrimSpace(choice.Message.Content); content != "" {
			return content, nil
		}
		if text := strings.TrimSpace(choice.Text); text != "" {
			return text, nil
		}
	}
	return "", domain.Wrap(domain.ErrTransport, serviceName, "complete", "empty choices", nil)
}

func safePrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return defaultSystem
	}
	return prompt
}
