package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

// Client posts composed newsletters to an automation webhook (e.g. a Zapier catch hook).
type Client struct {
	defaultURL string
	client     *http.Client
}

// NewClient registers the fallback webhook URL.
func NewClient(defaultURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		defaultURL: strings.TrimSpace(defaultURL),
		client:     &http.Client{Timeout: timeout},
	}
}

type payload struct {
	Subject     string            `json:"subject"`
	Content     string            `json:"content"`
	HTMLContent string            `json:"htmlContent"`
	NewsItems   []domain.NewsItem `json:"newsItems"`
	SummaryID   string            `json:"summaryId,omitempty"`
	GeneratedAt time.Time         `json:"generatedAt"`
	Type        string            `json:"type"`
}

// Post sends the newsletter to webhookURL, or to the configured default when empty.
func (c *Client) Post(ctx context.Context, webhookURL string, newsletter domain.Newsletter) error {
	target := strings.TrimSpace(webhookURL)
	if target == "" {
		target = c.defaultURL
	}
	if target == "" {
		return domain.Wrap(domain.ErrConfiguration, "webhook", "post", "no webhook url", nil)
	}
	parsed, err := url.Parse(target)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return domain.Wrap(domain.ErrValidation, "webhook", "post", "webhook url must be http or https", err)
	}

	body, err := json.Marshal(payload{
		Subject:     newsletter.Subject,
		Content:     newsletter.Content,
		HTMLContent: newsletter.HTMLContent,
		NewsItems:   newsletter.NewsItems,
		SummaryID:   newsletter.SummaryID,
		GeneratedAt: newsletter.GeneratedAt,
		Type:        "newsletter",
	})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return domain.Wrap(domain.ErrTransport, "webhook", "post", "", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &domain.UpstreamError{Service: "webhook", StatusCode: resp.StatusCode, Body: resp.Status}
	}
	return nil
}

// BestEffort adapts Client to ports.BestEffortNotifier: failures are logged, never returned.
type BestEffort struct {
	client *Client
	logger *slog.Logger
}

var _ ports.BestEffortNotifier = (*BestEffort)(nil)

// NewBestEffort wraps client with logging.
func NewBestEffort(client *Client, logger *slog.Logger) *BestEffort {
	if logger == nil {
		logger = slog.Default()
	}
	return &BestEffort{client: client, logger: logger.With("component", "webhook")}
}

// NotifyNewsletter forwards newsletter and logs the outcome.
func (b *BestEffort) NotifyNewsletter(ctx context.Context, webhookURL string, newsletter domain.Newsletter) {
	if b == nil || b.client == nil {
		return
	}
	if err := b.client.Post(ctx, webhookURL, newsletter); err != nil {
		b.logger.Warn("webhook delivery failed", "subject", newsletter.Subject, "error", err)
		return
	}
	b.logger.Info("webhook delivered", "subject", newsletter.Subject)
}
