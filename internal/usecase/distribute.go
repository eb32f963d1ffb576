package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

// DistributorDeps wires the distribution worker.
type DistributorDeps struct {
	Subscribers ports.SubscriberRepository
	Sends       ports.SendRepository
	Mailer      ports.Mailer
	Logger      *slog.Logger
	SiteURL     string
	BatchSize   int
	BatchDelay  time.Duration
}

// Distributor delivers a newsletter to every eligible subscriber in batches.
type Distributor struct {
	subscribers ports.SubscriberRepository
	sends       ports.SendRepository
	mailer      ports.Mailer
	logger      *slog.Logger
	siteURL     string
	batchSize   int
	batchDelay  time.Duration
}

// SendRequest is the distribution input.
type SendRequest struct {
	Subject     string `json:"subject"`
	Content     string `json:"content"`
	HTMLContent string `json:"htmlContent"`
}

// RecipientError records one failed delivery.
type RecipientError struct {
	Email string `json:"email"`
	Error string `json:"error"`
}

// SendResult aggregates per-recipient outcomes. SentCount+len(Errors) == TotalSubscribers.
type SendResult struct {
	Success          bool             `json:"success"`
	SentCount        int              `json:"sent_count"`
	TotalSubscribers int              `json:"total_subscribers"`
	Errors           []RecipientError `json:"errors,omitempty"`
}

// NewDistributor constructs the distribution worker.
func NewDistributor(deps DistributorDeps) *Distributor {
	batchSize := deps.BatchSize
	if batchSize <= 0 {
		batchSize = 50
	}
	delay := deps.BatchDelay
	if delay < 0 {
		delay = 0
	}
	return &Distributor{
		subscribers: deps.Subscribers,
		sends:       deps.Sends,
		mailer:      deps.Mailer,
		logger:      componentLogger(deps.Logger, "distribute"),
		siteURL:     strings.TrimRight(deps.SiteURL, "/"),
		batchSize:   batchSize,
		batchDelay:  delay,
	}
}

// Send delivers the newsletter to every confirmed and active subscriber. Individual
// failures are collected in the result; the send record is written with the success count.
func (d *Distributor) Send(ctx context.Context, caller *domain.Identity, req SendRequest) (SendResult, error) {
	if err := domain.RequireAdmin(caller, "distribute"); err != nil {
		return SendResult{}, err
	}
	if strings.TrimSpace(req.Subject) == "" || strings.TrimSpace(req.Content) == "" {
		return SendResult{}, domain.Wrap(domain.ErrValidation, "distribute", "send", "subject and content are required", nil)
	}
	if d.mailer == nil {
		return SendResult{}, domain.Wrap(domain.ErrConfiguration, "distribute", "send", "mailer missing", nil)
	}

	recipients, err := d.subscribers.EligibleSubscribers(ctx)
	if err != nil {
		return SendResult{}, fmt.Errorf("distribute: load subscribers: %w", err)
	}
	result := SendResult{Success: true, TotalSubscribers: len(recipients)}
	if len(recipients) == 0 {
		d.logger.Info("no eligible subscribers")
		return result, nil
	}

	outcomes := make([]error, len(recipients))
	for start := 0; start < len(recipients); start += d.batchSize {
		if start > 0 {
			if err := sleepContext(ctx, d.batchDelay); err != nil {
				for i := start; i < len(recipients); i++ {
					outcomes[i] = err
				}
				break
			}
		}
		end := min(start+d.batchSize, len(recipients))
		d.sendBatch(ctx, req, recipients[start:end], outcomes[start:end])
		d.logger.Debug("batch delivered", "from", start, "to", end)
	}

	for i, outcome := range outcomes {
		if outcome == nil {
			result.SentCount++
			continue
		}
		result.Errors = append(result.Errors, RecipientError{Email: recipients[i].Email, Error: outcome.Error()})
	}

	send := domain.NewsletterSend{
		Subject:        req.Subject,
		Content:        req.Content,
		RecipientCount: result.SentCount,
		CreatedBy:      caller.Subject,
	}
	// The audit row is kept even when the run was cancelled mid-way.
	if err := d.sends.CreateSend(context.WithoutCancel(ctx), &send); err != nil {
		return result, fmt.Errorf("distribute: record send: %w", err)
	}

	d.logger.Info("newsletter distributed", "subject", req.Subject, "sent", result.SentCount,
		"failed", len(result.Errors), "total", result.TotalSubscribers)
	return result, nil
}

// sendBatch delivers to every recipient concurrently; outcomes[i] receives recipient i's error.
// The group only fans out; failures land in outcomes, so every goroutine returns nil.
func (d *Distributor) sendBatch(ctx context.Context, req SendRequest, batch []domain.Subscriber, outcomes []error) {
	var g errgroup.Group
	g.SetLimit(d.batchSize)
	for i, subscriber := range batch {
		g.Go(func() error {
			outcomes[i] = d.mailer.Send(ctx, d.personalise(req, subscriber))
			return nil
		})
	}
	_ = g.Wait()
}

func (d *Distributor) personalise(req SendRequest, subscriber domain.Subscriber) domain.Email {
	unsubscribeURL := d.siteURL + "/unsubscribe?token=" + url.QueryEscape(subscriber.UnsubscribeToken)

	text := strings.ReplaceAll(req.Content, domain.UnsubscribePlaceholder, unsubscribeURL)
	text = strings.TrimRight(text, "\n") + "\n\n---\nUnsubscribe: " + unsubscribeURL + "\n"

	return domain.Email{
		To:      subscriber.Email,
		Subject: req.Subject,
		Text:    text,
		HTML:    strings.ReplaceAll(req.HTMLContent, domain.UnsubscribePlaceholder, unsubscribeURL),
	}
}

func sleepContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
