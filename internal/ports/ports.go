package ports

import (
	"context"
	"time"

	"NewsDigest/internal/domain"
)

// ArticleRepository persists articles and answers lifecycle and window queries.
type ArticleRepository interface {
	ArticleBySlug(ctx context.Context, slug string) (domain.Article, error)
	ArticleByID(ctx context.Context, id string) (domain.Article, error)
	CreateArticle(ctx context.Context, article *domain.Article) error
	UpdateArticle(ctx context.Context, article *domain.Article) error
	PublishedBetween(ctx context.Context, from, to time.Time, limit int) ([]domain.Article, error)
}

// SummaryRepository stores generated digests.
type SummaryRepository interface {
	CreateSummary(ctx context.Context, summary *domain.Summary) error
	SummaryByID(ctx context.Context, id string) (domain.Summary, error)
	MarkNewsletterSent(ctx context.Context, id string) error
}

// SubscriberRepository backs the double opt-in registry.
type SubscriberRepository interface {
	CreateSubscriber(ctx context.Context, subscriber *domain.Subscriber) error
	SubscriberByEmail(ctx context.Context, email string) (domain.Subscriber, error)
	SubscriberByConfirmationToken(ctx context.Context, token string) (domain.Subscriber, error)
	SubscriberByUnsubscribeToken(ctx context.Context, token string) (domain.Subscriber, error)
	ConfirmSubscriber(ctx context.Context, id string, at time.Time) (bool, error)
	DeactivateSubscriber(ctx context.Context, id string) error
	EligibleSubscribers(ctx context.Context) ([]domain.Subscriber, error)
	ListSubscribers(ctx context.Context) ([]domain.Subscriber, error)
}

// SendRepository records distribution runs.
type SendRepository interface {
	CreateSend(ctx context.Context, send *domain.NewsletterSend) error
}

// CompletionRequest is a single prompt sent to the search/completion service.
type CompletionRequest struct {
	SystemPrompt string
	Prompt       string
	// RecencyFilter enables online search restricted to the window ("day", "week", "month").
	RecencyFilter string
	MaxTokens     int
	Temperature   float64
}

// Completer talks to the external LLM-backed search/completion API.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Mailer delivers transactional email.
type Mailer interface {
	Send(ctx context.Context, email domain.Email) error
}

// BestEffortNotifier forwards a composed newsletter to a side channel.
// It has no error return: failures are the implementation's to log.
type BestEffortNotifier interface {
	NotifyNewsletter(ctx context.Context, webhookURL string, newsletter domain.Newsletter)
}

// Authenticator resolves a bearer token into a caller identity.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (domain.Identity, error)
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
