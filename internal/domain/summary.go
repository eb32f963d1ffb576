package domain

import "time"

// Summary is a periodic digest of recently published articles.
type Summary struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Content        string    `json:"summary_content"`
	Insights       []string  `json:"insights"`
	TrendingTopics []string  `json:"trending_topics"`
	PeriodStart    time.Time `json:"period_start"`
	PeriodEnd      time.Time `json:"period_end"`
	StoryCount     int       `json:"story_count"`
	NewsletterSent bool      `json:"newsletter_sent"`
	CreatedBy      string    `json:"created_by"`
	CreatedAt      time.Time `json:"created_at"`
}

// Subscriber is an email-list entrant tracked through double opt-in.
type Subscriber struct {
	ID                string     `json:"id"`
	Email             string     `json:"email"`
	ConfirmationToken string     `json:"-"`
	UnsubscribeToken  string     `json:"-"`
	IsConfirmed       bool       `json:"is_confirmed"`
	IsActive          bool       `json:"is_active"`
	SubscribedAt      time.Time  `json:"subscribed_at"`
	ConfirmedAt       *time.Time `json:"confirmed_at"`
}

// Eligible reports whether the subscriber should receive newsletters.
func (s Subscriber) Eligible() bool {
	return s.IsConfirmed && s.IsActive
}

// NewsletterSend is the audit row written after every distribution run.
type NewsletterSend struct {
	ID             string    `json:"id"`
	Subject        string    `json:"subject"`
	Content        string    `json:"content"`
	RecipientCount int       `json:"recipient_count"`
	CreatedBy      string    `json:"created_by"`
	SentAt         time.Time `json:"sent_at"`
}

// Newsletter is a composed issue ready for distribution.
type Newsletter struct {
	Subject     string     `json:"subject"`
	Content     string     `json:"content"`
	HTMLContent string     `json:"htmlContent"`
	NewsItems   []NewsItem `json:"newsItems"`
	SummaryID   string     `json:"summaryId,omitempty"`
	GeneratedAt time.Time  `json:"generatedAt"`
}

// NewsItem is the newsletter's view of an article.
type NewsItem struct {
	Title       string     `json:"title"`
	Summary     string     `json:"summary"`
	URL         string     `json:"url"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
}

// Email is a single outbound transactional message.
type Email struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// UnsubscribePlaceholder is replaced per recipient during distribution.
const UnsubscribePlaceholder = "{unsubscribe_url}"
