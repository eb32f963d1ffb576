package usecase

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"NewsDigest/internal/config"
	"NewsDigest/internal/domain"
	"NewsDigest/internal/infrastructure/storage"
	"NewsDigest/internal/ports"
)

var admin = domain.Identity{Subject: "editor", Roles: []string{domain.RoleAdmin}}

func openStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.Open(context.Background(), config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "digest.db"),
	})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

// fakeCompleter replays scripted replies and records every request.
type fakeCompleter struct {
	mu       sync.Mutex
	replies  []string
	err      error
	requests []ports.CompletionRequest
}

func (f *fakeCompleter) Complete(_ context.Context, req ports.CompletionRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) == 0 {
		return "", errors.New("no scripted reply")
	}
	reply := f.replies[0]
	if len(f.replies) > 1 {
		f.replies = f.replies[1:]
	}
	return reply, nil
}

func (f *fakeCompleter) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

// fakeMailer records deliveries and fails for addresses listed in failFor.
type fakeMailer struct {
	mu      sync.Mutex
	failFor map[string]bool
	sent    []domain.Email
}

func (f *fakeMailer) Send(_ context.Context, msg domain.Email) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[msg.To] {
		return &domain.UpstreamError{Service: "email", StatusCode: 422, Body: "rejected"}
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeMailer) messagesTo(addr string) []domain.Email {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Email
	for _, m := range f.sent {
		if m.To == addr {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeMailer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type recordingNotifier struct {
	mu    sync.Mutex
	urls  []string
	items []domain.Newsletter
}

func (r *recordingNotifier) NotifyNewsletter(_ context.Context, webhookURL string, newsletter domain.Newsletter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.urls = append(r.urls, webhookURL)
	r.items = append(r.items, newsletter)
}

// countingSummaries wraps a SummaryRepository and counts writes.
type countingSummaries struct {
	ports.SummaryRepository
	mu      sync.Mutex
	created int
	marked  int
}

func (c *countingSummaries) CreateSummary(ctx context.Context, s *domain.Summary) error {
	c.mu.Lock()
	c.created++
	c.mu.Unlock()
	return c.SummaryRepository.CreateSummary(ctx, s)
}

func (c *countingSummaries) MarkNewsletterSent(ctx context.Context, id string) error {
	c.mu.Lock()
	c.marked++
	c.mu.Unlock()
	return c.SummaryRepository.MarkNewsletterSent(ctx, id)
}

// countingSends wraps a SendRepository and counts writes.
type countingSends struct {
	ports.SendRepository
	mu      sync.Mutex
	records []domain.NewsletterSend
}

func (c *countingSends) CreateSend(ctx context.Context, s *domain.NewsletterSend) error {
	c.mu.Lock()
	c.records = append(c.records, *s)
	c.mu.Unlock()
	return c.SendRepository.CreateSend(ctx, s)
}

func seedPublished(t *testing.T, store *storage.Store, n int, publishedAt time.Time) {
	t.Helper()
	for i := 0; i < n; i++ {
		at := publishedAt.Add(-time.Duration(i) * time.Hour)
		title := "Story " + string(rune('A'+i))
		article := &domain.Article{
			Title:       title,
			Slug:        domain.Slugify(title),
			Content:     "<p>Body of " + title + "</p>",
			Summary:     "Summary of " + title,
			Status:      domain.StatusPublished,
			Source:      domain.SourceManual,
			PublishedAt: &at,
		}
		if err := store.CreateArticle(context.Background(), article); err != nil {
			t.Fatalf("seed article: %v", err)
		}
	}
}

func seedSubscriber(t *testing.T, store *storage.Store, email string, confirmed, active bool) domain.Subscriber {
	t.Helper()
	token := strings.NewReplacer("@", "-", ".", "-").Replace(email)
	s := domain.Subscriber{
		Email:             email,
		ConfirmationToken: "confirm-" + token,
		UnsubscribeToken:  "unsub-" + token,
		IsConfirmed:       confirmed,
		IsActive:          active,
	}
	if confirmed {
		at := time.Now().UTC()
		s.ConfirmedAt = &at
	}
	if err := store.CreateSubscriber(context.Background(), &s); err != nil {
		t.Fatalf("seed subscriber: %v", err)
	}
	return s
}
