package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"NewsDigest/internal/domain"
)

func TestComposeBuildsIssue(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := openStore(t)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	seedPublished(t, store, 5, now.Add(-time.Hour))

	summary := domain.Summary{
		Title:          "Big week",
		Content:        "<p>Lots happened.</p><p>Agents shipped everywhere.</p>",
		Insights:       []string{"Agents <everywhere>", "Chips are scarce"},
		TrendingTopics: []string{"Agents"},
		PeriodStart:    now.AddDate(0, 0, -4),
		PeriodEnd:      now,
		StoryCount:     5,
	}
	if err := store.CreateSummary(ctx, &summary); err != nil {
		t.Fatalf("seed summary: %v", err)
	}

	notifier := &recordingNotifier{}
	composer := NewComposer(ComposerDeps{
		Articles: store, Summaries: store, Notifier: notifier, Clock: fixedClock(now),
		SiteName: "AI Weekly Digest", SiteURL: "https://digest.example.com/",
	})

	result, err := composer.Compose(ctx, ComposeRequest{SummaryID: summary.ID})
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if result.Subject != "AI Weekly Digest – March 10, 2026" {
		t.Fatalf("unexpected subject %q", result.Subject)
	}
	if len(result.NewsItems) != 3 || result.NewsItems[0].Title != "Story A" {
		t.Fatalf("expected the 3 newest items, got %+v", result.NewsItems)
	}
	if result.NewsItems[0].URL != "https://digest.example.com/news/story-a" {
		t.Fatalf("unexpected item url %q", result.NewsItems[0].URL)
	}
	if result.SummaryID != summary.ID {
		t.Fatalf("summary id not carried: %q", result.SummaryID)
	}
	if !strings.Contains(result.Content, "THE WEEK IN REVIEW\n\nLots happened.\n\nAgents shipped everywhere.") {
		t.Fatalf("text body misses the digest narrative:\n%s", result.Content)
	}
	if !strings.Contains(result.Content, "KEY INSIGHTS") || !strings.Contains(result.Content, tipOfTheWeek(now)) {
		t.Fatalf("text body misses sections:\n%s", result.Content)
	}
	if !strings.Contains(result.HTMLContent, domain.UnsubscribePlaceholder) {
		t.Fatal("html body must keep the unsubscribe placeholder")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(result.HTMLContent))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	if n := doc.Find(".news-item").Length(); n != 3 {
		t.Fatalf("expected 3 news items in html, got %d", n)
	}
	if n := doc.Find(".digest p").Length(); n != 2 || doc.Find(".digest p").First().Text() != "Lots happened." {
		t.Fatalf("digest narrative not rendered: %d paragraphs", n)
	}
	if got := doc.Find("ul.insights li").First().Text(); got != "Agents <everywhere>" {
		t.Fatalf("insight not rendered safely: %q", got)
	}
	if len(notifier.urls) != 0 {
		t.Fatal("webhook must not fire unless requested")
	}
}

func TestComposeWithoutSummaryOrArticles(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	store := openStore(t)
	composer := NewComposer(ComposerDeps{Articles: store, Summaries: store, Clock: fixedClock(now)})

	result, err := composer.Compose(context.Background(), ComposeRequest{})
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if len(result.NewsItems) != 0 || !strings.Contains(result.Content, "No new stories this week") {
		t.Fatalf("unexpected empty issue: %+v", result.Newsletter)
	}
	if strings.Contains(result.Content, "KEY INSIGHTS") || strings.Contains(result.Content, "THE WEEK IN REVIEW") {
		t.Fatal("insights section must be omitted without a summary")
	}
}

func TestComposeUnknownSummary(t *testing.T) {
	t.Parallel()
	store := openStore(t)
	composer := NewComposer(ComposerDeps{Articles: store, Summaries: store})

	if _, err := composer.Compose(context.Background(), ComposeRequest{SummaryID: "missing"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestComposeTriggersWebhook(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	store := openStore(t)
	seedPublished(t, store, 1, now.Add(-time.Hour))
	notifier := &recordingNotifier{}
	composer := NewComposer(ComposerDeps{Articles: store, Summaries: store, Notifier: notifier, Clock: fixedClock(now)})

	result, err := composer.Compose(context.Background(), ComposeRequest{TriggerWebhook: true, WebhookURL: "https://hooks.example.com/x"})
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if len(notifier.urls) != 1 || notifier.urls[0] != "https://hooks.example.com/x" {
		t.Fatalf("unexpected webhook calls: %v", notifier.urls)
	}
	if notifier.items[0].Subject != result.Subject {
		t.Fatalf("webhook received a different issue: %+v", notifier.items[0])
	}
}

func TestTipOfTheWeekIsStableWithinAWeek(t *testing.T) {
	t.Parallel()
	monday := time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)
	sunday := monday.AddDate(0, 0, 6)
	if tipOfTheWeek(monday) != tipOfTheWeek(sunday) {
		t.Fatal("tip should not change within an ISO week")
	}
	if tipOfTheWeek(monday) == tipOfTheWeek(monday.AddDate(0, 0, 7)) {
		t.Fatal("tip should rotate between consecutive weeks")
	}
}
