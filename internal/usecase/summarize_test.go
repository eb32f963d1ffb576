package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"NewsDigest/internal/domain"
)

func TestSummarizeStoresDigest(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := openStore(t)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	seedPublished(t, store, 3, now.Add(-time.Hour))

	old := now.AddDate(0, 0, -10)
	stale := &domain.Article{Title: "Old", Slug: "old", Content: "old", Status: domain.StatusPublished, PublishedAt: &old}
	if err := store.CreateArticle(ctx, stale); err != nil {
		t.Fatalf("seed stale: %v", err)
	}

	completer := &fakeCompleter{replies: []string{`{"title":"Big week","summary":"Lots happened.","insights":["one","two"],"trending_topics":"Agents, Chips"}`}}
	summarizer := NewSummarizer(SummarizerDeps{Articles: store, Summaries: store, Completer: completer, Clock: fixedClock(now)})

	result, err := summarizer.Summarize(ctx, &admin, SummarizeRequest{})
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if result.StoriesAnalyzed != 3 || result.Summary.StoryCount != 3 {
		t.Fatalf("expected 3 stories, got %+v", result)
	}
	if !result.PeriodStart.Equal(now.AddDate(0, 0, -4)) || !result.PeriodEnd.Equal(now) {
		t.Fatalf("unexpected period %s..%s", result.PeriodStart, result.PeriodEnd)
	}
	if !strings.Contains(completer.requests[0].Prompt, "Story A") || strings.Contains(completer.requests[0].Prompt, "Old") {
		t.Fatalf("prompt should only list recent stories: %s", completer.requests[0].Prompt)
	}

	stored, err := store.SummaryByID(ctx, result.Summary.ID)
	if err != nil {
		t.Fatalf("load summary: %v", err)
	}
	if stored.Title != "Big week" || stored.NewsletterSent || stored.CreatedBy != "editor" {
		t.Fatalf("unexpected stored summary: %+v", stored)
	}
	if len(stored.TrendingTopics) != 2 || stored.TrendingTopics[0] != "Agents" || len(stored.Insights) != 2 {
		t.Fatalf("unexpected lists: %+v", stored)
	}
}

func TestSummarizeNoStories(t *testing.T) {
	t.Parallel()
	completer := &fakeCompleter{replies: []string{"{}"}}
	summaries := &countingSummaries{SummaryRepository: openStore(t)}
	store := openStore(t)
	summarizer := NewSummarizer(SummarizerDeps{Articles: store, Summaries: summaries, Completer: completer})

	_, err := summarizer.Summarize(context.Background(), &admin, SummarizeRequest{DaysBack: 2})
	if !errors.Is(err, domain.ErrNoStories) {
		t.Fatalf("expected ErrNoStories, got %v", err)
	}
	if completer.calls() != 0 || summaries.created != 0 {
		t.Fatalf("expected no side effects, got %d calls and %d summaries", completer.calls(), summaries.created)
	}
}

func TestSummarizeMalformedReplyStillStoresOne(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := openStore(t)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	seedPublished(t, store, 2, now.Add(-time.Hour))

	summaries := &countingSummaries{SummaryRepository: store}
	completer := &fakeCompleter{replies: []string{"This week was huge for open models."}}
	summarizer := NewSummarizer(SummarizerDeps{Articles: store, Summaries: summaries, Completer: completer, Clock: fixedClock(now)})

	result, err := summarizer.Summarize(ctx, &admin, SummarizeRequest{})
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if summaries.created != 1 {
		t.Fatalf("expected exactly one summary, got %d", summaries.created)
	}
	if result.Summary.Title != "AI News Digest: March 6 – March 10, 2026" {
		t.Fatalf("unexpected fallback title %q", result.Summary.Title)
	}
	if result.Summary.Content != "This week was huge for open models." || len(result.Summary.Insights) != 3 || len(result.Summary.TrendingTopics) != 3 {
		t.Fatalf("unexpected fallback summary: %+v", result.Summary)
	}
}

func TestSummarizeRequiresAdmin(t *testing.T) {
	t.Parallel()
	completer := &fakeCompleter{replies: []string{"{}"}}
	store := openStore(t)
	summarizer := NewSummarizer(SummarizerDeps{Articles: store, Summaries: store, Completer: completer})

	reader := domain.Identity{Subject: "reader"}
	if _, err := summarizer.Summarize(context.Background(), &reader, SummarizeRequest{}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := summarizer.Summarize(context.Background(), nil, SummarizeRequest{}); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestDecodeDigestFillsMissingLists(t *testing.T) {
	t.Parallel()
	start := time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 4)

	d := decodeDigest(`{"title":"T","summary":"S","insights":"- first\n"}`, start, end)
	if d.Title != "T" || len(d.Insights) != 1 || d.Insights[0] != "first" {
		t.Fatalf("unexpected digest: %+v", d)
	}
	if len(d.TrendingTopics) != len(fallbackTopics) {
		t.Fatalf("expected fallback topics, got %v", d.TrendingTopics)
	}
}
