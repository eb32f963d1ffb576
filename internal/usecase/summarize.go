package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/infrastructure/htmltext"
	"NewsDigest/internal/infrastructure/llm"
	"NewsDigest/internal/ports"
)

const (
	maxSummaryDaysBack  = 30
	summarySystemPrompt = "You are a senior AI industry analyst writing a weekly newsletter digest. " +
		"Answer with a single JSON object only."
	summaryPrompt = `Analyse the following %d AI news stories published between %s and %s.

%s
Return a JSON object with:
- "title": a compelling digest title
- "summary": a 300-500 word narrative identifying the 3-5 most important developments and the connections between stories
- "insights": a list of 3-4 key insight bullets
- "trending_topics": a comma-separated line of trending topics`
)

var (
	fallbackInsights = []string{
		"AI development continues at a rapid pace across the industry.",
		"New models and tools are reaching developers and businesses faster than ever.",
		"Policy, safety and adoption questions remain central to the conversation.",
	}
	fallbackTopics = []string{"Artificial Intelligence", "Machine Learning", "Tech Industry"}
)

// SummarizerDeps wires the summarizer.
type SummarizerDeps struct {
	Articles        ports.ArticleRepository
	Summaries       ports.SummaryRepository
	Completer       ports.Completer
	Logger          *slog.Logger
	Clock           Clock
	DefaultDaysBack int
	MaxArticles     int
}

// Summarizer turns recently published articles into a stored digest.
type Summarizer struct {
	articles    ports.ArticleRepository
	summaries   ports.SummaryRepository
	completer   ports.Completer
	logger      *slog.Logger
	clock       Clock
	daysBack    int
	maxArticles int
}

// SummarizeRequest is the summarizer input.
type SummarizeRequest struct {
	DaysBack int `json:"daysBack"`
}

// SummarizeResult describes the stored digest.
type SummarizeResult struct {
	Success         bool           `json:"success"`
	Summary         domain.Summary `json:"summary"`
	StoriesAnalyzed int            `json:"storiesAnalyzed"`
	PeriodStart     time.Time      `json:"periodStart"`
	PeriodEnd       time.Time      `json:"periodEnd"`
}

// NewSummarizer constructs the summarizer.
func NewSummarizer(deps SummarizerDeps) *Summarizer {
	return &Summarizer{
		articles:    deps.Articles,
		summaries:   deps.Summaries,
		completer:   deps.Completer,
		logger:      componentLogger(deps.Logger, "summarize"),
		clock:       deps.Clock,
		daysBack:    clamp(deps.DefaultDaysBack, 4, 1, maxSummaryDaysBack),
		maxArticles: clamp(deps.MaxArticles, 20, 1, 100),
	}
}

// Summarize builds and persists a digest of the articles published in the last daysBack days.
func (s *Summarizer) Summarize(ctx context.Context, caller *domain.Identity, req SummarizeRequest) (SummarizeResult, error) {
	if err := domain.RequireAdmin(caller, "summarize"); err != nil {
		return SummarizeResult{}, err
	}
	if s.completer == nil {
		return SummarizeResult{}, domain.Wrap(domain.ErrConfiguration, "summarize", "start", "completion client missing", nil)
	}

	daysBack := clamp(req.DaysBack, s.daysBack, 1, maxSummaryDaysBack)
	end := s.clock.now().UTC()
	start := end.AddDate(0, 0, -daysBack)

	articles, err := s.articles.PublishedBetween(ctx, start, end, s.maxArticles)
	if err != nil {
		return SummarizeResult{}, fmt.Errorf("summarize: load articles: %w", err)
	}
	if len(articles) == 0 {
		return SummarizeResult{}, domain.Wrap(domain.ErrNoStories, "summarize", "load articles",
			fmt.Sprintf("no published articles in the last %d days", daysBack), nil)
	}

	reply, err := s.completer.Complete(ctx, ports.CompletionRequest{
		SystemPrompt: summarySystemPrompt,
		Prompt:       fmt.Sprintf(summaryPrompt, len(articles), start.Format(time.DateOnly), end.Format(time.DateOnly), articleBlock(articles)),
		MaxTokens:    3000,
	})
	if err != nil {
		return SummarizeResult{}, fmt.Errorf("summarize: complete: %w", err)
	}

	digest := decodeDigest(reply, start, end)
	summary := domain.Summary{
		Title:          digest.Title,
		Content:        digest.Summary,
		Insights:       []string(digest.Insights),
		TrendingTopics: []string(digest.TrendingTopics),
		PeriodStart:    start,
		PeriodEnd:      end,
		StoryCount:     len(articles),
		CreatedBy:      caller.Subject,
	}
	if err := s.summaries.CreateSummary(ctx, &summary); err != nil {
		return SummarizeResult{}, fmt.Errorf("summarize: store summary: %w", err)
	}

	s.logger.Info("summary stored", "summary", summary.ID, "stories", summary.StoryCount, "days_back", daysBack)
	return SummarizeResult{
		Success:         true,
		Summary:         summary,
		StoriesAnalyzed: len(articles),
		PeriodStart:     start,
		PeriodEnd:       end,
	}, nil
}

func articleBlock(articles []domain.Article) string {
	var b strings.Builder
	for i, a := range articles {
		fmt.Fprintf(&b, "%d. %s\n", i+1, a.Title)
		if a.PublishedAt != nil {
			fmt.Fprintf(&b, "   Published: %s\n", a.PublishedAt.Format(time.DateOnly))
		}
		if summary := firstNonEmpty(a.Summary, htmltext.Truncate(htmltext.Plain(a.Content), 400)); summary != "" {
			fmt.Fprintf(&b, "   Summary: %s\n", summary)
		}
		if a.MetaDescription != "" {
			fmt.Fprintf(&b, "   Description: %s\n", a.MetaDescription)
		}
		if len(a.MetaKeywords) > 0 {
			fmt.Fprintf(&b, "   Keywords: %s\n", strings.Join(a.MetaKeywords, ", "))
		}
		b.WriteString("\n")
	}
	return b.String()
}

type digest struct {
	Title          string       `json:"title"`
	Summary        string       `json:"summary"`
	Insights       flexibleList `json:"insights"`
	TrendingTopics flexibleList `json:"trending_topics"`
}

// parseDigest is the strict path: a JSON object with a title and a narrative.
func parseDigest(reply string) (digest, error) {
	var d digest
	if err := llm.DecodeObject(reply, &d); err != nil {
		return digest{}, err
	}
	d.Title = strings.TrimSpace(d.Title)
	d.Summary = strings.TrimSpace(d.Summary)
	if d.Title == "" || d.Summary == "" {
		return digest{}, fmt.Errorf("%w: digest misses title or summary", llm.ErrNoJSON)
	}
	return d, nil
}

// fallbackDigest builds a generic digest around the raw reply.
func fallbackDigest(reply string, start, end time.Time) digest {
	return digest{
		Title:          fmt.Sprintf("AI News Digest: %s – %s", start.Format("January 2"), end.Format("January 2, 2006")),
		Summary:        strings.TrimSpace(reply),
		Insights:       append(flexibleList(nil), fallbackInsights...),
		TrendingTopics: append(flexibleList(nil), fallbackTopics...),
	}
}

func decodeDigest(reply string, start, end time.Time) digest {
	d, err := parseDigest(reply)
	if err != nil {
		return fallbackDigest(reply, start, end)
	}
	if len(d.Insights) == 0 {
		d.Insights = append(flexibleList(nil), fallbackInsights...)
	}
	if len(d.TrendingTopics) == 0 {
		d.TrendingTopics = append(flexibleList(nil), fallbackTopics...)
	}
	return d
}
