package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/infrastructure/htmltext"
	"NewsDigest/internal/infrastructure/llm"
	"NewsDigest/internal/ports"
)

const maxIngestArticles = 20

const (
	ingestSystemPrompt = "You are an AI news researcher. You search the web for current, factual " +
		"AI and technology news and answer with a JSON array only."
	defaultIngestPrompt = `Find the most important AI and technology news stories from the past week.
Return a JSON array of %d objects. Each object must have:
- "title": the headline
- "summary": a 2-3 sentence summary
- "content": a 300-500 word article body in simple HTML paragraphs
- "published_date": the publication date (YYYY-MM-DD)
- "source_url": the original source URL, if known
- "slug": a URL-friendly slug
- "meta_description": an SEO description under 160 characters
Return only the JSON array.`
)

// IngestDeps wires the ingestion worker.
type IngestDeps struct {
	Articles           ports.ArticleRepository
	Completer          ports.Completer
	Logger             *slog.Logger
	Clock              Clock
	DefaultMaxArticles int
	RecencyFilter      string
}

// Ingestor pulls fresh articles from the completion service into the store.
type Ingestor struct {
	articles      ports.ArticleRepository
	completer     ports.Completer
	logger        *slog.Logger
	clock         Clock
	defaultMax    int
	recencyFilter string
}

// IngestRequest is the ingestion input.
type IngestRequest struct {
	Prompt      string `json:"prompt"`
	AutoPublish bool   `json:"autoPublish"`
	MaxArticles int    `json:"maxArticles"`
}

// IngestResult lists the articles that were inserted by this run.
type IngestResult struct {
	Success  bool                 `json:"success"`
	Message  string               `json:"message"`
	Articles []domain.Article     `json:"articles"`
	Status   domain.ArticleStatus `json:"status"`
}

// NewIngestor constructs the ingestion worker.
func NewIngestor(deps IngestDeps) *Ingestor {
	recency := deps.RecencyFilter
	if recency == "" {
		recency = "week"
	}
	return &Ingestor{
		articles:      deps.Articles,
		completer:     deps.Completer,
		logger:        componentLogger(deps.Logger, "ingest"),
		clock:         deps.Clock,
		defaultMax:    clamp(deps.DefaultMaxArticles, 5, 1, maxIngestArticles),
		recencyFilter: recency,
	}
}

// Ingest asks the completion service for news, coerces the reply into articles and
// inserts every candidate whose slug is not yet stored.
func (w *Ingestor) Ingest(ctx context.Context, req IngestRequest) (IngestResult, error) {
	if w.completer == nil || w.articles == nil {
		return IngestResult{}, domain.Wrap(domain.ErrConfiguration, "ingest", "start", "completion client or store missing", nil)
	}

	maxArticles := clamp(req.MaxArticles, w.defaultMax, 1, maxIngestArticles)
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		prompt = fmt.Sprintf(defaultIngestPrompt, maxArticles)
	}

	reply, err := w.completer.Complete(ctx, ports.CompletionRequest{
		SystemPrompt:  ingestSystemPrompt,
		Prompt:        prompt,
		RecencyFilter: w.recencyFilter,
		MaxTokens:     8000,
	})
	if err != nil {
		return IngestResult{}, fmt.Errorf("ingest: complete: %w", err)
	}

	now := w.clock.now().UTC()
	candidates := decodeArticleCandidates(reply, now)
	if len(candidates) > maxArticles {
		candidates = candidates[:maxArticles]
	}

	status := domain.StatusDraft
	if req.AutoPublish {
		status = domain.StatusPublished
	}

	inserted := make([]domain.Article, 0, len(candidates))
	for i, candidate := range candidates {
		slug := domain.Slugify(firstNonEmpty(candidate.Slug, candidate.Title))
		if slug == "" {
			slug = fmt.Sprintf("ai-news-%d-%d", now.Unix(), i)
		}

		_, err := w.articles.ArticleBySlug(ctx, slug)
		switch {
		case err == nil:
			w.logger.Debug("skip existing article", "slug", slug)
			continue
		case !errors.Is(err, domain.ErrNotFound):
			return IngestResult{}, fmt.Errorf("ingest: check slug %s: %w", slug, err)
		}

		article := candidate.article(slug, prompt, status, now)
		if err := w.articles.CreateArticle(ctx, &article); err != nil {
			return IngestResult{}, fmt.Errorf("ingest: insert %s: %w", slug, err)
		}
		inserted = append(inserted, article)
	}

	w.logger.Info("ingestion finished", "candidates", len(candidates), "inserted", len(inserted), "status", status)
	return IngestResult{
		Success:  true,
		Message:  fmt.Sprintf("Ingested %d new article(s) from %d candidate(s)", len(inserted), len(candidates)),
		Articles: inserted,
		Status:   status,
	}, nil
}

type articleCandidate struct {
	Title           string `json:"title"`
	Summary         string `json:"summary"`
	Content         string `json:"content"`
	PublishedDate   string `json:"published_date"`
	SourceURL       string `json:"source_url"`
	URL             string `json:"url"`
	Slug            string `json:"slug"`
	MetaDescription string `json:"meta_description"`
}

func (c articleCandidate) article(slug, prompt string, status domain.ArticleStatus, now time.Time) domain.Article {
	content := firstNonEmpty(c.Content, c.Summary)
	summary := firstNonEmpty(c.Summary, htmltext.Truncate(htmltext.Plain(content), 280))
	article := domain.Article{
		Title:            strings.TrimSpace(c.Title),
		Slug:             slug,
		Content:          content,
		Summary:          summary,
		ArticleURL:       firstNonEmpty(c.SourceURL, c.URL),
		Status:           status,
		Source:           domain.SourceIngested,
		ExtractionPrompt: prompt,
		MetaDescription:  firstNonEmpty(c.MetaDescription, htmltext.Truncate(summary, 155)),
	}
	if status == domain.StatusPublished {
		published := now
		article.PublishedAt = &published
	}
	return article
}

// parseArticleCandidates is the strict path: a JSON array whose items carry a title and
// some content. Items failing validation are dropped; no valid item is an error.
func parseArticleCandidates(reply string) ([]articleCandidate, error) {
	var raw []articleCandidate
	if err := llm.DecodeArray(reply, &raw); err != nil {
		return nil, err
	}
	valid := make([]articleCandidate, 0, len(raw))
	for _, c := range raw {
		if strings.TrimSpace(c.Title) == "" || firstNonEmpty(c.Content, c.Summary) == "" {
			continue
		}
		valid = append(valid, c)
	}
	if len(valid) == 0 {
		return nil, fmt.Errorf("%w: no article carries a title and content", llm.ErrNoJSON)
	}
	return valid, nil
}

// fallbackArticleCandidates wraps the raw reply into a single article.
func fallbackArticleCandidates(reply string, now time.Time) []articleCandidate {
	body := strings.TrimSpace(reply)
	return []articleCandidate{{
		Title:   "AI News Update – " + now.Format("January 2, 2006"),
		Content: body,
		Summary: htmltext.Truncate(htmltext.Plain(body), 280),
	}}
}

func decodeArticleCandidates(reply string, now time.Time) []articleCandidate {
	candidates, err := parseArticleCandidates(reply)
	if err != nil {
		return fallbackArticleCandidates(reply, now)
	}
	return candidates
}
