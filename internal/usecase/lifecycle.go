package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/infrastructure/llm"
	"NewsDigest/internal/ports"
)

const (
	enhanceSystemPrompt = "You are an expert technology editor. Answer with a single JSON object only."
	enhancePrompt       = `Improve the following AI news article.
Return a JSON object with:
- "content": an improved 400-600 word article body in simple HTML paragraphs
- "summary": an improved 2-3 sentence summary
- "meta_description": an SEO description under 160 characters
- "keywords": a list of 5-8 SEO keywords

Title: %s

Article:
%s`
)

// LifecycleDeps wires the lifecycle worker.
type LifecycleDeps struct {
	Articles  ports.ArticleRepository
	Completer ports.Completer
	Logger    *slog.Logger
	Clock     Clock
}

// Lifecycle moves articles between draft, published and archived and runs AI rewrites.
type Lifecycle struct {
	articles  ports.ArticleRepository
	completer ports.Completer
	logger    *slog.Logger
	clock     Clock
}

// LifecycleRequest names the article and the transition.
type LifecycleRequest struct {
	ArticleID string `json:"articleId"`
	Action    string `json:"action"`
}

// LifecycleResult carries the stored article after the transition.
type LifecycleResult struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Article domain.Article `json:"article"`
}

// NewLifecycle constructs the lifecycle worker.
func NewLifecycle(deps LifecycleDeps) *Lifecycle {
	return &Lifecycle{
		articles:  deps.Articles,
		completer: deps.Completer,
		logger:    componentLogger(deps.Logger, "lifecycle"),
		clock:     deps.Clock,
	}
}

// Apply validates the action, loads the article and performs the transition.
func (l *Lifecycle) Apply(ctx context.Context, req LifecycleRequest) (LifecycleResult, error) {
	action, err := domain.ParseLifecycleAction(strings.ToLower(strings.TrimSpace(req.Action)))
	if err != nil {
		return LifecycleResult{}, err
	}
	if strings.TrimSpace(req.ArticleID) == "" {
		return LifecycleResult{}, domain.Wrap(domain.ErrValidation, "lifecycle", "apply", "articleId is required", nil)
	}

	article, err := l.articles.ArticleByID(ctx, req.ArticleID)
	if err != nil {
		return LifecycleResult{}, fmt.Errorf("lifecycle: load article: %w", err)
	}

	var message string
	switch action {
	case domain.ActionPublish:
		published := l.clock.now().UTC()
		article.Status = domain.StatusPublished
		article.PublishedAt = &published
		message = "Article published"
	case domain.ActionArchive:
		article.Status = domain.StatusArchived
		message = "Article archived"
	case domain.ActionDraft:
		article.Status = domain.StatusDraft
		article.PublishedAt = nil
		message = "Article moved to draft"
	case domain.ActionEnhance:
		if err := l.enhance(ctx, &article); err != nil {
			return LifecycleResult{}, err
		}
		message = "Article enhanced"
	}

	if err := l.articles.UpdateArticle(ctx, &article); err != nil {
		return LifecycleResult{}, fmt.Errorf("lifecycle: update article: %w", err)
	}
	l.logger.Info("lifecycle applied", "article", article.ID, "action", action, "status", article.Status)
	return LifecycleResult{Success: true, Message: message, Article: article}, nil
}

func (l *Lifecycle) enhance(ctx context.Context, article *domain.Article) error {
	if l.completer == nil {
		return domain.Wrap(domain.ErrConfiguration, "lifecycle", "enhance", "completion client missing", nil)
	}
	reply, err := l.completer.Complete(ctx, ports.CompletionRequest{
		SystemPrompt: enhanceSystemPrompt,
		Prompt:       fmt.Sprintf(enhancePrompt, article.Title, article.Content),
		MaxTokens:    4000,
	})
	if err != nil {
		return fmt.Errorf("lifecycle: enhance: %w", err)
	}

	decodeEnhancement(reply).mergeInto(article)
	return nil
}

type enhancement struct {
	Content         string       `json:"content"`
	Summary         string       `json:"summary"`
	MetaDescription string       `json:"meta_description"`
	Keywords        flexibleList `json:"keywords"`
}

// mergeInto overwrites only the fields the rewrite actually supplied.
func (e enhancement) mergeInto(article *domain.Article) {
	if v := strings.TrimSpace(e.Content); v != "" {
		article.Content = v
	}
	if v := strings.TrimSpace(e.Summary); v != "" {
		article.Summary = v
	}
	if v := strings.TrimSpace(e.MetaDescription); v != "" {
		article.MetaDescription = v
	}
	if len(e.Keywords) > 0 {
		article.MetaKeywords = []string(e.Keywords)
	}
}

// parseEnhancement is the strict path: a JSON object with at least one usable field.
func parseEnhancement(reply string) (enhancement, error) {
	var e enhancement
	if err := llm.DecodeObject(reply, &e); err != nil {
		return enhancement{}, err
	}
	if firstNonEmpty(e.Content, e.Summary, e.MetaDescription) == "" && len(e.Keywords) == 0 {
		return enhancement{}, fmt.Errorf("%w: enhancement carries no fields", llm.ErrNoJSON)
	}
	return e, nil
}

// fallbackEnhancement keeps the rewrite by storing the raw reply as the body.
func fallbackEnhancement(reply string) enhancement {
	return enhancement{Content: strings.TrimSpace(reply)}
}

func decodeEnhancement(reply string) enhancement {
	e, err := parseEnhancement(reply)
	if err != nil {
		return fallbackEnhancement(reply)
	}
	return e
}
