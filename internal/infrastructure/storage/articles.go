package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"NewsDigest/internal/domain"
)

var articleColumns = []string{
	"id", "title", "slug", "content", "summary", "cover_url", "article_url",
	"status", "source", "extraction_prompt", "meta_description", "meta_keywords",
	"published_at", "created_at", "updated_at",
}

// ArticleBySlug loads an article by its unique slug.
func (s *Store) ArticleBySlug(ctx context.Context, slug string) (domain.Article, error) {
	return s.articleWhere(ctx, sq.Eq{"slug": slug}, "slug "+slug)
}

// ArticleByID loads an article by its primary key.
func (s *Store) ArticleByID(ctx context.Context, id string) (domain.Article, error) {
	return s.articleWhere(ctx, sq.Eq{"id": id}, "id "+id)
}

func (s *Store) articleWhere(ctx context.Context, where sq.Eq, label string) (domain.Article, error) {
	row, err := s.queryRow(ctx, s.sb.Select(articleColumns...).From("articles").Where(where).Limit(1))
	if err != nil {
		return domain.Article{}, err
	}
	article, err := scanArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Article{}, fmt.Errorf("article %s: %w", label, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Article{}, fmt.Errorf("load article %s: %w", label, err)
	}
	return article, nil
}

// CreateArticle inserts article, assigning ID and timestamps when absent.
func (s *Store) CreateArticle(ctx context.Context, article *domain.Article) error {
	if article.ID == "" {
		article.ID = uuid.NewString()
	}
	ts := now()
	if article.CreatedAt.IsZero() {
		article.CreatedAt = ts
	}
	article.UpdatedAt = ts
	if article.Status == "" {
		article.Status = domain.StatusDraft
	}

	keywords, err := s.listArg(article.MetaKeywords)
	if err != nil {
		return err
	}
	insert := s.sb.Insert("articles").Columns(articleColumns...).Values(
		article.ID, article.Title, article.Slug, article.Content, article.Summary,
		article.CoverURL, article.ArticleURL, string(article.Status), article.Source,
		article.ExtractionPrompt, article.MetaDescription, keywords,
		s.nullTimeArg(article.PublishedAt), s.timeArg(article.CreatedAt), s.timeArg(article.UpdatedAt),
	)
	if _, err := s.exec(ctx, insert); err != nil {
		return fmt.Errorf("insert article %s: %w", article.Slug, err)
	}
	return nil
}

// UpdateArticle writes every mutable column of article.
func (s *Store) UpdateArticle(ctx context.Context, article *domain.Article) error {
	article.UpdatedAt = now()
	keywords, err := s.listArg(article.MetaKeywords)
	if err != nil {
		return err
	}
	update := s.sb.Update("articles").SetMap(map[string]any{
		"title":             article.Title,
		"slug":              article.Slug,
		"content":           article.Content,
		"summary":           article.Summary,
		"cover_url":         article.CoverURL,
		"article_url":       article.ArticleURL,
		"status":            string(article.Status),
		"source":            article.Source,
		"extraction_prompt": article.ExtractionPrompt,
		"meta_description":  article.MetaDescription,
		"meta_keywords":     keywords,
		"published_at":      s.nullTimeArg(article.PublishedAt),
		"updated_at":        s.timeArg(article.UpdatedAt),
	}).Where(sq.Eq{"id": article.ID})

	res, err := s.exec(ctx, update)
	if err != nil {
		return fmt.Errorf("update article %s: %w", article.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("article id %s: %w", article.ID, domain.ErrNotFound)
	}
	return nil
}

// PublishedBetween returns published articles whose publish time falls in [from, to],
// newest first.
func (s *Store) PublishedBetween(ctx context.Context, from, to time.Time, limit int) ([]domain.Article, error) {
	query := s.sb.Select(articleColumns...).From("articles").
		Where(sq.Eq{"status": string(domain.StatusPublished)}).
		Where(sq.GtOrEq{"published_at": s.timeArg(from)}).
		Where(sq.LtOrEq{"published_at": s.timeArg(to)}).
		OrderBy("published_at DESC")
	if limit > 0 {
		query = query.Limit(uint64(limit))
	}

	rows, err := s.query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query published articles: %w", err)
	}
	defer rows.Close()

	var articles []domain.Article
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		articles = append(articles, article)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return articles, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticle(row rowScanner) (domain.Article, error) {
	var (
		article          domain.Article
		status           string
		keywords         listValue
		published        timeValue
		created, updated timeValue
	)
	err := row.Scan(
		&article.ID, &article.Title, &article.Slug, &article.Content, &article.Summary,
		&article.CoverURL, &article.ArticleURL, &status, &article.Source,
		&article.ExtractionPrompt, &article.MetaDescription, &keywords,
		&published, &created, &updated,
	)
	if err != nil {
		return domain.Article{}, err
	}
	article.Status = domain.ArticleStatus(status)
	article.MetaKeywords = []string(keywords)
	article.PublishedAt = published.ptr()
	article.CreatedAt = created.Time
	article.UpdatedAt = updated.Time
	return article, nil
}
