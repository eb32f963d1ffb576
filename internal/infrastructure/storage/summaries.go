package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"NewsDigest/internal/domain"
)

var summaryColumns = []string{
	"id", "title", "summary_content", "insights", "trending_topics",
	"period_start", "period_end", "story_count", "newsletter_sent", "created_by", "created_at",
}

// CreateSummary stores a freshly generated digest. Insights are kept newline-joined.
func (s *Store) CreateSummary(ctx context.Context, summary *domain.Summary) error {
	if summary.ID == "" {
		summary.ID = uuid.NewString()
	}
	if summary.CreatedAt.IsZero() {
		summary.CreatedAt = now()
	}
	topics, err := s.listArg(summary.TrendingTopics)
	if err != nil {
		return err
	}
	insert := s.sb.Insert("summaries").Columns(summaryColumns...).Values(
		summary.ID, summary.Title, summary.Content, strings.Join(summary.Insights, "\n"), topics,
		s.timeArg(summary.PeriodStart), s.timeArg(summary.PeriodEnd), summary.StoryCount,
		summary.NewsletterSent, summary.CreatedBy, s.timeArg(summary.CreatedAt),
	)
	if _, err := s.exec(ctx, insert); err != nil {
		return fmt.Errorf("insert summary: %w", err)
	}
	return nil
}

// SummaryByID loads a digest.
func (s *Store) SummaryByID(ctx context.Context, id string) (domain.Summary, error) {
	row, err := s.queryRow(ctx, s.sb.Select(summaryColumns...).From("summaries").Where(sq.Eq{"id": id}).Limit(1))
	if err != nil {
		return domain.Summary{}, err
	}

	var (
		summary            domain.Summary
		insights           string
		topics             listValue
		start, end, create timeValue
	)
	err = row.Scan(
		&summary.ID, &summary.Title, &summary.Content, &insights, &topics,
		&start, &end, &summary.StoryCount, &summary.NewsletterSent, &summary.CreatedBy, &create,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Summary{}, fmt.Errorf("summary %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Summary{}, fmt.Errorf("load summary %s: %w", id, err)
	}
	summary.Insights = splitLines(insights)
	summary.TrendingTopics = []string(topics)
	summary.PeriodStart = start.Time
	summary.PeriodEnd = end.Time
	summary.CreatedAt = create.Time
	return summary, nil
}

// MarkNewsletterSent flags the digest as distributed.
func (s *Store) MarkNewsletterSent(ctx context.Context, id string) error {
	res, err := s.exec(ctx, s.sb.Update("summaries").Set("newsletter_sent", true).Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("mark summary %s sent: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("summary %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func splitLines(raw string) []string {
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
