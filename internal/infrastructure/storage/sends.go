package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"NewsDigest/internal/domain"
)

// CreateSend records a completed distribution run.
func (s *Store) CreateSend(ctx context.Context, send *domain.NewsletterSend) error {
	if send.ID == "" {
		send.ID = uuid.NewString()
	}
	if send.SentAt.IsZero() {
		send.SentAt = now()
	}
	insert := s.sb.Insert("newsletter_sends").
		Columns("id", "subject", "content", "recipient_count", "created_by", "sent_at").
		Values(send.ID, send.Subject, send.Content, send.RecipientCount, send.CreatedBy, s.timeArg(send.SentAt))
	if _, err := s.exec(ctx, insert); err != nil {
		return fmt.Errorf("insert newsletter send: %w", err)
	}
	return nil
}

// SendCount returns the number of recorded distribution runs.
func (s *Store) SendCount(ctx context.Context) (int, error) {
	row, err := s.queryRow(ctx, s.sb.Select("COUNT(1)").From("newsletter_sends"))
	if err != nil {
		return 0, err
	}
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count sends: %w", err)
	}
	return count, nil
}
