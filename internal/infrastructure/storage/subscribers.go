package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"NewsDigest/internal/domain"
)

var subscriberColumns = []string{
	"id", "email", "confirmation_token", "unsubscribe_token",
	"is_confirmed", "is_active", "subscribed_at", "confirmed_at",
}

// CreateSubscriber registers a pending subscriber. Email is stored lowercased.
func (s *Store) CreateSubscriber(ctx context.Context, subscriber *domain.Subscriber) error {
	if subscriber.ID == "" {
		subscriber.ID = uuid.NewString()
	}
	if subscriber.SubscribedAt.IsZero() {
		subscriber.SubscribedAt = now()
	}
	subscriber.Email = strings.ToLower(strings.TrimSpace(subscriber.Email))

	insert := s.sb.Insert("subscribers").Columns(subscriberColumns...).Values(
		subscriber.ID, subscriber.Email, subscriber.ConfirmationToken, subscriber.UnsubscribeToken,
		subscriber.IsConfirmed, subscriber.IsActive, s.timeArg(subscriber.SubscribedAt),
		s.nullTimeArg(subscriber.ConfirmedAt),
	)
	if _, err := s.exec(ctx, insert); err != nil {
		return fmt.Errorf("insert subscriber: %w", err)
	}
	return nil
}

// SubscriberByEmail looks a subscriber up case-insensitively.
func (s *Store) SubscriberByEmail(ctx context.Context, email string) (domain.Subscriber, error) {
	return s.subscriberWhere(ctx, sq.Eq{"email": strings.ToLower(strings.TrimSpace(email))}, "email")
}

// SubscriberByConfirmationToken resolves a confirmation link.
func (s *Store) SubscriberByConfirmationToken(ctx context.Context, token string) (domain.Subscriber, error) {
	return s.subscriberWhere(ctx, sq.Eq{"confirmation_token": token}, "confirmation token")
}

// SubscriberByUnsubscribeToken resolves an unsubscribe link.
func (s *Store) SubscriberByUnsubscribeToken(ctx context.Context, token string) (domain.Subscriber, error) {
	return s.subscriberWhere(ctx, sq.Eq{"unsubscribe_token": token}, "unsubscribe token")
}

func (s *Store) subscriberWhere(ctx context.Context, where sq.Eq, label string) (domain.Subscriber, error) {
	row, err := s.queryRow(ctx, s.sb.Select(subscriberColumns...).From("subscribers").Where(where).Limit(1))
	if err != nil {
		return domain.Subscriber{}, err
	}
	subscriber, err := scanSubscriber(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Subscriber{}, fmt.Errorf("subscriber by %s: %w", label, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Subscriber{}, fmt.Errorf("load subscriber by %s: %w", label, err)
	}
	return subscriber, nil
}

// ConfirmSubscriber flips a pending subscriber to confirmed. It reports false when the
// row was already confirmed.
func (s *Store) ConfirmSubscriber(ctx context.Context, id string, at time.Time) (bool, error) {
	update := s.sb.Update("subscribers").
		Set("is_confirmed", true).
		Set("confirmed_at", s.timeArg(at)).
		Where(sq.Eq{"id": id, "is_confirmed": false})
	res, err := s.exec(ctx, update)
	if err != nil {
		return false, fmt.Errorf("confirm subscriber %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("confirm subscriber %s: %w", id, err)
	}
	return n > 0, nil
}

// DeactivateSubscriber marks the subscriber inactive; repeating it is harmless.
func (s *Store) DeactivateSubscriber(ctx context.Context, id string) error {
	if _, err := s.exec(ctx, s.sb.Update("subscribers").Set("is_active", false).Where(sq.Eq{"id": id})); err != nil {
		return fmt.Errorf("deactivate subscriber %s: %w", id, err)
	}
	return nil
}

// EligibleSubscribers lists confirmed and active subscribers.
func (s *Store) EligibleSubscribers(ctx context.Context) ([]domain.Subscriber, error) {
	return s.listSubscribers(ctx, sq.Eq{"is_confirmed": true, "is_active": true})
}

// ListSubscribers lists every subscriber, newest first.
func (s *Store) ListSubscribers(ctx context.Context) ([]domain.Subscriber, error) {
	return s.listSubscribers(ctx, nil)
}

func (s *Store) listSubscribers(ctx context.Context, where sq.Sqlizer) ([]domain.Subscriber, error) {
	query := s.sb.Select(subscriberColumns...).From("subscribers").OrderBy("subscribed_at DESC", "email")
	if where != nil {
		query = query.Where(where)
	}
	rows, err := s.query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query subscribers: %w", err)
	}
	defer rows.Close()

	var subscribers []domain.Subscriber
	for rows.Next() {
		subscriber, err := scanSubscriber(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}
		subscribers = append(subscribers, subscriber)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return subscribers, nil
}

func scanSubscriber(row rowScanner) (domain.Subscriber, error) {
	var (
		subscriber domain.Subscriber
		subscribed timeValue
		confirmed  timeValue
	)
	err := row.Scan(
		&subscriber.ID, &subscriber.Email, &subscriber.ConfirmationToken, &subscriber.UnsubscribeToken,
		&subscriber.IsConfirmed, &subscriber.IsActive, &subscribed, &confirmed,
	)
	if err != nil {
		return domain.Subscriber{}, err
	}
	subscriber.SubscribedAt = subscribed.Time
	subscriber.ConfirmedAt = confirmed.ptr()
	return subscriber, nil
}
