package usecase

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net/mail"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

// Signup outcomes.
const (
	SignupPending           = "pending"
	SignupResent            = "resent"
	SignupAlreadySubscribed = "already_subscribed"
)

// ConfirmStatus is the outcome of a confirmation link.
type ConfirmStatus string

const (
	ConfirmConfirmed        ConfirmStatus = "confirmed"
	ConfirmAlreadyConfirmed ConfirmStatus = "already_confirmed"
	ConfirmInvalid          ConfirmStatus = "invalid"
)

// UnsubscribeStatus is the outcome of an unsubscribe link.
type UnsubscribeStatus string

const (
	UnsubscribeDone    UnsubscribeStatus = "unsubscribed"
	UnsubscribeInvalid UnsubscribeStatus = "invalid"
)

// RegistryDeps wires the subscriber registry.
type RegistryDeps struct {
	Subscribers ports.SubscriberRepository
	Mailer      ports.Mailer
	Logger      *slog.Logger
	Clock       Clock
	SiteName    string
	SiteURL     string
}

// Registry implements double opt-in signup, confirmation and unsubscribe.
type Registry struct {
	subscribers ports.SubscriberRepository
	mailer      ports.Mailer
	logger      *slog.Logger
	clock       Clock
	siteName    string
	siteURL     string
}

// SignupResult reports the registry state after a signup attempt.
type SignupResult struct {
	Success          bool   `json:"success"`
	Status           string `json:"status"`
	ConfirmationSent bool   `json:"confirmationSent"`
	Message          string `json:"message"`
}

// NewRegistry constructs the subscriber registry.
func NewRegistry(deps RegistryDeps) *Registry {
	name := deps.SiteName
	if name == "" {
		name = "AI Weekly Digest"
	}
	return &Registry{
		subscribers: deps.Subscribers,
		mailer:      deps.Mailer,
		logger:      componentLogger(deps.Logger, "subscribers"),
		clock:       deps.Clock,
		siteName:    name,
		siteURL:     strings.TrimRight(deps.SiteURL, "/"),
	}
}

// NormaliseEmail validates raw and returns it trimmed and lower-cased.
func NormaliseEmail(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	addr, err := mail.ParseAddress(trimmed)
	if err != nil || addr.Address != trimmed || !strings.Contains(addr.Address[strings.LastIndex(addr.Address, "@")+1:], ".") {
		return "", domain.Wrap(domain.ErrValidation, "subscribers", "signup", "invalid email address", nil)
	}
	return strings.ToLower(addr.Address), nil
}

// Signup registers email as a pending subscriber and mails the confirmation link.
func (r *Registry) Signup(ctx context.Context, rawEmail string) (SignupResult, error) {
	email, err := NormaliseEmail(rawEmail)
	if err != nil {
		return SignupResult{}, err
	}

	existing, err := r.subscribers.SubscriberByEmail(ctx, email)
	switch {
	case err == nil && existing.IsConfirmed:
		return SignupResult{Success: true, Status: SignupAlreadySubscribed, Message: "This email is already subscribed."}, nil
	case err == nil:
		sent := r.sendConfirmation(ctx, existing)
		return SignupResult{Success: true, Status: SignupResent, ConfirmationSent: sent, Message: signupMessage(sent)}, nil
	case !errors.Is(err, domain.ErrNotFound):
		return SignupResult{}, fmt.Errorf("signup: lookup subscriber: %w", err)
	}

	subscriber := domain.Subscriber{
		Email:             email,
		ConfirmationToken: newToken(),
		UnsubscribeToken:  newToken(),
		IsConfirmed:       false,
		IsActive:          true,
		SubscribedAt:      r.clock.now().UTC(),
	}
	if err := r.subscribers.CreateSubscriber(ctx, &subscriber); err != nil {
		return SignupResult{}, fmt.Errorf("signup: create subscriber: %w", err)
	}

	sent := r.sendConfirmation(ctx, subscriber)
	r.logger.Info("subscriber registered", "subscriber", subscriber.ID, "confirmation_sent", sent)
	return SignupResult{Success: true, Status: SignupPending, ConfirmationSent: sent, Message: signupMessage(sent)}, nil
}

// Confirm flips the subscriber owning token to confirmed. Unknown tokens are not errors.
func (r *Registry) Confirm(ctx context.Context, token string) (ConfirmStatus, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return ConfirmInvalid, nil
	}
	subscriber, err := r.subscribers.SubscriberByConfirmationToken(ctx, token)
	if errors.Is(err, domain.ErrNotFound) {
		return ConfirmInvalid, nil
	}
	if err != nil {
		return "", fmt.Errorf("confirm: lookup subscriber: %w", err)
	}
	if subscriber.IsConfirmed {
		return ConfirmAlreadyConfirmed, nil
	}

	changed, err := r.subscribers.ConfirmSubscriber(ctx, subscriber.ID, r.clock.now().UTC())
	if err != nil {
		return "", fmt.Errorf("confirm: update subscriber: %w", err)
	}
	if !changed {
		return ConfirmAlreadyConfirmed, nil
	}
	r.logger.Info("subscriber confirmed", "subscriber", subscriber.ID)
	return ConfirmConfirmed, nil
}

// Unsubscribe deactivates the subscriber owning token. Repeating it still succeeds.
func (r *Registry) Unsubscribe(ctx context.Context, token string) (UnsubscribeStatus, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return UnsubscribeInvalid, nil
	}
	subscriber, err := r.subscribers.SubscriberByUnsubscribeToken(ctx, token)
	if errors.Is(err, domain.ErrNotFound) {
		return UnsubscribeInvalid, nil
	}
	if err != nil {
		return "", fmt.Errorf("unsubscribe: lookup subscriber: %w", err)
	}
	if subscriber.IsActive {
		if err := r.subscribers.DeactivateSubscriber(ctx, subscriber.ID); err != nil {
			return "", fmt.Errorf("unsubscribe: deactivate subscriber: %w", err)
		}
		r.logger.Info("subscriber unsubscribed", "subscriber", subscriber.ID)
	}
	return UnsubscribeDone, nil
}

// List returns every subscriber.
func (r *Registry) List(ctx context.Context) ([]domain.Subscriber, error) {
	subscribers, err := r.subscribers.ListSubscribers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}
	return subscribers, nil
}

func (r *Registry) sendConfirmation(ctx context.Context, subscriber domain.Subscriber) bool {
	if r.mailer == nil {
		r.logger.Warn("confirmation email skipped: mailer missing", "subscriber", subscriber.ID)
		return false
	}
	link := r.siteURL + "/confirm?token=" + url.QueryEscape(subscriber.ConfirmationToken)
	msg := domain.Email{
		To:      subscriber.Email,
		Subject: "Confirm your subscription to " + r.siteName,
		Text: fmt.Sprintf("Thanks for signing up for %s!\n\nPlease confirm your subscription by opening this link:\n%s\n\n"+
			"If you did not sign up, you can ignore this email.\n", r.siteName, link),
		HTML: fmt.Sprintf(`<div style="font-family:Helvetica,Arial,sans-serif;max-width:560px;margin:0 auto;">`+
			`<h2 style="color:#0b3d91;">Confirm your subscription</h2>`+
			`<p>Thanks for signing up for %s!</p>`+
			`<p><a href="%s" style="display:inline-block;background:#0b3d91;color:#ffffff;padding:10px 18px;border-radius:6px;text-decoration:none;">Confirm subscription</a></p>`+
			`<p style="color:#6b7280;font-size:13px;">If you did not sign up, you can ignore this email.</p></div>`,
			html.EscapeString(r.siteName), html.EscapeString(link)),
	}
	if err := r.mailer.Send(ctx, msg); err != nil {
		r.logger.Warn("confirmation email failed", "subscriber", subscriber.ID, "error", err)
		return false
	}
	return true
}

func signupMessage(sent bool) string {
	if sent {
		return "Please check your inbox to confirm your subscription."
	}
	return "Subscription saved, but the confirmation email could not be sent. Please try again later."
}

func newToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
