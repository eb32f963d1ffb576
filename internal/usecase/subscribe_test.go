package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"NewsDigest/internal/domain"
)

func TestSignupConfirmUnsubscribe(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := openStore(t)
	mailer := &fakeMailer{}
	registry := NewRegistry(RegistryDeps{Subscribers: store, Mailer: mailer, SiteURL: "https://digest.example.com"})

	if _, err := registry.Signup(ctx, "not-an-email"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}

	signup, err := registry.Signup(ctx, " Reader@Example.com ")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if signup.Status != SignupPending || !signup.ConfirmationSent {
		t.Fatalf("unexpected signup: %+v", signup)
	}

	stored, err := store.SubscriberByEmail(ctx, "reader@example.com")
	if err != nil {
		t.Fatalf("load subscriber: %v", err)
	}
	if stored.IsConfirmed || !stored.IsActive || stored.ConfirmationToken == stored.UnsubscribeToken {
		t.Fatalf("unexpected pending subscriber: %+v", stored)
	}

	msgs := mailer.messagesTo("reader@example.com")
	if len(msgs) != 1 || !strings.Contains(msgs[0].Text, "https://digest.example.com/confirm?token="+stored.ConfirmationToken) {
		t.Fatalf("confirmation link missing: %+v", msgs)
	}

	eligible, _ := store.EligibleSubscribers(ctx)
	if len(eligible) != 0 {
		t.Fatal("pending subscriber must not be eligible")
	}

	if status, err := registry.Confirm(ctx, stored.ConfirmationToken); err != nil || status != ConfirmConfirmed {
		t.Fatalf("confirm: %s (%v)", status, err)
	}
	if status, err := registry.Confirm(ctx, stored.ConfirmationToken); err != nil || status != ConfirmAlreadyConfirmed {
		t.Fatalf("second confirm: %s (%v)", status, err)
	}
	if status, err := registry.Confirm(ctx, "nope"); err != nil || status != ConfirmInvalid {
		t.Fatalf("unknown token: %s (%v)", status, err)
	}

	eligible, _ = store.EligibleSubscribers(ctx)
	if len(eligible) != 1 {
		t.Fatalf("expected one eligible subscriber, got %d", len(eligible))
	}

	again, err := registry.Signup(ctx, "reader@example.com")
	if err != nil || again.Status != SignupAlreadySubscribed {
		t.Fatalf("expected already subscribed, got %+v (%v)", again, err)
	}

	for i := 0; i < 2; i++ {
		if status, err := registry.Unsubscribe(ctx, stored.UnsubscribeToken); err != nil || status != UnsubscribeDone {
			t.Fatalf("unsubscribe #%d: %s (%v)", i+1, status, err)
		}
	}
	if status, _ := registry.Unsubscribe(ctx, ""); status != UnsubscribeInvalid {
		t.Fatalf("empty token should be invalid, got %s", status)
	}

	eligible, _ = store.EligibleSubscribers(ctx)
	if len(eligible) != 0 {
		t.Fatal("unsubscribed reader must not be eligible")
	}
}

func TestSignupResendsForPending(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := openStore(t)
	mailer := &fakeMailer{}
	registry := NewRegistry(RegistryDeps{Subscribers: store, Mailer: mailer})

	if _, err := registry.Signup(ctx, "pending@example.com"); err != nil {
		t.Fatalf("signup: %v", err)
	}
	again, err := registry.Signup(ctx, "pending@example.com")
	if err != nil {
		t.Fatalf("second signup: %v", err)
	}
	if again.Status != SignupResent || len(mailer.messagesTo("pending@example.com")) != 2 {
		t.Fatalf("expected a resent confirmation, got %+v", again)
	}
	all, _ := registry.List(ctx)
	if len(all) != 1 {
		t.Fatalf("expected a single row, got %d", len(all))
	}
}

func TestSignupKeepsRowWhenMailFails(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := openStore(t)
	mailer := &fakeMailer{failFor: map[string]bool{"unlucky@example.com": true}}
	registry := NewRegistry(RegistryDeps{Subscribers: store, Mailer: mailer})

	result, err := registry.Signup(ctx, "unlucky@example.com")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if result.ConfirmationSent || result.Status != SignupPending {
		t.Fatalf("unexpected result: %+v", result)
	}
	if _, err := store.SubscriberByEmail(ctx, "unlucky@example.com"); err != nil {
		t.Fatalf("row should remain: %v", err)
	}
}

func TestNormaliseEmail(t *testing.T) {
	t.Parallel()

	valid := map[string]string{
		"user@example.com":       "user@example.com",
		"  Mixed@Example.ORG  ": "mixed@example.org",
		"first.last@sub.dom.io":  "first.last@sub.dom.io",
	}
	for in, want := range valid {
		got, err := NormaliseEmail(in)
		if err != nil || got != want {
			t.Fatalf("NormaliseEmail(%q) = %q, %v", in, got, err)
		}
	}
	for _, in := range []string{"", "plain", "no-domain@", "user@localhost", "Name <user@example.com>", "a@b@c.com"} {
		if _, err := NormaliseEmail(in); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("NormaliseEmail(%q) expected ErrValidation, got %v", in, err)
		}
	}
}
