package domain

import (
	"errors"
	"testing"
)

func TestSlugify(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"OpenAI Releases GPT-5!":           "openai-releases-gpt-5",
		"  --Hello,   World--  ":           "hello-world",
		"Café crème: über AI":              "cafe-creme-uber-ai",
		"already-a-valid-slug":             "already-a-valid-slug",
		"!!!":                              "",
		"Google's Gemini 2.0 & the future": "google-s-gemini-2-0-the-future",
	}
	for in, want := range cases {
		if got := Slugify(in); got != want {
			t.Fatalf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSlugifyIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{"AI Weekly #12", "Ünïcödé Tïtle", "a--b__c", "x", "2026 Outlook: LLMs"}
	for _, in := range inputs {
		once := Slugify(in)
		if twice := Slugify(once); twice != once {
			t.Fatalf("Slugify not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestParseLifecycleAction(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"publish", "archive", "draft", "enhance"} {
		if _, err := ParseLifecycleAction(raw); err != nil {
			t.Fatalf("ParseLifecycleAction(%q) error: %v", raw, err)
		}
	}
	if _, err := ParseLifecycleAction("delete"); !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("expected ErrUnknownAction, got %v", err)
	}
}

func TestRequireAdmin(t *testing.T) {
	t.Parallel()

	if err := RequireAdmin(nil, "summarize"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	editor := Identity{Subject: "editor", Roles: []string{"editor"}}
	if err := RequireAdmin(&editor, "summarize"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := RequireAdmin(&SystemIdentity, "summarize"); err != nil {
		t.Fatalf("system identity rejected: %v", err)
	}
}

func TestUpstreamErrorIsTransport(t *testing.T) {
	t.Parallel()

	err := Wrap(ErrTransport, "ingest", "complete", "", &UpstreamError{Service: "completion", StatusCode: 429, Body: "slow down"})
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
	var upstream *UpstreamError
	if !errors.As(err, &upstream) || upstream.StatusCode != 429 {
		t.Fatalf("expected upstream error with status 429, got %v", err)
	}
}

func TestSubscriberEligible(t *testing.T) {
	t.Parallel()

	cases := []struct {
		confirmed, active, want bool
	}{
		{true, true, true},
		{true, false, false},
		{false, true, false},
		{false, false, false},
	}
	for _, tc := range cases {
		s := Subscriber{IsConfirmed: tc.confirmed, IsActive: tc.active}
		if got := s.Eligible(); got != tc.want {
			t.Fatalf("Eligible(confirmed=%v, active=%v) = %v", tc.confirmed, tc.active, got)
		}
	}
}
