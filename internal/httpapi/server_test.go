package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"NewsDigest/internal/auth"
	"NewsDigest/internal/config"
	"NewsDigest/internal/domain"
	"NewsDigest/internal/infrastructure/storage"
	"NewsDigest/internal/ports"
	"NewsDigest/internal/usecase"
)

const (
	adminToken  = "admin-secret"
	editorToken = "editor-secret"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type stubCompleter struct {
	reply string
}

func (s stubCompleter) Complete(context.Context, ports.CompletionRequest) (string, error) {
	return s.reply, nil
}

type stubMailer struct {
	mu   sync.Mutex
	sent []domain.Email
}

func (m *stubMailer) Send(_ context.Context, msg domain.Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

type fixture struct {
	store  *storage.Store
	mailer *stubMailer
	server *Server
}

func newFixture(t *testing.T, now time.Time, reply string) fixture {
	t.Helper()
	store, err := storage.Open(context.Background(), config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "api.db"),
	})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	clock := usecase.Clock(func() time.Time { return now })
	completer := stubCompleter{reply: reply}
	mailer := &stubMailer{}
	const site = "https://digest.example.com"

	summarizer := usecase.NewSummarizer(usecase.SummarizerDeps{Articles: store, Summaries: store, Completer: completer, Clock: clock})
	composer := usecase.NewComposer(usecase.ComposerDeps{Articles: store, Summaries: store, Clock: clock, SiteURL: site})
	distributor := usecase.NewDistributor(usecase.DistributorDeps{Subscribers: store, Sends: store, Mailer: mailer, SiteURL: site})

	orchestrator := usecase.NewOrchestrator(usecase.OrchestratorDeps{
		Summarizer: summarizer, Composer: composer, Distributor: distributor,
		Summaries: store, Clock: clock,
	})
	authenticator := auth.NewTokenAuthenticator(config.AuthConfig{Tokens: []config.TokenConfig{
		{Token: adminToken, Subject: "admin", Roles: []string{domain.RoleAdmin}},
		{Token: editorToken, Subject: "editor"},
	}})

	server := New(Deps{
		Ingestor:      usecase.NewIngestor(usecase.IngestDeps{Articles: store, Completer: completer, Clock: clock}),
		Lifecycle:     usecase.NewLifecycle(usecase.LifecycleDeps{Articles: store, Completer: completer, Clock: clock}),
		Summarizer:    summarizer,
		Composer:      composer,
		Distributor:   distributor,
		Orchestrator:  orchestrator,
		Registry:      usecase.NewRegistry(usecase.RegistryDeps{Subscribers: store, Mailer: mailer, Clock: clock, SiteURL: site}),
		Authenticator: authenticator,
		Health:        store.Ping,
		SiteURL:       site,
	})
	return fixture{store: store, mailer: mailer, server: server}
}

func (f fixture) do(method, path, token, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestHealth(t *testing.T) {
	t.Parallel()
	f := newFixture(t, time.Now(), "")
	rec := f.do(http.MethodGet, "/healthz", "", "")
	if rec.Code != http.StatusOK || decode(t, rec)["status"] != "ok" {
		t.Fatalf("unexpected health response %d %s", rec.Code, rec.Body.String())
	}
}

func TestAuthentication(t *testing.T) {
	t.Parallel()
	f := newFixture(t, time.Now(), "")

	if rec := f.do(http.MethodPost, "/api/articles/ingest", "", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
	if rec := f.do(http.MethodPost, "/api/articles/ingest", "wrong", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown token, got %d", rec.Code)
	}
	rec := f.do(http.MethodPost, "/api/summaries", editorToken, `{"daysBack":3}`)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin summarize, got %d", rec.Code)
	}
	if decode(t, rec)["success"] != false {
		t.Fatal("error body must carry success=false")
	}
	if rec := f.do(http.MethodPost, "/api/newsletter/send", editorToken, `{"subject":"s","content":"c"}`); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin send, got %d", rec.Code)
	}
}

func TestIngestAndLifecycleRoutes(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	f := newFixture(t, now, `[{"title":"Robots learn to fold laundry","summary":"s","content":"<p>c</p>"}]`)

	rec := f.do(http.MethodPost, "/api/articles/ingest", editorToken, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("ingest: %d %s", rec.Code, rec.Body.String())
	}
	article, err := f.store.ArticleBySlug(context.Background(), "robots-learn-to-fold-laundry")
	if err != nil {
		t.Fatalf("ingested article missing: %v", err)
	}

	rec = f.do(http.MethodPost, "/api/articles/lifecycle", editorToken, `{"articleId":"`+article.ID+`","action":"publish"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("publish: %d %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if body["article"].(map[string]any)["status"] != "published" {
		t.Fatalf("unexpected lifecycle body %v", body)
	}

	if rec := f.do(http.MethodPost, "/api/articles/lifecycle", editorToken, `{"articleId":"`+article.ID+`","action":"shred"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown action, got %d", rec.Code)
	}
	if rec := f.do(http.MethodPost, "/api/articles/lifecycle", editorToken, `{"articleId":"nope","action":"draft"}`); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown article, got %d", rec.Code)
	}
	if rec := f.do(http.MethodPost, "/api/articles/lifecycle", editorToken, `{not json`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", rec.Code)
	}
}

func TestSummarizeWithoutStories(t *testing.T) {
	t.Parallel()
	f := newFixture(t, time.Now(), "{}")
	rec := f.do(http.MethodPost, "/api/summaries", adminToken, "")
	if rec.Code != http.StatusNotFound || !strings.Contains(decode(t, rec)["error"].(string), "no stories found") {
		t.Fatalf("expected 404 no stories, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestSubscriptionPages(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, time.Now(), "")

	rec := f.do(http.MethodPost, "/api/subscribers", "", `{"email":"reader@example.com"}`)
	if rec.Code != http.StatusOK || decode(t, rec)["status"] != usecase.SignupPending {
		t.Fatalf("signup: %d %s", rec.Code, rec.Body.String())
	}
	if rec := f.do(http.MethodPost, "/api/subscribers", "", `{"email":"nope"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid email, got %d", rec.Code)
	}

	subscriber, err := f.store.SubscriberByEmail(ctx, "reader@example.com")
	if err != nil {
		t.Fatalf("load subscriber: %v", err)
	}
	if len(f.mailer.sent) != 1 || !strings.Contains(f.mailer.sent[0].Text, "/confirm?token="+subscriber.ConfirmationToken) {
		t.Fatalf("confirmation email missing: %+v", f.mailer.sent)
	}

	rec = f.do(http.MethodGet, "/confirm?token="+subscriber.ConfirmationToken, "", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Subscription confirmed") {
		t.Fatalf("confirm: %d %s", rec.Code, rec.Body.String())
	}
	rec = f.do(http.MethodGet, "/confirm?token="+subscriber.ConfirmationToken, "", "")
	if !strings.Contains(rec.Body.String(), "Already confirmed") {
		t.Fatalf("second confirm: %s", rec.Body.String())
	}
	if rec := f.do(http.MethodGet, "/confirm?token=bogus", "", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bogus token, got %d", rec.Code)
	}

	for i := 0; i < 2; i++ {
		rec = f.do(http.MethodGet, "/unsubscribe?token="+subscriber.UnsubscribeToken, "", "")
		if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "unsubscribed") {
			t.Fatalf("unsubscribe #%d: %d %s", i+1, rec.Code, rec.Body.String())
		}
	}
}

func TestSchedulerRunNegotiatesFormat(t *testing.T) {
	t.Parallel()
	wednesday := time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC)
	f := newFixture(t, wednesday, "")

	rec := f.do(http.MethodPost, "/api/scheduler/run", editorToken, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("run: %d %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if body["status"] != usecase.RunSkipped || body["dayOfWeek"] != float64(3) {
		t.Fatalf("unexpected run body %v", body)
	}

	rec = f.do(http.MethodPost, "/api/scheduler/run", editorToken, "", "Accept", "text/html,application/xhtml+xml")
	if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html") || !strings.Contains(rec.Body.String(), "skipped") {
		t.Fatalf("expected html page, got %q %s", rec.Header().Get("Content-Type"), rec.Body.String())
	}

	if rec := f.do(http.MethodPost, "/api/scheduler/resume", editorToken, `{}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without summaryId, got %d", rec.Code)
	}
	if rec := f.do(http.MethodPost, "/api/scheduler/resume", editorToken, `{"summaryId":"missing"}`); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown summary, got %d", rec.Code)
	}
}

func TestErrorStatus(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want int
	}{
		{domain.Wrap(domain.ErrConfiguration, "x", "y", "", nil), http.StatusInternalServerError},
		{&domain.UpstreamError{Service: "email", StatusCode: 429}, http.StatusBadGateway},
		{domain.Wrap(domain.ErrValidation, "x", "y", "", nil), http.StatusBadRequest},
		{domain.Wrap(domain.ErrUnknownAction, "x", "y", "", nil), http.StatusBadRequest},
		{domain.Wrap(domain.ErrNotFound, "x", "y", "", nil), http.StatusNotFound},
		{domain.Wrap(domain.ErrNoStories, "x", "y", "", nil), http.StatusNotFound},
		{domain.Wrap(domain.ErrUnauthorized, "x", "y", "", nil), http.StatusUnauthorized},
		{domain.Wrap(domain.ErrForbidden, "x", "y", "", nil), http.StatusForbidden},
		{domain.Wrap(domain.ErrAlreadySent, "x", "y", "", nil), http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := errorStatus(tc.err); got != tc.want {
			t.Fatalf("errorStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
