package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"NewsDigest/internal/auth"
	"NewsDigest/internal/config"
	"NewsDigest/internal/httpapi"
	"NewsDigest/internal/infrastructure/email"
	"NewsDigest/internal/infrastructure/llm"
	"NewsDigest/internal/infrastructure/scheduler"
	"NewsDigest/internal/infrastructure/storage"
	"NewsDigest/internal/infrastructure/webhook"
	"NewsDigest/internal/logging"
	"NewsDigest/internal/usecase"
)

// Application wires configs to use cases, the HTTP API and the daily trigger.
type Application struct {
	cfg    config.Config
	logger *slog.Logger
	store  *storage.Store

	Ingestor     *usecase.Ingestor
	Lifecycle    *usecase.Lifecycle
	Summarizer   *usecase.Summarizer
	Composer     *usecase.Composer
	Distributor  *usecase.Distributor
	Orchestrator *usecase.Orchestrator
	Registry     *usecase.Registry
}

// New opens the store and builds every component. Close releases the store.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	sendDays, err := cfg.Schedule.Weekdays()
	if err != nil {
		return nil, fmt.Errorf("schedule: %w", err)
	}

	store, err := storage.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	completer := llm.NewClient(cfg.Completion)
	mailer := email.NewClient(cfg.Email)
	notifier := webhook.NewBestEffort(
		webhook.NewClient(cfg.Webhook.URL, time.Duration(cfg.Webhook.TimeoutSeconds)*time.Second),
		baseLogger.With("component", "webhook"),
	)

	a := &Application{cfg: cfg, logger: baseLogger, store: store}
	a.Ingestor = usecase.NewIngestor(usecase.IngestDeps{
		Articles:           store,
		Completer:          completer,
		Logger:             baseLogger,
		DefaultMaxArticles: cfg.Ingestion.DefaultMaxArticles,
		RecencyFilter:      cfg.Ingestion.RecencyFilter,
	})
	a.Lifecycle = usecase.NewLifecycle(usecase.LifecycleDeps{
		Articles:  store,
		Completer: completer,
		Logger:    baseLogger,
	})
	a.Summarizer = usecase.NewSummarizer(usecase.SummarizerDeps{
		Articles:        store,
		Summaries:       store,
		Completer:       completer,
		Logger:          baseLogger,
		DefaultDaysBack: cfg.Summarizer.DaysBack,
		MaxArticles:     cfg.Summarizer.MaxArticles,
	})
	a.Composer = usecase.NewComposer(usecase.ComposerDeps{
		Articles:  store,
		Summaries: store,
		Notifier:  notifier,
		Logger:    baseLogger,
		SiteName:  cfg.Site.Name,
		SiteURL:   cfg.Site.BaseURL,
	})
	a.Distributor = usecase.NewDistributor(usecase.DistributorDeps{
		Subscribers: store,
		Sends:       store,
		Mailer:      mailer,
		Logger:      baseLogger,
		SiteURL:     cfg.Site.BaseURL,
		BatchSize:   cfg.Distribution.BatchSize,
		BatchDelay:  cfg.Distribution.BatchDelay,
	})
	a.Orchestrator = usecase.NewOrchestrator(usecase.OrchestratorDeps{
		Summarizer:  a.Summarizer,
		Composer:    a.Composer,
		Distributor: a.Distributor,
		Summaries:   store,
		Logger:      baseLogger,
		Location:    cfg.Schedule.Location(),
		SendDays:    sendDays,
		DaysBack:    cfg.Summarizer.DaysBack,
	})
	a.Registry = usecase.NewRegistry(usecase.RegistryDeps{
		Subscribers: store,
		Mailer:      mailer,
		Logger:      baseLogger,
		SiteName:    cfg.Site.Name,
		SiteURL:     cfg.Site.BaseURL,
	})
	return a, nil
}

// Close releases the store.
func (a *Application) Close() error {
	return a.store.Close()
}

// Serve runs the HTTP API and the daily trigger until ctx is cancelled.
func (a *Application) Serve(ctx context.Context) error {
	hour, minute, err := a.cfg.Schedule.RunAtClock()
	if err != nil {
		return fmt.Errorf("schedule: %w", err)
	}
	trigger := usecase.NewScheduler(
		scheduler.NewDailyScheduler(hour, minute, a.cfg.Schedule.Location()),
		a.Orchestrator,
		a.logger,
	)
	if err := trigger.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := trigger.Stop(stopCtx); err != nil {
			a.logger.Warn("scheduler stop failed", "error", err)
		}
	}()

	server := httpapi.New(httpapi.Deps{
		Ingestor:      a.Ingestor,
		Lifecycle:     a.Lifecycle,
		Summarizer:    a.Summarizer,
		Composer:      a.Composer,
		Distributor:   a.Distributor,
		Orchestrator:  a.Orchestrator,
		Registry:      a.Registry,
		Authenticator: auth.NewTokenAuthenticator(a.cfg.Auth),
		Health:        a.store.Ping,
		Logger:        a.logger,
		SiteName:      a.cfg.Site.Name,
		SiteURL:       a.cfg.Site.BaseURL,
	})
	if len(a.cfg.Auth.Tokens) == 0 {
		a.logger.Warn("no API tokens configured; authenticated routes will reject every request")
	}
	return server.ListenAndServe(ctx, a.cfg.HTTP.Bind)
}

// Run performs a single orchestrator pass, as the scheduler would.
func (a *Application) Run(ctx context.Context) (usecase.RunResult, error) {
	return a.Orchestrator.Run(ctx)
}
