package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

// Run outcomes.
const (
	RunSuccess = "success"
	RunSkipped = "skipped"
	RunFailed  = "error"
)

// OrchestratorDeps wires the weekly pipeline.
type OrchestratorDeps struct {
	Summarizer  *Summarizer
	Composer    *Composer
	Distributor *Distributor
	Summaries   ports.SummaryRepository
	Logger      *slog.Logger
	Clock       Clock
	Location    *time.Location
	SendDays    []time.Weekday
	DaysBack    int
}

// Orchestrator chains summarize, compose, distribute and mark-sent on send days.
type Orchestrator struct {
	summarizer  *Summarizer
	composer    *Composer
	distributor *Distributor
	summaries   ports.SummaryRepository
	logger      *slog.Logger
	clock       Clock
	loc         *time.Location
	sendDays    []time.Weekday
	daysBack    int
}

// RunResult accumulates what each step produced, so a failed run can be resumed.
type RunResult struct {
	Status           string    `json:"status"`
	Success          bool      `json:"success"`
	Skipped          bool      `json:"skipped,omitempty"`
	DayOfWeek        int       `json:"dayOfWeek"`
	SummaryID        string    `json:"summaryId,omitempty"`
	Subject          string    `json:"subject,omitempty"`
	EmailsSent       int       `json:"emailsSent"`
	TotalSubscribers int       `json:"totalSubscribers"`
	Errors           []string  `json:"errors,omitempty"`
	FailedStep       string    `json:"failedStep,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

// NewOrchestrator constructs the pipeline orchestrator.
func NewOrchestrator(deps OrchestratorDeps) *Orchestrator {
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	days := deps.SendDays
	if len(days) == 0 {
		days = []time.Weekday{time.Tuesday, time.Friday}
	}
	return &Orchestrator{
		summarizer:  deps.Summarizer,
		composer:    deps.Composer,
		distributor: deps.Distributor,
		summaries:   deps.Summaries,
		logger:      componentLogger(deps.Logger, "orchestrator"),
		clock:       deps.Clock,
		loc:         loc,
		sendDays:    days,
		daysBack:    clamp(deps.DaysBack, 4, 1, maxSummaryDaysBack),
	}
}

// IsSendDay reports whether t falls on a configured send day in the scheduler timezone.
func (o *Orchestrator) IsSendDay(t time.Time) bool {
	return slices.Contains(o.sendDays, t.In(o.loc).Weekday())
}

// Run executes the weekly pipeline when today is a send day and skips otherwise.
// The returned result is populated even when err is non-nil.
func (o *Orchestrator) Run(ctx context.Context) (RunResult, error) {
	now := o.clock.now().In(o.loc)
	result := RunResult{DayOfWeek: int(now.Weekday()), Timestamp: now}

	if !o.IsSendDay(now) {
		result.Status = RunSkipped
		result.Skipped = true
		o.logger.Info("not a send day, skipping", "weekday", now.Weekday())
		return result, nil
	}

	caller := domain.SystemIdentity
	summarized, err := o.summarizer.Summarize(ctx, &caller, SummarizeRequest{DaysBack: o.daysBack})
	if err != nil {
		return o.fail(result, "summarize", err)
	}
	result.SummaryID = summarized.Summary.ID

	return o.deliver(ctx, result, summarized.Summary.ID)
}

// Resume composes and distributes an existing summary that was not sent yet.
func (o *Orchestrator) Resume(ctx context.Context, summaryID string) (RunResult, error) {
	now := o.clock.now().In(o.loc)
	result := RunResult{DayOfWeek: int(now.Weekday()), Timestamp: now, SummaryID: summaryID}

	summary, err := o.summaries.SummaryByID(ctx, summaryID)
	if err != nil {
		return o.fail(result, "load summary", err)
	}
	if summary.NewsletterSent {
		return o.fail(result, "load summary", domain.Wrap(domain.ErrAlreadySent, "orchestrator", "resume", summaryID, nil))
	}
	return o.deliver(ctx, result, summaryID)
}

func (o *Orchestrator) deliver(ctx context.Context, result RunResult, summaryID string) (RunResult, error) {
	composed, err := o.composer.Compose(ctx, ComposeRequest{SummaryID: summaryID})
	if err != nil {
		return o.fail(result, "compose", err)
	}
	result.Subject = composed.Subject

	caller := domain.SystemIdentity
	sent, err := o.distributor.Send(ctx, &caller, SendRequest{
		Subject:     composed.Subject,
		Content:     composed.Content,
		HTMLContent: composed.HTMLContent,
	})
	result.EmailsSent = sent.SentCount
	result.TotalSubscribers = sent.TotalSubscribers
	for _, e := range sent.Errors {
		result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", e.Email, e.Error))
	}
	if err != nil {
		return o.fail(result, "distribute", err)
	}

	if err := o.summaries.MarkNewsletterSent(ctx, summaryID); err != nil {
		o.logger.Error("mark newsletter sent failed", "summary", summaryID, "error", err)
	}

	result.Status = RunSuccess
	result.Success = true
	o.logger.Info("weekly newsletter sent", "summary", summaryID, "subject", result.Subject,
		"sent", result.EmailsSent, "total", result.TotalSubscribers)
	return result, nil
}

func (o *Orchestrator) fail(result RunResult, step string, err error) (RunResult, error) {
	result.Status = RunFailed
	result.Success = false
	result.FailedStep = step
	result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", step, err))
	o.logger.Error("pipeline step failed", "step", step, "summary", result.SummaryID, "subject", result.Subject, "error", err)
	return result, fmt.Errorf("%s: %w", step, err)
}
