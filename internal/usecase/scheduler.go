package usecase

import (
	"context"
	"log/slog"
	"time"

	"NewsDigest/internal/ports"
)

// Scheduler wires the daily trigger with the weekly orchestrator.
type Scheduler struct {
	driver       ports.Scheduler
	orchestrator *Orchestrator
	logger       *slog.Logger
}

// NewScheduler returns a helper to start/stop the recurring run.
func NewScheduler(driver ports.Scheduler, orchestrator *Orchestrator, logger *slog.Logger) *Scheduler {
	return &Scheduler{driver: driver, orchestrator: orchestrator, logger: componentLogger(logger, "scheduler")}
}

// Start registers the orchestrator with the provided driver. The orchestrator itself
// decides whether the trigger day is a send day.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.orchestrator == nil {
		return nil
	}

	job := func(trigger time.Time) {
		result, err := s.orchestrator.Run(ctx)
		if err != nil {
			s.logger.Error("scheduled run failed", "trigger", trigger, "summary", result.SummaryID, "error", err)
			return
		}
		s.logger.Info("scheduled run finished", "trigger", trigger, "status", result.Status, "sent", result.EmailsSent)
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
