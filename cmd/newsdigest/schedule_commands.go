package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"NewsDigest/internal/app"
	"NewsDigest/internal/usecase"
)

var errRunLocked = errors.New("another newsletter run holds the schedule lock")

func newScheduleCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run or resume the weekly newsletter pipeline",
	}
	cmd.AddCommand(newScheduleRunCommand(ctx))
	cmd.AddCommand(newScheduleResumeCommand(ctx))
	return cmd
}

func newScheduleRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Summarize, compose and send when today is a send day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			unlock, err := acquireRunLock(cfg.Schedule.LockFile)
			if err != nil {
				return err
			}
			defer unlock()

			return ctx.withApp(cmd, func(a *app.Application) error {
				result, runErr := a.Run(cmd.Context())
				if err := ctx.emit(cmd, result, func() tableView { return runView(result) }); err != nil {
					return err
				}
				return runErr
			})
		},
	}
}

func newScheduleResumeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "resume <summaryId>",
		Short: "Compose and send an existing summary that was not sent yet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			unlock, err := acquireRunLock(cfg.Schedule.LockFile)
			if err != nil {
				return err
			}
			defer unlock()

			return ctx.withApp(cmd, func(a *app.Application) error {
				result, runErr := a.Orchestrator.Resume(cmd.Context(), args[0])
				if err := ctx.emit(cmd, result, func() tableView { return runView(result) }); err != nil {
					return err
				}
				return runErr
			})
		},
	}
}

// acquireRunLock takes the exclusive schedule lock without waiting.
func acquireRunLock(path string) (func(), error) {
	if path == "" {
		path = filepath.Join(os.TempDir(), "newsdigest-schedule.lock")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("prepare lock dir: %w", err)
	}
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (%s)", errRunLocked, path)
	}
	return func() { _ = lock.Unlock() }, nil
}

func runView(result usecase.RunResult) tableView {
	rows := [][]string{
		{"Status", result.Status},
		{"Day of week", time.Weekday(result.DayOfWeek).String()},
	}
	if result.SummaryID != "" {
		rows = append(rows, []string{"Summary", result.SummaryID})
	}
	if result.Subject != "" {
		rows = append(rows, []string{"Subject", result.Subject})
	}
	if !result.Skipped {
		rows = append(rows, []string{"Emails sent", strconv.Itoa(result.EmailsSent) + " / " + strconv.Itoa(result.TotalSubscribers)})
	}
	if result.FailedStep != "" {
		rows = append(rows, []string{"Failed step", result.FailedStep})
	}
	for _, e := range result.Errors {
		rows = append(rows, []string{"Error", e})
	}
	return tableView{headers: []string{"Field", "Value"}, rows: rows}
}
