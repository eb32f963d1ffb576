package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"NewsDigest/internal/usecase"
)

func TestRootRegistersCommands(t *testing.T) {
	t.Parallel()

	root := newRootCommand()
	for _, path := range [][]string{
		{"serve"}, {"ingest"}, {"lifecycle"}, {"summarize"}, {"compose"}, {"send"},
		{"schedule", "run"}, {"schedule", "resume"}, {"subscribers", "list"}, {"subscribers", "add"},
	} {
		cmd, _, err := root.Find(path)
		if err != nil || cmd == nil || cmd.Name() != path[len(path)-1] {
			t.Fatalf("command %v not registered: %v", path, err)
		}
	}
}

func TestEmitWritesJSONWhenNotATerminal(t *testing.T) {
	t.Parallel()

	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)

	ctx := newCommandContext(new(string), new(string), new(bool))
	result := usecase.RunResult{Status: usecase.RunSkipped, Skipped: true, DayOfWeek: 3}
	if err := ctx.emit(root, result, func() tableView { return runView(result) }); err != nil {
		t.Fatalf("emit: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(out.Bytes(), &decoded); err != nil {
		t.Fatalf("expected JSON output, got %q", out.String())
	}
	if decoded["status"] != "skipped" {
		t.Fatalf("unexpected output %v", decoded)
	}
}

func TestRenderTable(t *testing.T) {
	t.Parallel()

	out := renderTable([]string{"Field", "Value"}, [][]string{{"Status", "success"}, {"Short"}}, []columnAlignment{alignLeft, alignRight})
	for _, want := range []string{"FIELD", "VALUE", "Status", "success", "Short"} {
		if !strings.Contains(out, want) {
			t.Fatalf("table misses %q:\n%s", want, out)
		}
	}
	if renderTable(nil, nil, nil) != "" {
		t.Fatal("no headers should render nothing")
	}
}

func TestRunViewRows(t *testing.T) {
	t.Parallel()

	view := runView(usecase.RunResult{
		Status: usecase.RunFailed, DayOfWeek: 2, SummaryID: "s1", FailedStep: "distribute",
		Errors: []string{"distribute: boom"},
	})
	joined := ""
	for _, row := range view.rows {
		joined += strings.Join(row, "=") + "\n"
	}
	for _, want := range []string{"Day of week=Tuesday", "Summary=s1", "Failed step=distribute", "Error=distribute: boom", "Emails sent=0 / 0"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("missing row %q in\n%s", want, joined)
		}
	}
}

func TestRunLockIsExclusive(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "locks", "run.lock")
	unlock, err := acquireRunLock(path)
	if err != nil {
		t.Fatalf("first lock: %v", err)
	}
	if _, err := acquireRunLock(path); !errors.Is(err, errRunLocked) {
		t.Fatalf("expected errRunLocked, got %v", err)
	}
	unlock()

	again, err := acquireRunLock(path)
	if err != nil {
		t.Fatalf("lock after release: %v", err)
	}
	again()
}
