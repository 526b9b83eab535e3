package history

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/example/devstack/pkg/devstack"
)

func sampleRun(stack string, started time.Time, failing bool) *devstack.RunResult {
	outcome, code := devstack.OutcomeSuccess, 0
	if failing {
		outcome, code = devstack.OutcomeFailure, -2
	}
	return &devstack.RunResult{
		Stack:   stack,
		Command: "deploy",
		Order:   []string{"network", "app", "docs"},
		Modes:   map[string]bool{"Verbose": true},
		Layers: []devstack.LayerResult{
			{Layer: "network", Outcome: devstack.OutcomeSuccess, StartedAt: started, FinishedAt: started.Add(time.Second)},
			{Layer: "app", Outcome: outcome, Code: code, StartedAt: started.Add(time.Second), FinishedAt: started.Add(2 * time.Second)},
			{Layer: "docs", Outcome: devstack.OutcomeSkipped},
		},
		StartedAt:  started,
		FinishedAt: started.Add(2 * time.Second),
	}
}

func TestStore_RecordAndList(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, false)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	if _, err := os.Stat(filepath.Join(dir, RelPath)); err != nil {
		t.Fatalf("database not created: %v", err)
	}

	ctx := context.Background()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := s.RecordRun(ctx, sampleRun("demo", base, false)); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := s.RecordRun(ctx, sampleRun("demo", base.Add(time.Hour), true)); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := s.RecordRun(ctx, sampleRun("other", base, false)); err != nil {
		t.Fatalf("record: %v", err)
	}

	runs, err := s.ListRuns(ctx, "demo", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("runs=%+v", runs)
	}
	newest := runs[0]
	if newest.Status != "failed" || !newest.StartedAt.Equal(base.Add(time.Hour)) {
		t.Fatalf("newest=%+v", newest)
	}
	if newest.Totals != (Totals{Enabled: 2, Success: 1, Failure: 1, Skipped: 1}) {
		t.Fatalf("totals=%+v", newest.Totals)
	}
	if !newest.Modes["Verbose"] {
		t.Fatalf("modes=%v", newest.Modes)
	}

	all, err := s.ListRuns(ctx, "", 0)
	if err != nil || len(all) != 3 {
		t.Fatalf("all=%d err=%v", len(all), err)
	}

	layers, err := s.Layers(ctx, newest.ID)
	if err != nil {
		t.Fatalf("layers: %v", err)
	}
	if len(layers) != 3 || layers[1].Layer != "app" || layers[1].Code != -2 || layers[2].Outcome != devstack.OutcomeSkipped {
		t.Fatalf("layers=%+v", layers)
	}
	if !layers[2].StartedAt.IsZero() {
		t.Fatalf("skipped layer must keep a zero start time")
	}

	var buf bytes.Buffer
	if err := PrintRunsTable(&buf, runs); err != nil {
		t.Fatalf("print: %v", err)
	}
	if !strings.Contains(buf.String(), "FAILED") || !strings.Contains(buf.String(), "2s") {
		t.Fatalf("table:\n%s", buf.String())
	}
}

func TestOpen_ReadOnlyRequiresDatabase(t *testing.T) {
	dir := t.TempDir()
	if _, err := Open(dir, true); err == nil {
		t.Fatalf("expected error for missing database")
	}
	rw, err := Open(dir, false)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := rw.RecordRun(context.Background(), sampleRun("demo", time.Now(), false)); err != nil {
		t.Fatalf("record: %v", err)
	}
	_ = rw.Close()

	ro, err := Open(dir, true)
	if err != nil {
		t.Fatalf("open read-only: %v", err)
	}
	defer ro.Close()
	runs, err := ro.ListRuns(context.Background(), "demo", 5)
	if err != nil || len(runs) != 1 {
		t.Fatalf("runs=%d err=%v", len(runs), err)
	}
	if err := ro.RecordRun(context.Background(), sampleRun("demo", time.Now(), false)); err == nil {
		t.Fatalf("read-only store must refuse writes")
	}
}
