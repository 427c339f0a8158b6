package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

var ctx = context.Background()

func newTestHistory(t *testing.T, dir string) *History {
	t.Helper()
	h, err := Open(filepath.Join(dir, "history.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return h
}

func TestDefaultPath(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("HOME", tmp)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmp, ".config"))

	path, err := DefaultPath()
	if err != nil {
		t.Fatalf("DefaultPath() error = %v", err)
	}
	if filepath.Base(path) != "history.db" || filepath.Base(filepath.Dir(path)) != "monetinspect" {
		t.Errorf("DefaultPath() = %q", path)
	}
}

func TestOpen_CreatesDir(t *testing.T) {
	h, err := Open(filepath.Join(t.TempDir(), "nested", "dir", "history.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer h.Close()

	runs, err := h.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent() on new DB error = %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("Recent() on new DB = %d runs, want 0", len(runs))
	}
}

func TestAddAndRecent(t *testing.T) {
	h := newTestHistory(t, t.TempDir())
	defer h.Close()

	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	for i, cmd := range []string{"schemas", "tables", "columns", "keys", "dump"} {
		err := h.Add(ctx, Run{
			Command:    cmd,
			Target:     "monetdb://localhost:50000/demo",
			Schema:     "sys",
			StartedAt:  base.Add(time.Duration(i) * time.Minute),
			DurationMS: int64(10 * (i + 1)),
			Queries:    i + 1,
		})
		if err != nil {
			t.Fatalf("Add() run %d error = %v", i, err)
		}
	}

	runs, err := h.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("Recent(3) error = %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("Recent(3) returned %d runs, want 3", len(runs))
	}
	for i, want := range []string{"dump", "keys", "columns"} {
		if runs[i].Command != want {
			t.Errorf("runs[%d].Command = %q, want %q", i, runs[i].Command, want)
		}
	}
}

func TestSearch(t *testing.T) {
	h := newTestHistory(t, t.TempDir())
	defer h.Close()

	now := time.Now().UTC()
	runs := []Run{
		{Command: "tables", Target: "monetdb://db1:50000/sales"},
		{Command: "columns", Target: "monetdb://db2:50000/hr"},
		{Command: "dump", Target: "monetdb://db1:50000/sales"},
		{Command: "migrate status", Target: "monetdb://db2:50000/hr"},
	}
	for i, r := range runs {
		r.StartedAt = now.Add(time.Duration(i) * time.Second)
		if err := h.Add(ctx, r); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
	}

	tests := []struct {
		name    string
		pattern string
		want    int
	}{
		{"by target", "%db1%", 2},
		{"by command", "migrate%", 1},
		{"either", "%s%", 4},
		{"no match", "%oracle%", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := h.Search(ctx, tt.pattern, 100)
			if err != nil {
				t.Fatalf("Search(%q) error = %v", tt.pattern, err)
			}
			if len(got) != tt.want {
				t.Errorf("Search(%q) returned %d runs, want %d", tt.pattern, len(got), tt.want)
			}
		})
	}

	got, err := h.Search(ctx, "%db1%", 10)
	if err != nil {
		t.Fatal(err)
	}
	if got[0].Command != "dump" {
		t.Errorf("got[0].Command = %q, want dump", got[0].Command)
	}
}

func TestClear(t *testing.T) {
	h := newTestHistory(t, t.TempDir())
	defer h.Close()

	for range 3 {
		if err := h.Add(ctx, Run{Command: "tables", StartedAt: time.Now().UTC()}); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
	}
	if err := h.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	after, err := h.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent() after clear error = %v", err)
	}
	if len(after) != 0 {
		t.Errorf("Recent() after clear = %d runs, want 0", len(after))
	}
}

func TestRunFields(t *testing.T) {
	h := newTestHistory(t, t.TempDir())
	defer h.Close()

	started := time.Date(2026, 3, 15, 14, 30, 0, 0, time.UTC)
	run := Run{
		Command:    "columns",
		Target:     "monetdb://mdb:50000/demo",
		Schema:     "shop",
		StartedAt:  started,
		DurationMS: 1234,
		Queries:    3,
		Error:      `columns: table "nope" not found`,
	}
	if err := h.Add(ctx, run); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	runs, err := h.Recent(ctx, 1)
	if err != nil {
		t.Fatalf("Recent(1) error = %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("Recent(1) returned %d runs, want 1", len(runs))
	}

	got := runs[0]
	if got.ID == 0 {
		t.Error("ID should be non-zero after insert")
	}
	if got.Command != run.Command || got.Target != run.Target || got.Schema != run.Schema {
		t.Errorf("got %+v, want %+v", got, run)
	}
	if got.DurationMS != run.DurationMS || got.Queries != run.Queries {
		t.Errorf("DurationMS/Queries = %d/%d, want %d/%d", got.DurationMS, got.Queries, run.DurationMS, run.Queries)
	}
	if !got.Failed() || got.Error != run.Error {
		t.Errorf("Error = %q, want %q", got.Error, run.Error)
	}
	if got.StartedAt.Sub(started).Abs() > time.Second {
		t.Errorf("StartedAt = %v, want approximately %v", got.StartedAt, started)
	}
}

func TestCloseAndReopen(t *testing.T) {
	dir := t.TempDir()

	h1 := newTestHistory(t, dir)
	for i, cmd := range []string{"schemas", "tables", "views"} {
		if err := h1.Add(ctx, Run{Command: cmd, StartedAt: time.Now().UTC().Add(time.Duration(i) * time.Second)}); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
	}
	if err := h1.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	h2 := newTestHistory(t, dir)
	defer h2.Close()

	runs, err := h2.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent() after reopen error = %v", err)
	}
	if len(runs) != 3 || runs[0].Command != "views" || runs[2].Command != "schemas" {
		t.Fatalf("Recent() after reopen = %+v", runs)
	}
}
