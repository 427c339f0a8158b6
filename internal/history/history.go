// Package history records monetinspect runs in a local SQLite database.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/sadopc/monetdialect/internal/config"
)

const createTableSQL = `CREATE TABLE IF NOT EXISTS runs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	command     TEXT NOT NULL,
	target      TEXT NOT NULL DEFAULT '',
	schema_name TEXT NOT NULL DEFAULT '',
	started_at  DATETIME DEFAULT CURRENT_TIMESTAMP,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	queries     INTEGER NOT NULL DEFAULT 0,
	error       TEXT NOT NULL DEFAULT ''
)`

const selectRuns = `SELECT id, command, target, schema_name, started_at, duration_ms, queries, error FROM runs`

// Run is one recorded command invocation. Target is the credential-free
// server location, Queries the number of catalog queries issued.
type Run struct {
	ID         int64     `json:"id" yaml:"id"`
	Command    string    `json:"command" yaml:"command"`
	Target     string    `json:"target" yaml:"target"`
	Schema     string    `json:"schema,omitempty" yaml:"schema,omitempty"`
	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	DurationMS int64     `json:"duration_ms" yaml:"duration_ms"`
	Queries    int       `json:"queries" yaml:"queries"`
	Error      string    `json:"error,omitempty" yaml:"error,omitempty"`
}

// Failed reports whether the run ended with an error.
func (r Run) Failed() bool { return r.Error != "" }

// History provides SQLite-backed run storage.
type History struct {
	db *sql.DB
}

// DefaultPath returns ConfigDir()/history.db.
func DefaultPath() (string, error) {
	dir, err := config.ConfigDir()
	if err != nil {
		return "", fmt.Errorf("history: %w", err)
	}
	return filepath.Join(dir, "history.db"), nil
}

// Open opens (or creates) the history database at path and ensures the
// schema exists.
func Open(path string) (*History, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("history: create dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open db: %w", err)
	}
	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: create table: %w", err)
	}
	return &History{db: db}, nil
}

// Add inserts a run.
func (h *History) Add(ctx context.Context, r Run) error {
	_, err := h.db.ExecContext(ctx,
		`INSERT INTO runs (command, target, schema_name, started_at, duration_ms, queries, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.Command, r.Target, r.Schema, r.StartedAt, r.DurationMS, r.Queries, r.Error,
	)
	if err != nil {
		return fmt.Errorf("history add: %w", err)
	}
	return nil
}

// Recent returns the most recent runs, newest first.
func (h *History) Recent(ctx context.Context, limit int) ([]Run, error) {
	rows, err := h.db.QueryContext(ctx, selectRuns+` ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history recent: %w", err)
	}
	defer rows.Close()
	return scanRuns(rows)
}

// Search returns runs whose command or target matches the SQL LIKE pattern,
// newest first.
func (h *History) Search(ctx context.Context, pattern string, limit int) ([]Run, error) {
	rows, err := h.db.QueryContext(ctx,
		selectRuns+` WHERE command LIKE ? OR target LIKE ? ORDER BY started_at DESC, id DESC LIMIT ?`,
		pattern, pattern, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("history search: %w", err)
	}
	defer rows.Close()
	return scanRuns(rows)
}

// Clear deletes all runs.
func (h *History) Clear(ctx context.Context) error {
	if _, err := h.db.ExecContext(ctx, `DELETE FROM runs`); err != nil {
		return fmt.Errorf("history clear: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (h *History) Close() error {
	return h.db.Close()
}

func scanRuns(rows *sql.Rows) ([]Run, error) {
	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Command, &r.Target, &r.Schema, &r.StartedAt, &r.DurationMS, &r.Queries, &r.Error); err != nil {
			return nil, fmt.Errorf("history scan: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history rows: %w", err)
	}
	return runs, nil
}
