// Package audit records catalog queries as JSON Lines.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/sadopc/monetdialect/internal/adapter"
)

// Entry is one catalog query.
type Entry struct {
	Timestamp  time.Time `json:"timestamp"`
	Operation  string    `json:"operation"`
	Query      string    `json:"query"`
	Args       []string  `json:"args,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	IsError    bool      `json:"is_error"`
	Error      string    `json:"error,omitempty"`
	DSN        string    `json:"dsn,omitempty"`
}

// Logger appends entries to a file, rotating it to path.1 once it grows
// past the configured size.
type Logger struct {
	mu        sync.Mutex
	f         *os.File
	enc       *json.Encoder
	path      string
	maxSizeMB int
	dsn       string
}

// New opens path for appending, creating parent directories (0o700) and the
// file (0o600) as needed. maxSizeMB <= 0 disables rotation. dsn is stored
// sanitized on every entry.
func New(path string, maxSizeMB int, dsn string) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("audit: create dir: %w", err)
	}
	f, err := openLog(path)
	if err != nil {
		return nil, err
	}
	return &Logger{
		f:         f,
		enc:       json.NewEncoder(f),
		path:      path,
		maxSizeMB: maxSizeMB,
		dsn:       SanitizeDSN(dsn),
	}, nil
}

func openLog(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("audit: open file: %w", err)
	}
	return f, nil
}

// Log writes e as one JSON line. A zero DSN is filled from the logger.
// Safe for concurrent use; a nil Logger discards.
func (l *Logger) Log(e Entry) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if e.DSN == "" {
		e.DSN = l.dsn
	}
	_ = l.enc.Encode(e)

	if l.maxSizeMB > 0 {
		l.rotateIfNeeded()
	}
}

// Trace adapts the logger to a session trace hook.
func (l *Logger) Trace() adapter.TraceFunc {
	return func(_ context.Context, op, query string, args []any, elapsed time.Duration, err error) {
		e := Entry{
			Timestamp:  time.Now().UTC(),
			Operation:  op,
			Query:      compactSQL(query),
			Args:       formatArgs(args),
			DurationMS: elapsed.Milliseconds(),
		}
		if err != nil {
			e.IsError = true
			e.Error = err.Error()
		}
		l.Log(e)
	}
}

// Close closes the file. A nil Logger is a no-op.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f.Close()
}

func (l *Logger) rotateIfNeeded() {
	info, err := l.f.Stat()
	if err != nil || info.Size() < int64(l.maxSizeMB)<<20 {
		return
	}
	_ = l.f.Close()
	_ = os.Rename(l.path, l.path+".1")

	f, err := openLog(l.path)
	if err != nil {
		return
	}
	l.f = f
	l.enc = json.NewEncoder(f)
}

func formatArgs(args []any) []string {
	if len(args) == 0 {
		return nil
	}
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = fmt.Sprint(a)
	}
	return out
}

// compactSQL folds the indentation of multi-line catalog queries.
func compactSQL(q string) string {
	return strings.Join(strings.Fields(q), " ")
}

// SanitizeDSN hides the credentials in a monetdb:// URL or a MonetDB-Go
// "user:password@host:port/db" DSN.
func SanitizeDSN(dsn string) string {
	if strings.Contains(dsn, "://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return reURLCreds.ReplaceAllString(dsn, "://***@")
		}
		if u.User != nil {
			u.User = url.User("***")
		}
		return u.String()
	}
	return reDSNCreds.ReplaceAllString(dsn, "***@")
}

var (
	reURLCreds = regexp.MustCompile(`://[^@/]+@`)
	reDSNCreds = regexp.MustCompile(`^[^@/]+@`)
)
