package adapter

import (
	"context"
	"time"
)

// TraceFunc observes every catalog query a dialect issues on a session.
type TraceFunc func(ctx context.Context, op, query string, args []any, elapsed time.Duration, err error)

// Session is an open connection plus the reflection cache tied to it.
//
// Cached entries assume the catalog does not change while the session is in
// use. A Session is not safe for concurrent use; callers serialize access the
// same way they would for the underlying connection.
type Session struct {
	Conn  Querier
	Trace TraceFunc

	cache map[string]any
}

// NewSession wraps conn with an empty cache.
func NewSession(conn Querier) *Session {
	return &Session{Conn: conn, cache: make(map[string]any)}
}

// Reset drops every cached entry.
func (s *Session) Reset() {
	s.cache = make(map[string]any)
}

// Len returns the number of cached entries.
func (s *Session) Len() int {
	return len(s.cache)
}

// Cached returns the value stored under key, calling fill on a miss.
// Errors from fill are returned and not cached.
func Cached[T any](s *Session, key string, fill func() (T, error)) (T, error) {
	if v, ok := s.cache[key]; ok {
		if t, ok := v.(T); ok {
			return t, nil
		}
	}
	v, err := fill()
	if err != nil {
		return v, err
	}
	if s.cache == nil {
		s.cache = make(map[string]any)
	}
	s.cache[key] = v
	return v, nil
}

// Observe reports a finished query to the session's trace hook, if any.
func (s *Session) Observe(ctx context.Context, op, query string, args []any, start time.Time, err error) {
	if s.Trace != nil {
		s.Trace(ctx, op, query, args, time.Since(start), err)
	}
}
