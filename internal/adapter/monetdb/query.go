package monetdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sadopc/monetdialect/internal/adapter"
)

// params are the named arguments of a pyformat catalog query.
type params map[string]any

var rePyformat = regexp.MustCompile(`%%|%\((\w+)\)s`)

// bindNamed rewrites %(name)s placeholders into positional ? markers and
// returns the arguments in placeholder order. %% becomes a literal percent
// sign. Every placeholder must have a value in p.
func bindNamed(query string, p params) (string, []any, error) {
	var (
		args    []any
		missing []string
	)
	out := rePyformat.ReplaceAllStringFunc(query, func(m string) string {
		if m == "%%" {
			return "%"
		}
		name := m[2 : len(m)-2]
		v, ok := p[name]
		if !ok {
			missing = append(missing, name)
			return m
		}
		args = append(args, v)
		return "?"
	})
	if len(missing) > 0 {
		return "", nil, fmt.Errorf("unbound query parameter(s): %s", strings.Join(missing, ", "))
	}
	return out, args, nil
}

// query runs a pyformat catalog query on the session.
func (d *Dialect) query(ctx context.Context, s *adapter.Session, op, q string, p params) (*sql.Rows, error) {
	text, args, err := bindNamed(q, p)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return d.queryRaw(ctx, s, op, text, args...)
}

// queryRaw runs a query already written in the driver's ? style.
func (d *Dialect) queryRaw(ctx context.Context, s *adapter.Session, op, text string, args ...any) (*sql.Rows, error) {
	start := time.Now()
	rows, err := s.Conn.QueryContext(ctx, text, args...)
	s.Observe(ctx, op, text, args, start, err)
	d.logger.Debug("catalog query", "op", op, "elapsed", time.Since(start), "err", err)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return rows, nil
}

// scalar runs a pyformat query expected to return at most one value. found
// is false when the query returned no row.
func (d *Dialect) scalar(ctx context.Context, s *adapter.Session, op, q string, p params, dest any) (found bool, err error) {
	text, args, err := bindNamed(q, p)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	start := time.Now()
	err = s.Conn.QueryRowContext(ctx, text, args...).Scan(dest)
	if errors.Is(err, sql.ErrNoRows) {
		s.Observe(ctx, op, text, args, start, nil)
		d.logger.Debug("catalog query", "op", op, "elapsed", time.Since(start), "found", false)
		return false, nil
	}
	s.Observe(ctx, op, text, args, start, err)
	d.logger.Debug("catalog query", "op", op, "elapsed", time.Since(start), "err", err)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}

// names collects a single string column.
func (d *Dialect) names(ctx context.Context, s *adapter.Session, op, q string, p params) ([]string, error) {
	rows, err := d.query(ctx, s, op, q, p)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("%s scan: %w", op, err)
		}
		out = append(out, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}
