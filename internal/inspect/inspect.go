// Package inspect assembles per-object catalog reflection into whole tables
// and schema snapshots.
package inspect

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/sahilm/fuzzy"

	"github.com/sadopc/monetdialect/internal/adapter"
	"github.com/sadopc/monetdialect/internal/schema"
)

// Inspector reflects objects through a dialect on one session. Like the
// session, it is not safe for concurrent use.
type Inspector struct {
	dialect adapter.Dialect
	session *adapter.Session
	logger  *slog.Logger
}

// New returns an Inspector. A nil logger discards.
func New(d adapter.Dialect, s *adapter.Session, logger *slog.Logger) *Inspector {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Inspector{dialect: d, session: s, logger: logger}
}

func (i *Inspector) Dialect() adapter.Dialect  { return i.dialect }
func (i *Inspector) Session() *adapter.Session { return i.session }

// Table reflects one table with its columns, keys and indexes.
func (i *Inspector) Table(ctx context.Context, schemaName, name string) (schema.Table, error) {
	d, s := i.dialect, i.session
	t := schema.Table{Name: name}

	var err error
	if t.Columns, err = d.Columns(ctx, s, name, schemaName); err != nil {
		return schema.Table{}, fmt.Errorf("table %s: %w", name, err)
	}
	if t.PrimaryKey, err = d.PrimaryKey(ctx, s, name, schemaName); err != nil {
		return schema.Table{}, fmt.Errorf("table %s: %w", name, err)
	}
	if t.Uniques, err = d.UniqueConstraints(ctx, s, name, schemaName); err != nil {
		return schema.Table{}, fmt.Errorf("table %s: %w", name, err)
	}
	if t.ForeignKeys, err = d.ForeignKeys(ctx, s, name, schemaName); err != nil {
		return schema.Table{}, fmt.Errorf("table %s: %w", name, err)
	}
	if t.Indexes, err = d.Indexes(ctx, s, name, schemaName); err != nil {
		return schema.Table{}, fmt.Errorf("table %s: %w", name, err)
	}
	return t, nil
}

// View returns a view with its definition.
func (i *Inspector) View(ctx context.Context, schemaName, name string) (schema.View, error) {
	def, err := i.dialect.ViewDefinition(ctx, i.session, name, schemaName)
	if err != nil {
		return schema.View{}, err
	}
	return schema.View{Name: name, Definition: def}, nil
}

// ResolveSchema returns schemaName, or the connection's current schema when
// it is empty.
func (i *Inspector) ResolveSchema(ctx context.Context, schemaName string) (string, error) {
	if schemaName != "" {
		return schemaName, nil
	}
	return i.dialect.DefaultSchemaName(ctx, i.session)
}

// Snapshot reflects every table, view and sequence of a schema.
func (i *Inspector) Snapshot(ctx context.Context, schemaName string) (*schema.Snapshot, error) {
	start := time.Now()
	name, err := i.ResolveSchema(ctx, schemaName)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	snap := &schema.Snapshot{Schema: name, Tables: []schema.Table{}}

	tables, err := i.dialect.TableNames(ctx, i.session, name)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", name, err)
	}
	for _, tn := range tables {
		t, err := i.Table(ctx, name, tn)
		if err != nil {
			return nil, fmt.Errorf("snapshot %s: %w", name, err)
		}
		snap.Tables = append(snap.Tables, t)
	}

	views, err := i.dialect.ViewNames(ctx, i.session, name)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", name, err)
	}
	for _, vn := range views {
		v, err := i.View(ctx, name, vn)
		if err != nil {
			return nil, fmt.Errorf("snapshot %s: %w", name, err)
		}
		snap.Views = append(snap.Views, v)
	}

	if snap.Sequences, err = i.dialect.Sequences(ctx, i.session, name); err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", name, err)
	}

	i.logger.Info("schema reflected",
		"schema", name,
		"tables", len(snap.Tables),
		"views", len(snap.Views),
		"sequences", len(snap.Sequences),
		"elapsed", time.Since(start),
	)
	return snap, nil
}

type names []string

func (n names) String(i int) string { return n[i] }
func (n names) Len() int            { return len(n) }

// FilterNames returns the names fuzzy-matching pattern, best match first.
// Matching ignores case. An empty pattern returns names unchanged.
func FilterNames(pattern string, list []string) []string {
	if pattern == "" {
		return list
	}
	lower := make(names, len(list))
	for i, n := range list {
		lower[i] = strings.ToLower(n)
	}

	matches := fuzzy.FindFrom(strings.ToLower(pattern), lower)
	sort.SliceStable(matches, func(a, b int) bool {
		if matches[a].Score != matches[b].Score {
			return matches[a].Score > matches[b].Score
		}
		return matches[a].Index < matches[b].Index
	})

	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, list[m.Index])
	}
	return out
}
