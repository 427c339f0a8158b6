// Package migrate plugs MonetDB into goose. The version table DDL is
// rendered through the dialect's type compiler and existence checks go
// through its catalog reflector.
package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/database"

	"github.com/sadopc/monetdialect/internal/adapter"
	"github.com/sadopc/monetdialect/internal/adapter/monetdb"
	"github.com/sadopc/monetdialect/internal/schema"
)

// DefaultTable is goose's version table name.
const DefaultTable = "goose_db_version"

var _ database.StoreExtender = (*Store)(nil)

// Store is a goose database.Store backed by MonetDB.
type Store struct {
	dialect *monetdb.Dialect
	schema  string
	table   string
}

// NewStore returns a Store for tablename, which may be schema-qualified
// ("schema.table"). An empty tablename means DefaultTable.
func NewStore(d *monetdb.Dialect, tablename string) *Store {
	if tablename == "" {
		tablename = DefaultTable
	}
	s := &Store{dialect: d, table: tablename}
	if i := strings.IndexByte(tablename, '.'); i > 0 {
		s.schema, s.table = tablename[:i], tablename[i+1:]
	}
	return s
}

func (s *Store) Tablename() string {
	if s.schema == "" {
		return s.table
	}
	return s.schema + "." + s.table
}

func (s *Store) quoted() string {
	return s.dialect.QuoteQualified(s.schema, s.table)
}

// CreateTableSQL returns the version table DDL.
func (s *Store) CreateTableSQL() (string, error) {
	cols := []struct {
		name string
		typ  schema.Type
		tail string
	}{
		{"id", schema.Type{Kind: schema.KindInteger, Bits: 32}, "AUTO_INCREMENT PRIMARY KEY"},
		{"version_id", schema.Type{Kind: schema.KindInteger, Bits: 64}, "NOT NULL"},
		{"is_applied", schema.Type{Kind: schema.KindBoolean}, "NOT NULL"},
		{"tstamp", schema.Type{Kind: schema.KindTimestamp}, "DEFAULT CURRENT_TIMESTAMP"},
	}

	defs := make([]string, 0, len(cols))
	for _, c := range cols {
		typ, err := s.dialect.TypeName(c.typ)
		if err != nil {
			return "", fmt.Errorf("version table column %s: %w", c.name, err)
		}
		defs = append(defs, fmt.Sprintf("%s %s %s", s.dialect.QuoteIdentifier(c.name), typ, c.tail))
	}
	return fmt.Sprintf("CREATE TABLE %s (\n\t%s\n)", s.quoted(), strings.Join(defs, ",\n\t")), nil
}

func (s *Store) CreateVersionTable(ctx context.Context, db database.DBTxConn) error {
	ddl, err := s.CreateTableSQL()
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create version table %s: %w", s.Tablename(), err)
	}
	return nil
}

// TableExists asks the catalog reflector whether the version table exists.
func (s *Store) TableExists(ctx context.Context, db database.DBTxConn) (bool, error) {
	ok, err := s.dialect.HasTable(ctx, adapter.NewSession(db), s.table, s.schema)
	if err != nil {
		return false, fmt.Errorf("check version table: %w", err)
	}
	return ok, nil
}

func (s *Store) Insert(ctx context.Context, db database.DBTxConn, req database.InsertRequest) error {
	q := fmt.Sprintf("INSERT INTO %s (version_id, is_applied) VALUES (?, ?)", s.quoted())
	if _, err := db.ExecContext(ctx, q, req.Version, true); err != nil {
		return fmt.Errorf("insert version %d: %w", req.Version, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, db database.DBTxConn, version int64) error {
	q := fmt.Sprintf("DELETE FROM %s WHERE version_id = ?", s.quoted())
	if _, err := db.ExecContext(ctx, q, version); err != nil {
		return fmt.Errorf("delete version %d: %w", version, err)
	}
	return nil
}

func (s *Store) GetMigration(ctx context.Context, db database.DBTxConn, version int64) (*database.GetMigrationResult, error) {
	q := fmt.Sprintf("SELECT tstamp, is_applied FROM %s WHERE version_id = ? ORDER BY tstamp DESC LIMIT 1", s.quoted())
	var res database.GetMigrationResult
	err := db.QueryRowContext(ctx, q, version).Scan(&res.Timestamp, &res.IsApplied)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("version %d: %w", version, database.ErrVersionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get version %d: %w", version, err)
	}
	return &res, nil
}

func (s *Store) GetLatestVersion(ctx context.Context, db database.DBTxConn) (int64, error) {
	q := fmt.Sprintf("SELECT MAX(version_id) FROM %s", s.quoted())
	var v sql.NullInt64
	if err := db.QueryRowContext(ctx, q).Scan(&v); err != nil {
		return -1, fmt.Errorf("latest version: %w", err)
	}
	if !v.Valid {
		return -1, fmt.Errorf("latest version: %w", database.ErrVersionNotFound)
	}
	return v.Int64, nil
}

func (s *Store) ListMigrations(ctx context.Context, db database.DBTxConn) ([]*database.ListMigrationsResult, error) {
	q := fmt.Sprintf("SELECT version_id, is_applied FROM %s ORDER BY id DESC", s.quoted())
	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	defer rows.Close()

	var out []*database.ListMigrationsResult
	for rows.Next() {
		var r database.ListMigrationsResult
		if err := rows.Scan(&r.Version, &r.IsApplied); err != nil {
			return nil, fmt.Errorf("list migrations scan: %w", err)
		}
		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	return out, nil
}

// Options configures NewProvider.
type Options struct {
	Table   string
	Verbose bool
}

// NewProvider returns a goose provider that runs the SQL migrations in fsys
// against db using a MonetDB Store.
func NewProvider(db *sql.DB, d *monetdb.Dialect, fsys fs.FS, opts Options) (*goose.Provider, error) {
	p, err := goose.NewProvider("", db, fsys,
		goose.WithStore(NewStore(d, opts.Table)),
		goose.WithVerbose(opts.Verbose),
	)
	if err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return p, nil
}

// Status is one migration's state for display.
type Status struct {
	Version   int64     `json:"version" yaml:"version"`
	Path      string    `json:"path" yaml:"path"`
	State     string    `json:"state" yaml:"state"`
	AppliedAt time.Time `json:"applied_at,omitzero" yaml:"applied_at,omitempty"`
}

// Statuses flattens the provider's migration status list.
func Statuses(ctx context.Context, p *goose.Provider) ([]Status, error) {
	list, err := p.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("migrate status: %w", err)
	}
	out := make([]Status, 0, len(list))
	for _, st := range list {
		out = append(out, Status{
			Version:   st.Source.Version,
			Path:      st.Source.Path,
			State:     string(st.State),
			AppliedAt: st.AppliedAt,
		})
	}
	return out, nil
}
