// Package monetdb implements the MonetDB dialect: catalog reflection over the
// sys.* tables, type mapping, and identifier and type rendering.
package monetdb

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	_ "github.com/MonetDB/MonetDB-Go/v2"

	"github.com/sadopc/monetdialect/internal/adapter"
)

const (
	// DriverName is the database/sql driver name registered by MonetDB-Go.
	DriverName = "monetdb"

	DefaultPort = 50000

	// DefaultTempSchemaID is the id of the reserved "tmp" schema.
	DefaultTempSchemaID = 2097
)

// sys.tables.type and sys.keys.type discriminants.
const (
	tableTypeBase      = 0
	tableTypeView      = 1
	tableTypeLocalTemp = 30

	keyTypePrimary = 0
	keyTypeUnique  = 1
)

func init() {
	adapter.Register(New())
}

var _ adapter.Dialect = (*Dialect)(nil)

// Option configures a Dialect.
type Option func(*Dialect)

// WithLogger sets the logger used for catalog query tracing.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dialect) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithTempSchemaID overrides the id of the schema holding local temporary
// tables.
func WithTempSchemaID(id int64) Option {
	return func(d *Dialect) {
		if id > 0 {
			d.tempSchemaID = id
		}
	}
}

// Dialect implements adapter.Dialect for MonetDB. It holds no per-connection
// state; caches live in the adapter.Session passed to each call.
type Dialect struct {
	logger       *slog.Logger
	tempSchemaID int64
}

// New returns a MonetDB dialect.
func New(opts ...Option) *Dialect {
	d := &Dialect{
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		tempSchemaID: DefaultTempSchemaID,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dialect) Name() string   { return "monetdb" }
func (d *Dialect) Driver() string { return DriverName }

// Capabilities reports what MonetDB supports. The statement cache is off and
// the pool keeps a single connection.
func (d *Dialect) Capabilities() adapter.Capabilities {
	return adapter.Capabilities{
		SupportsStatementCache:    false,
		SupportsNativeDecimal:     true,
		SupportsNativeBoolean:     true,
		SupportsSequences:         true,
		SequencesOptional:         true,
		SupportsPKAutoincrement:   true,
		PreexecutePKSequences:     true,
		SupportsDefaultValues:     true,
		SupportsMultivaluesInsert: true,
		SupportsIsDistinctFrom:    false,
		PostfetchLastrowid:        false,
		DefaultParamStyle:         "pyformat",
		Pool:                      adapter.PoolSingleton,
	}
}

// CreateConnectArgs translates a monetdb:// URL into driver arguments. There
// are no positional arguments; URL parts and query parameters become options.
func (d *Dialect) CreateConnectArgs(rawURL string) (adapter.ConnectArgs, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return adapter.ConnectArgs{}, fmt.Errorf("parse url: %w", err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "monetdb" && !strings.HasPrefix(scheme, "monetdb+") {
		return adapter.ConnectArgs{}, fmt.Errorf("parse url: unsupported scheme %q", u.Scheme)
	}

	opts := make(map[string]string)
	for key, vals := range u.Query() {
		if len(vals) > 0 {
			opts[key] = vals[len(vals)-1]
		}
	}
	if u.User != nil {
		if name := u.User.Username(); name != "" {
			opts["username"] = name
		}
		if pw, ok := u.User.Password(); ok {
			opts["password"] = pw
		}
	}
	if host := u.Hostname(); host != "" {
		opts["hostname"] = host
	}
	if port := u.Port(); port != "" {
		opts["port"] = port
	}
	if db := strings.TrimPrefix(u.Path, "/"); db != "" {
		opts["database"] = db
	}
	return adapter.ConnectArgs{Positional: nil, Options: opts}, nil
}

// DSN renders connect options in the MonetDB-Go form
// "user:password@host:port/database".
func DSN(args adapter.ConnectArgs) string {
	o := args.Options
	var b strings.Builder
	if user := o["username"]; user != "" {
		b.WriteString(user)
		if pw := o["password"]; pw != "" {
			b.WriteByte(':')
			b.WriteString(pw)
		}
		b.WriteByte('@')
	}
	host := o["hostname"]
	if host == "" {
		host = "localhost"
	}
	if strings.Contains(host, ":") && !strings.HasPrefix(host, "[") {
		host = "[" + host + "]"
	}
	b.WriteString(host)
	port := o["port"]
	if port == "" {
		port = fmt.Sprint(DefaultPort)
	}
	b.WriteByte(':')
	b.WriteString(port)
	if db := o["database"]; db != "" {
		b.WriteByte('/')
		b.WriteString(db)
	}
	return b.String()
}

// Open connects with the singleton pool policy and pings the server. dsn is
// either a monetdb:// URL or a driver DSN.
func (d *Dialect) Open(ctx context.Context, dsn string) (*sql.DB, error) {
	if strings.Contains(dsn, "://") {
		args, err := d.CreateConnectArgs(dsn)
		if err != nil {
			return nil, fmt.Errorf("monetdb connect: %w", err)
		}
		dsn = DSN(args)
	}

	db, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("monetdb connect: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("monetdb ping: %w", err)
	}
	return db, nil
}

func (d *Dialect) DoCommit(tx adapter.Tx) error {
	return tx.Commit()
}

func (d *Dialect) DoRollback(tx adapter.Tx) error {
	return tx.Rollback()
}
