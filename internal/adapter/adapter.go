package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"

	"github.com/sadopc/monetdialect/internal/schema"
)

// Querier is the part of *sql.DB, *sql.Conn and *sql.Tx the reflector needs.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Tx is a transactional session the host commits or rolls back.
type Tx interface {
	Commit() error
	Rollback() error
}

// Dialect is the contract a host toolkit uses to reflect a database and to
// render identifiers and types for it. Empty schema arguments mean the
// connection's current schema.
type Dialect interface {
	Name() string
	Driver() string
	Capabilities() Capabilities
	CreateConnectArgs(rawURL string) (ConnectArgs, error)

	// Connection lifecycle
	Open(ctx context.Context, dsn string) (*sql.DB, error)
	DoCommit(tx Tx) error
	DoRollback(tx Tx) error

	// Reflection
	DefaultSchemaName(ctx context.Context, s *Session) (string, error)
	SchemaNames(ctx context.Context, s *Session) ([]string, error)
	TableNames(ctx context.Context, s *Session, schemaName string) ([]string, error)
	TempTableNames(ctx context.Context, s *Session) ([]string, error)
	ViewNames(ctx context.Context, s *Session, schemaName string) ([]string, error)
	ViewDefinition(ctx context.Context, s *Session, view, schemaName string) (string, error)
	HasTable(ctx context.Context, s *Session, table, schemaName string) (bool, error)
	HasSequence(ctx context.Context, s *Session, sequence, schemaName string) (bool, error)
	Sequences(ctx context.Context, s *Session, schemaName string) ([]schema.Sequence, error)
	Columns(ctx context.Context, s *Session, table, schemaName string) ([]schema.Column, error)
	PrimaryKey(ctx context.Context, s *Session, table, schemaName string) (schema.PrimaryKey, error)
	UniqueConstraints(ctx context.Context, s *Session, table, schemaName string) ([]schema.UniqueConstraint, error)
	ForeignKeys(ctx context.Context, s *Session, table, schemaName string) ([]schema.ForeignKey, error)
	Indexes(ctx context.Context, s *Session, table, schemaName string) ([]schema.Index, error)

	// Compilation
	QuoteIdentifier(name string) string
	TypeName(t schema.Type) (string, error)
}

// PoolPolicy names the connection pool policy a dialect expects.
type PoolPolicy string

const (
	// PoolSingleton keeps a single connection per pool.
	PoolSingleton PoolPolicy = "singleton"
	PoolQueue     PoolPolicy = "queue"
)

// Capabilities are declarative facts about the target database.
type Capabilities struct {
	SupportsStatementCache    bool
	SupportsNativeDecimal     bool
	SupportsNativeBoolean     bool
	SupportsSequences         bool
	SequencesOptional         bool
	SupportsPKAutoincrement   bool
	PreexecutePKSequences     bool
	SupportsDefaultValues     bool
	SupportsMultivaluesInsert bool
	SupportsIsDistinctFrom    bool
	PostfetchLastrowid        bool
	DefaultParamStyle         string
	Pool                      PoolPolicy
}

// ConnectArgs is the driver-level translation of a connection URL.
type ConnectArgs struct {
	Positional []any
	Options    map[string]string
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Dialect{}
)

// Register adds a dialect to the global registry.
func Register(d Dialect) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[d.Name()] = d
}

// Get returns the dialect registered under name.
func Get(name string) (Dialect, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	d, ok := registry[name]
	return d, ok
}

// Lookup is Get with an error naming the registered dialects.
func Lookup(name string) (Dialect, error) {
	if d, ok := Get(name); ok {
		return d, nil
	}
	return nil, fmt.Errorf("unknown dialect %q (available: %v)", name, Names())
}

// Names returns the registered dialect names, sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
