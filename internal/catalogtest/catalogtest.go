// Package catalogtest provides an in-memory stand-in for the MonetDB system
// catalog. It attaches a "sys" database to an SQLite connection and creates
// the sys.* tables the dialect reads, so catalog SQL runs unmodified.
package catalogtest

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"

	_ "modernc.org/sqlite"
)

// Well-known catalog ids.
const (
	SysSchemaID = 2000
	TmpSchemaID = 2097
)

// Table types and key types as stored in sys.tables.type and sys.keys.type.
const (
	TableBase      = 0
	TableView      = 1
	TableLocalTemp = 30

	KeyPrimary = 0
	KeyUnique  = 1
	KeyForeign = 2
)

var catalogDDL = []string{
	`CREATE TABLE sys.schemas (
		id   INTEGER PRIMARY KEY,
		name TEXT NOT NULL
	)`,
	`CREATE TABLE sys.tables (
		id        INTEGER PRIMARY KEY,
		name      TEXT NOT NULL,
		schema_id INTEGER NOT NULL,
		query     TEXT,
		type      INTEGER NOT NULL,
		system    BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE TABLE sys.columns (
		id          INTEGER PRIMARY KEY,
		name        TEXT NOT NULL,
		type        TEXT NOT NULL,
		type_digits INTEGER,
		type_scale  INTEGER,
		table_id    INTEGER NOT NULL,
		"default"   TEXT,
		"null"      BOOLEAN NOT NULL,
		number      INTEGER NOT NULL
	)`,
	`CREATE TABLE sys.keys (
		id       INTEGER PRIMARY KEY,
		table_id INTEGER NOT NULL,
		type     INTEGER NOT NULL,
		name     TEXT NOT NULL,
		rkey     INTEGER NOT NULL DEFAULT -1
	)`,
	`CREATE TABLE sys.objects (
		id   INTEGER NOT NULL,
		name TEXT NOT NULL,
		nr   INTEGER NOT NULL
	)`,
	`CREATE TABLE sys.idxs (
		id       INTEGER PRIMARY KEY,
		table_id INTEGER NOT NULL,
		type     INTEGER NOT NULL DEFAULT 0,
		name     TEXT NOT NULL
	)`,
	`CREATE TABLE sys.sequences (
		id        INTEGER PRIMARY KEY,
		schema_id INTEGER NOT NULL,
		name      TEXT NOT NULL
	)`,
}

// Catalog is a fake MonetDB catalog. It satisfies adapter.Querier.
type Catalog struct {
	DB *sql.DB

	// Current is the value SELECT CURRENT_SCHEMA returns.
	Current string

	nextID int64
}

// New opens an empty catalog containing the sys and tmp schemas. The
// database is closed when the test ends.
func New(t testing.TB) *Catalog {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("catalogtest: open: %v", err)
	}
	// The attached database lives on a single connection.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec(`ATTACH DATABASE ':memory:' AS sys`); err != nil {
		t.Fatalf("catalogtest: attach: %v", err)
	}
	for _, ddl := range catalogDDL {
		if _, err := db.Exec(ddl); err != nil {
			t.Fatalf("catalogtest: %v", err)
		}
	}

	c := &Catalog{DB: db, Current: "sys", nextID: 7000}
	c.mustExec(t, `INSERT INTO sys.schemas (id, name) VALUES (?, 'sys'), (?, 'tmp')`, SysSchemaID, TmpSchemaID)
	return c
}

// QueryContext runs q against the fake catalog.
func (c *Catalog) QueryContext(ctx context.Context, q string, args ...any) (*sql.Rows, error) {
	q, args = c.rewrite(q, args)
	return c.DB.QueryContext(ctx, q, args...)
}

// QueryRowContext runs q against the fake catalog.
func (c *Catalog) QueryRowContext(ctx context.Context, q string, args ...any) *sql.Row {
	q, args = c.rewrite(q, args)
	return c.DB.QueryRowContext(ctx, q, args...)
}

// rewrite answers the one MonetDB-only statement the dialect issues.
func (c *Catalog) rewrite(q string, args []any) (string, []any) {
	if strings.EqualFold(strings.TrimSpace(q), "SELECT CURRENT_SCHEMA") {
		return "SELECT ?", []any{c.Current}
	}
	return q, args
}

func (c *Catalog) id() int64 {
	c.nextID++
	return c.nextID
}

func (c *Catalog) mustExec(t testing.TB, q string, args ...any) {
	t.Helper()
	if _, err := c.DB.Exec(q, args...); err != nil {
		t.Fatalf("catalogtest: exec: %v", err)
	}
}

// AddSchema creates a schema and returns its id.
func (c *Catalog) AddSchema(t testing.TB, name string) int64 {
	t.Helper()
	id := c.id()
	c.mustExec(t, `INSERT INTO sys.schemas (id, name) VALUES (?, ?)`, id, name)
	return id
}

// AddTable creates a non-system table of the given type and returns its id.
func (c *Catalog) AddTable(t testing.TB, schemaID int64, name string, tableType int) int64 {
	t.Helper()
	id := c.id()
	c.mustExec(t, `INSERT INTO sys.tables (id, name, schema_id, type, system) VALUES (?, ?, ?, ?, FALSE)`,
		id, name, schemaID, tableType)
	return id
}

// AddSystemTable creates a table flagged as system.
func (c *Catalog) AddSystemTable(t testing.TB, schemaID int64, name string) int64 {
	t.Helper()
	id := c.id()
	c.mustExec(t, `INSERT INTO sys.tables (id, name, schema_id, type, system) VALUES (?, ?, ?, ?, TRUE)`,
		id, name, schemaID, TableBase)
	return id
}

// AddView creates a view with its stored query.
func (c *Catalog) AddView(t testing.TB, schemaID int64, name, query string) int64 {
	t.Helper()
	id := c.id()
	c.mustExec(t, `INSERT INTO sys.tables (id, name, schema_id, query, type, system) VALUES (?, ?, ?, ?, ?, FALSE)`,
		id, name, schemaID, query, TableView)
	return id
}

// Col describes a column for AddColumns.
type Col struct {
	Name     string
	Type     string
	Digits   int64
	Scale    int64
	Default  string
	Nullable bool
}

// AddColumns appends columns to a table in the order given.
func (c *Catalog) AddColumns(t testing.TB, tableID int64, cols ...Col) {
	t.Helper()
	for i, col := range cols {
		var def any
		if col.Default != "" {
			def = col.Default
		}
		c.mustExec(t, `INSERT INTO sys.columns (id, name, type, type_digits, type_scale, table_id, "default", "null", number)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.id(), col.Name, col.Type, col.Digits, col.Scale, tableID, def, col.Nullable, i)
	}
}

// AddKey creates a key over columns and returns its id. rkey is the id of
// the referenced key for foreign keys and -1 otherwise.
func (c *Catalog) AddKey(t testing.TB, tableID int64, keyType int, name string, rkey int64, columns ...string) int64 {
	t.Helper()
	id := c.id()
	c.mustExec(t, `INSERT INTO sys.keys (id, table_id, type, name, rkey) VALUES (?, ?, ?, ?, ?)`,
		id, tableID, keyType, name, rkey)
	c.addObjects(t, id, columns)
	return id
}

// AddIndex creates an index over columns.
func (c *Catalog) AddIndex(t testing.TB, tableID int64, name string, columns ...string) int64 {
	t.Helper()
	id := c.id()
	c.mustExec(t, `INSERT INTO sys.idxs (id, table_id, name) VALUES (?, ?, ?)`, id, tableID, name)
	c.addObjects(t, id, columns)
	return id
}

// AddSequence creates a sequence and returns its id.
func (c *Catalog) AddSequence(t testing.TB, schemaID int64, name string) int64 {
	t.Helper()
	id := c.id()
	c.mustExec(t, `INSERT INTO sys.sequences (id, schema_id, name) VALUES (?, ?, ?)`, id, schemaID, name)
	return id
}

func (c *Catalog) addObjects(t testing.TB, id int64, columns []string) {
	t.Helper()
	for nr, col := range columns {
		c.mustExec(t, `INSERT INTO sys.objects (id, name, nr) VALUES (?, ?, ?)`, id, col, nr)
	}
}

// Shop holds the ids created by SeedShop.
type Shop struct {
	SchemaID   int64
	Customers  int64
	Orders     int64
	OrderLines int64
	OrdersSeq  string
}

// SeedShop loads a small order-entry schema named "shop":
//
//	customers(id PK autoincrement, email UNIQUE, name, country, UNIQUE(country, name))
//	orders(id PK autoincrement, customer_id FK customers, total, placed_at)
//	order_lines(order_id, line_no, sku, qty, PK(order_id, line_no), FK orders)
//	view big_orders, sequence seq_orders, index orders_customer_placed_idx
func (c *Catalog) SeedShop(t testing.TB) Shop {
	t.Helper()
	s := Shop{SchemaID: c.AddSchema(t, "shop"), OrdersSeq: "seq_orders"}

	c.AddSequence(t, s.SchemaID, "seq_customers")
	c.AddSequence(t, s.SchemaID, s.OrdersSeq)

	s.Customers = c.AddTable(t, s.SchemaID, "customers", TableBase)
	c.AddColumns(t, s.Customers,
		Col{Name: "id", Type: "int", Digits: 32, Default: `next value for "shop"."seq_customers"`},
		Col{Name: "email", Type: "varchar", Digits: 255},
		Col{Name: "name", Type: "varchar", Digits: 100, Nullable: true},
		Col{Name: "country", Type: "char", Digits: 2, Nullable: true},
	)
	custPK := c.AddKey(t, s.Customers, KeyPrimary, "customers_id_pkey", -1, "id")
	c.AddKey(t, s.Customers, KeyUnique, "customers_email_unique", -1, "email")
	c.AddKey(t, s.Customers, KeyUnique, "customers_country_name_unique", -1, "country", "name")

	s.Orders = c.AddTable(t, s.SchemaID, "orders", TableBase)
	c.AddColumns(t, s.Orders,
		Col{Name: "id", Type: "bigint", Digits: 64, Default: fmt.Sprintf(`next value for "shop"."%s"`, s.OrdersSeq)},
		Col{Name: "customer_id", Type: "int", Digits: 32},
		Col{Name: "total", Type: "decimal", Digits: 12, Scale: 2, Default: "0.00"},
		Col{Name: "placed_at", Type: "timestamptz", Digits: 7, Nullable: true},
	)
	ordPK := c.AddKey(t, s.Orders, KeyPrimary, "orders_id_pkey", -1, "id")
	c.AddKey(t, s.Orders, KeyForeign, "orders_customer_fk", custPK, "customer_id")
	c.AddIndex(t, s.Orders, "orders_customer_placed_idx", "customer_id", "placed_at")

	s.OrderLines = c.AddTable(t, s.SchemaID, "order_lines", TableBase)
	c.AddColumns(t, s.OrderLines,
		Col{Name: "order_id", Type: "bigint", Digits: 64},
		Col{Name: "line_no", Type: "smallint", Digits: 16},
		Col{Name: "sku", Type: "varchar", Digits: 32},
		Col{Name: "qty", Type: "int", Digits: 32, Default: "1"},
	)
	c.AddKey(t, s.OrderLines, KeyPrimary, "order_lines_pkey", -1, "order_id", "line_no")
	c.AddKey(t, s.OrderLines, KeyForeign, "order_lines_order_fk", ordPK, "order_id")

	c.AddView(t, s.SchemaID, "big_orders",
		"create view big_orders as select id, total from orders where total > 1000;")
	return s
}
