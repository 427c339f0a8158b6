package monetdb

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadopc/monetdialect/internal/adapter"
	"github.com/sadopc/monetdialect/internal/schema"
	"github.com/sadopc/monetdialect/internal/testutil"
)

func newMock(t *testing.T) (*Dialect, *adapter.Session, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return New(WithLogger(testutil.NewTestLogger(t))), adapter.NewSession(db), mock
}

func q(s string) string { return regexp.QuoteMeta(s) }

func expectCurrentSchema(mock sqlmock.Sqlmock, name string) {
	mock.ExpectQuery(q("SELECT CURRENT_SCHEMA")).
		WillReturnRows(sqlmock.NewRows([]string{"current_schema"}).AddRow(name))
}

func expectSchemaID(mock sqlmock.Sqlmock, name string, id int64) {
	mock.ExpectQuery(q("FROM sys.schemas")).
		WithArgs(name).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(id))
}

func expectTableID(mock sqlmock.Sqlmock, table string, schemaID, tableID int64) {
	mock.ExpectQuery(q("SELECT id\n\tFROM sys.tables")).
		WithArgs(table, schemaID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(tableID))
}

var ctx = context.Background()

// ---------------------------------------------------------------------------
// Name resolution
// ---------------------------------------------------------------------------

func TestSchemaID_DefaultEqualsCurrent(t *testing.T) {
	d, s, mock := newMock(t)

	expectCurrentSchema(mock, "sales")
	expectSchemaID(mock, "sales", 7001)
	expectSchemaID(mock, "sales", 7001)

	implicit, err := d.schemaID(ctx, s, "")
	require.NoError(t, err)
	explicit, err := d.schemaID(ctx, s, "sales")
	require.NoError(t, err)

	assert.Equal(t, explicit, implicit)
	assert.Equal(t, int64(7001), implicit)
}

func TestSchemaID_Cached(t *testing.T) {
	d, s, mock := newMock(t)

	expectSchemaID(mock, "sys", 2000)

	for range 3 {
		id, err := d.schemaID(ctx, s, "sys")
		require.NoError(t, err)
		assert.Equal(t, int64(2000), id)
	}

	// A fresh session starts with an empty cache.
	s.Reset()
	expectSchemaID(mock, "sys", 2000)
	_, err := d.schemaID(ctx, s, "sys")
	require.NoError(t, err)
}

func TestSchemaID_NotFound(t *testing.T) {
	d, s, mock := newMock(t)

	mock.ExpectQuery(q("FROM sys.schemas")).
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := d.schemaID(ctx, s, "nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, adapter.ErrNotFound)

	var nf *adapter.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "schema", nf.Kind)
	assert.Equal(t, "nope", nf.Name)
	assert.Equal(t, 0, s.Len(), "failed lookups are not cached")
}

func TestScalar_NotFoundIsLogged(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	d, s := New(WithLogger(logger)), adapter.NewSession(db)

	mock.ExpectQuery(q("FROM sys.schemas")).
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err = d.schemaID(ctx, s, "nope")
	require.ErrorIs(t, err, adapter.ErrNotFound)
	assert.Contains(t, buf.String(), `msg="catalog query" op="schema id"`)
	assert.Contains(t, buf.String(), "found=false")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTableID_NotFound(t *testing.T) {
	d, s, mock := newMock(t)

	expectSchemaID(mock, "sys", 2000)
	mock.ExpectQuery(q("FROM sys.tables")).
		WithArgs("ghost", int64(2000)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := d.tableID(ctx, s, "ghost", "sys")
	var nf *adapter.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "table", nf.Kind)
	assert.Equal(t, "ghost", nf.Name)
}

func TestDefaultSchemaName(t *testing.T) {
	d, s, mock := newMock(t)
	expectCurrentSchema(mock, "sys")

	name, err := d.DefaultSchemaName(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, "sys", name)
}

func TestTransportErrorPropagates(t *testing.T) {
	d, s, mock := newMock(t)
	boom := errors.New("connection reset by peer")

	mock.ExpectQuery(q("SELECT CURRENT_SCHEMA")).WillReturnError(boom)

	_, err := d.TableNames(ctx, s, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, adapter.ErrNotFound)
}

// ---------------------------------------------------------------------------
// Listing
// ---------------------------------------------------------------------------

func TestTableNames(t *testing.T) {
	d, s, mock := newMock(t)

	expectSchemaID(mock, "sys", 2000)
	mock.ExpectQuery(q("WHERE system = false")).
		WithArgs(tableTypeBase, int64(2000)).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("customers").AddRow("orders"))

	names, err := d.TableNames(ctx, s, "sys")
	require.NoError(t, err)
	assert.Equal(t, []string{"customers", "orders"}, names)
}

func TestTableNames_Empty(t *testing.T) {
	d, s, mock := newMock(t)

	expectSchemaID(mock, "empty", 9000)
	mock.ExpectQuery(q("WHERE system = false")).
		WithArgs(tableTypeBase, int64(9000)).
		WillReturnRows(sqlmock.NewRows([]string{"name"}))

	names, err := d.TableNames(ctx, s, "empty")
	require.NoError(t, err)
	assert.NotNil(t, names)
	assert.Empty(t, names)
}

func TestTempTableNames_Cached(t *testing.T) {
	d, s, mock := newMock(t)

	mock.ExpectQuery(q("SELECT tables.name")).
		WithArgs(int64(DefaultTempSchemaID), tableTypeLocalTemp).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("scratch"))

	for range 2 {
		names, err := d.TempTableNames(ctx, s)
		require.NoError(t, err)
		assert.Equal(t, []string{"scratch"}, names)
	}
}

func TestTempTableNames_CustomSchemaID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	d := New(WithTempSchemaID(4242))
	mock.ExpectQuery(q("SELECT tables.name")).
		WithArgs(int64(4242), tableTypeLocalTemp).
		WillReturnRows(sqlmock.NewRows([]string{"name"}))

	_, err = d.TempTableNames(ctx, adapter.NewSession(db))
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchemaNames_Cached(t *testing.T) {
	d, s, mock := newMock(t)

	mock.ExpectQuery(q("SELECT name FROM sys.schemas ORDER BY name")).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("json").AddRow("sys").AddRow("tmp"))

	first, err := d.SchemaNames(ctx, s)
	require.NoError(t, err)
	second, err := d.SchemaNames(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, []string{"json", "sys", "tmp"}, first)
	assert.Equal(t, first, second)
}

func TestViewNamesAndDefinition(t *testing.T) {
	d, s, mock := newMock(t)

	expectSchemaID(mock, "sys", 2000)
	mock.ExpectQuery(q("WHERE type = ?")).
		WithArgs(tableTypeView, int64(2000)).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("big_orders"))
	mock.ExpectQuery(q("SELECT query FROM sys.tables")).
		WithArgs(tableTypeView, "big_orders", int64(2000)).
		WillReturnRows(sqlmock.NewRows([]string{"query"}).AddRow("create view big_orders as select * from orders where total > 100;"))

	views, err := d.ViewNames(ctx, s, "sys")
	require.NoError(t, err)
	assert.Equal(t, []string{"big_orders"}, views)

	def, err := d.ViewDefinition(ctx, s, "big_orders", "sys")
	require.NoError(t, err)
	assert.Contains(t, def, "create view big_orders")
}

func TestViewDefinition_NotFound(t *testing.T) {
	d, s, mock := newMock(t)

	expectSchemaID(mock, "sys", 2000)
	mock.ExpectQuery(q("SELECT query FROM sys.tables")).
		WithArgs(tableTypeView, "missing", int64(2000)).
		WillReturnRows(sqlmock.NewRows([]string{"query"}))

	_, err := d.ViewDefinition(ctx, s, "missing", "sys")
	assert.ErrorIs(t, err, adapter.ErrNotFound)
}

// ---------------------------------------------------------------------------
// Existence probes and sequences
// ---------------------------------------------------------------------------

func TestHasTable(t *testing.T) {
	t.Run("without schema matches by name only", func(t *testing.T) {
		d, s, mock := newMock(t)
		mock.ExpectQuery(`^` + q(hasTableSQL) + `$`).
			WithArgs("orders").
			WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("orders"))

		ok, err := d.HasTable(ctx, s, "orders", "")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("with schema joins on schema name", func(t *testing.T) {
		d, s, mock := newMock(t)
		mock.ExpectQuery(`^`+q(hasTableInSchemaSQL)+`$`).
			WithArgs("orders", "sales").
			WillReturnRows(sqlmock.NewRows([]string{"name"}))

		ok, err := d.HasTable(ctx, s, "orders", "sales")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestHasSequence(t *testing.T) {
	d, s, mock := newMock(t)

	expectSchemaID(mock, "sys", 2000)
	mock.ExpectQuery(q("FROM sys.sequences")).
		WithArgs("seq_orders", int64(2000)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(8123)))
	mock.ExpectQuery(q("FROM sys.sequences")).
		WithArgs("seq_none", int64(2000)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	ok, err := d.HasSequence(ctx, s, "seq_orders", "sys")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = d.HasSequence(ctx, s, "seq_none", "sys")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSequences(t *testing.T) {
	d, s, mock := newMock(t)

	expectCurrentSchema(mock, "sys")
	expectSchemaID(mock, "sys", 2000)
	mock.ExpectQuery(q("SELECT id, name, schema_id\n\t\tFROM sys.sequences\n\t\tWHERE schema_id = ?")).
		WithArgs(int64(2000)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "schema_id"}).
			AddRow(int64(8123), "seq_8121", int64(2000)).
			AddRow(int64(8200), "seq_orders", int64(2000)))

	seqs, err := d.Sequences(ctx, s, "")
	require.NoError(t, err)
	assert.Equal(t, []schema.Sequence{
		{ID: 8123, Name: "seq_8121", SchemaID: 2000},
		{ID: 8200, Name: "seq_orders", SchemaID: 2000},
	}, seqs)
}

// ---------------------------------------------------------------------------
// Columns
// ---------------------------------------------------------------------------

var columnHeader = []string{"id", "name", "type", "default", "null", "type_digits", "type_scale"}

func TestColumns(t *testing.T) {
	d, s, mock := newMock(t)

	expectSchemaID(mock, "sys", 2000)
	expectTableID(mock, "orders", 2000, 7100)
	mock.ExpectQuery(q(`SELECT id, name, type, "default", "null", type_digits, type_scale`)).
		WithArgs(int64(7100)).
		WillReturnRows(sqlmock.NewRows(columnHeader).
			AddRow(int64(7101), "id", "int", `next value for "sys"."seq_7099"`, false, int64(32), int64(0)).
			AddRow(int64(7102), "customer", "varchar", nil, true, int64(50), int64(0)).
			AddRow(int64(7103), "total", "decimal", "0.00", true, int64(10), int64(2)).
			AddRow(int64(7104), "placed_at", "timestamptz", nil, false, int64(7), int64(0)))

	cols, err := d.Columns(ctx, s, "orders", "sys")
	require.NoError(t, err)
	require.Len(t, cols, 4)

	assert.Equal(t, "id", cols[0].Name)
	assert.True(t, cols[0].Autoincrement)
	assert.Equal(t, &schema.SequenceRef{Schema: "sys", Name: "seq_7099"}, cols[0].Sequence)
	assert.False(t, cols[0].Nullable)

	assert.Equal(t, schema.Type{Kind: schema.KindString, Name: "VARCHAR", Length: 50}, cols[1].Type)
	assert.Nil(t, cols[1].Default)
	assert.False(t, cols[1].Autoincrement)
	assert.True(t, cols[1].Nullable)

	assert.Equal(t, schema.Type{Kind: schema.KindNumeric, Name: "DECIMAL", Precision: 10, Scale: 2}, cols[2].Type)
	require.NotNil(t, cols[2].Default)
	assert.Equal(t, "0.00", *cols[2].Default)
	assert.False(t, cols[2].Autoincrement)

	assert.True(t, cols[3].Type.Timezone)
}

func TestColumns_UnsupportedType(t *testing.T) {
	d, s, mock := newMock(t)

	expectSchemaID(mock, "sys", 2000)
	expectTableID(mock, "shapes", 2000, 7200)
	mock.ExpectQuery(q("FROM sys.columns")).
		WithArgs(int64(7200)).
		WillReturnRows(sqlmock.NewRows(columnHeader).
			AddRow(int64(7201), "id", "int", nil, false, int64(32), int64(0)).
			AddRow(int64(7202), "outline", "geometry", nil, true, int64(0), int64(0)))

	cols, err := d.Columns(ctx, s, "shapes", "sys")
	assert.Nil(t, cols, "no partial result on unsupported type")
	require.ErrorIs(t, err, adapter.ErrUnsupportedType)

	var ut *adapter.UnsupportedTypeError
	require.ErrorAs(t, err, &ut)
	assert.Equal(t, "geometry", ut.TypeName)
	assert.Equal(t, "outline", ut.Column)
}

func TestSequenceFromDefault(t *testing.T) {
	str := func(s string) *string { return &s }
	tests := []struct {
		name string
		def  *string
		want *schema.SequenceRef
	}{
		{"nil default", nil, nil},
		{"literal default", str("42"), nil},
		{"autoincrement", str(`next value for "s"."seq1"`), &schema.SequenceRef{Schema: "s", Name: "seq1"}},
		{"non-ascii schema", str(`next value for "sälës"."seq1"`), &schema.SequenceRef{Schema: "sälës", Name: "seq1"}},
		{"non-ascii sequence", str(`next value for "sys"."zähler_2"`), &schema.SequenceRef{Schema: "sys", Name: "zähler_2"}},
		{"trailing text", str(`next value for "s"."seq1" + 1`), nil},
		{"unquoted", str(`next value for s.seq1`), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sequenceFromDefault(tt.def))
		})
	}
}

// ---------------------------------------------------------------------------
// Keys and indexes
// ---------------------------------------------------------------------------

func TestPrimaryKey(t *testing.T) {
	d, s, mock := newMock(t)

	expectSchemaID(mock, "sys", 2000)
	expectTableID(mock, "order_lines", 2000, 7300)
	mock.ExpectQuery(q(`"keys"."type" = ?`)).
		WithArgs(keyTypePrimary, int64(7300)).
		WillReturnRows(sqlmock.NewRows([]string{"col", "name"}).
			AddRow("order_id", "order_lines_pk").
			AddRow("line_no", "order_lines_pk"))

	pk, err := d.PrimaryKey(ctx, s, "order_lines", "sys")
	require.NoError(t, err)
	assert.Equal(t, schema.PrimaryKey{
		Name:               "order_lines_pk",
		ConstrainedColumns: []string{"order_id", "line_no"},
	}, pk)
}

func TestPrimaryKey_None(t *testing.T) {
	d, s, mock := newMock(t)

	expectSchemaID(mock, "sys", 2000)
	expectTableID(mock, "events", 2000, 7400)
	mock.ExpectQuery(q(`"keys"."type" = ?`)).
		WithArgs(keyTypePrimary, int64(7400)).
		WillReturnRows(sqlmock.NewRows([]string{"col", "name"}))

	pk, err := d.PrimaryKey(ctx, s, "events", "sys")
	require.NoError(t, err)
	assert.True(t, pk.IsZero())
}

func TestUniqueConstraints(t *testing.T) {
	d, s, mock := newMock(t)

	expectSchemaID(mock, "sys", 2000)
	expectTableID(mock, "customers", 2000, 7500)
	mock.ExpectQuery(q(`ORDER BY "keys"."name", "objects"."nr"`)).
		WithArgs(keyTypeUnique, int64(7500)).
		WillReturnRows(sqlmock.NewRows([]string{"col", "name"}).
			AddRow("email", "customers_email_unique").
			AddRow("country", "customers_name_unique").
			AddRow("name", "customers_name_unique"))

	uniques, err := d.UniqueConstraints(ctx, s, "customers", "sys")
	require.NoError(t, err)
	assert.Equal(t, []schema.UniqueConstraint{
		{Name: "customers_email_unique", ColumnNames: []string{"email"}},
		{Name: "customers_name_unique", ColumnNames: []string{"country", "name"}},
	}, uniques)
}

var foreignKeyHeader = []string{
	"name", "fktable_schema", "fktable_name", "fkcolumn_name", "fktable_id",
	"pktable_schema", "pktable_name", "pkcolumn_name", "pktable_id", "key_seq",
}

func TestForeignKeys_TwoGroups(t *testing.T) {
	d, s, mock := newMock(t)

	expectSchemaID(mock, "sys", 2000)
	expectTableID(mock, "order_lines", 2000, 7300)
	mock.ExpectQuery(q("ORDER BY fkkey.name, pkkeycol.nr")).
		WithArgs(int64(7300)).
		WillReturnRows(sqlmock.NewRows(foreignKeyHeader).
			AddRow("fk_lines_order", "sys", "order_lines", "order_id", int64(7300), "sys", "orders", "id", int64(7100), int64(0)).
			AddRow("fk_lines_product", "sys", "order_lines", "product_code", int64(7300), "inventory", "products", "code", int64(7600), int64(0)).
			AddRow("fk_lines_product", "sys", "order_lines", "product_rev", int64(7300), "inventory", "products", "rev", int64(7600), int64(1)))

	fks, err := d.ForeignKeys(ctx, s, "order_lines", "sys")
	require.NoError(t, err)
	require.Len(t, fks, 2)

	assert.Equal(t, schema.ForeignKey{
		Name:               "fk_lines_order",
		ReferredSchema:     "sys",
		ReferredTable:      "orders",
		ConstrainedColumns: []string{"order_id"},
		ReferredColumns:    []string{"id"},
	}, fks[0])
	assert.Equal(t, schema.ForeignKey{
		Name:               "fk_lines_product",
		ReferredSchema:     "inventory",
		ReferredTable:      "products",
		ConstrainedColumns: []string{"product_code", "product_rev"},
		ReferredColumns:    []string{"code", "rev"},
	}, fks[1])
}

func TestForeignKeys_None(t *testing.T) {
	d, s, mock := newMock(t)

	expectSchemaID(mock, "sys", 2000)
	expectTableID(mock, "events", 2000, 7400)
	mock.ExpectQuery(q("FROM sys.keys AS fkkey")).
		WithArgs(int64(7400)).
		WillReturnRows(sqlmock.NewRows(foreignKeyHeader))

	fks, err := d.ForeignKeys(ctx, s, "events", "sys")
	require.NoError(t, err)
	assert.NotNil(t, fks)
	assert.Empty(t, fks)
}

func TestIndexes_TwoColumn(t *testing.T) {
	d, s, mock := newMock(t)

	expectSchemaID(mock, "sys", 2000)
	expectTableID(mock, "orders", 2000, 7100)
	mock.ExpectQuery(q("ORDER BY idxs.name, objects.nr")).
		WithArgs(int64(7100)).
		WillReturnRows(sqlmock.NewRows([]string{"name", "column_name"}).
			AddRow("orders_customer_placed_idx", "customer").
			AddRow("orders_customer_placed_idx", "placed_at"))

	idxs, err := d.Indexes(ctx, s, "orders", "sys")
	require.NoError(t, err)
	require.Len(t, idxs, 1)
	assert.Equal(t, "orders_customer_placed_idx", idxs[0].Name)
	assert.Len(t, idxs[0].ColumnNames, 2)
	assert.False(t, idxs[0].Unique)
}

func TestTableIDCachedAcrossOperations(t *testing.T) {
	d, s, mock := newMock(t)

	expectSchemaID(mock, "sys", 2000)
	expectTableID(mock, "orders", 2000, 7100)
	mock.ExpectQuery(q("FROM sys.idxs")).
		WithArgs(int64(7100)).
		WillReturnRows(sqlmock.NewRows([]string{"name", "column_name"}))
	mock.ExpectQuery(q(`"keys"."type" = ?`)).
		WithArgs(keyTypePrimary, int64(7100)).
		WillReturnRows(sqlmock.NewRows([]string{"col", "name"}))

	_, err := d.Indexes(ctx, s, "orders", "sys")
	require.NoError(t, err)
	_, err = d.PrimaryKey(ctx, s, "orders", "sys")
	require.NoError(t, err)
}

func TestSessionTrace(t *testing.T) {
	d, s, mock := newMock(t)

	var ops []string
	s.Trace = func(_ context.Context, op, _ string, _ []any, _ time.Duration, _ error) {
		ops = append(ops, op)
	}

	expectCurrentSchema(mock, "sys")
	expectSchemaID(mock, "sys", 2000)
	mock.ExpectQuery(q("WHERE system = false")).
		WithArgs(tableTypeBase, int64(2000)).
		WillReturnRows(sqlmock.NewRows([]string{"name"}))

	_, err := d.TableNames(ctx, s, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"current schema", "schema id", "table names"}, ops)
}
