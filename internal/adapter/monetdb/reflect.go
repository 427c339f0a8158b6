package monetdb

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	"github.com/sadopc/monetdialect/internal/adapter"
	"github.com/sadopc/monetdialect/internal/schema"
)

// ---------------------------------------------------------------------------
// Schemas, tables and views
// ---------------------------------------------------------------------------

// SchemaNames lists every schema alphabetically. Cached per session.
func (d *Dialect) SchemaNames(ctx context.Context, s *adapter.Session) ([]string, error) {
	return adapter.Cached(s, "schema_names", func() ([]string, error) {
		return d.names(ctx, s, "schema names", `SELECT name FROM sys.schemas ORDER BY name`, nil)
	})
}

// TableNames lists the non-system base tables of a schema.
func (d *Dialect) TableNames(ctx context.Context, s *adapter.Session, schemaName string) ([]string, error) {
	sid, err := d.schemaID(ctx, s, schemaName)
	if err != nil {
		return nil, err
	}
	return d.names(ctx, s, "table names", `
		SELECT name
		FROM sys.tables
		WHERE system = false
		AND type = %(type)s
		AND schema_id = %(schema_id)s
		ORDER BY name`,
		params{"type": tableTypeBase, "schema_id": sid})
}

// TempTableNames lists local temporary tables. Cached per session.
func (d *Dialect) TempTableNames(ctx context.Context, s *adapter.Session) ([]string, error) {
	return adapter.Cached(s, "temp_table_names", func() ([]string, error) {
		return d.names(ctx, s, "temp table names", `
			SELECT tables.name
			FROM sys.tables
			WHERE schema_id = %(schema_id)s
			AND type = %(type)s
			ORDER BY tables.name`,
			params{"schema_id": d.tempSchemaID, "type": tableTypeLocalTemp})
	})
}

// ViewNames lists the views of a schema.
func (d *Dialect) ViewNames(ctx context.Context, s *adapter.Session, schemaName string) ([]string, error) {
	sid, err := d.schemaID(ctx, s, schemaName)
	if err != nil {
		return nil, err
	}
	return d.names(ctx, s, "view names", `
		SELECT name
		FROM sys.tables
		WHERE type = %(type)s
		AND schema_id = %(schema_id)s
		ORDER BY name`,
		params{"type": tableTypeView, "schema_id": sid})
}

// ViewDefinition returns the stored query text of a view.
func (d *Dialect) ViewDefinition(ctx context.Context, s *adapter.Session, view, schemaName string) (string, error) {
	sid, err := d.schemaID(ctx, s, schemaName)
	if err != nil {
		return "", err
	}
	var def sql.NullString
	found, err := d.scalar(ctx, s, "view definition", `
		SELECT query FROM sys.tables
		WHERE type = %(type)s
		AND name = %(name)s
		AND schema_id = %(schema_id)s`,
		params{"type": tableTypeView, "name": view, "schema_id": sid}, &def)
	if err != nil {
		return "", err
	}
	if !found {
		return "", &adapter.NotFoundError{Kind: "view", Name: view}
	}
	return def.String, nil
}

const hasTableSQL = `SELECT name
	FROM sys.tables
	WHERE system = false
	AND type = 0
	AND name = ?`

const hasTableInSchemaSQL = `SELECT tables.name
	FROM sys.tables, sys.schemas
	WHERE tables.system = FALSE
	AND tables.schema_id = schemas.id
	AND type = 0
	AND tables.name = ?
	AND schemas.name = ?`

// HasTable reports whether a base table exists. Without a schema it matches
// by name in any schema; with one it also requires the schema name to match.
func (d *Dialect) HasTable(ctx context.Context, s *adapter.Session, table, schemaName string) (bool, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if schemaName == "" {
		rows, err = d.queryRaw(ctx, s, "has table", hasTableSQL, table)
	} else {
		rows, err = d.queryRaw(ctx, s, "has table", hasTableInSchemaSQL, table, schemaName)
	}
	if err != nil {
		return false, err
	}
	defer rows.Close()

	exists := rows.Next()
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("has table: %w", err)
	}
	return exists, nil
}

// ---------------------------------------------------------------------------
// Sequences
// ---------------------------------------------------------------------------

// HasSequence reports whether a sequence exists in the resolved schema.
func (d *Dialect) HasSequence(ctx context.Context, s *adapter.Session, sequence, schemaName string) (bool, error) {
	sid, err := d.schemaID(ctx, s, schemaName)
	if err != nil {
		return false, err
	}
	var id int64
	return d.scalar(ctx, s, "has sequence", `
		SELECT id
		FROM sys.sequences
		WHERE name = %(name)s
		AND schema_id = %(schema_id)s`,
		params{"name": sequence, "schema_id": sid}, &id)
}

// Sequences returns the sequence rows of the resolved schema.
func (d *Dialect) Sequences(ctx context.Context, s *adapter.Session, schemaName string) ([]schema.Sequence, error) {
	sid, err := d.schemaID(ctx, s, schemaName)
	if err != nil {
		return nil, err
	}
	rows, err := d.query(ctx, s, "sequences", `
		SELECT id, name, schema_id
		FROM sys.sequences
		WHERE schema_id = %(schema_id)s
		ORDER BY name`,
		params{"schema_id": sid})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seqs := []schema.Sequence{}
	for rows.Next() {
		var seq schema.Sequence
		if err := rows.Scan(&seq.ID, &seq.Name, &seq.SchemaID); err != nil {
			return nil, fmt.Errorf("sequences scan: %w", err)
		}
		seqs = append(seqs, seq)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sequences: %w", err)
	}
	return seqs, nil
}

// ---------------------------------------------------------------------------
// Columns
// ---------------------------------------------------------------------------

// reAutoincrement matches the default MonetDB writes for AUTO_INCREMENT and
// SERIAL columns. Identifiers may hold any Unicode letter or digit.
var reAutoincrement = regexp.MustCompile(`next value for "([\pL\pN_]*)"\."([\pL\pN_]*)"$`)

// sequenceFromDefault returns the sequence named by an autoincrement
// default, or nil when def is not one.
func sequenceFromDefault(def *string) *schema.SequenceRef {
	if def == nil {
		return nil
	}
	m := reAutoincrement.FindStringSubmatch(*def)
	if m == nil {
		return nil
	}
	return &schema.SequenceRef{Schema: m[1], Name: m[2]}
}

type columnRow struct {
	id       int64
	name     string
	typeName string
	dflt     sql.NullString
	nullable bool
	digits   sql.NullInt64
	scale    sql.NullInt64
}

// Columns reflects the columns of a table in catalog order. An unmapped
// type fails the whole call.
func (d *Dialect) Columns(ctx context.Context, s *adapter.Session, table, schemaName string) ([]schema.Column, error) {
	tid, err := d.tableID(ctx, s, table, schemaName)
	if err != nil {
		return nil, err
	}
	rows, err := d.query(ctx, s, "columns", `
		SELECT id, name, type, "default", "null", type_digits, type_scale
		FROM sys.columns
		WHERE columns.table_id = %(table_id)s
		ORDER BY columns.id`,
		params{"table_id": tid})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var raw []columnRow
	for rows.Next() {
		var r columnRow
		if err := rows.Scan(&r.id, &r.name, &r.typeName, &r.dflt, &r.nullable, &r.digits, &r.scale); err != nil {
			return nil, fmt.Errorf("columns scan: %w", err)
		}
		raw = append(raw, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}

	cols := make([]schema.Column, 0, len(raw))
	for _, r := range raw {
		typ, ok := resolveType(r.typeName, r.digits, r.scale)
		if !ok {
			return nil, &adapter.UnsupportedTypeError{TypeName: r.typeName, Column: r.name}
		}
		var def *string
		if r.dflt.Valid {
			v := r.dflt.String
			def = &v
		}
		seq := sequenceFromDefault(def)
		cols = append(cols, schema.Column{
			Name:          r.name,
			Type:          typ,
			Default:       def,
			Nullable:      r.nullable,
			Autoincrement: seq != nil,
			Sequence:      seq,
		})
	}
	return cols, nil
}

// ---------------------------------------------------------------------------
// Keys and indexes
// ---------------------------------------------------------------------------

const keyColumnsSQL = `
	SELECT "objects"."name" AS col, keys.name AS name
	FROM "sys"."keys" AS "keys",
		"sys"."objects" AS "objects",
		"sys"."tables" AS "tables",
		"sys"."schemas" AS "schemas"
	WHERE "keys"."id" = "objects"."id"
		AND "keys"."table_id" = "tables"."id"
		AND "tables"."schema_id" = "schemas"."id"
		AND "keys"."type" = %(key_type)s
		AND "tables"."id" = %(table_id)s
	ORDER BY "keys"."name", "objects"."nr"`

type keyRow struct {
	column string
	name   string
}

func (d *Dialect) keyRows(ctx context.Context, s *adapter.Session, op string, tid int64, keyType int) ([]keyRow, error) {
	rows, err := d.query(ctx, s, op, keyColumnsSQL, params{"key_type": keyType, "table_id": tid})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []keyRow
	for rows.Next() {
		var r keyRow
		if err := rows.Scan(&r.column, &r.name); err != nil {
			return nil, fmt.Errorf("%s scan: %w", op, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// PrimaryKey returns the table's primary key, or the zero PrimaryKey when it
// has none.
func (d *Dialect) PrimaryKey(ctx context.Context, s *adapter.Session, table, schemaName string) (schema.PrimaryKey, error) {
	tid, err := d.tableID(ctx, s, table, schemaName)
	if err != nil {
		return schema.PrimaryKey{}, err
	}
	rows, err := d.keyRows(ctx, s, "primary key", tid, keyTypePrimary)
	if err != nil {
		return schema.PrimaryKey{}, err
	}
	if len(rows) == 0 {
		return schema.PrimaryKey{}, nil
	}

	pk := schema.PrimaryKey{Name: rows[0].name}
	for _, r := range rows {
		pk.ConstrainedColumns = append(pk.ConstrainedColumns, r.column)
	}
	return pk, nil
}

// UniqueConstraints returns the unique keys of a table with their columns in
// ordinal order.
func (d *Dialect) UniqueConstraints(ctx context.Context, s *adapter.Session, table, schemaName string) ([]schema.UniqueConstraint, error) {
	tid, err := d.tableID(ctx, s, table, schemaName)
	if err != nil {
		return nil, err
	}
	rows, err := d.keyRows(ctx, s, "unique constraints", tid, keyTypeUnique)
	if err != nil {
		return nil, err
	}

	uniques := foldByKey(rows,
		func(r keyRow) string { return r.name },
		func(r keyRow) schema.UniqueConstraint { return schema.UniqueConstraint{Name: r.name} },
		func(u *schema.UniqueConstraint, r keyRow) { u.ColumnNames = append(u.ColumnNames, r.column) },
	)
	if uniques == nil {
		uniques = []schema.UniqueConstraint{}
	}
	return uniques, nil
}

type foreignKeyRow struct {
	name          string
	fkTableSchema string
	fkTableName   string
	fkColumnName  string
	fkTableID     int64
	pkTableSchema string
	pkTableName   string
	pkColumnName  string
	pkTableID     int64
	keySeq        int64
}

// ForeignKeys returns the foreign keys declared on a table. Constrained and
// referred columns are paired by key position.
func (d *Dialect) ForeignKeys(ctx context.Context, s *adapter.Session, table, schemaName string) ([]schema.ForeignKey, error) {
	tid, err := d.tableID(ctx, s, table, schemaName)
	if err != nil {
		return nil, err
	}
	rows, err := d.query(ctx, s, "foreign keys", `
		SELECT
		fkkey.name AS name,
		fkschema.name AS fktable_schema,
		fktable.name AS fktable_name,
		fkkeycol.name AS fkcolumn_name,
		fktable.id AS fktable_id,
		pkschema.name AS pktable_schema,
		pktable.name AS pktable_name,
		pkkeycol.name AS pkcolumn_name,
		pktable.id AS pktable_id,
		pkkeycol.nr AS key_seq
		FROM sys.keys AS fkkey
		JOIN sys.tables AS fktable ON (fktable.id = fkkey.table_id)
		JOIN sys.objects AS fkkeycol ON (fkkey.id = fkkeycol.id)
		JOIN sys.keys AS pkkey ON (fkkey.rkey = pkkey.id)
		JOIN sys.objects AS pkkeycol ON (pkkey.id = pkkeycol.id)
		JOIN sys.tables AS pktable ON (pktable.id = pkkey.table_id)
		JOIN sys.schemas AS fkschema ON (fkschema.id = fktable.schema_id)
		JOIN sys.schemas AS pkschema ON (pkschema.id = pktable.schema_id)
		WHERE fkkey.rkey > -1
		  AND fkkeycol.nr = pkkeycol.nr
		  AND fktable.id = %(table_id)s
		ORDER BY fkkey.name, pkkeycol.nr`,
		params{"table_id": tid})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var raw []foreignKeyRow
	for rows.Next() {
		var r foreignKeyRow
		if err := rows.Scan(
			&r.name, &r.fkTableSchema, &r.fkTableName, &r.fkColumnName, &r.fkTableID,
			&r.pkTableSchema, &r.pkTableName, &r.pkColumnName, &r.pkTableID, &r.keySeq,
		); err != nil {
			return nil, fmt.Errorf("foreign keys scan: %w", err)
		}
		raw = append(raw, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("foreign keys: %w", err)
	}

	fks := foldByKey(raw,
		func(r foreignKeyRow) string { return r.name },
		func(r foreignKeyRow) schema.ForeignKey {
			return schema.ForeignKey{
				Name:           r.name,
				ReferredSchema: r.pkTableSchema,
				ReferredTable:  r.pkTableName,
			}
		},
		func(fk *schema.ForeignKey, r foreignKeyRow) {
			fk.ConstrainedColumns = append(fk.ConstrainedColumns, r.fkColumnName)
			fk.ReferredColumns = append(fk.ReferredColumns, r.pkColumnName)
		},
	)
	if fks == nil {
		fks = []schema.ForeignKey{}
	}
	return fks, nil
}

type indexRow struct {
	name   string
	column string
}

// Indexes returns the indexes of a table. The catalog carries no uniqueness
// flag, so Unique is always false.
func (d *Dialect) Indexes(ctx context.Context, s *adapter.Session, table, schemaName string) ([]schema.Index, error) {
	tid, err := d.tableID(ctx, s, table, schemaName)
	if err != nil {
		return nil, err
	}
	rows, err := d.query(ctx, s, "indexes", `
		SELECT idxs.name, objects.name AS "column_name"
		FROM sys.idxs
		JOIN sys.objects USING (id)
		WHERE table_id = %(table_id)s
		ORDER BY idxs.name, objects.nr`,
		params{"table_id": tid})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var raw []indexRow
	for rows.Next() {
		var r indexRow
		if err := rows.Scan(&r.name, &r.column); err != nil {
			return nil, fmt.Errorf("indexes scan: %w", err)
		}
		raw = append(raw, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("indexes: %w", err)
	}

	idxs := foldByKey(raw,
		func(r indexRow) string { return r.name },
		func(r indexRow) schema.Index { return schema.Index{Name: r.name, Unique: false} },
		func(ix *schema.Index, r indexRow) { ix.ColumnNames = append(ix.ColumnNames, r.column) },
	)
	if idxs == nil {
		idxs = []schema.Index{}
	}
	return idxs, nil
}
