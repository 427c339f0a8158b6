package monetdb

import (
	"context"

	"github.com/sadopc/monetdialect/internal/adapter"
)

const currentSchemaSQL = "SELECT CURRENT_SCHEMA"

const schemaIDSQL = `
	SELECT id
	FROM sys.schemas
	WHERE name = %(schema_name)s`

const tableIDSQL = `
	SELECT id
	FROM sys.tables
	WHERE name = %(name)s
	AND schema_id = %(schema_id)s`

// DefaultSchemaName returns the connection's current schema. Hosts call it
// once per new connection.
func (d *Dialect) DefaultSchemaName(ctx context.Context, s *adapter.Session) (string, error) {
	var name string
	if _, err := d.scalar(ctx, s, "current schema", currentSchemaSQL, nil, &name); err != nil {
		return "", err
	}
	return name, nil
}

// schemaID resolves a schema name, or the current schema when name is
// empty, to its catalog id.
func (d *Dialect) schemaID(ctx context.Context, s *adapter.Session, name string) (int64, error) {
	return adapter.Cached(s, "schema_id\x00"+name, func() (int64, error) {
		if name == "" {
			current, err := d.DefaultSchemaName(ctx, s)
			if err != nil {
				return 0, err
			}
			name = current
		}

		var id int64
		found, err := d.scalar(ctx, s, "schema id", schemaIDSQL, params{"schema_name": name}, &id)
		if err != nil {
			return 0, err
		}
		if !found {
			return 0, &adapter.NotFoundError{Kind: "schema", Name: name}
		}
		return id, nil
	})
}

// tableID resolves schemaName.table to its catalog id.
func (d *Dialect) tableID(ctx context.Context, s *adapter.Session, table, schemaName string) (int64, error) {
	return adapter.Cached(s, "table_id\x00"+schemaName+"\x00"+table, func() (int64, error) {
		sid, err := d.schemaID(ctx, s, schemaName)
		if err != nil {
			return 0, err
		}

		var id int64
		found, err := d.scalar(ctx, s, "table id", tableIDSQL, params{"name": table, "schema_id": sid}, &id)
		if err != nil {
			return 0, err
		}
		if !found {
			return 0, &adapter.NotFoundError{Kind: "table", Name: table}
		}
		return id, nil
	})
}
