package monetdb

import (
	"database/sql"

	"github.com/sadopc/monetdialect/internal/schema"
)

// typeArgs are the catalog parameters a type constructor may use.
type typeArgs struct {
	digits sql.NullInt64
	scale  sql.NullInt64
}

type typeConstructor func(a typeArgs) schema.Type

func fixed(kind schema.Kind, name string, bits int) typeConstructor {
	return func(typeArgs) schema.Type {
		return schema.Type{Kind: kind, Name: name, Bits: bits}
	}
}

func sized(kind schema.Kind, name string) typeConstructor {
	return func(a typeArgs) schema.Type {
		t := schema.Type{Kind: kind, Name: name}
		if a.digits.Valid && a.digits.Int64 > 0 {
			t.Length = int(a.digits.Int64)
		}
		return t
	}
}

func exact(name string) typeConstructor {
	return func(a typeArgs) schema.Type {
		t := schema.Type{Kind: schema.KindNumeric, Name: name}
		if a.digits.Valid {
			t.Precision = int(a.digits.Int64)
		}
		if a.scale.Valid {
			t.Scale = int(a.scale.Int64)
		}
		return t
	}
}

func zoned(kind schema.Kind, name string) typeConstructor {
	return func(typeArgs) schema.Type {
		return schema.Type{Kind: kind, Name: name, Timezone: true}
	}
}

// typeMap maps sys.columns.type to a generic type. Names not listed here are
// rejected by resolveType.
var typeMap = map[string]typeConstructor{
	"tinyint":        fixed(schema.KindInteger, "TINYINT", 8),
	"smallint":       fixed(schema.KindInteger, "SMALLINT", 16),
	"mediumint":      fixed(schema.KindInteger, "MEDIUMINT", 32),
	"int":            fixed(schema.KindInteger, "INTEGER", 32),
	"bigint":         fixed(schema.KindInteger, "BIGINT", 64),
	"hugeint":        fixed(schema.KindInteger, "HUGEINT", 128),
	"oid":            fixed(schema.KindInteger, "OID", 64),
	"wrd":            fixed(schema.KindInteger, "WRD", 64),
	"decimal":        exact("DECIMAL"),
	"real":           fixed(schema.KindFloat, "REAL", 32),
	"double":         fixed(schema.KindFloat, "DOUBLE", 64),
	"float":          fixed(schema.KindFloat, "FLOAT", 64),
	"char":           sized(schema.KindString, "CHAR"),
	"varchar":        sized(schema.KindString, "VARCHAR"),
	"clob":           fixed(schema.KindText, "CLOB", 0),
	"blob":           fixed(schema.KindBinary, "BLOB", 0),
	"boolean":        fixed(schema.KindBoolean, "BOOLEAN", 0),
	"date":           fixed(schema.KindDate, "DATE", 0),
	"time":           fixed(schema.KindTime, "TIME", 0),
	"timetz":         zoned(schema.KindTime, "TIME"),
	"timestamp":      fixed(schema.KindTimestamp, "TIMESTAMP", 0),
	"timestamptz":    zoned(schema.KindTimestamp, "TIMESTAMP"),
	"sec_interval":   fixed(schema.KindInterval, "SEC_INTERVAL", 0),
	"day_interval":   fixed(schema.KindInterval, "DAY_INTERVAL", 0),
	"month_interval": fixed(schema.KindInterval, "MONTH_INTERVAL", 0),
	"uuid":           fixed(schema.KindUUID, "UUID", 0),
	"json":           fixed(schema.KindJSON, "JSON", 0),
	"url":            fixed(schema.KindURL, "URL", 0),
	"inet":           fixed(schema.KindInet, "INET", 0),
}

// resolveType builds the generic type for a catalog type name. ok is false
// when the name has no mapping.
func resolveType(typeName string, digits, scale sql.NullInt64) (t schema.Type, ok bool) {
	ctor, ok := typeMap[typeName]
	if !ok {
		return schema.Type{}, false
	}
	return ctor(typeArgs{digits: digits, scale: scale}), true
}
