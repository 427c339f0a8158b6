package monetdb

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sadopc/monetdialect/internal/adapter"
	"github.com/sadopc/monetdialect/internal/schema"
)

// reservedWords must be quoted when used as identifiers.
var reservedWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`
		add all alter analyze and any as asc asymmetric at atomic authorization
		begin between bigint binary blob boolean both by call case cast char
		character check clob close column commit constraint copy create cross
		current current_date current_role current_time current_timestamp
		current_user cursor date day decimal declare default delete desc
		distinct double drop else end escape except exists external false
		fetch filter float for foreign from full function global grant group
		having hour hugeint identity in inner insert int integer intersect
		interval into is join key lateral leading left like limit local
		localtime localtimestamp match merge minute month natural new
		not null numeric of offset old on only open or order out outer over
		partition precision primary real records references rename replace
		restrict revoke right rollback row rows sample schema second select
		sequence session_user set smallint some start symmetric system_user
		table then time timestamp tinyint to trailing trigger true truncate
		union unique update user using values varchar varying view when
		where with year zone`) {
		reservedWords[w] = struct{}{}
	}
}

var reLegalIdentifier = regexp.MustCompile(`^[a-z_][a-z0-9_$]*$`)

// QuoteIdentifier returns name as it must appear in MonetDB SQL. Lower-case
// legal names that are not reserved are left bare.
func (d *Dialect) QuoteIdentifier(name string) string {
	if !requiresQuotes(name) {
		return name
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteQualified renders schema.name, omitting an empty schema.
func (d *Dialect) QuoteQualified(schemaName, name string) string {
	if schemaName == "" {
		return d.QuoteIdentifier(name)
	}
	return d.QuoteIdentifier(schemaName) + "." + d.QuoteIdentifier(name)
}

func requiresQuotes(name string) bool {
	if _, ok := reservedWords[name]; ok {
		return true
	}
	return !reLegalIdentifier.MatchString(name)
}

// TypeName renders a generic type as MonetDB DDL.
func (d *Dialect) TypeName(t schema.Type) (string, error) {
	switch t.Kind {
	case schema.KindInteger:
		switch {
		case t.Name == "OID":
			return "OID", nil
		case t.Bits == 8:
			return "TINYINT", nil
		case t.Bits == 16:
			return "SMALLINT", nil
		case t.Bits == 64:
			return "BIGINT", nil
		case t.Bits == 128:
			return "HUGEINT", nil
		default:
			return "INTEGER", nil
		}
	case schema.KindNumeric:
		if t.Precision > 0 {
			return fmt.Sprintf("DECIMAL(%d,%d)", t.Precision, t.Scale), nil
		}
		return "DECIMAL", nil
	case schema.KindFloat:
		if t.Bits == 32 {
			return "REAL", nil
		}
		if t.Name == "FLOAT" {
			return "FLOAT", nil
		}
		return "DOUBLE", nil
	case schema.KindString:
		name := "VARCHAR"
		if t.Name == "CHAR" {
			name = "CHAR"
		}
		if t.Length > 0 {
			return fmt.Sprintf("%s(%d)", name, t.Length), nil
		}
		if name == "VARCHAR" {
			return "", fmt.Errorf("%w: VARCHAR requires a length", adapter.ErrUnsupportedType)
		}
		return name, nil
	case schema.KindText:
		return "CLOB", nil
	case schema.KindBinary:
		return "BLOB", nil
	case schema.KindBoolean:
		return "BOOLEAN", nil
	case schema.KindDate:
		return "DATE", nil
	case schema.KindTime:
		return withZone("TIME", t.Timezone), nil
	case schema.KindTimestamp:
		return withZone("TIMESTAMP", t.Timezone), nil
	case schema.KindInterval:
		switch t.Name {
		case "MONTH_INTERVAL":
			return "INTERVAL MONTH", nil
		case "DAY_INTERVAL":
			return "INTERVAL DAY", nil
		default:
			return "INTERVAL SECOND", nil
		}
	case schema.KindUUID:
		return "UUID", nil
	case schema.KindJSON:
		return "JSON", nil
	case schema.KindURL:
		return "URL", nil
	case schema.KindInet:
		return "INET", nil
	}
	return "", fmt.Errorf("%w: cannot render %s type %q", adapter.ErrUnsupportedType, t.Kind, t.Name)
}

func withZone(name string, tz bool) string {
	if tz {
		return name + " WITH TIME ZONE"
	}
	return name
}
