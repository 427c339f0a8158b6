package monetdb

import (
	"errors"
	"testing"

	"github.com/sadopc/monetdialect/internal/adapter"
	"github.com/sadopc/monetdialect/internal/schema"
)

func TestQuoteIdentifier(t *testing.T) {
	d := New()
	tests := []struct {
		in, want string
	}{
		{"orders", "orders"},
		{"order_lines2", "order_lines2"},
		{"_hidden", "_hidden"},
		{"price$usd", "price$usd"},
		{"Orders", `"Orders"`},
		{"2fast", `"2fast"`},
		{"with space", `"with space"`},
		{"select", `"select"`},
		{"default", `"default"`},
		{"null", `"null"`},
		{`we"ird`, `"we""ird"`},
		{"", `""`},
		// Catalog column names that are not reserved stay bare.
		{"type", "type"},
		{"name", "name"},
		{"query", "query"},
	}
	for _, tt := range tests {
		if got := d.QuoteIdentifier(tt.in); got != tt.want {
			t.Errorf("QuoteIdentifier(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestQuoteQualified(t *testing.T) {
	d := New()
	if got := d.QuoteQualified("", "orders"); got != "orders" {
		t.Errorf("no schema: got %s", got)
	}
	if got := d.QuoteQualified("Sales", "user"); got != `"Sales"."user"` {
		t.Errorf("qualified: got %s", got)
	}
}

func TestTypeName(t *testing.T) {
	d := New()
	tests := []struct {
		typ  schema.Type
		want string
	}{
		{schema.Type{Kind: schema.KindInteger, Bits: 8}, "TINYINT"},
		{schema.Type{Kind: schema.KindInteger, Bits: 16}, "SMALLINT"},
		{schema.Type{Kind: schema.KindInteger, Bits: 32}, "INTEGER"},
		{schema.Type{Kind: schema.KindInteger}, "INTEGER"},
		{schema.Type{Kind: schema.KindInteger, Bits: 64}, "BIGINT"},
		{schema.Type{Kind: schema.KindInteger, Bits: 128}, "HUGEINT"},
		{schema.Type{Kind: schema.KindInteger, Name: "OID", Bits: 64}, "OID"},
		{schema.Type{Kind: schema.KindNumeric, Precision: 18, Scale: 3}, "DECIMAL(18,3)"},
		{schema.Type{Kind: schema.KindNumeric}, "DECIMAL"},
		{schema.Type{Kind: schema.KindFloat, Bits: 32}, "REAL"},
		{schema.Type{Kind: schema.KindFloat, Bits: 64}, "DOUBLE"},
		{schema.Type{Kind: schema.KindFloat, Name: "FLOAT", Bits: 64}, "FLOAT"},
		{schema.Type{Kind: schema.KindString, Name: "VARCHAR", Length: 255}, "VARCHAR(255)"},
		{schema.Type{Kind: schema.KindString, Name: "CHAR", Length: 2}, "CHAR(2)"},
		{schema.Type{Kind: schema.KindString, Name: "CHAR"}, "CHAR"},
		{schema.Type{Kind: schema.KindText}, "CLOB"},
		{schema.Type{Kind: schema.KindBinary}, "BLOB"},
		{schema.Type{Kind: schema.KindBoolean}, "BOOLEAN"},
		{schema.Type{Kind: schema.KindDate}, "DATE"},
		{schema.Type{Kind: schema.KindTime}, "TIME"},
		{schema.Type{Kind: schema.KindTime, Timezone: true}, "TIME WITH TIME ZONE"},
		{schema.Type{Kind: schema.KindTimestamp}, "TIMESTAMP"},
		{schema.Type{Kind: schema.KindTimestamp, Timezone: true}, "TIMESTAMP WITH TIME ZONE"},
		{schema.Type{Kind: schema.KindInterval, Name: "MONTH_INTERVAL"}, "INTERVAL MONTH"},
		{schema.Type{Kind: schema.KindInterval, Name: "DAY_INTERVAL"}, "INTERVAL DAY"},
		{schema.Type{Kind: schema.KindInterval, Name: "SEC_INTERVAL"}, "INTERVAL SECOND"},
		{schema.Type{Kind: schema.KindUUID}, "UUID"},
		{schema.Type{Kind: schema.KindJSON}, "JSON"},
		{schema.Type{Kind: schema.KindURL}, "URL"},
		{schema.Type{Kind: schema.KindInet}, "INET"},
	}
	for _, tt := range tests {
		got, err := d.TypeName(tt.typ)
		if err != nil {
			t.Errorf("TypeName(%+v) error: %v", tt.typ, err)
			continue
		}
		if got != tt.want {
			t.Errorf("TypeName(%+v) = %s, want %s", tt.typ, got, tt.want)
		}
	}
}

func TestTypeName_Unsupported(t *testing.T) {
	d := New()
	for _, typ := range []schema.Type{
		{Kind: schema.KindUnknown, Name: "GEOMETRY"},
		{Kind: schema.KindString, Name: "VARCHAR"},
	} {
		_, err := d.TypeName(typ)
		if !errors.Is(err, adapter.ErrUnsupportedType) {
			t.Errorf("TypeName(%+v) error = %v, want ErrUnsupportedType", typ, err)
		}
	}
}

// Reflected types render back to the DDL spelling MonetDB reports.
func TestTypeName_RoundTrip(t *testing.T) {
	d := New()
	tests := []struct {
		catalog       string
		digits, scale int64
		want          string
	}{
		{"varchar", 80, 0, "VARCHAR(80)"},
		{"decimal", 12, 4, "DECIMAL(12,4)"},
		{"timestamptz", 7, 0, "TIMESTAMP WITH TIME ZONE"},
		{"bigint", 64, 0, "BIGINT"},
		{"real", 24, 0, "REAL"},
		{"month_interval", 3, 0, "INTERVAL MONTH"},
	}
	for _, tt := range tests {
		typ, ok := resolveType(tt.catalog, nullInt(tt.digits), nullInt(tt.scale))
		if !ok {
			t.Fatalf("resolveType(%q) missed", tt.catalog)
		}
		got, err := d.TypeName(typ)
		if err != nil {
			t.Fatalf("TypeName(%s): %v", tt.catalog, err)
		}
		if got != tt.want {
			t.Errorf("%s: got %s, want %s", tt.catalog, got, tt.want)
		}
	}
}
