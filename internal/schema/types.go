package schema

import "fmt"

// Kind classifies a generic column type.
type Kind int

const (
	KindUnknown Kind = iota
	KindInteger
	KindNumeric
	KindFloat
	KindString
	KindText
	KindBinary
	KindBoolean
	KindDate
	KindTime
	KindTimestamp
	KindInterval
	KindUUID
	KindJSON
	KindURL
	KindInet
)

var kindNames = map[Kind]string{
	KindUnknown:   "unknown",
	KindInteger:   "integer",
	KindNumeric:   "numeric",
	KindFloat:     "float",
	KindString:    "string",
	KindText:      "text",
	KindBinary:    "binary",
	KindBoolean:   "boolean",
	KindDate:      "date",
	KindTime:      "time",
	KindTimestamp: "timestamp",
	KindInterval:  "interval",
	KindUUID:      "uuid",
	KindJSON:      "json",
	KindURL:       "url",
	KindInet:      "inet",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// MarshalText renders the kind name in json and yaml output.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Type is a generic, database-neutral type descriptor.
//
// Length applies to character types, Precision and Scale to exact numerics,
// Bits to integers and floats. Timezone is only meaningful for time and
// timestamp kinds.
type Type struct {
	Kind      Kind   `json:"kind" yaml:"kind"`
	Name      string `json:"name" yaml:"name"`
	Length    int    `json:"length,omitempty" yaml:"length,omitempty"`
	Precision int    `json:"precision,omitempty" yaml:"precision,omitempty"`
	Scale     int    `json:"scale,omitempty" yaml:"scale,omitempty"`
	Bits      int    `json:"bits,omitempty" yaml:"bits,omitempty"`
	Timezone  bool   `json:"timezone,omitempty" yaml:"timezone,omitempty"`
}

// String returns a compact description such as "VARCHAR(50)".
func (t Type) String() string {
	switch {
	case t.Length > 0:
		return fmt.Sprintf("%s(%d)", t.Name, t.Length)
	case t.Kind == KindNumeric && t.Precision > 0:
		return fmt.Sprintf("%s(%d,%d)", t.Name, t.Precision, t.Scale)
	case t.Timezone:
		return t.Name + " WITH TIME ZONE"
	default:
		return t.Name
	}
}
