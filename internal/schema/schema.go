package schema

// Snapshot is the reflected content of one schema.
type Snapshot struct {
	Schema    string     `json:"schema" yaml:"schema"`
	Tables    []Table    `json:"tables" yaml:"tables"`
	Views     []View     `json:"views,omitempty" yaml:"views,omitempty"`
	Sequences []Sequence `json:"sequences,omitempty" yaml:"sequences,omitempty"`
}

// Table represents a reflected base table.
type Table struct {
	Name        string             `json:"name" yaml:"name"`
	Columns     []Column           `json:"columns" yaml:"columns"`
	PrimaryKey  PrimaryKey         `json:"primary_key,omitzero" yaml:"primary_key,omitempty"`
	Uniques     []UniqueConstraint `json:"unique_constraints,omitempty" yaml:"unique_constraints,omitempty"`
	ForeignKeys []ForeignKey       `json:"foreign_keys,omitempty" yaml:"foreign_keys,omitempty"`
	Indexes     []Index            `json:"indexes,omitempty" yaml:"indexes,omitempty"`
}

// Column represents a table column.
type Column struct {
	Name          string       `json:"name" yaml:"name"`
	Type          Type         `json:"type" yaml:"type"`
	Default       *string      `json:"default" yaml:"default"`
	Nullable      bool         `json:"nullable" yaml:"nullable"`
	Autoincrement bool         `json:"autoincrement" yaml:"autoincrement"`
	Sequence      *SequenceRef `json:"sequence,omitempty" yaml:"sequence,omitempty"`
}

// SequenceRef names the sequence behind an autoincrement default.
type SequenceRef struct {
	Schema string `json:"schema" yaml:"schema"`
	Name   string `json:"name" yaml:"name"`
}

// PrimaryKey represents a primary key constraint. The zero value means the
// table has no primary key.
type PrimaryKey struct {
	Name               string   `json:"name" yaml:"name"`
	ConstrainedColumns []string `json:"constrained_columns" yaml:"constrained_columns"`
}

// IsZero reports whether the table had no primary key.
func (pk PrimaryKey) IsZero() bool {
	return pk.Name == "" && len(pk.ConstrainedColumns) == 0
}

// UniqueConstraint represents a unique key.
type UniqueConstraint struct {
	Name        string   `json:"name" yaml:"name"`
	ColumnNames []string `json:"column_names" yaml:"column_names"`
}

// ForeignKey represents a foreign key constraint. ConstrainedColumns[i]
// references ReferredColumns[i].
type ForeignKey struct {
	Name               string   `json:"name" yaml:"name"`
	ReferredSchema     string   `json:"referred_schema" yaml:"referred_schema"`
	ReferredTable      string   `json:"referred_table" yaml:"referred_table"`
	ConstrainedColumns []string `json:"constrained_columns" yaml:"constrained_columns"`
	ReferredColumns    []string `json:"referred_columns" yaml:"referred_columns"`
}

// Index represents a table index.
type Index struct {
	Name        string   `json:"name" yaml:"name"`
	ColumnNames []string `json:"column_names" yaml:"column_names"`
	Unique      bool     `json:"unique" yaml:"unique"`
}

// Sequence is a row of the sequence catalog.
type Sequence struct {
	ID       int64  `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	SchemaID int64  `json:"schema_id" yaml:"schema_id"`
}

// View represents a database view.
type View struct {
	Name       string `json:"name" yaml:"name"`
	Definition string `json:"definition" yaml:"definition"`
}
