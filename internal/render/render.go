// Package render writes reflected catalog objects as terminal tables, JSON
// or YAML.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"

	"github.com/sadopc/monetdialect/internal/history"
	"github.com/sadopc/monetdialect/internal/migrate"
	"github.com/sadopc/monetdialect/internal/schema"
)

// Format selects the output encoding.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat validates an output format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatTable, FormatJSON, FormatYAML:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q (want table, json or yaml)", s)
}

// Renderer writes to w in one format.
type Renderer struct {
	w      io.Writer
	format Format
	hl     *Highlighter
}

// New returns a Renderer. hl may be nil for plain view definitions.
func New(w io.Writer, format Format, hl *Highlighter) *Renderer {
	return &Renderer{w: w, format: format, hl: hl}
}

// encode writes v as JSON or YAML. It reports false for the table format.
func (r *Renderer) encode(v any) (bool, error) {
	switch r.format {
	case FormatJSON:
		enc := json.NewEncoder(r.w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(r.w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return true, err
		}
		return true, enc.Close()
	}
	return false, nil
}

func (r *Renderer) newTable(title string, header table.Row) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(r.w)
	t.SetStyle(table.StyleLight)
	if title != "" {
		t.SetTitle(title)
	}
	t.AppendHeader(header)
	return t
}

func (r *Renderer) finish(t table.Writer, n int) {
	t.Render()
	noun := "rows"
	if n == 1 {
		noun = "row"
	}
	_, _ = fmt.Fprintf(r.w, "(%d %s)\n", n, noun)
}

// Names writes a single-column list.
func (r *Renderer) Names(header string, names []string) error {
	if ok, err := r.encode(names); ok {
		return err
	}
	t := r.newTable("", table.Row{header})
	for _, n := range names {
		t.AppendRow(table.Row{n})
	}
	r.finish(t, len(names))
	return nil
}

// Columns writes a table's columns.
func (r *Renderer) Columns(title string, cols []schema.Column) error {
	if ok, err := r.encode(cols); ok {
		return err
	}
	t := r.newTable(title, table.Row{"Column", "Type", "Nullable", "Default", "Autoincrement"})
	for _, c := range cols {
		t.AppendRow(table.Row{c.Name, c.Type.String(), yesNo(c.Nullable), defaultText(c.Default), yesNo(c.Autoincrement)})
	}
	r.finish(t, len(cols))
	return nil
}

// keyRow is one line of the Keys table.
type keyRow struct {
	Kind       string   `json:"kind" yaml:"kind"`
	Name       string   `json:"name" yaml:"name"`
	Columns    []string `json:"columns" yaml:"columns"`
	References string   `json:"references,omitempty" yaml:"references,omitempty"`
}

func keyRows(tbl schema.Table) []keyRow {
	var rows []keyRow
	if !tbl.PrimaryKey.IsZero() {
		rows = append(rows, keyRow{Kind: "PRIMARY KEY", Name: tbl.PrimaryKey.Name, Columns: tbl.PrimaryKey.ConstrainedColumns})
	}
	for _, u := range tbl.Uniques {
		rows = append(rows, keyRow{Kind: "UNIQUE", Name: u.Name, Columns: u.ColumnNames})
	}
	for _, fk := range tbl.ForeignKeys {
		rows = append(rows, keyRow{
			Kind:       "FOREIGN KEY",
			Name:       fk.Name,
			Columns:    fk.ConstrainedColumns,
			References: fmt.Sprintf("%s.%s(%s)", fk.ReferredSchema, fk.ReferredTable, strings.Join(fk.ReferredColumns, ", ")),
		})
	}
	return rows
}

// Keys writes the primary, unique and foreign keys of a table.
func (r *Renderer) Keys(tbl schema.Table) error {
	rows := keyRows(tbl)
	if ok, err := r.encode(rows); ok {
		return err
	}
	t := r.newTable(tbl.Name, table.Row{"Kind", "Name", "Columns", "References"})
	for _, k := range rows {
		t.AppendRow(table.Row{k.Kind, k.Name, strings.Join(k.Columns, ", "), k.References})
	}
	r.finish(t, len(rows))
	return nil
}

// Indexes writes a table's indexes.
func (r *Renderer) Indexes(title string, idxs []schema.Index) error {
	if ok, err := r.encode(idxs); ok {
		return err
	}
	t := r.newTable(title, table.Row{"Index", "Columns", "Unique"})
	for _, ix := range idxs {
		t.AppendRow(table.Row{ix.Name, strings.Join(ix.ColumnNames, ", "), yesNo(ix.Unique)})
	}
	r.finish(t, len(idxs))
	return nil
}

// Sequences writes sequence catalog rows.
func (r *Renderer) Sequences(seqs []schema.Sequence) error {
	if ok, err := r.encode(seqs); ok {
		return err
	}
	t := r.newTable("", table.Row{"ID", "Sequence", "Schema ID"})
	for _, s := range seqs {
		t.AppendRow(table.Row{s.ID, s.Name, s.SchemaID})
	}
	r.finish(t, len(seqs))
	return nil
}

// View writes a view definition, highlighted in table format.
func (r *Renderer) View(v schema.View) error {
	if ok, err := r.encode(v); ok {
		return err
	}
	def := strings.TrimSpace(v.Definition)
	if r.hl != nil {
		def = r.hl.Highlight(def)
	}
	_, err := fmt.Fprintln(r.w, def)
	return err
}

// Snapshot writes every object of a schema.
func (r *Renderer) Snapshot(snap *schema.Snapshot) error {
	if ok, err := r.encode(snap); ok {
		return err
	}
	_, _ = fmt.Fprintf(r.w, "schema %s: %d tables, %d views, %d sequences\n\n",
		snap.Schema, len(snap.Tables), len(snap.Views), len(snap.Sequences))

	for _, tbl := range snap.Tables {
		if err := r.Columns(tbl.Name, tbl.Columns); err != nil {
			return err
		}
		if keys := keyRows(tbl); len(keys) > 0 {
			if err := r.Keys(tbl); err != nil {
				return err
			}
		}
		if len(tbl.Indexes) > 0 {
			if err := r.Indexes(tbl.Name, tbl.Indexes); err != nil {
				return err
			}
		}
		_, _ = fmt.Fprintln(r.w)
	}
	for _, v := range snap.Views {
		_, _ = fmt.Fprintf(r.w, "-- view %s\n", v.Name)
		if err := r.View(v); err != nil {
			return err
		}
		_, _ = fmt.Fprintln(r.w)
	}
	if len(snap.Sequences) > 0 {
		return r.Sequences(snap.Sequences)
	}
	return nil
}

// Migrations writes goose migration status.
func (r *Renderer) Migrations(list []migrate.Status) error {
	if ok, err := r.encode(list); ok {
		return err
	}
	t := r.newTable("", table.Row{"Version", "State", "Applied At", "Source"})
	for _, m := range list {
		applied := ""
		if !m.AppliedAt.IsZero() {
			applied = m.AppliedAt.Format("2006-01-02 15:04:05")
		}
		t.AppendRow(table.Row{m.Version, m.State, applied, m.Path})
	}
	r.finish(t, len(list))
	return nil
}

// Runs writes recorded monetinspect runs, newest first.
func (r *Renderer) Runs(runs []history.Run) error {
	if ok, err := r.encode(runs); ok {
		return err
	}
	t := r.newTable("", table.Row{"Started", "Command", "Target", "Schema", "Queries", "ms", "Error"})
	for _, run := range runs {
		t.AppendRow(table.Row{
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			run.Command, run.Target, run.Schema, run.Queries, run.DurationMS, run.Error,
		})
	}
	r.finish(t, len(runs))
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func defaultText(d *string) string {
	if d == nil {
		return "NULL"
	}
	return *d
}
