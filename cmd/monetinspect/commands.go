package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sadopc/monetdialect/internal/adapter"
	"github.com/sadopc/monetdialect/internal/adapter/monetdb"
	"github.com/sadopc/monetdialect/internal/browse"
	"github.com/sadopc/monetdialect/internal/history"
	"github.com/sadopc/monetdialect/internal/inspect"
	"github.com/sadopc/monetdialect/internal/migrate"
)

func newSchemasCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "schemas",
		Short: "List schema names",
		Args:  cobra.NoArgs,
		RunE: o.connected(func(ctx context.Context, e *env, _ []string) error {
			names, err := e.dialect.SchemaNames(ctx, e.session)
			if err != nil {
				return err
			}
			return e.out.Names("Schema", names)
		}),
	}
}

func newTablesCmd(o *options) *cobra.Command {
	var temp bool
	var match string
	cmd := &cobra.Command{
		Use:   "tables",
		Short: "List base tables, or local temporary tables with --temp",
		Args:  cobra.NoArgs,
		RunE: o.connected(func(ctx context.Context, e *env, _ []string) error {
			var names []string
			var err error
			if temp {
				names, err = e.dialect.TempTableNames(ctx, e.session)
			} else {
				names, err = e.dialect.TableNames(ctx, e.session, o.schema)
			}
			if err != nil {
				return err
			}
			return e.out.Names("Table", inspect.FilterNames(match, names))
		}),
	}
	cmd.Flags().BoolVar(&temp, "temp", false, "List local temporary tables")
	cmd.Flags().StringVarP(&match, "match", "m", "", "Fuzzy filter on table names")
	return cmd
}

func newViewsCmd(o *options) *cobra.Command {
	var match string
	cmd := &cobra.Command{
		Use:   "views",
		Short: "List view names",
		Args:  cobra.NoArgs,
		RunE: o.connected(func(ctx context.Context, e *env, _ []string) error {
			names, err := e.dialect.ViewNames(ctx, e.session, o.schema)
			if err != nil {
				return err
			}
			return e.out.Names("View", inspect.FilterNames(match, names))
		}),
	}
	cmd.Flags().StringVarP(&match, "match", "m", "", "Fuzzy filter on view names")
	return cmd
}

func newViewCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "view NAME",
		Short: "Print a view definition",
		Args:  cobra.ExactArgs(1),
		RunE: o.connected(func(ctx context.Context, e *env, args []string) error {
			v, err := e.insp.View(ctx, o.schema, args[0])
			if err != nil {
				return err
			}
			return e.out.View(v)
		}),
	}
}

// qualified returns "schema.table" for table titles.
func qualified(ctx context.Context, e *env, schemaName, table string) (string, error) {
	name, err := e.insp.ResolveSchema(ctx, schemaName)
	if err != nil {
		return "", err
	}
	return name + "." + table, nil
}

func newColumnsCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "columns TABLE",
		Short: "Describe a table's columns",
		Args:  cobra.ExactArgs(1),
		RunE: o.connected(func(ctx context.Context, e *env, args []string) error {
			cols, err := e.dialect.Columns(ctx, e.session, args[0], o.schema)
			if err != nil {
				return err
			}
			title, err := qualified(ctx, e, o.schema, args[0])
			if err != nil {
				return err
			}
			return e.out.Columns(title, cols)
		}),
	}
}

func newKeysCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "keys TABLE",
		Short: "Show primary, unique and foreign keys",
		Args:  cobra.ExactArgs(1),
		RunE: o.connected(func(ctx context.Context, e *env, args []string) error {
			t, err := e.insp.Table(ctx, o.schema, args[0])
			if err != nil {
				return err
			}
			return e.out.Keys(t)
		}),
	}
}

func newIndexesCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "indexes TABLE",
		Short: "Show a table's indexes",
		Args:  cobra.ExactArgs(1),
		RunE: o.connected(func(ctx context.Context, e *env, args []string) error {
			idxs, err := e.dialect.Indexes(ctx, e.session, args[0], o.schema)
			if err != nil {
				return err
			}
			title, err := qualified(ctx, e, o.schema, args[0])
			if err != nil {
				return err
			}
			return e.out.Indexes(title, idxs)
		}),
	}
}

func newSequencesCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "sequences",
		Short: "List sequences",
		Args:  cobra.NoArgs,
		RunE: o.connected(func(ctx context.Context, e *env, _ []string) error {
			seqs, err := e.dialect.Sequences(ctx, e.session, o.schema)
			if err != nil {
				return err
			}
			return e.out.Sequences(seqs)
		}),
	}
}

func newHasCmd(o *options) *cobra.Command {
	var sequence bool
	cmd := &cobra.Command{
		Use:   "has NAME",
		Short: "Report whether a table (or, with --sequence, a sequence) exists",
		Args:  cobra.ExactArgs(1),
		RunE: o.connected(func(ctx context.Context, e *env, args []string) error {
			var ok bool
			var err error
			if sequence {
				ok, err = e.dialect.HasSequence(ctx, e.session, args[0], o.schema)
			} else {
				ok, err = e.dialect.HasTable(ctx, e.session, args[0], o.schema)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(e.stdout, ok)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&sequence, "sequence", false, "Look up a sequence instead of a table")
	return cmd
}

func newDumpCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "Reflect every table, view and sequence of a schema",
		Args:  cobra.NoArgs,
		RunE: o.connected(func(ctx context.Context, e *env, _ []string) error {
			snap, err := e.insp.Snapshot(ctx, o.schema)
			if err != nil {
				return err
			}
			return e.out.Snapshot(snap)
		}),
	}
}

func newBrowseCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Browse a schema interactively",
		Args:  cobra.NoArgs,
		RunE: o.connected(func(ctx context.Context, e *env, _ []string) error {
			snap, err := e.insp.Snapshot(ctx, o.schema)
			if err != nil {
				return err
			}
			if err := browse.Run(snap, e.theme, e.hl); err != nil {
				return fmt.Errorf("error running browser: %w", err)
			}
			return nil
		}),
	}
}

func newQuoteCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "quote NAME...",
		Short: "Quote identifiers the way the MonetDB dialect renders them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := monetdb.New()
			for _, a := range args {
				if o.schema != "" {
					fmt.Fprintln(cmd.OutOrStdout(), d.QuoteQualified(o.schema, a))
					continue
				}
				fmt.Fprintln(cmd.OutOrStdout(), d.QuoteIdentifier(a))
			}
			return nil
		},
	}
}

func newMigrateCmd(o *options) *cobra.Command {
	var dir, table string

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or inspect SQL migrations",
	}
	migrateCmd.PersistentFlags().StringVar(&dir, "dir", "migrations", "Directory holding goose SQL migrations")
	migrateCmd.PersistentFlags().StringVar(&table, "table", migrate.DefaultTable, "Version table, optionally schema-qualified")

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: o.connected(func(ctx context.Context, e *env, _ []string) error {
			p, err := migrate.NewProvider(e.db, e.dialect, os.DirFS(dir), migrate.Options{Table: table, Verbose: o.verbose})
			if err != nil {
				return err
			}
			results, err := p.Up(ctx)
			if err != nil {
				return fmt.Errorf("migrate up: %w", err)
			}
			for _, r := range results {
				e.logger.Info("migration applied", "version", r.Source.Version, "path", r.Source.Path, "duration", r.Duration)
			}
			list, err := migrate.Statuses(ctx, p)
			if err != nil {
				return err
			}
			return e.out.Migrations(list)
		}),
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: o.connected(func(ctx context.Context, e *env, _ []string) error {
			p, err := migrate.NewProvider(e.db, e.dialect, os.DirFS(dir), migrate.Options{Table: table, Verbose: o.verbose})
			if err != nil {
				return err
			}
			list, err := migrate.Statuses(ctx, p)
			if err != nil {
				return err
			}
			return e.out.Migrations(list)
		}),
	}

	migrateCmd.AddCommand(upCmd, statusCmd)
	return migrateCmd
}

func newHistoryCmd(o *options) *cobra.Command {
	var limit int
	var match string

	openHistory := func() (*history.History, error) {
		path, err := history.DefaultPath()
		if err != nil {
			return nil, err
		}
		return history.Open(path)
	}

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent monetinspect runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			h, err := openHistory()
			if err != nil {
				return err
			}
			defer h.Close()

			var runs []history.Run
			if match != "" {
				runs, err = h.Search(cmd.Context(), "%"+match+"%", limit)
			} else {
				runs, err = h.Recent(cmd.Context(), limit)
			}
			if err != nil {
				return err
			}
			out, _, err := o.renderer(o.loadConfig(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			return out.Runs(runs)
		},
	}
	historyCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show")
	historyCmd.Flags().StringVarP(&match, "match", "m", "", "Only runs whose command or target contains this text")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all recorded runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			h, err := openHistory()
			if err != nil {
				return err
			}
			defer h.Close()
			return h.Clear(cmd.Context())
		},
	}
	historyCmd.AddCommand(clearCmd)
	return historyCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "monetinspect %s (commit: %s, built: %s)\n", version, commit, date)
			fmt.Fprintln(w, "\nRegistered dialects:")
			for _, name := range adapter.Names() {
				fmt.Fprintf(w, "  - %s\n", name)
			}
		},
	}
}
