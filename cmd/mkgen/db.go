// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mkgen/mkgen/internal/graphdb"
	"github.com/mkgen/mkgen/internal/issue"
)

// defaultDBName is created in the build root unless --db says otherwise.
const defaultDBName = "mkgen.db"

type dbFlagValues struct {
	path    string
	variant string
}

func newDBCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	flags := &dbFlagValues{}
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Export the build graph to SQLite and query it",
		Long: `Export the resolved build graph and its recipe actions to a SQLite
database, then answer questions about it without reloading descriptors.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	dbCmd.PersistentFlags().StringVar(&flags.path, "db", "", "database file (default is <build_root>/"+defaultDBName+")")

	run := func(fn func(ctx context.Context, store *graphdb.Store, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			err := withStore(cmd.Context(), app, rootFlags, flags, false, func(store *graphdb.Store) error {
				return fn(cmd.Context(), store, args)
			})
			return reportError(app.stderr, err, rootFlags.verbose)
		}
	}

	dbCmd.AddCommand(&cobra.Command{
		Use:   "export [target...]",
		Short: "Write the graph of targets to the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			return reportError(app.stderr, runDBExport(cmd.Context(), app, rootFlags, flags, args), rootFlags.verbose)
		},
	})

	dbCmd.AddCommand(&cobra.Command{
		Use:   "dependents <label>",
		Short: "List every rule that depends on a rule, directly or not",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx context.Context, store *graphdb.Store, args []string) error {
			labels, err := store.Dependents(ctx, args[0])
			if err != nil {
				return err
			}
			printLines(app, labels)
			return nil
		}),
	})

	dbCmd.AddCommand(&cobra.Command{
		Use:   "deps <label>",
		Short: "List the direct dependencies of a rule",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx context.Context, store *graphdb.Store, args []string) error {
			labels, err := store.Dependencies(ctx, args[0])
			if err != nil {
				return err
			}
			printLines(app, labels)
			return nil
		}),
	})

	exportsCmd := &cobra.Command{
		Use:   "exports <label>",
		Short: "List the recorded link-order export paths of a rule",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx context.Context, store *graphdb.Store, args []string) error {
			paths, err := store.ExportList(ctx, args[0], flags.variant)
			if err != nil {
				return err
			}
			printLines(app, paths)
			return nil
		}),
	}
	exportsCmd.Flags().StringVar(&flags.variant, "variant", "opt", "build variant")
	dbCmd.AddCommand(exportsCmd)

	dbCmd.AddCommand(&cobra.Command{
		Use:   "producer <path>",
		Short: "Show the action that writes a file",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx context.Context, store *graphdb.Store, args []string) error {
			kind, rule, ok, err := store.Producer(ctx, args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no action writes %s", args[0])
			}
			if rule == "" {
				rule = "-"
			}
			fmt.Fprintf(app.stdout, "%s %s\n", kind, LabelStyle.Render(rule))
			return nil
		}),
	})

	return dbCmd
}

func runDBExport(ctx context.Context, app *App, rootFlags *rootFlagValues, flags *dbFlagValues, targets []string) error {
	s, err := app.newSession(ctx, rootFlags)
	if err != nil {
		return err
	}
	plan, err := s.plan(ctx, targets)
	if err != nil {
		return err
	}

	return withStore(ctx, app, rootFlags, flags, true, func(store *graphdb.Store) error {
		counts, err := store.Export(ctx, graphdb.Snapshot{
			Packages: plan.Context.Packages(),
			Actions:  plan.Actions,
			Variants: plan.Emitter.Variants(),
			Exports:  plan.Emitter.Calculator().ExportPaths,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(app.stdout, "%s %d packages, %d rules, %d edges, %d exports, %d actions\n",
			SuccessStyle.Render("exported"), counts.Packages, counts.Rules, counts.Edges, counts.Exports, counts.Actions)
		return nil
	})
}

// withStore opens the database the flags select. Queries require an
// existing database; export creates it.
func withStore(ctx context.Context, app *App, rootFlags *rootFlagValues, flags *dbFlagValues, create bool, fn func(*graphdb.Store) error) error {
	dbPath := flags.path
	if dbPath == "" {
		s, err := app.newSession(ctx, rootFlags)
		if err != nil {
			return err
		}
		dbPath = filepath.Join(s.workdir, s.cfg.BuildRoot, defaultDBName)
	}

	if create {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return issue.WrapWithContext(err, "write output", dbPath)
		}
	} else if _, err := os.Stat(dbPath); err != nil {
		return issue.NewErrorContext().
			WithOperation("open graph database").
			WithResource(dbPath).
			WithSuggestion("Run 'mkgen db export' first").
			Wrap(err).
			BuildError()
	}

	store, err := graphdb.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck // read side; export commits before returning
	if err := store.Migrate(ctx); err != nil {
		return err
	}
	return fn(store)
}

func printLines(app *App, lines []string) {
	for _, l := range lines {
		fmt.Fprintln(app.stdout, l)
	}
}
