// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mkgen/mkgen/internal/dag"
	"github.com/mkgen/mkgen/internal/generate"
	"github.com/mkgen/mkgen/internal/linkorder"
)

type depsFlagValues struct {
	flat    bool
	exports string
}

func newDepsCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	flags := &depsFlagValues{}
	cmd := &cobra.Command{
		Use:   "deps [target...]",
		Short: "Show the build order of targets",
		Long: `Resolve targets and print their dependency closure in build order.

By default rules are grouped into levels: every rule of a level depends
only on rules of earlier levels, so a level can be built in parallel.
With --exports, print the link-order archive list of each target instead.`,
		Example: `  mkgen deps //app:server
  mkgen deps --flat
  mkgen deps --exports opt //app:server`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			return reportError(app.stderr, runDeps(cmd.Context(), app, rootFlags, flags, args), rootFlags.verbose)
		},
	}
	cmd.Flags().BoolVar(&flags.flat, "flat", false, "print one rule per line instead of levels")
	cmd.Flags().StringVar(&flags.exports, "exports", "", "print the link-order export list in this variant")
	return cmd
}

func runDeps(ctx context.Context, app *App, rootFlags *rootFlagValues, flags *depsFlagValues, targets []string) error {
	s, err := app.newSession(ctx, rootFlags)
	if err != nil {
		return err
	}
	_, roots, err := generate.Resolve(ctx, generate.Options{Config: s.cfg, WorkspaceDir: s.workdir, Logger: s.logger}, targets)
	if err != nil {
		return err
	}

	if flags.exports != "" {
		calc := linkorder.New(generate.ModelFor(s.cfg))
		for _, r := range roots {
			fmt.Fprintln(app.stdout, LabelStyle.Render(r.ID()))
			for _, p := range calc.ExportPaths(r, flags.exports) {
				fmt.Fprintln(app.stdout, "  "+p)
			}
		}
		return nil
	}

	g := dag.FromRules(roots)
	if flags.flat {
		order, err := g.TopologicalSort()
		if err != nil {
			return err
		}
		for _, id := range order {
			fmt.Fprintln(app.stdout, id)
		}
		return nil
	}

	levels, err := g.Levels()
	if err != nil {
		return err
	}
	for i, level := range levels {
		fmt.Fprintf(app.stdout, "%s %s\n", TitleStyle.Render(fmt.Sprintf("%d:", i)), strings.Join(level, " "))
	}
	return nil
}
