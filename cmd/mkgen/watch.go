// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/spf13/cobra"

	"github.com/mkgen/mkgen/internal/watch"
)

type watchFlagValues struct {
	gen      genFlagValues
	debounce time.Duration
}

func newWatchCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	flags := &watchFlagValues{}
	cmd := &cobra.Command{
		Use:   "watch [target...]",
		Short: "Regenerate whenever descriptors change",
		Long: `Generate once, then regenerate whenever a descriptor or the configuration
changes, or a file is added to or removed from the source tree. Stops on
Ctrl+C. Generation errors are reported and watching continues.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			return reportError(app.stderr, runWatch(cmd.Context(), app, rootFlags, flags, args), rootFlags.verbose)
		},
	}
	cmd.Flags().StringVar(&flags.gen.versionStamp, "version-stamp", "", "version string compiled into binaries (overrides version_stamp)")
	cmd.Flags().DurationVar(&flags.debounce, "debounce", 0, "quiet period before regenerating (default 300ms)")
	return cmd
}

func runWatch(ctx context.Context, app *App, rootFlags *rootFlagValues, flags *watchFlagValues, targets []string) error {
	s, err := app.newSession(ctx, rootFlags)
	if err != nil {
		return err
	}

	regenerate := func(ctx context.Context) {
		if err := runGen(ctx, app, rootFlags, &flags.gen, targets); err != nil {
			_ = reportError(app.stderr, err, rootFlags.verbose)
		}
	}

	regenerate(ctx)
	fmt.Fprintf(app.stdout, "\n%s Watching for changes (Ctrl+C to stop)...\n", SubtitleStyle.Render("→"))

	var descriptors []string
	if rel := s.relativeConfigFile(); rel != "" {
		descriptors = append(descriptors, rel)
	}
	w, err := watch.New(watch.Config{
		BaseDir:     s.workdir,
		Descriptors: descriptors,
		Ignore: []string{
			path.Join(s.cfg.BuildRoot, "**"),
			path.Join(s.cfg.PublishRoot, "**"),
		},
		Debounce: flags.debounce,
		OnChange: func(ctx context.Context, changed []string) error {
			fmt.Fprintf(app.stdout, "%s %d change(s), regenerating\n", SubtitleStyle.Render("→"), len(changed))
			regenerate(ctx)
			return nil
		},
		Logger: s.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	if err := w.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
