// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mkgen/mkgen/internal/config"
	"github.com/mkgen/mkgen/internal/generate"
)

type genFlagValues struct {
	stdout         bool
	versionStamp   string
	manifestFormat string
}

func newGenCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	flags := &genFlagValues{}
	cmd := &cobra.Command{
		Use:   "gen [target...]",
		Short: "Generate the recipe and manifests",
		Long: `Generate the recipe for the given targets and their dependencies.

A target is a rule label (//pkg:name), a package label (//pkg, meaning all
of its rules), or a package directory or descriptor path. Without targets
every package under the source root is generated.`,
		Example: `  mkgen gen
  mkgen gen //base/log:log ./tools
  mkgen gen --stdout //app:server | make -f - opt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			return reportError(app.stderr, runGen(cmd.Context(), app, rootFlags, flags, args), rootFlags.verbose)
		},
	}
	cmd.Flags().BoolVar(&flags.stdout, "stdout", false, "write the recipe to standard output and skip the manifests")
	cmd.Flags().StringVar(&flags.versionStamp, "version-stamp", "", "version string compiled into binaries (overrides version_stamp)")
	cmd.Flags().StringVar(&flags.manifestFormat, "manifest-format", "", "manifest encoding: text, toml or yaml (overrides output.manifest_format)")
	return cmd
}

func runGen(ctx context.Context, app *App, rootFlags *rootFlagValues, flags *genFlagValues, targets []string) error {
	s, err := app.newSession(ctx, rootFlags)
	if err != nil {
		return err
	}
	if flags.versionStamp != "" {
		s.cfg.VersionStamp = flags.versionStamp
	}
	if flags.manifestFormat != "" {
		f := config.ManifestFormat(flags.manifestFormat)
		if valid, errs := f.IsValid(); !valid {
			return errs[0]
		}
		s.cfg.Output.ManifestFormat = f
	}

	plan, err := s.plan(ctx, targets)
	if err != nil {
		return err
	}

	if flags.stdout {
		return plan.WriteRecipe(app.stdout)
	}
	written, err := plan.WriteFiles(s.workdir, s.cfg.Output)
	if err != nil {
		return err
	}
	for _, f := range written {
		rel, relErr := filepath.Rel(s.workdir, f)
		if relErr != nil {
			rel = f
		}
		fmt.Fprintf(app.stdout, "%s %s\n", SuccessStyle.Render("wrote"), LabelStyle.Render(filepath.ToSlash(rel)))
	}
	return nil
}

// plan runs one generation with the session's configuration.
func (s *session) plan(ctx context.Context, targets []string) (*generate.Plan, error) {
	return generate.Build(ctx, generate.Options{
		Config:       s.cfg,
		WorkspaceDir: s.workdir,
		ConfigFile:   s.relativeConfigFile(),
		Logger:       s.logger,
	}, targets)
}
