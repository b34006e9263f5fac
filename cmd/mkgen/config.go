// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mkgen/mkgen/internal/config"
	"github.com/mkgen/mkgen/internal/issue"
)

// newConfigCommand creates the `mkgen config` command tree.
func newConfigCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the workspace configuration",
		Long: `Inspect the workspace configuration.

Configuration is read from --config, else from ` + config.FileName + ` in the
workspace directory. MKGEN_* environment variables override single values,
e.g. MKGEN_BUILD_ROOT=out.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			return reportError(app.stderr, showConfig(cmd.Context(), app, rootFlags), rootFlags.verbose)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output the effective configuration as CUE",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			s, err := app.newSession(cmd.Context(), rootFlags)
			if err != nil {
				return reportError(app.stderr, err, rootFlags.verbose)
			}
			fmt.Fprint(app.stdout, config.GenerateCUE(s.cfg))
			return nil
		},
	})

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default " + config.FileName + " to the workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			return reportError(app.stderr, initConfig(app, rootFlags, force), rootFlags.verbose)
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cfgCmd.AddCommand(initCmd)

	return cfgCmd
}

func showConfig(ctx context.Context, app *App, rootFlags *rootFlagValues) error {
	s, err := app.newSession(ctx, rootFlags)
	if err != nil {
		return err
	}
	cfg := s.cfg
	w := app.stdout

	kv := func(indent, key, value string) {
		fmt.Fprintf(w, "%s%s: %s\n", indent, LabelStyle.Render(key), SuccessStyle.Render(value))
	}
	list := func(items []string) string {
		if len(items) == 0 {
			return "(none)"
		}
		return strings.Join(items, " ")
	}

	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)
	if s.configFile != "" {
		kv("", "Config file", s.configFile)
	} else {
		fmt.Fprintf(w, "%s: %s\n", LabelStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}
	fmt.Fprintln(w)

	kv("", "source_root", cfg.SourceRoot)
	kv("", "build_root", cfg.BuildRoot)
	kv("", "publish_root", cfg.PublishRoot)
	kv("", "variants", list(cfg.Variants))
	kv("", "verify_variants", list(cfg.VerifyVariants))
	if cfg.VersionStamp != "" {
		kv("", "version_stamp", cfg.VersionStamp)
	}

	fmt.Fprintf(w, "\n%s:\n", LabelStyle.Render("toolchain"))
	kv("  ", "cc", cfg.Toolchain.CC)
	kv("  ", "cxx", cfg.Toolchain.CXX)
	kv("  ", "mpicxx", cfg.Toolchain.MPICXX)
	kv("  ", "ar", cfg.Toolchain.AR)
	kv("  ", "protoc", cfg.Toolchain.Protoc)

	fmt.Fprintf(w, "\n%s:\n", LabelStyle.Render("flags"))
	kv("  ", "common", list(cfg.Flags.Common))
	for _, v := range cfg.AllVariants() {
		if flags, ok := cfg.Flags.Variant[v]; ok {
			kv("  ", v, list(flags))
		}
	}

	fmt.Fprintf(w, "\n%s:\n", LabelStyle.Render("output"))
	kv("  ", "recipe", cfg.Output.Recipe)
	kv("  ", "test_manifest", cfg.Output.TestManifest)
	kv("  ", "publish_manifest", cfg.Output.PublishManifest)
	kv("  ", "manifest_format", string(cfg.Output.ManifestFormat))
	return nil
}

func initConfig(app *App, rootFlags *rootFlagValues, force bool) error {
	dir := rootFlags.workdir
	if dir == "" {
		dir = "."
	}
	target := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(target); err == nil && !force {
		return issue.NewErrorContext().
			WithOperation("initialize configuration").
			WithResource(target).
			WithSuggestion("Use --force to overwrite it").
			Wrap(os.ErrExist).
			BuildError()
	}
	if err := os.WriteFile(target, []byte(config.GenerateCUE(config.DefaultConfig())), 0o644); err != nil {
		return issue.WrapWithContext(err, "write output", target)
	}
	fmt.Fprintf(app.stdout, "%s %s\n", SuccessStyle.Render("wrote"), LabelStyle.Render(target))
	return nil
}
