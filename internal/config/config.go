// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/viper"

	"github.com/mkgen/mkgen/internal/issue"
	"github.com/mkgen/mkgen/pkg/cueutil"
)

const (
	// AppName is the application name.
	AppName = "mkgen"
	// FileName is the workspace configuration file looked up when no path
	// is given.
	FileName = "mkgen.cue"
	// EnvPrefix prefixes environment overrides, e.g. MKGEN_BUILD_ROOT.
	EnvPrefix = "MKGEN"
)

//go:embed config_schema.cue
var configSchema []byte

// loadWithOptions performs option-driven config loading. It returns the
// effective configuration and the file it was read from.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	resolvedPath := opts.ConfigFilePath
	if resolvedPath != "" {
		if !fileExists(resolvedPath) {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(resolvedPath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Use 'mkgen config show' to see the default configuration").
				Wrap(fmt.Errorf("config file not found: %s", resolvedPath)).
				BuildError()
		}
	} else if local := filepath.Join(opts.WorkspaceDir, FileName); fileExists(local) {
		resolvedPath = local
	}

	if resolvedPath != "" {
		if err := loadCUEIntoViper(v, resolvedPath); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(resolvedPath).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Flags.Variant == nil {
		cfg.Flags.Variant = DefaultVariantFlags(cfg.Variants)
	}

	if valid, errs := cfg.IsValid(); !valid {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(resolvedPath).
			WithSuggestion("List every variant named in flags.variant under variants or verify_variants").
			WithSuggestion("Check MKGEN_* environment variables for typos").
			Wrap(errs[0]).
			BuildError()
	}
	return &cfg, resolvedPath, nil
}

// setDefaults registers every key so that environment overrides apply
// even when the file omits them. flags.variant is left out on purpose:
// viper merges nested default maps into the file's table, which would
// resurrect default variants the file dropped.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("source_root", d.SourceRoot)
	v.SetDefault("build_root", d.BuildRoot)
	v.SetDefault("publish_root", d.PublishRoot)
	v.SetDefault("variants", d.Variants)
	v.SetDefault("verify_variants", d.VerifyVariants)
	v.SetDefault("toolchain.cc", d.Toolchain.CC)
	v.SetDefault("toolchain.cxx", d.Toolchain.CXX)
	v.SetDefault("toolchain.mpicxx", d.Toolchain.MPICXX)
	v.SetDefault("toolchain.ar", d.Toolchain.AR)
	v.SetDefault("toolchain.protoc", d.Toolchain.Protoc)
	v.SetDefault("toolchain.python_ldflags", d.Toolchain.PythonLDFlags)
	v.SetDefault("flags.common", d.Flags.Common)
	v.SetDefault("test.framework_libs", d.Test.FrameworkLibs)
	v.SetDefault("version_stamp", d.VersionStamp)
	v.SetDefault("output.recipe", d.Output.Recipe)
	v.SetDefault("output.test_manifest", d.Output.TestManifest)
	v.SetDefault("output.publish_manifest", d.Output.PublishManifest)
	v.SetDefault("output.manifest_format", d.Output.ManifestFormat)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// loadCUEIntoViper validates a CUE file against #Config and merges its
// contents into v. Fields are optional, so the document is decoded into a
// map without requiring concreteness.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	res, err := cueutil.ParseAndDecode[map[string]any](configSchema, data, "#Config",
		cueutil.WithFilename(path),
		cueutil.WithConcrete(false),
	)
	if err != nil {
		return err
	}

	if err := v.MergeConfigMap(*res.Value); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// GenerateCUE renders cfg in the mkgen.cue format. The result loads back
// to an equal configuration.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// mkgen workspace configuration\n\n")
	fmt.Fprintf(&sb, "source_root: %q\n", cfg.SourceRoot)
	fmt.Fprintf(&sb, "build_root: %q\n", cfg.BuildRoot)
	fmt.Fprintf(&sb, "publish_root: %q\n", cfg.PublishRoot)
	fmt.Fprintf(&sb, "variants: %s\n", cueList(cfg.Variants))
	fmt.Fprintf(&sb, "verify_variants: %s\n", cueList(cfg.VerifyVariants))
	fmt.Fprintf(&sb, "version_stamp: %q\n", cfg.VersionStamp)

	sb.WriteString("\ntoolchain: {\n")
	fmt.Fprintf(&sb, "\tcc: %q\n", cfg.Toolchain.CC)
	fmt.Fprintf(&sb, "\tcxx: %q\n", cfg.Toolchain.CXX)
	fmt.Fprintf(&sb, "\tmpicxx: %q\n", cfg.Toolchain.MPICXX)
	fmt.Fprintf(&sb, "\tar: %q\n", cfg.Toolchain.AR)
	fmt.Fprintf(&sb, "\tprotoc: %q\n", cfg.Toolchain.Protoc)
	fmt.Fprintf(&sb, "\tpython_ldflags: %s\n", cueList(cfg.Toolchain.PythonLDFlags))
	sb.WriteString("}\n")

	sb.WriteString("\nflags: {\n")
	fmt.Fprintf(&sb, "\tcommon: %s\n", cueList(cfg.Flags.Common))
	sb.WriteString("\tvariant: {\n")
	names := make([]string, 0, len(cfg.Flags.Variant))
	for name := range cfg.Flags.Variant {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		fmt.Fprintf(&sb, "\t\t%q: %s\n", name, cueList(cfg.Flags.Variant[name]))
	}
	sb.WriteString("\t}\n")
	sb.WriteString("}\n")

	sb.WriteString("\ntest: {\n")
	fmt.Fprintf(&sb, "\tframework_libs: %s\n", cueList(cfg.Test.FrameworkLibs))
	sb.WriteString("}\n")

	sb.WriteString("\noutput: {\n")
	fmt.Fprintf(&sb, "\trecipe: %q\n", cfg.Output.Recipe)
	fmt.Fprintf(&sb, "\ttest_manifest: %q\n", cfg.Output.TestManifest)
	fmt.Fprintf(&sb, "\tpublish_manifest: %q\n", cfg.Output.PublishManifest)
	fmt.Fprintf(&sb, "\tmanifest_format: %q\n", cfg.Output.ManifestFormat)
	sb.WriteString("}\n")

	sb.WriteString("\nlog: {\n")
	fmt.Fprintf(&sb, "\tlevel: %q\n", cfg.Log.Level)
	fmt.Fprintf(&sb, "\tformat: %q\n", cfg.Log.Format)
	sb.WriteString("}\n")

	return sb.String()
}

func cueList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
