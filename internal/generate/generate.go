// SPDX-License-Identifier: MPL-2.0

// Package generate runs one generation: it resolves the requested targets,
// expands their dependency graph, emits the recipe and builds the
// manifests.
package generate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"

	"github.com/mkgen/mkgen/internal/artifact"
	"github.com/mkgen/mkgen/internal/config"
	"github.com/mkgen/mkgen/internal/descriptor"
	"github.com/mkgen/mkgen/internal/graph"
	"github.com/mkgen/mkgen/internal/manifest"
	"github.com/mkgen/mkgen/internal/recipe"
	"github.com/mkgen/mkgen/pkg/buildfile"
)

// ErrNoPackages is returned when the source root holds no descriptor.
var ErrNoPackages = errors.New("no packages found")

type (
	// Options configures a generation.
	Options struct {
		Config *config.Config
		// WorkspaceDir anchors every configured path. Empty means the
		// working directory.
		WorkspaceDir string
		// ConfigFile, when set, becomes a prerequisite of the recipe guard.
		ConfigFile string
		Logger     *log.Logger
	}

	// Plan is the result of a generation, ready to be written.
	Plan struct {
		Context *graph.Context
		Model   artifact.Model
		Emitter *recipe.Emitter
		// Roots are the requested rules in request order.
		Roots []*graph.Rule
		// Rules is the closure of Roots, dependencies first.
		Rules []*graph.Rule
		// Actions are the aliases followed by every emitted action.
		Actions []recipe.Action
		Tests   manifest.Tests
		Publish manifest.Publish
		// Descriptors are the descriptor files read, relative to the
		// workspace.
		Descriptors []string
	}
)

// Build resolves targets and emits their recipe. A target is a label
// ("//pkg:name"), a package label ("//pkg", meaning all its rules), or a
// package directory or descriptor file path. No targets means every
// package under the source root.
func Build(ctx context.Context, opts Options, targets []string) (*Plan, error) {
	cfg := opts.Config
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	gctx, loader, roots, err := resolve(ctx, opts, logger, targets)
	if err != nil {
		return nil, err
	}

	model := ModelFor(cfg)
	emitter, err := recipe.NewEmitter(recipe.Options{
		Model:          model,
		Variants:       cfg.Variants,
		VerifyVariants: cfg.VerifyVariants,
		Toolchain: recipe.Toolchain{
			CC:            cfg.Toolchain.CC,
			CXX:           cfg.Toolchain.CXX,
			MPICXX:        cfg.Toolchain.MPICXX,
			AR:            cfg.Toolchain.AR,
			Protoc:        cfg.Toolchain.Protoc,
			PythonLDFlags: cfg.Toolchain.PythonLDFlags,
		},
		CommonFlags:   cfg.Flags.Common,
		VariantFlags:  cfg.Flags.Variant,
		FrameworkLibs: cfg.Test.FrameworkLibs,
		VersionStamp:  cfg.VersionStamp,
		Logger:        logger,
	})
	if err != nil {
		return nil, err
	}
	for _, r := range roots {
		if err := emitter.Emit(r); err != nil {
			return nil, err
		}
	}

	p := &Plan{
		Context: gctx,
		Model:   model,
		Emitter: emitter,
		Roots:   roots,
		Rules:   closure(roots),
	}
	for _, f := range loader.Files() {
		p.Descriptors = append(p.Descriptors, path.Join(cfg.SourceRoot, f))
	}
	p.Tests = manifest.BuildTests(p.Rules, model, cfg.Variants)
	p.Publish = manifest.BuildPublish(p.Rules, model, cfg.Variants)
	aliases, err := p.aliases(cfg, opts.ConfigFile)
	if err != nil {
		return nil, err
	}
	p.Actions = append(aliases, emitter.Actions()...)

	logger.Info("generated recipe",
		"targets", len(roots),
		"rules", len(p.Rules),
		"actions", len(p.Actions),
		"packages", len(gctx.Packages()),
	)
	return p, nil
}

// Resolve loads and expands targets without emitting anything. Targets
// are interpreted as by Build.
func Resolve(ctx context.Context, opts Options, targets []string) (*graph.Context, []*graph.Rule, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	gctx, _, roots, err := resolve(ctx, opts, logger, targets)
	return gctx, roots, err
}

func resolve(ctx context.Context, opts Options, logger *log.Logger, targets []string) (*graph.Context, *descriptor.Loader, []*graph.Rule, error) {
	sourceDir := filepath.Join(opts.WorkspaceDir, opts.Config.SourceRoot)
	fsys := os.DirFS(sourceDir)
	loader := descriptor.NewLoader(fsys, descriptor.WithLogger(logger))
	gctx := graph.NewContext(loader, graph.WithLogger(logger))

	if len(targets) == 0 {
		all, err := discoverPackages(fsys)
		if err != nil {
			return nil, nil, nil, err
		}
		targets = all
	}
	roots, err := ResolveTargets(gctx, sourceDir, targets)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, nil, err
	}
	if err := gctx.ExpandAll(roots); err != nil {
		return nil, nil, nil, err
	}
	return gctx, loader, roots, nil
}

// ModelFor returns the artifact path model of cfg.
func ModelFor(cfg *config.Config) artifact.Model {
	return artifact.Model{SourceRoot: cfg.SourceRoot, BuildRoot: cfg.BuildRoot, PublishRoot: cfg.PublishRoot}
}

// ResolveTargets maps command-line targets to rules, loading packages as
// needed. Duplicates keep their first position.
func ResolveTargets(gctx *graph.Context, sourceDir string, targets []string) ([]*graph.Rule, error) {
	var roots []*graph.Rule
	seen := make(map[*graph.Rule]bool)
	add := func(rs ...*graph.Rule) {
		for _, r := range rs {
			if !seen[r] {
				seen[r] = true
				roots = append(roots, r)
			}
		}
	}

	for _, t := range targets {
		if strings.HasPrefix(t, "//") && strings.Contains(t, ":") {
			l, err := graph.ParseLabel(t)
			if err != nil {
				return nil, err
			}
			r, err := gctx.Lookup(l)
			if err != nil {
				return nil, err
			}
			add(r)
			continue
		}

		var pkgPath string
		if strings.HasPrefix(t, "//") {
			clean, err := graph.CleanPackagePath(strings.TrimPrefix(t, "//"))
			if err != nil {
				return nil, err
			}
			pkgPath = clean
		} else {
			rel, err := descriptor.PackagePathFor(sourceDir, t)
			if err != nil {
				return nil, &graph.ConfigurationError{Message: "bad target " + t, Cause: err}
			}
			pkgPath = rel
		}
		p, err := gctx.Package(pkgPath)
		if err != nil {
			return nil, err
		}
		add(p.Rules()...)
	}
	return roots, nil
}

// discoverPackages lists the package of every descriptor under fsys as a
// "//path" target, sorted. A descriptor below another package's directory
// is reported before anything is loaded.
func discoverPackages(fsys fs.FS) ([]string, error) {
	pattern := "**/{" + buildfile.CUEName + "," + buildfile.HCLName + "}"
	files, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("discover packages: %w", err)
	}
	pkgs := make(map[string]bool)
	for _, f := range files {
		dir := path.Dir(f)
		if dir == "." {
			dir = ""
		}
		pkgs[dir] = true
	}
	if len(pkgs) == 0 {
		return nil, &graph.ConfigurationError{
			Message: "no " + buildfile.CUEName + " or " + buildfile.HCLName + " found under the source root",
			Cause:   ErrNoPackages,
		}
	}

	dirs := slices.Sorted(maps.Keys(pkgs))
	out := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		if outer, ok := enclosingPackage(pkgs, dir); ok {
			return nil, &graph.NestedPackageError{Package: outer, Nested: dir}
		}
		out = append(out, "//"+dir)
	}
	return out, nil
}

// enclosingPackage returns the nearest ancestor of dir present in pkgs.
func enclosingPackage(pkgs map[string]bool, dir string) (string, bool) {
	for dir != "" {
		dir = path.Dir(dir)
		if dir == "." {
			dir = ""
		}
		if pkgs[dir] {
			return dir, true
		}
	}
	return "", false
}

func closure(roots []*graph.Rule) []*graph.Rule {
	var out []*graph.Rule
	seen := make(map[*graph.Rule]bool)
	for _, r := range roots {
		for _, n := range graph.Closure(r) {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	return out
}
