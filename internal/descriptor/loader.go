// SPDX-License-Identifier: MPL-2.0

// Package descriptor loads package descriptors from a source tree and
// registers their rules with a graph.Context. It is the graph.Loader used
// by the command line.
package descriptor

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"

	"github.com/mkgen/mkgen/internal/graph"
	"github.com/mkgen/mkgen/pkg/buildfile"
)

// globMeta are the characters that make a srcs entry a pattern.
const globMeta = "*?[{"

type (
	// Option configures a Loader.
	Option func(*Loader)

	// Loader reads BUILD.cue or BUILD.hcl files from fsys. Package path "a/b"
	// maps to directory "a/b"; the root package maps to ".".
	Loader struct {
		fsys   fs.FS
		logger *log.Logger
		// files records the descriptor read for each loaded package.
		files map[string]string
	}
)

// WithLogger sets the logger for load diagnostics.
func WithLogger(logger *log.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLoader returns a Loader reading from fsys.
func NewLoader(fsys fs.FS, opts ...Option) *Loader {
	l := &Loader{fsys: fsys, logger: log.New(io.Discard), files: make(map[string]string)}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Files returns the descriptor files loaded so far, sorted.
func (l *Loader) Files() []string {
	out := make([]string, 0, len(l.files))
	for _, f := range l.files {
		out = append(out, f)
	}
	slices.Sort(out)
	return out
}

// Load implements graph.Loader. A directory without a descriptor yields
// (nil, nil), which the context reports as a missing package.
func (l *Loader) Load(c *graph.Context, pkgPath string) (*graph.Package, error) {
	dir := packageDir(pkgPath)
	file, ok := l.descriptorIn(dir)
	if !ok {
		l.logger.Debug("no descriptor", "package", "//"+pkgPath, "dir", dir)
		return nil, nil
	}
	if outer, ok := l.enclosingPackage(pkgPath); ok {
		return nil, &graph.NestedPackageError{Package: outer, Nested: pkgPath}
	}

	data, err := fs.ReadFile(l.fsys, file)
	if err != nil {
		return nil, &graph.ConfigurationError{Package: pkgPath, Cause: err}
	}
	decl, err := buildfile.Parse(file, data, pkgPath)
	if err != nil {
		return nil, &graph.ConfigurationError{Package: pkgPath, Cause: err}
	}

	p, err := c.RegisterPackage(pkgPath)
	if err != nil {
		return nil, err
	}
	p.Dir = dir
	p.Descriptor = file
	p.Private = decl.Package.Private
	p.PublishOnly = decl.Package.PublishOnly
	l.files[p.Path] = file

	for _, rd := range decl.Rules {
		if err := l.register(p, file, rd); err != nil {
			return nil, err
		}
	}
	l.logger.Debug("loaded package", "package", p.String(), "file", file, "rules", len(decl.Rules))
	return p, nil
}

func (l *Loader) register(p *graph.Package, file string, rd buildfile.Rule) error {
	srcs, err := l.expandFiles(p, rd.Name, "srcs", rd.Srcs)
	if err != nil {
		return err
	}
	hdrs, err := l.expandFiles(p, rd.Name, "hdrs", rd.Hdrs)
	if err != nil {
		return err
	}

	_, err = p.RegisterRule(graph.Kind(rd.Kind), rd.Name, graph.Attributes{
		Srcs:      srcs,
		Hdrs:      hdrs,
		Deps:      rd.Deps,
		Defines:   rd.Defines,
		CFlags:    rd.CFlags,
		LinkFlags: rd.LinkFlags,
		Args:      rd.Args,
		Cmds:      rd.Cmds,
	})
	if err != nil {
		return fmt.Errorf("%s:%d: %w", file, rd.Line, err)
	}
	return nil
}

// expandFiles resolves patterns and checks that explicit files do not
// cross into a nested package. Glob matches inside nested packages are
// dropped; a pattern that matches nothing is an error.
func (l *Loader) expandFiles(p *graph.Package, rule, field string, entries []string) ([]string, error) {
	var out []string
	for _, entry := range entries {
		if !strings.ContainsAny(entry, globMeta) {
			if nested, ok := l.nestedOwner(p, entry); ok {
				return nil, &graph.NestedPackageError{Package: p.Path, Path: entry, Nested: nested}
			}
			out = append(out, entry)
			continue
		}

		if !doublestar.ValidatePattern(entry) {
			return nil, &graph.ConfigurationError{Package: p.Path, Rule: rule, Field: field, Message: fmt.Sprintf("invalid pattern %q", entry)}
		}
		matches, err := doublestar.Glob(l.fsys, path.Join(p.Dir, entry), doublestar.WithFilesOnly())
		if err != nil {
			return nil, &graph.ConfigurationError{Package: p.Path, Rule: rule, Field: field, Cause: err}
		}
		slices.Sort(matches)

		n := 0
		for _, m := range matches {
			rel := relativeTo(p.Dir, m)
			if _, nested := l.nestedOwner(p, rel); nested {
				continue
			}
			if path.Base(rel) == buildfile.CUEName || path.Base(rel) == buildfile.HCLName {
				continue
			}
			out = append(out, rel)
			n++
		}
		if n == 0 {
			return nil, &graph.ConfigurationError{Package: p.Path, Rule: rule, Field: field, Message: fmt.Sprintf("pattern %q matches no files", entry)}
		}
	}
	return out, nil
}

// nestedOwner reports the package that owns rel when a directory between
// the package root and rel holds its own descriptor.
func (l *Loader) nestedOwner(p *graph.Package, rel string) (string, bool) {
	dir := path.Dir(path.Clean(rel))
	var walked []string
	for seg := range strings.SplitSeq(dir, "/") {
		if seg == "." || seg == "" {
			break
		}
		walked = append(walked, seg)
		sub := path.Join(p.Dir, path.Join(walked...))
		if _, ok := l.descriptorIn(sub); ok {
			return path.Join(p.Path, path.Join(walked...)), true
		}
	}
	return "", false
}

// enclosingPackage reports the nearest ancestor directory of pkgPath,
// up to and including the source root, that holds a descriptor.
func (l *Loader) enclosingPackage(pkgPath string) (string, bool) {
	if pkgPath == "" {
		return "", false
	}
	for dir := path.Dir(pkgPath); ; dir = path.Dir(dir) {
		if _, ok := l.descriptorIn(dir); ok {
			if dir == "." {
				return "", true
			}
			return dir, true
		}
		if dir == "." {
			return "", false
		}
	}
}

// descriptorIn returns the descriptor file in dir. CUE is preferred when
// both encodings exist.
func (l *Loader) descriptorIn(dir string) (string, bool) {
	for _, name := range []string{buildfile.CUEName, buildfile.HCLName} {
		f := path.Join(dir, name)
		info, err := fs.Stat(l.fsys, f)
		if err == nil && !info.IsDir() {
			return f, true
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			l.logger.Warn("cannot stat descriptor", "file", f, "error", err)
		}
	}
	return "", false
}

func packageDir(pkgPath string) string {
	if pkgPath == "" {
		return "."
	}
	return pkgPath
}

func relativeTo(dir, p string) string {
	if dir == "." {
		return p
	}
	return strings.TrimPrefix(p, dir+"/")
}
