// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"testing"

	"github.com/mkgen/mkgen/internal/graph"
)

// Workspace registers packages and rules directly on a graph.Context
// without a loader, for tests that need a resolved graph but not the
// descriptor parser.
type Workspace struct {
	t    testing.TB
	Ctx  *graph.Context
	pkgs map[string]*graph.Package
}

// PackageOption adjusts a package created by a Workspace.
type PackageOption func(*graph.Package)

// Private marks the package private.
func Private(p *graph.Package) { p.Private = true }

// PublishOnly marks the package publish-only.
func PublishOnly(p *graph.Package) { p.PublishOnly = true }

// NewWorkspace returns an empty workspace backed by a fresh context.
func NewWorkspace(t testing.TB) *Workspace {
	t.Helper()
	return &Workspace{t: t, Ctx: graph.NewContext(nil), pkgs: make(map[string]*graph.Package)}
}

// Package returns the package at path, registering it on first use. Options
// apply on every call.
func (w *Workspace) Package(path string, opts ...PackageOption) *graph.Package {
	w.t.Helper()
	p, ok := w.pkgs[path]
	if !ok {
		var err error
		if p, err = w.Ctx.RegisterPackage(path); err != nil {
			w.t.Fatalf("RegisterPackage(%q): %v", path, err)
		}
		w.pkgs[path] = p
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Rule registers a rule in the package at pkgPath.
func (w *Workspace) Rule(pkgPath string, kind graph.Kind, name string, attrs graph.Attributes) *graph.Rule {
	w.t.Helper()
	r, err := w.Package(pkgPath).RegisterRule(kind, name, attrs)
	if err != nil {
		w.t.Fatalf("RegisterRule(%s, %q): %v", kind, name, err)
	}
	return r
}

// Lib registers a library with a single <name>.cc source.
func (w *Workspace) Lib(pkgPath, name string, deps ...string) *graph.Rule {
	w.t.Helper()
	return w.Rule(pkgPath, graph.KindLibrary, name, graph.Attributes{Srcs: []string{name + ".cc"}, Deps: deps})
}

// Bin registers a binary with a single <name>.cc source.
func (w *Workspace) Bin(pkgPath, name string, deps ...string) *graph.Rule {
	w.t.Helper()
	return w.Rule(pkgPath, graph.KindBinary, name, graph.Attributes{Srcs: []string{name + ".cc"}, Deps: deps})
}

// Expand resolves every root and fails the test on error.
func (w *Workspace) Expand(roots ...*graph.Rule) {
	w.t.Helper()
	if err := w.Ctx.ExpandAll(roots); err != nil {
		w.t.Fatalf("ExpandAll: %v", err)
	}
}
