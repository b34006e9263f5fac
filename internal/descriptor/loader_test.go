// SPDX-License-Identifier: MPL-2.0

package descriptor

import (
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/mkgen/mkgen/internal/graph"
	"github.com/mkgen/mkgen/pkg/buildfile"
)

func file(s string) *fstest.MapFile { return &fstest.MapFile{Data: []byte(s)} }

func lookup(t *testing.T, c *graph.Context, label string) *graph.Rule {
	t.Helper()
	l, err := graph.ParseLabel(label)
	if err != nil {
		t.Fatalf("ParseLabel(%q): %v", label, err)
	}
	r, err := c.Lookup(l)
	if err != nil {
		t.Fatalf("Lookup(%q): %v", label, err)
	}
	return r
}

func TestLoader_LazyCrossPackage(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"A/BUILD.cue": file(`rules: [{kind: "library", name: "core", srcs: ["a.cc"]}]`),
		"A/a.cc":      file(""),
		"B/BUILD.hcl": file(`binary "app" {
  srcs = ["app.cc"]
  deps = ["//A:core"]
}`),
		"B/app.cc":       file(""),
		"C/BUILD.cue":    file(`rules: []`),
		"unused/BUILD.x": file(""),
	}
	l := NewLoader(fsys)
	c := graph.NewContext(l)

	app := lookup(t, c, "//B:app")
	if err := c.Expand(app); err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if got := app.Resolved(); len(got) != 1 || got[0].ID() != "//A:core" {
		t.Errorf("resolved = %v, want [//A:core]", got)
	}
	if got, want := l.Files(), []string{"A/BUILD.cue", "B/BUILD.hcl"}; !slices.Equal(got, want) {
		t.Errorf("Files() = %v, want %v (C must not be loaded)", got, want)
	}
}

func TestLoader_PrefersCUE(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"p/BUILD.cue": file(`rules: [{kind: "library", name: "fromcue", srcs: ["x.cc"]}]`),
		"p/BUILD.hcl": file(`library "fromhcl" { srcs = ["x.cc"] }`),
	}
	c := graph.NewContext(NewLoader(fsys))
	p, err := c.Package("p")
	if err != nil {
		t.Fatalf("Package: %v", err)
	}
	if _, ok := p.Rule("fromcue"); !ok {
		t.Error("expected the CUE descriptor to win")
	}
}

func TestLoader_PackageFlags(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"vendor/z/BUILD.cue": file("publish_only: true\nprivate: true\nrules: [{kind: \"library\", name: \"z\", srcs: [\"z.c\"]}]"),
	}
	c := graph.NewContext(NewLoader(fsys))
	p, err := c.Package("vendor/z")
	if err != nil {
		t.Fatalf("Package: %v", err)
	}
	if !p.PublishOnly || !p.Private || p.Dir != "vendor/z" {
		t.Errorf("package = %+v", p)
	}
}

func TestLoader_Globs(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"net/BUILD.cue":      file(`rules: [{kind: "library", name: "net", srcs: ["**/*.cc"], hdrs: ["*.h"]}]`),
		"net/socket.cc":      file(""),
		"net/http/client.cc": file(""),
		"net/http/client.h":  file(""),
		"net/net.h":          file(""),
		"net/tls/BUILD.cue":  file(`rules: []`),
		"net/tls/tls.cc":     file(""),
	}
	c := graph.NewContext(NewLoader(fsys))
	r := lookup(t, c, "//net:net")

	if want := []string{"http/client.cc", "socket.cc"}; !slices.Equal(r.Attrs.Srcs, want) {
		t.Errorf("srcs = %v, want %v (nested package files dropped)", r.Attrs.Srcs, want)
	}
	if want := []string{"net.h"}; !slices.Equal(r.Attrs.Hdrs, want) {
		t.Errorf("hdrs = %v, want %v", r.Attrs.Hdrs, want)
	}
}

func TestLoader_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		fsys     fstest.MapFS
		label    string
		sentinel error
		contains string
	}{
		{
			name:     "missing package",
			fsys:     fstest.MapFS{"other/BUILD.cue": file("rules: []")},
			label:    "//nowhere:x",
			sentinel: graph.ErrPackageNotFound,
		},
		{
			name:     "schema error",
			fsys:     fstest.MapFS{"p/BUILD.cue": file(`rules: [{kind: "gadget", name: "x"}]`)},
			label:    "//p:x",
			sentinel: graph.ErrConfiguration,
			contains: "kind",
		},
		{
			name:     "hcl syntax error",
			fsys:     fstest.MapFS{"p/BUILD.hcl": file(`library "x" {`)},
			label:    "//p:x",
			sentinel: graph.ErrConfiguration,
			contains: "BUILD.hcl",
		},
		{
			name: "duplicate rule",
			fsys: fstest.MapFS{"p/BUILD.hcl": file(`library "x" { srcs = ["a.cc"] }
binary "x" { srcs = ["b.cc"] }`)},
			label:    "//p:x",
			sentinel: graph.ErrDuplicateRuleName,
			contains: "p/BUILD.hcl:2",
		},
		{
			name: "nested package source",
			fsys: fstest.MapFS{
				"p/BUILD.cue":     file(`rules: [{kind: "library", name: "x", srcs: ["sub/x.cc"]}]`),
				"p/sub/BUILD.hcl": file(""),
			},
			label:    "//p:x",
			sentinel: graph.ErrNestedPackage,
			contains: "//p/sub",
		},
		{
			name:     "empty glob",
			fsys:     fstest.MapFS{"p/BUILD.cue": file(`rules: [{kind: "library", name: "x", srcs: ["*.cc"]}]`)},
			label:    "//p:x",
			sentinel: graph.ErrConfiguration,
			contains: "matches no files",
		},
		{
			name:     "missing sources",
			fsys:     fstest.MapFS{"p/BUILD.cue": file(`rules: [{kind: "binary", name: "x"}]`)},
			label:    "//p:x",
			sentinel: graph.ErrConfiguration,
			contains: "at least one source",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := graph.NewContext(NewLoader(tt.fsys))
			l, err := graph.ParseLabel(tt.label)
			if err != nil {
				t.Fatalf("ParseLabel: %v", err)
			}
			_, err = c.Lookup(l)
			if !errors.Is(err, tt.sentinel) {
				t.Fatalf("expected %v, got %v", tt.sentinel, err)
			}
			if tt.contains != "" && !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("error %q does not mention %q", err, tt.contains)
			}
		})
	}
}

func TestLoader_NestedPackages(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		fsys   fstest.MapFS
		pkg    string
		parent string
	}{
		{
			name: "direct parent",
			fsys: fstest.MapFS{
				"a/BUILD.cue":   file(`rules: [{kind: "library", name: "a", srcs: ["a.cc"]}]`),
				"a/b/BUILD.cue": file(`rules: [{kind: "library", name: "b", srcs: ["b.cc"]}]`),
			},
			pkg:    "a/b",
			parent: "a",
		},
		{
			name: "distant ancestor",
			fsys: fstest.MapFS{
				"a/BUILD.hcl":     file(`library "a" { srcs = ["a.cc"] }`),
				"a/b/c/BUILD.cue": file(`rules: [{kind: "library", name: "c", srcs: ["c.cc"]}]`),
			},
			pkg:    "a/b/c",
			parent: "a",
		},
		{
			name: "root package",
			fsys: fstest.MapFS{
				"BUILD.cue":     file(`rules: [{kind: "library", name: "top", srcs: ["top.cc"]}]`),
				"lib/BUILD.cue": file(`rules: [{kind: "library", name: "lib", srcs: ["lib.cc"]}]`),
			},
			pkg:    "lib",
			parent: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := graph.NewContext(NewLoader(tt.fsys))
			_, err := c.Package(tt.pkg)

			var nested *graph.NestedPackageError
			if !errors.As(err, &nested) {
				t.Fatalf("Package(%q): expected *NestedPackageError, got %v", tt.pkg, err)
			}
			if nested.Package != tt.parent || nested.Nested != tt.pkg {
				t.Errorf("error = %+v, want parent %q nested %q", nested, tt.parent, tt.pkg)
			}
			if !strings.Contains(err.Error(), "cannot be nested") {
				t.Errorf("error %q does not explain the nesting", err)
			}
		})
	}
}

func TestLoader_OuterPackageLoads(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"a/BUILD.cue":   file(`rules: [{kind: "library", name: "a", srcs: ["a.cc"]}]`),
		"a/b/BUILD.cue": file(`rules: []`),
	}
	c := graph.NewContext(NewLoader(fsys))
	p, err := c.Package("a")
	if err != nil {
		t.Fatalf("Package(a): %v", err)
	}
	if p.Descriptor != "a/BUILD.cue" {
		t.Errorf("Descriptor = %q, want a/BUILD.cue", p.Descriptor)
	}
}

func TestLoader_KindsMatchGraph(t *testing.T) {
	t.Parallel()

	var graphKinds []string
	for _, k := range graph.Kinds() {
		graphKinds = append(graphKinds, string(k))
	}
	declared := slices.Sorted(slices.Values(buildfile.Kinds))
	if !slices.Equal(declared, graphKinds) {
		t.Errorf("descriptor kinds %v differ from graph kinds %v", declared, graphKinds)
	}
}

func TestPackagePathFor(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	tests := []struct {
		arg     string
		want    string
		wantErr bool
	}{
		{arg: root, want: ""},
		{arg: filepath.Join(root, "base", "log"), want: "base/log"},
		{arg: filepath.Join(root, "base", "log", "BUILD.cue"), want: "base/log"},
		{arg: filepath.Join(root, "net", "BUILD.hcl"), want: "net"},
		{arg: filepath.Dir(root), wantErr: true},
	}
	for _, tt := range tests {
		got, err := PackagePathFor(root, tt.arg)
		if tt.wantErr {
			if err == nil {
				t.Errorf("PackagePathFor(%q) expected an error", tt.arg)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("PackagePathFor(%q) = %q, %v; want %q", tt.arg, got, err, tt.want)
		}
	}
}
