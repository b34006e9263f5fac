// SPDX-License-Identifier: MPL-2.0

package graph

import "testing"

type (
	// ruleDecl is a compact rule declaration for in-memory packages.
	ruleDecl struct {
		kind Kind
		name string
		srcs []string
		deps []string
	}

	// memLoader serves packages from a map and records load order.
	memLoader struct {
		pkgs  map[string][]ruleDecl
		loads []string
	}
)

func (m *memLoader) Load(c *Context, path string) (*Package, error) {
	decls, ok := m.pkgs[path]
	if !ok {
		return nil, nil
	}
	m.loads = append(m.loads, path)
	p, err := c.RegisterPackage(path)
	if err != nil {
		return nil, err
	}
	for _, d := range decls {
		srcs := d.srcs
		if srcs == nil {
			srcs = []string{d.name + ".cc"}
		}
		if _, err := p.RegisterRule(d.kind, d.name, Attributes{Srcs: srcs, Deps: d.deps}); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func lib(name string, deps ...string) ruleDecl {
	return ruleDecl{kind: KindLibrary, name: name, deps: deps}
}

func bin(name string, deps ...string) ruleDecl {
	return ruleDecl{kind: KindBinary, name: name, deps: deps}
}

func mustLookup(t *testing.T, c *Context, label string) *Rule {
	t.Helper()
	l, err := ParseLabel(label)
	if err != nil {
		t.Fatalf("ParseLabel(%q): %v", label, err)
	}
	r, err := c.Lookup(l)
	if err != nil {
		t.Fatalf("Lookup(%q): %v", label, err)
	}
	return r
}

func resolvedIDs(r *Rule) []string {
	ids := make([]string, 0, len(r.Resolved()))
	for _, d := range r.Resolved() {
		ids = append(ids, d.ID())
	}
	return ids
}
