// SPDX-License-Identifier: MPL-2.0

package graph

import (
	"errors"
	"slices"
)

// Expand resolves r's declared references into its resolved dependency list,
// depth-first in declared order. Referenced packages are loaded on demand.
// A rule that has already been expanded is not walked again, so diamonds
// cost one expansion per rule.
func (c *Context) Expand(r *Rule) error {
	if r.expanded {
		return nil
	}

	id := r.ID()
	c.stack = append(c.stack, id)
	defer func() { c.stack = c.stack[:len(c.stack)-1] }()
	c.expansions++

	resolved := make([]*Rule, 0, len(r.Attrs.Deps))
	for _, ref := range r.Attrs.Deps {
		dep, err := c.resolveRef(r, ref)
		if err != nil {
			return err
		}
		if i := slices.Index(c.stack, dep.ID()); i >= 0 {
			chain := append(slices.Clone(c.stack), dep.ID())
			c.logger.Debug("dependency cycle", "rule", id, "dep", dep.ID())
			return &CycleError{Chain: chain}
		}
		if err := c.Expand(dep); err != nil {
			return err
		}
		resolved = append(resolved, dep)
	}

	r.resolved = resolved
	r.expanded = true
	c.logger.Debug("expanded rule", "rule", id, "deps", len(resolved))
	return nil
}

// ExpandAll expands every rule in roots, stopping at the first error.
func (c *Context) ExpandAll(roots []*Rule) error {
	for _, r := range roots {
		if err := c.Expand(r); err != nil {
			return err
		}
	}
	return nil
}

// resolveRef turns one raw reference of from into a rule.
func (c *Context) resolveRef(from *Rule, ref string) (*Rule, error) {
	l, err := ParseLabel(ref)
	if err != nil {
		return nil, withReferrer(err, from)
	}
	pkg := from.Package
	if !l.IsRelative() {
		pkg, err = c.Package(l.Package)
		if err != nil {
			var refErr *ReferenceError
			if errors.As(err, &refErr) && refErr.Reason == ReasonPackageNotFound {
				return nil, &ReferenceError{
					Reason:  ReasonPackageNotFound,
					Ref:     ref,
					From:    from.ID(),
					Package: l.Package,
					Cause:   refErr.Cause,
				}
			}
			return nil, err
		}
	}
	dep, ok := pkg.Rule(l.Name)
	if !ok {
		return nil, &ReferenceError{Reason: ReasonRuleNotFound, Ref: ref, From: from.ID(), Package: pkg.Path}
	}
	return dep, nil
}

func withReferrer(err error, from *Rule) error {
	var refErr *ReferenceError
	if errors.As(err, &refErr) && refErr.From == "" {
		refErr.From = from.ID()
	}
	return err
}

// Closure returns r and every rule it transitively depends on, dependencies
// before dependents, each rule once. r must already be expanded.
func Closure(r *Rule) []*Rule {
	var (
		out  []*Rule
		seen = make(map[*Rule]bool)
		walk func(*Rule)
	)
	walk = func(n *Rule) {
		if seen[n] {
			return
		}
		seen[n] = true
		for _, dep := range n.resolved {
			walk(dep)
		}
		out = append(out, n)
	}
	walk(r)
	return out
}
