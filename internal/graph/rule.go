// SPDX-License-Identifier: MPL-2.0

package graph

import "slices"

type (
	// Attributes is the typed attribute bag a descriptor supplies for a rule.
	// Which fields matter depends on the rule's Kind.
	Attributes struct {
		// Srcs are package-relative source files.
		Srcs []string
		// Hdrs are package-relative public headers (library kinds).
		Hdrs []string
		// Deps are raw dependency references ("//pkg:name" or ":name").
		Deps []string
		// Defines become -D compile flags.
		Defines []string
		// CFlags are extra compile flags.
		CFlags []string
		// LinkFlags are extra link flags (linked kinds).
		LinkFlags []string
		// Args are arguments recorded for test runners (test kinds).
		Args []string
		// Cmds are shell commands run by gen_rule rules.
		Cmds []string
	}

	// Rule is one declared buildable unit. Kind selects behaviour; Attrs holds
	// the kind-specific payload.
	Rule struct {
		Package *Package
		Name    string
		Kind    Kind
		Attrs   Attributes

		resolved []*Rule
		expanded bool
	}
)

// Label returns the rule's absolute label.
func (r *Rule) Label() Label {
	return Label{Package: r.Package.Path, Name: r.Name}
}

// ID returns the fully-qualified identifier "//package:name".
func (r *Rule) ID() string { return r.Label().String() }

// Deps returns the declared raw dependency references.
func (r *Rule) Deps() []string { return slices.Clone(r.Attrs.Deps) }

// Resolved returns the resolved dependencies in declared order. It is empty
// until the rule has been expanded.
func (r *Rule) Resolved() []*Rule { return r.resolved }

// Expanded reports whether Expand has completed for the rule.
func (r *Rule) Expanded() bool { return r.expanded }

func (r *Rule) String() string { return r.ID() }
