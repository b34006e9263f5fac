// SPDX-License-Identifier: MPL-2.0

// Package graph holds the build graph: packages, rules, and the resolver that
// turns each rule's declared dependency references into resolved rules.
//
// All mutable state of a resolution pass lives in a Context: the package
// table, the loader used to populate packages on first reference, and the
// stack of rules currently being expanded. A Context is not safe for
// concurrent use; build one per run.
//
// File organization:
//   - kind.go: the closed set of rule kinds and their traits
//   - label.go: dependency reference grammar
//   - errors.go: error taxonomy shared by loader, registry and resolver
//   - package.go, rule.go: the registry (per-package ordered rules)
//   - context.go: resolution context and lazy package loading
//   - resolve.go: expansion, cycle detection and closures
package graph
