// SPDX-License-Identifier: MPL-2.0

// Package recipe turns an expanded build graph into a prerequisite-annotated
// action list and writes it in make-compatible form.
//
// # File Organization
//
//   - action.go: Action and ActionKind
//   - emitter.go: Emitter, global memoization and the traversal
//   - shapes.go: per-kind action shapes (compile, archive, link, generate, verify, stamp, symlink)
//   - writer.go: make-compatible serialization with POSIX shell quoting
package recipe
