// SPDX-License-Identifier: MPL-2.0

// Package buildfile parses package descriptors.
//
// A descriptor is purely declarative: optional package flags and an ordered
// list of typed rule declarations. Two encodings are accepted,
// BUILD.cue (validated against an embedded CUE schema) and BUILD.hcl (one
// block per rule, labelled with the rule name). Both decode to the same
// File value, so a package can switch encodings without changing its graph.
//
// Neither encoding can run host code. HCL expressions may reference the
// read-only package object (package.path, package.name).
package buildfile
