// SPDX-License-Identifier: MPL-2.0

// Package linkorder computes the transitive export views of resolved rules:
// the archives a consumer must link against, in an order a single-pass
// static linker accepts.
//
// Each view is the rule's own contribution followed by every dependency's
// view in declared order, reduced with StableDedupKeepLast. Views are
// memoized per rule and variant; a Calculator must only be used after the
// graph has been expanded.
package linkorder

import (
	"path"

	"github.com/mkgen/mkgen/internal/artifact"
	"github.com/mkgen/mkgen/internal/graph"
)

// protoHeaderSuffix names headers generated from .proto sources.
const protoHeaderSuffix = ".pb.h"

type (
	// view selects one of the transitive lists.
	view uint8

	viewKey struct {
		view    view
		variant string
		rule    *graph.Rule
	}

	// exportBehaviour describes how a kind takes part in export views.
	exportBehaviour struct {
		// own reports whether the rule contributes its own archive.
		own bool
		// opaque kinds export nothing, not even their dependencies' views.
		opaque bool
	}

	// Calculator derives export views from an expanded graph.
	Calculator struct {
		model artifact.Model
		memo  map[viewKey][]string
	}
)

const (
	viewNames view = iota
	viewPaths
	viewDirs
	viewHeaders
)

// behaviourOf returns the export behaviour for k. Archive kinds contribute
// themselves, linked kinds only aggregate, terminal kinds are opaque.
func behaviourOf(k graph.Kind) exportBehaviour {
	switch {
	case k.IsArchive():
		return exportBehaviour{own: true}
	case k.IsTerminal():
		return exportBehaviour{opaque: true}
	default:
		return exportBehaviour{}
	}
}

// New returns a Calculator resolving paths through model.
func New(model artifact.Model) *Calculator {
	return &Calculator{model: model, memo: make(map[viewKey][]string)}
}

// ExportNames returns the rule names of every archive r links against,
// itself included when r is an archive kind.
func (c *Calculator) ExportNames(r *graph.Rule) []string {
	return c.collect(viewKey{view: viewNames, rule: r})
}

// ExportPaths returns the archive paths r links against in variant.
func (c *Calculator) ExportPaths(r *graph.Rule, variant string) []string {
	return c.collect(viewKey{view: viewPaths, variant: variant, rule: r})
}

// ExportDirs returns the directories holding r's export paths in variant,
// suitable for -L flags.
func (c *Calculator) ExportDirs(r *graph.Rule, variant string) []string {
	return c.collect(viewKey{view: viewDirs, variant: variant, rule: r})
}

// GeneratedHeaders returns the headers generated by proto_library rules in
// r's closure, r included. They are implicit prerequisites of r's compile
// actions.
func (c *Calculator) GeneratedHeaders(r *graph.Rule, variant string) []string {
	return c.collect(viewKey{view: viewHeaders, variant: variant, rule: r})
}

func (c *Calculator) collect(key viewKey) []string {
	if v, ok := c.memo[key]; ok {
		return v
	}

	b := behaviourOf(key.rule.Kind)
	if b.opaque {
		c.memo[key] = nil
		return nil
	}

	var seq []string
	if b.own {
		seq = append(seq, c.own(key)...)
	}
	for _, dep := range key.rule.Resolved() {
		seq = append(seq, c.collect(viewKey{view: key.view, variant: key.variant, rule: dep})...)
	}

	out := StableDedupKeepLast(seq)
	c.memo[key] = out
	return out
}

func (c *Calculator) own(key viewKey) []string {
	r := key.rule
	switch key.view {
	case viewNames:
		return []string{r.Name}
	case viewPaths:
		return []string{c.model.Path(r, key.variant)}
	case viewDirs:
		return []string{path.Dir(c.model.Path(r, key.variant))}
	case viewHeaders:
		if r.Kind != graph.KindProtoLibrary {
			return nil
		}
		hdrs := make([]string, 0, len(r.Attrs.Srcs))
		for _, src := range r.Attrs.Srcs {
			hdrs = append(hdrs, c.model.GeneratedPath(r, key.variant, src, protoHeaderSuffix))
		}
		return hdrs
	}
	return nil
}
