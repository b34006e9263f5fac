// SPDX-License-Identifier: MPL-2.0

// Package dag orders the rules of a resolved build graph. It backs the
// build-order and wave listings of "mkgen deps".
package dag

import (
	"fmt"
	"strings"

	"github.com/mkgen/mkgen/internal/graph"
)

type (
	// CycleError reports nodes that could not be ordered. It wraps
	// graph.ErrCyclicDependency.
	CycleError struct {
		// Cycle lists the unordered nodes in insertion order: every cycle
		// member plus anything downstream of one.
		Cycle []string
	}

	// Graph is a directed graph keyed by rule id. An edge from A to B means
	// A must be built before B.
	Graph struct {
		adjacency map[string][]string
		// nodes keeps insertion order for deterministic output.
		nodes   []string
		nodeSet map[string]bool
	}
)

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Cycle, " -> "))
}

func (e *CycleError) Unwrap() error { return graph.ErrCyclicDependency }

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		adjacency: make(map[string][]string),
		nodeSet:   make(map[string]bool),
	}
}

// FromRules builds the graph of the transitive closure of roots, which
// must be expanded. Nodes are added depth-first in declaration order, so
// leaves appear before the rules that need them.
func FromRules(roots []*graph.Rule) *Graph {
	g := New()
	visited := make(map[*graph.Rule]bool)
	var visit func(r *graph.Rule)
	visit = func(r *graph.Rule) {
		if visited[r] {
			return
		}
		visited[r] = true
		for _, dep := range r.Resolved() {
			visit(dep)
		}
		g.AddNode(r.ID())
		for _, dep := range r.Resolved() {
			g.AddEdge(dep.ID(), r.ID())
		}
	}
	for _, r := range roots {
		visit(r)
	}
	return g
}

// AddNode adds a node; existing nodes are left alone.
func (g *Graph) AddNode(name string) {
	if g.nodeSet[name] {
		return
	}
	g.nodeSet[name] = true
	g.nodes = append(g.nodes, name)
}

// AddEdge adds from -> to, adding either node if needed. Repeated edges
// are ignored.
func (g *Graph) AddEdge(from, to string) {
	g.AddNode(from)
	g.AddNode(to)
	for _, n := range g.adjacency[from] {
		if n == to {
			return
		}
	}
	g.adjacency[from] = append(g.adjacency[from], to)
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// TopologicalSort returns a build order using Kahn's algorithm. Nodes that
// become ready together keep their insertion order.
func (g *Graph) TopologicalSort() ([]string, error) {
	levels, err := g.Levels()
	if err != nil {
		return nil, err
	}
	var order []string
	for _, level := range levels {
		order = append(order, level...)
	}
	return order, nil
}

// Levels groups nodes into waves: every node's predecessors sit in earlier
// waves, so the members of one wave can be built concurrently.
func (g *Graph) Levels() ([][]string, error) {
	if len(g.nodes) == 0 {
		return nil, nil
	}

	inDegree := make(map[string]int, len(g.nodes))
	for _, neighbors := range g.adjacency {
		for _, n := range neighbors {
			inDegree[n]++
		}
	}

	var current []string
	for _, node := range g.nodes {
		if inDegree[node] == 0 {
			current = append(current, node)
		}
	}

	var levels [][]string
	placed := 0
	for len(current) > 0 {
		levels = append(levels, current)
		placed += len(current)
		ready := make(map[string]bool)
		for _, node := range current {
			for _, n := range g.adjacency[node] {
				inDegree[n]--
				if inDegree[n] == 0 {
					ready[n] = true
				}
			}
		}
		var next []string
		for _, node := range g.nodes {
			if ready[node] {
				next = append(next, node)
			}
		}
		current = next
	}

	if placed != len(g.nodes) {
		var cycleNodes []string
		for _, node := range g.nodes {
			if inDegree[node] > 0 {
				cycleNodes = append(cycleNodes, node)
			}
		}
		return nil, &CycleError{Cycle: cycleNodes}
	}
	return levels, nil
}
