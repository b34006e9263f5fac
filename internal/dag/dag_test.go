// SPDX-License-Identifier: MPL-2.0

package dag

import (
	"errors"
	"slices"
	"testing"

	"github.com/mkgen/mkgen/internal/graph"
	"github.com/mkgen/mkgen/internal/testutil"
)

func TestTopologicalSort(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		edges [][2]string
		nodes []string
		want  []string
	}{
		{name: "empty", want: nil},
		{name: "single node", nodes: []string{"a"}, want: []string{"a"}},
		{name: "chain", edges: [][2]string{{"a", "b"}, {"b", "c"}}, want: []string{"a", "b", "c"}},
		{
			name:  "diamond",
			edges: [][2]string{{"a", "b"}, {"a", "c"}, {"b", "d"}, {"c", "d"}},
			want:  []string{"a", "b", "c", "d"},
		},
		{
			name:  "disconnected keeps insertion order",
			nodes: []string{"z", "y"},
			edges: [][2]string{{"a", "b"}},
			want:  []string{"z", "y", "a", "b"},
		},
		{name: "duplicate edges", edges: [][2]string{{"a", "b"}, {"a", "b"}}, want: []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			g := New()
			for _, n := range tt.nodes {
				g.AddNode(n)
			}
			for _, e := range tt.edges {
				g.AddEdge(e[0], e[1])
			}
			got, err := g.TopologicalSort()
			if err != nil {
				t.Fatalf("TopologicalSort() error = %v", err)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("TopologicalSort() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLevels(t *testing.T) {
	t.Parallel()

	g := New()
	g.AddEdge("base", "log")
	g.AddEdge("base", "net")
	g.AddEdge("log", "app")
	g.AddEdge("net", "app")
	g.AddNode("docs")

	levels, err := g.Levels()
	if err != nil {
		t.Fatalf("Levels() error = %v", err)
	}
	want := [][]string{{"base", "docs"}, {"log", "net"}, {"app"}}
	if !slices.EqualFunc(levels, want, slices.Equal[[]string]) {
		t.Errorf("Levels() = %v, want %v", levels, want)
	}
}

func TestCycles(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		edges   [][2]string
		minSize int
	}{
		{name: "self loop", edges: [][2]string{{"a", "a"}}, minSize: 1},
		{name: "two nodes", edges: [][2]string{{"a", "b"}, {"b", "a"}}, minSize: 2},
		{name: "three nodes", edges: [][2]string{{"a", "b"}, {"b", "c"}, {"c", "a"}}, minSize: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			g := New()
			for _, e := range tt.edges {
				g.AddEdge(e[0], e[1])
			}
			_, err := g.TopologicalSort()
			var cycleErr *CycleError
			if !errors.As(err, &cycleErr) {
				t.Fatalf("TopologicalSort() error = %v, want *CycleError", err)
			}
			if len(cycleErr.Cycle) < tt.minSize {
				t.Errorf("Cycle = %v, want at least %d nodes", cycleErr.Cycle, tt.minSize)
			}
			if !errors.Is(err, graph.ErrCyclicDependency) {
				t.Error("errors.Is(err, graph.ErrCyclicDependency) = false")
			}
		})
	}
}

func TestCycleError_Message(t *testing.T) {
	t.Parallel()

	err := &CycleError{Cycle: []string{"//a:x", "//b:y"}}
	if got, want := err.Error(), "dependency cycle detected: //a:x -> //b:y"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestFromRules(t *testing.T) {
	t.Parallel()

	ws := testutil.NewWorkspace(t)
	ws.Lib("base", "base")
	ws.Lib("log", "log", "//base:base")
	ws.Lib("net", "net", "//base:base")
	app := ws.Bin("app", "app", "//log:log", "//net:net")
	tool := ws.Bin("tool", "tool", "//log:log")
	ws.Expand(app, tool)

	g := FromRules([]*graph.Rule{app, tool})
	if g.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", g.Len())
	}
	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("TopologicalSort() error = %v", err)
	}
	want := []string{"//base:base", "//log:log", "//net:net", "//app:app", "//tool:tool"}
	if !slices.Equal(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}

	levels, err := g.Levels()
	if err != nil {
		t.Fatalf("Levels() error = %v", err)
	}
	wantLevels := [][]string{{"//base:base"}, {"//log:log", "//net:net"}, {"//app:app", "//tool:tool"}}
	if !slices.EqualFunc(levels, wantLevels, slices.Equal[[]string]) {
		t.Errorf("Levels() = %v, want %v", levels, wantLevels)
	}
}
