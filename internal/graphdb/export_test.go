// SPDX-License-Identifier: MPL-2.0

package graphdb

import (
	"context"
	"path/filepath"
	"slices"
	"testing"

	"github.com/mkgen/mkgen/internal/artifact"
	"github.com/mkgen/mkgen/internal/graph"
	"github.com/mkgen/mkgen/internal/recipe"
	"github.com/mkgen/mkgen/internal/testutil"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "graph.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return s
}

// snapshot builds base <- log <- app plus an unreferenced tool rule and
// emits app in variant opt.
func snapshot(t *testing.T) Snapshot {
	t.Helper()

	ws := testutil.NewWorkspace(t)
	ws.Lib("base", "base")
	ws.Lib("log", "log", "//base:base")
	app := ws.Bin("app", "app", "//log:log")
	ws.Bin("app", "tool")
	ws.Expand(app)

	e, err := recipe.NewEmitter(recipe.Options{
		Model:     artifact.Model{SourceRoot: ".", BuildRoot: "out", PublishRoot: "pub"},
		Variants:  []string{"opt"},
		Toolchain: recipe.DefaultToolchain(),
	})
	if err != nil {
		t.Fatalf("NewEmitter() error = %v", err)
	}
	if err := e.Emit(app); err != nil {
		t.Fatalf("Emit() error = %v", err)
	}
	return Snapshot{
		Packages: ws.Ctx.Packages(),
		Actions:  e.Actions(),
		Variants: e.Variants(),
		Exports:  e.Calculator().ExportPaths,
	}
}

func TestExport(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)
	snap := snapshot(t)

	counts, err := s.Export(ctx, snap)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	want := Counts{Packages: 3, Rules: 4, Edges: 2, Actions: len(snap.Actions)}
	counts.Exports = 0
	if counts != want {
		t.Errorf("Export() counts = %+v, want %+v", counts, want)
	}

	deps, err := s.Dependencies(ctx, "//app:app")
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(deps, []string{"//log:log"}) {
		t.Errorf("Dependencies(//app:app) = %v", deps)
	}

	up, err := s.Dependents(ctx, "//base:base")
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(up, []string{"//app:app", "//log:log"}) {
		t.Errorf("Dependents(//base:base) = %v", up)
	}

	exports, err := s.ExportList(ctx, "//app:app", "opt")
	if err != nil {
		t.Fatal(err)
	}
	wantExports := []string{"out/opt/target/log/liblog.a", "out/opt/target/base/libbase.a"}
	if !slices.Equal(exports, wantExports) {
		t.Errorf("ExportList(//app:app) = %v, want %v", exports, wantExports)
	}

	kind, rule, ok, err := s.Producer(ctx, "out/opt/target/app/app/app")
	if err != nil || !ok {
		t.Fatalf("Producer() = %v, %v", ok, err)
	}
	if kind != string(recipe.ActionLink) || rule != "//app:app" {
		t.Errorf("Producer() = %s %s, want link //app:app", kind, rule)
	}
	if _, _, ok, _ := s.Producer(ctx, "out/opt/target/app/tool/tool"); ok {
		t.Error("the unreferenced tool rule should have no action")
	}
}

func TestExport_ReplacesPreviousContents(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)
	snap := snapshot(t)

	first, err := s.Export(ctx, snap)
	if err != nil {
		t.Fatalf("first Export() error = %v", err)
	}
	second, err := s.Export(ctx, snap)
	if err != nil {
		t.Fatalf("second Export() error = %v", err)
	}
	if first != second {
		t.Errorf("counts differ: %+v vs %+v", first, second)
	}
	up, err := s.Dependents(ctx, "//log:log")
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(up, []string{"//app:app"}) {
		t.Errorf("Dependents(//log:log) after re-export = %v", up)
	}
}

func TestExport_DanglingEdge(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	snap := snapshot(t)
	var appOnly []*graph.Package
	for _, p := range snap.Packages {
		if p.Path == "app" {
			appOnly = append(appOnly, p)
		}
	}
	snap.Packages = appOnly

	if _, err := s.Export(context.Background(), snap); err == nil {
		t.Fatal("Export() error = nil for an edge leaving the snapshot")
	}
	// The failed export leaves nothing behind.
	deps, err := s.Dependencies(context.Background(), "//app:app")
	if err != nil {
		t.Fatal(err)
	}
	if len(deps) != 0 {
		t.Errorf("Dependencies() = %v after rollback", deps)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	if err := s.Migrate(context.Background()); err != nil {
		t.Errorf("second Migrate() error = %v", err)
	}
}
