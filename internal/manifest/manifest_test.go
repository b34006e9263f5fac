// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"slices"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/mkgen/mkgen/internal/artifact"
	"github.com/mkgen/mkgen/internal/graph"
	"github.com/mkgen/mkgen/internal/testutil"
)

var testModel = artifact.Model{SourceRoot: "src", BuildRoot: "out", PublishRoot: "pub"}

func fixture(t *testing.T) []*graph.Rule {
	t.Helper()
	w := testutil.NewWorkspace(t)
	w.Package("internal/secret", testutil.Private)
	w.Package("vendor/z", testutil.PublishOnly)
	return []*graph.Rule{
		w.Rule("base", graph.KindLibrary, "log", graph.Attributes{Srcs: []string{"log.cc"}, Hdrs: []string{"log.h"}}),
		w.Rule("base", graph.KindTest, "log_test", graph.Attributes{Srcs: []string{"log_test.cc"}, Args: []string{"--v=1"}}),
		w.Rule("base", graph.KindScriptTest, "smoke", graph.Attributes{Srcs: []string{"smoke.sh"}}),
		w.Rule("base", graph.KindData, "tables", graph.Attributes{Srcs: []string{"t.csv"}}),
		w.Rule("base", graph.KindGenRule, "version", graph.Attributes{Srcs: []string{"gen.sh"}, Cmds: []string{"./gen.sh"}}),
		w.Rule("internal/secret", graph.KindLibrary, "keys", graph.Attributes{Srcs: []string{"keys.cc"}}),
		w.Rule("vendor/z", graph.KindLibrary, "z", graph.Attributes{Srcs: []string{"z.c"}}),
	}
}

func TestBuildTests(t *testing.T) {
	t.Parallel()

	m := BuildTests(fixture(t), testModel, []string{"debug", "release"})
	var got []string
	for _, e := range m.Tests {
		got = append(got, e.Path)
	}
	want := []string{
		"out/debug/target/base/log_test/log_test",
		"out/release/target/base/log_test/log_test",
		"src/base/smoke.sh",
	}
	if !slices.Equal(got, want) {
		t.Errorf("test paths = %v, want %v", got, want)
	}
	if !slices.Equal(m.Tests[0].Args, []string{"--v=1"}) {
		t.Errorf("test args = %v", m.Tests[0].Args)
	}
}

func TestBuildPublish(t *testing.T) {
	t.Parallel()

	m := BuildPublish(fixture(t), testModel, []string{"debug"})
	var got []string
	for _, e := range m.Entries {
		got = append(got, e.Source+" -> "+e.Target)
	}
	want := []string{
		"out/debug/target/base/liblog.a -> pub/debug/base/liblog.a",
		"src/base/log.h -> pub/include/base/log.h",
		"src/base/t.csv -> pub/share/base/t.csv",
	}
	if !slices.Equal(got, want) {
		t.Errorf("publish entries =\n%v\nwant\n%v", got, want)
	}
	for _, e := range m.Entries {
		if strings.Contains(e.Rule, "secret") || strings.Contains(e.Rule, "vendor") || e.Rule == "//base:version" {
			t.Errorf("private, publish-only or gen rule published: %s", e.Rule)
		}
	}
}

func TestWrite_Text(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	m := BuildTests(fixture(t), testModel, []string{"debug"})
	if err := Write(&b, FormatText, m); err != nil {
		t.Fatalf("Write: %v", err)
	}
	want := "out/debug/target/base/log_test/log_test --v=1\nsrc/base/smoke.sh\n"
	if b.String() != want {
		t.Errorf("text manifest = %q, want %q", b.String(), want)
	}
}

func TestWrite_StructuredFormats(t *testing.T) {
	t.Parallel()

	m := BuildPublish(fixture(t), testModel, []string{"debug"})

	var tb strings.Builder
	if err := Write(&tb, FormatTOML, m); err != nil {
		t.Fatalf("Write toml: %v", err)
	}
	var fromTOML Publish
	if err := toml.Unmarshal([]byte(tb.String()), &fromTOML); err != nil {
		t.Fatalf("toml output does not parse: %v\n%s", err, tb.String())
	}
	if len(fromTOML.Entries) != len(m.Entries) {
		t.Errorf("toml round trip has %d entries, want %d", len(fromTOML.Entries), len(m.Entries))
	}

	var yb strings.Builder
	if err := Write(&yb, FormatYAML, m); err != nil {
		t.Fatalf("Write yaml: %v", err)
	}
	var fromYAML Publish
	if err := yaml.Unmarshal([]byte(yb.String()), &fromYAML); err != nil {
		t.Fatalf("yaml output does not parse: %v\n%s", err, yb.String())
	}
	if !strings.Contains(yb.String(), "entries:") {
		t.Errorf("yaml output lacks entries key:\n%s", yb.String())
	}
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]Format{"": FormatText, "TOML": FormatTOML, "yaml": FormatYAML} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseFormat("json"); err == nil {
		t.Error("expected an error for json")
	}
}
