// SPDX-License-Identifier: MPL-2.0

package recipe

import (
	"strings"
	"testing"
)

func TestWrite(t *testing.T) {
	t.Parallel()

	actions := []Action{
		Alias("all", []string{"out/app"}),
		{
			Kind:     ActionLink,
			Outputs:  []string{"out/app"},
			Prereqs:  []string{"out/app.o", "out/libcore.a"},
			Commands: [][]string{{"c++", "-o", "out/app", "out/app.o", "out/libcore.a"}},
		},
		{
			Kind:    ActionGenerate,
			Outputs: []string{"gen/a.pb.cc", "gen/a.pb.h"},
			Prereqs: []string{"src/a.proto"},
		},
	}

	var b strings.Builder
	if err := Write(&b, actions); err != nil {
		t.Fatalf("Write: %v", err)
	}

	want := Header + "\n" +
		"\n.PHONY: all\n" +
		"\nall: out/app\n" +
		"\nout/app: out/app.o out/libcore.a\n" +
		"\tc++ -o out/app out/app.o out/libcore.a\n" +
		"\ngen/a.pb.cc gen/a.pb.h: src/a.proto\n"
	if got := b.String(); got != want {
		t.Errorf("Write output mismatch\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestWrite_RejectsActionWithoutOutputs(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	if err := Write(&b, []Action{{Kind: ActionStamp, Rule: "//p:x"}}); err == nil {
		t.Error("expected an error for an action without outputs")
	}
}

func TestCommandLine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		argv []string
		want string
	}{
		{name: "plain", argv: []string{"cc", "-c", "src/a.cc", "-o", "out/a.o"}, want: "cc -c src/a.cc -o out/a.o"},
		{name: "space", argv: []string{"touch", "out/a b"}, want: "touch 'out/a b'"},
		{name: "dollar escaped for make", argv: []string{"echo", "$HOME"}, want: "echo '$$HOME'"},
		{name: "empty argument", argv: []string{"printf", ""}, want: "printf ''"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := CommandLine(tt.argv)
			if err != nil {
				t.Fatalf("CommandLine: %v", err)
			}
			if got != tt.want {
				t.Errorf("CommandLine(%q) = %q, want %q", tt.argv, got, tt.want)
			}
		})
	}
}

func TestJoinTargets_EscapesMakeMetacharacters(t *testing.T) {
	t.Parallel()

	got := joinTargets([]string{"out/a b.o", "out/$x", "out/#1"})
	want := `out/a\ b.o out/$$x out/\#1`
	if got != want {
		t.Errorf("joinTargets = %q, want %q", got, want)
	}
}
