// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"io/fs"
	"strings"
	"testing"
)

func TestActionableError_Error(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  *ActionableError
		want string
	}{
		{
			name: "operation only",
			err:  &ActionableError{Operation: "load config"},
			want: "failed to load config",
		},
		{
			name: "with resource",
			err:  &ActionableError{Operation: "load config", Resource: "mkgen.cue"},
			want: "failed to load config: mkgen.cue",
		},
		{
			name: "with cause",
			err:  &ActionableError{Operation: "write recipe", Cause: errors.New("disk full")},
			want: "failed to write recipe: disk full",
		},
		{
			name: "full context",
			err: &ActionableError{
				Operation: "write recipe",
				Resource:  "build/Makefile",
				Cause:     errors.New("disk full"),
			},
			want: "failed to write recipe: build/Makefile: disk full",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestActionableError_Unwrap(t *testing.T) {
	t.Parallel()

	err := WrapWithContext(fs.ErrPermission, "write recipe", "build/Makefile")
	if !errors.Is(err, fs.ErrPermission) {
		t.Errorf("errors.Is(%v, fs.ErrPermission) = false", err)
	}
	var ae *ActionableError
	if !errors.As(err, &ae) {
		t.Fatalf("errors.As failed for %T", err)
	}
	if ae.Resource != "build/Makefile" {
		t.Errorf("Resource = %q", ae.Resource)
	}
}

func TestWrapWithContext_Nil(t *testing.T) {
	t.Parallel()

	if err := WrapWithContext(nil, "write recipe", "x"); err != nil {
		t.Errorf("WrapWithContext(nil) = %v, want nil", err)
	}
}

func TestActionableError_Format(t *testing.T) {
	t.Parallel()

	inner := errors.New("no such file")
	err := &ActionableError{
		Operation:   "load config",
		Resource:    "mkgen.cue",
		Suggestions: []string{"Run 'mkgen config show'", "Check MKGEN_* variables"},
		Cause:       &ActionableError{Operation: "open file", Cause: inner},
	}

	brief := err.Format(false)
	want := "failed to load config: mkgen.cue: failed to open file: no such file\n\n  • Run 'mkgen config show'\n  • Check MKGEN_* variables"
	if brief != want {
		t.Errorf("Format(false) =\n%s\nwant\n%s", brief, want)
	}

	verbose := err.Format(true)
	if !strings.HasPrefix(verbose, want) {
		t.Errorf("Format(true) should start with the brief form, got\n%s", verbose)
	}
	for _, line := range []string{"Error chain:", "1. failed to open file: no such file", "2. no such file"} {
		if !strings.Contains(verbose, line) {
			t.Errorf("Format(true) missing %q:\n%s", line, verbose)
		}
	}
}

func TestActionableError_FormatNoSuggestions(t *testing.T) {
	t.Parallel()

	err := &ActionableError{Operation: "emit recipe"}
	if got := err.Format(true); got != "failed to emit recipe" {
		t.Errorf("Format(true) = %q", got)
	}
}

func TestErrorContext_Build(t *testing.T) {
	t.Parallel()

	cause := errors.New("boom")
	ae := NewErrorContext().
		WithOperation("export graph").
		WithResource("graph.db").
		WithSuggestion("first").
		WithSuggestion("second").
		Wrap(cause).
		Build()
	if ae == nil {
		t.Fatal("Build() = nil")
	}
	if ae.Operation != "export graph" || ae.Resource != "graph.db" || ae.Cause != cause {
		t.Errorf("Build() = %+v", ae)
	}
	if len(ae.Suggestions) != 2 || ae.Suggestions[1] != "second" {
		t.Errorf("Suggestions = %v", ae.Suggestions)
	}
}

func TestErrorContext_BuildWithoutOperation(t *testing.T) {
	t.Parallel()

	c := NewErrorContext().WithResource("x").Wrap(errors.New("boom"))
	if ae := c.Build(); ae != nil {
		t.Errorf("Build() = %v, want nil", ae)
	}
	if err := c.BuildError(); err != nil {
		t.Errorf("BuildError() = %v, want nil interface", err)
	}
}
