// SPDX-License-Identifier: MPL-2.0

package recipe

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// Header is the first line of every written recipe.
const Header = "# Generated by mkgen. DO NOT EDIT."

var targetEscaper = strings.NewReplacer("$", "$$", " ", `\ `, "#", `\#`)

// Write serializes actions as make-compatible stanzas: an
// "<outputs>: <prereqs>" line followed by tab-indented commands, separated
// by blank lines. Phony outputs are collected into a single .PHONY line.
func Write(w io.Writer, actions []Action) error {
	var buf bytes.Buffer
	buf.WriteString(Header + "\n")

	var phony []string
	for _, a := range actions {
		if a.Phony {
			phony = append(phony, a.Outputs...)
		}
	}
	if len(phony) > 0 {
		fmt.Fprintf(&buf, "\n.PHONY: %s\n", joinTargets(phony))
	}

	for _, a := range actions {
		if len(a.Outputs) == 0 {
			return fmt.Errorf("action for %s has no outputs", a.Rule)
		}
		buf.WriteString("\n" + joinTargets(a.Outputs) + ":")
		if len(a.Prereqs) > 0 {
			buf.WriteString(" " + joinTargets(a.Prereqs))
		}
		buf.WriteByte('\n')
		for _, argv := range a.Commands {
			line, err := CommandLine(argv)
			if err != nil {
				return fmt.Errorf("%s: %w", a.Output(), err)
			}
			buf.WriteString("\t" + line + "\n")
		}
	}

	_, err := w.Write(buf.Bytes())
	return err
}

// CommandLine renders argv as one POSIX shell command for a recipe,
// quoting arguments where needed and escaping "$" for make.
func CommandLine(argv []string) (string, error) {
	line, err := ShellLine(argv)
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(line, "$", "$$"), nil
}

// ShellLine renders argv as one POSIX shell command.
func ShellLine(argv []string) (string, error) {
	words := make([]string, 0, len(argv))
	for _, arg := range argv {
		q, err := syntax.Quote(arg, syntax.LangPOSIX)
		if err != nil {
			return "", fmt.Errorf("quoting %q: %w", arg, err)
		}
		words = append(words, q)
	}
	return strings.Join(words, " "), nil
}

func joinTargets(paths []string) string {
	escaped := make([]string, len(paths))
	for i, p := range paths {
		escaped[i] = targetEscaper.Replace(p)
	}
	return strings.Join(escaped, " ")
}
