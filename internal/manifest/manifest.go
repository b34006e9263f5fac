// SPDX-License-Identifier: MPL-2.0

// Package manifest builds the auxiliary outputs written next to the recipe:
// the list of test executables and the list of publishable source/target
// path pairs.
package manifest

import (
	"fmt"
	"io"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/mkgen/mkgen/internal/artifact"
	"github.com/mkgen/mkgen/internal/graph"
)

// Manifest encodings.
const (
	FormatText Format = "text"
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

type (
	// Format selects a manifest encoding.
	Format string

	// TestEntry is one runnable test.
	TestEntry struct {
		Rule string `toml:"rule" yaml:"rule"`
		// Variant is empty for script tests, which run from the source tree.
		Variant string   `toml:"variant,omitempty" yaml:"variant,omitempty"`
		Path    string   `toml:"path" yaml:"path"`
		Args    []string `toml:"args,omitempty" yaml:"args,omitempty"`
	}

	// Tests lists test executables.
	Tests struct {
		Tests []TestEntry `toml:"test" yaml:"tests"`
	}

	// PublishEntry pairs a local file with its location in the publish tree.
	PublishEntry struct {
		Rule    string `toml:"rule" yaml:"rule"`
		Variant string `toml:"variant,omitempty" yaml:"variant,omitempty"`
		Source  string `toml:"source" yaml:"source"`
		Target  string `toml:"target" yaml:"target"`
	}

	// Publish lists files to copy into the publish tree.
	Publish struct {
		Entries []PublishEntry `toml:"entry" yaml:"entries"`
	}

	// textLiner renders a manifest in the line-oriented text format.
	textLiner interface {
		lines() []string
	}
)

// ParseFormat validates a format name. The empty string selects text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case "":
		return FormatText, nil
	case FormatText, FormatTOML, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown manifest format %q (want text, toml or yaml)", s)
	}
}

// BuildTests lists the test binaries of rules in every variant, followed by
// the sources of script tests.
func BuildTests(rules []*graph.Rule, model artifact.Model, variants []string) Tests {
	var m Tests
	for _, r := range rules {
		switch r.Kind {
		case graph.KindTest:
			for _, v := range variants {
				m.Tests = append(m.Tests, TestEntry{Rule: r.ID(), Variant: v, Path: model.Path(r, v), Args: r.Attrs.Args})
			}
		case graph.KindScriptTest:
			for _, src := range r.Attrs.Srcs {
				m.Tests = append(m.Tests, TestEntry{Rule: r.ID(), Path: model.SourcePath(r, src), Args: r.Attrs.Args})
			}
		}
	}
	return m
}

// BuildPublish lists publishable files of rules. Rules of private and
// publish-only packages, tests and gen rules are never published.
func BuildPublish(rules []*graph.Rule, model artifact.Model, variants []string) Publish {
	var m Publish
	for _, r := range rules {
		if r.Package.Private || r.Package.PublishOnly || r.Kind.IsTest() || r.Kind == graph.KindGenRule {
			continue
		}
		if r.Kind.IsTerminal() {
			for _, src := range r.Attrs.Srcs {
				m.add(r, "", model.SourcePath(r, src), model.PublishedSharePath(r, src))
			}
			continue
		}
		for _, v := range variants {
			m.add(r, v, model.Path(r, v), model.PublishedPath(r, v))
		}
		if r.Kind.IsArchive() {
			for _, hdr := range r.Attrs.Hdrs {
				m.add(r, "", model.SourcePath(r, hdr), model.PublishedIncludePath(r, hdr))
			}
		}
	}
	return m
}

func (m *Publish) add(r *graph.Rule, variant, src, dst string) {
	m.Entries = append(m.Entries, PublishEntry{Rule: r.ID(), Variant: variant, Source: src, Target: dst})
}

func (m Tests) lines() []string {
	out := make([]string, 0, len(m.Tests))
	for _, t := range m.Tests {
		out = append(out, strings.Join(append([]string{t.Path}, t.Args...), " "))
	}
	return out
}

func (m Publish) lines() []string {
	out := make([]string, 0, len(m.Entries))
	for _, e := range m.Entries {
		out = append(out, e.Source+" "+e.Target)
	}
	return out
}

// Write encodes m (a Tests or Publish value) in format.
func Write(w io.Writer, format Format, m any) error {
	switch format {
	case FormatText, "":
		liner, ok := m.(textLiner)
		if !ok {
			return fmt.Errorf("manifest type %T has no text form", m)
		}
		for _, line := range liner.lines() {
			if _, err := io.WriteString(w, line+"\n"); err != nil {
				return err
			}
		}
		return nil
	case FormatTOML:
		return toml.NewEncoder(w).Encode(m)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(m); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown manifest format %q", format)
	}
}
