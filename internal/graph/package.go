// SPDX-License-Identifier: MPL-2.0

package graph

import (
	"fmt"
	"path"
	"slices"
	"strings"
)

const (
	extC     = ".c"
	extCC    = ".cc"
	extCPP   = ".cpp"
	extProto = ".proto"
	extShell = ".sh"
)

// headerExts are accepted in srcs of compiled kinds but never compiled.
var headerExts = []string{".h", ".hh", ".hpp", ".inc"}

// Package is a path-identified collection of rules declared together.
type Package struct {
	// Path is the slash-separated package path relative to the source root.
	Path string
	// Dir is the package directory on disk, if the loader knows it.
	Dir string
	// Descriptor is the descriptor file relative to the source root, if
	// the loader read one.
	Descriptor string
	// Private packages are never listed in the publish manifest.
	Private bool
	// PublishOnly packages are not rebuilt; their artifacts come from the
	// publish tree.
	PublishOnly bool

	rules  []*Rule
	byName map[string]*Rule
}

func newPackage(p string) *Package {
	return &Package{Path: p, byName: make(map[string]*Rule)}
}

// Rules returns the package's rules in registration order.
func (p *Package) Rules() []*Rule { return slices.Clone(p.rules) }

// Rule looks up a rule by name.
func (p *Package) Rule(name string) (*Rule, bool) {
	r, ok := p.byName[name]
	return r, ok
}

func (p *Package) String() string { return "//" + p.Path }

// RegisterRule validates and appends a rule to the package.
func (p *Package) RegisterRule(kind Kind, name string, attrs Attributes) (*Rule, error) {
	if !validRuleName(name) {
		return nil, &ConfigurationError{Package: p.Path, Field: "name", Message: fmt.Sprintf("invalid rule name %q", name)}
	}
	if _, exists := p.byName[name]; exists {
		return nil, &DuplicateRuleNameError{Package: p.Path, Name: name}
	}
	if err := kind.Validate(); err != nil {
		cfgErr := err.(*ConfigurationError)
		cfgErr.Package, cfgErr.Rule = p.Path, name
		return nil, cfgErr
	}
	if err := validateSources(kind, attrs); err != nil {
		err.Package, err.Rule = p.Path, name
		return nil, err
	}
	if err := p.checkArchiveName(kind, name); err != nil {
		return nil, err
	}

	r := &Rule{Package: p, Name: name, Kind: kind, Attrs: cloneAttributes(attrs)}
	p.rules = append(p.rules, r)
	p.byName[name] = r
	return r, nil
}

// checkArchiveName rejects a second archive-producing rule whose name
// differs from an existing one only by case. Archive names are
// lower-cased, so both would write the same file.
func (p *Package) checkArchiveName(kind Kind, name string) *ConfigurationError {
	if !kind.IsArchive() {
		return nil
	}
	for _, other := range p.rules {
		if other.Kind.IsArchive() && strings.EqualFold(other.Name, name) {
			return &ConfigurationError{
				Package: p.Path,
				Rule:    name,
				Field:   "name",
				Message: fmt.Sprintf("archive of %q collides with rule %q (archive names are lower-cased)", name, other.Name),
			}
		}
	}
	return nil
}

// validateSources checks the required attributes and the duplicate
// basename rule. Only .c and .cpp sources take part in the basename check;
// .cc sources are recognized but deliberately left out of it.
func validateSources(kind Kind, attrs Attributes) *ConfigurationError {
	switch {
	case kind == KindGenRule:
		if len(attrs.Cmds) == 0 {
			return &ConfigurationError{Field: "cmds", Message: "gen_rule rules require at least one command"}
		}
	case len(attrs.Srcs) == 0:
		return &ConfigurationError{Field: "srcs", Message: fmt.Sprintf("%s rules require at least one source", kind)}
	}
	for _, src := range slices.Concat(attrs.Srcs, attrs.Hdrs) {
		if src == "" || path.IsAbs(src) || strings.HasPrefix(path.Clean(src), "..") {
			return &ConfigurationError{Field: "srcs", Message: fmt.Sprintf("source %q must be a relative path inside the package", src)}
		}
	}
	switch kind {
	case KindScript, KindScriptTest:
		for _, src := range attrs.Srcs {
			if path.Ext(src) != extShell {
				return &ConfigurationError{Field: "srcs", Message: fmt.Sprintf("%s source %q must be a %s file", kind, src, extShell)}
			}
		}
		return nil
	}
	if kind.IsTerminal() {
		return nil
	}

	seen := make(map[string]string)
	for _, src := range attrs.Srcs {
		ext := path.Ext(src)
		switch {
		case kind == KindProtoLibrary:
			if ext != extProto {
				return &ConfigurationError{Field: "srcs", Message: fmt.Sprintf("proto_library source %q must be a %s file", src, extProto)}
			}
		case ext == extC || ext == extCPP:
			stem := strings.TrimSuffix(src, ext)
			if prev, dup := seen[stem]; dup {
				return &ConfigurationError{
					Field:   "srcs",
					Message: fmt.Sprintf("sources %q and %q share the basename %q and would compile to the same object", prev, src, path.Base(stem)),
				}
			}
			seen[stem] = src
		case ext == extCC, slices.Contains(headerExts, ext):
		default:
			return &ConfigurationError{Field: "srcs", Message: fmt.Sprintf("unsupported source extension in %q", src)}
		}
	}
	return nil
}

// IsCompilable reports whether src is a C or C++ translation unit.
func IsCompilable(src string) bool {
	switch path.Ext(src) {
	case extC, extCC, extCPP:
		return true
	}
	return false
}

func cloneAttributes(a Attributes) Attributes {
	return Attributes{
		Srcs:      slices.Clone(a.Srcs),
		Hdrs:      slices.Clone(a.Hdrs),
		Deps:      slices.Clone(a.Deps),
		Defines:   slices.Clone(a.Defines),
		CFlags:    slices.Clone(a.CFlags),
		LinkFlags: slices.Clone(a.LinkFlags),
		Args:      slices.Clone(a.Args),
		Cmds:      slices.Clone(a.Cmds),
	}
}
