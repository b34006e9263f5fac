// SPDX-License-Identifier: MPL-2.0

package graph

import (
	"path"
	"strings"
)

// Label identifies a rule. An empty Package means "the referencing rule's
// package" when the label came from a relative reference.
type Label struct {
	Package string
	Name    string
}

// ParseLabel parses a dependency reference of the form "//package/path:name"
// or ":name". Anything else is an invalid reference.
func ParseLabel(ref string) (Label, error) {
	var pkg, rest string
	switch {
	case strings.HasPrefix(ref, "//"):
		var ok bool
		pkg, rest, ok = strings.Cut(ref[2:], ":")
		if !ok {
			return Label{}, invalidReference(ref)
		}
	case strings.HasPrefix(ref, ":"):
		rest = ref[1:]
	default:
		return Label{}, invalidReference(ref)
	}

	if !validRuleName(rest) {
		return Label{}, invalidReference(ref)
	}
	pkg, err := CleanPackagePath(pkg)
	if err != nil {
		return Label{}, invalidReference(ref)
	}
	return Label{Package: pkg, Name: rest}, nil
}

// CleanPackagePath normalizes a package path: no leading "//", no trailing
// slash, no "." or ".." segments. The root package is "".
func CleanPackagePath(p string) (string, error) {
	p = strings.TrimPrefix(p, "//")
	p = strings.Trim(p, "/")
	if p == "" {
		return "", nil
	}
	if strings.Contains(p, ":") {
		return "", &ConfigurationError{Package: p, Message: "package path must not contain ':'"}
	}
	for seg := range strings.SplitSeq(p, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return "", &ConfigurationError{Package: p, Message: "package path must be a clean relative path"}
		}
	}
	return path.Clean(p), nil
}

// String returns the absolute form "//package:name".
func (l Label) String() string {
	return "//" + l.Package + ":" + l.Name
}

// IsRelative reports whether the label omitted its package.
func (l Label) IsRelative() bool { return l.Package == "" }

func validRuleName(name string) bool {
	return name != "" && !strings.ContainsAny(name, ":/ \t\n")
}

func invalidReference(ref string) error {
	return &ReferenceError{Reason: ReasonInvalidFormat, Ref: ref}
}
