// SPDX-License-Identifier: MPL-2.0

package graph

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// ReasonInvalidFormat marks a reference that is neither "//pkg:name" nor ":name".
	ReasonInvalidFormat ReferenceReason = iota + 1
	// ReasonPackageNotFound marks a reference to a package without a descriptor.
	ReasonPackageNotFound
	// ReasonRuleNotFound marks a reference to a rule its package does not declare.
	ReasonRuleNotFound
)

var (
	// ErrConfiguration is the sentinel wrapped by ConfigurationError.
	ErrConfiguration = errors.New("configuration error")
	// ErrReference is the sentinel wrapped by every ReferenceError.
	ErrReference = errors.New("reference error")
	// ErrInvalidReferenceFormat is wrapped by ReferenceError for malformed references.
	ErrInvalidReferenceFormat = errors.New("invalid reference format")
	// ErrPackageNotFound is wrapped by ReferenceError when no descriptor exists.
	ErrPackageNotFound = errors.New("package not found")
	// ErrRuleNotFound is wrapped by ReferenceError when the package lacks the rule.
	ErrRuleNotFound = errors.New("rule not found")
	// ErrDuplicateRuleName is the sentinel wrapped by DuplicateRuleNameError.
	ErrDuplicateRuleName = errors.New("duplicate rule name")
	// ErrCyclicDependency is the sentinel wrapped by CycleError.
	ErrCyclicDependency = errors.New("cyclic dependency")
	// ErrNestedPackage is the sentinel wrapped by NestedPackageError.
	ErrNestedPackage = errors.New("nested package")
)

type (
	// ReferenceReason classifies a ReferenceError.
	ReferenceReason int

	// ConfigurationError reports a missing, mistyped or conflicting attribute,
	// or a descriptor that failed schema validation.
	ConfigurationError struct {
		Package string
		Rule    string
		Field   string
		Message string
		Cause   error
	}

	// ReferenceError reports a dependency reference that cannot be resolved.
	ReferenceError struct {
		Reason ReferenceReason
		// Ref is the reference as written in the descriptor.
		Ref string
		// From is the fully-qualified id of the referencing rule, if known.
		From string
		// Package is the package path the reference resolved to.
		Package string
		Cause   error
	}

	// DuplicateRuleNameError reports a second rule registered under a taken name.
	DuplicateRuleNameError struct {
		Package string
		Name    string
	}

	// CycleError reports a dependency cycle. Chain lists the expansion stack
	// from the outermost rule down to the repeated rule, which appears twice.
	CycleError struct {
		Chain []string
	}

	// NestedPackageError reports a package whose directory lies inside
	// another package. Path is set when the overlap was found through a
	// file Package declares; it is empty when Nested itself was loaded.
	NestedPackageError struct {
		Package string
		Path    string
		Nested  string
	}
)

func (e *ConfigurationError) Error() string {
	var b strings.Builder
	switch {
	case e.Rule != "":
		b.WriteString(Label{Package: e.Package, Name: e.Rule}.String() + ": ")
	case e.Package != "":
		b.WriteString("//" + e.Package + ": ")
	}
	if e.Field != "" {
		b.WriteString(e.Field + ": ")
	}
	switch {
	case e.Message != "":
		b.WriteString(e.Message)
	case e.Cause != nil:
		b.WriteString(e.Cause.Error())
	default:
		b.WriteString("invalid configuration")
	}
	return b.String()
}

func (e *ConfigurationError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrConfiguration, e.Cause}
	}
	return []error{ErrConfiguration}
}

func (e *ReferenceError) Error() string {
	prefix := ""
	if e.From != "" {
		prefix = e.From + ": "
	}
	switch e.Reason {
	case ReasonInvalidFormat:
		return fmt.Sprintf("%sinvalid reference %q: must be \"//package/path:name\" or \":name\"", prefix, e.Ref)
	case ReasonPackageNotFound:
		return fmt.Sprintf("%sdependency %q: package %q not found", prefix, e.Ref, "//"+e.Package)
	case ReasonRuleNotFound:
		return fmt.Sprintf("%sdependency %q: no such rule in package %q", prefix, e.Ref, "//"+e.Package)
	default:
		return fmt.Sprintf("%sunresolvable reference %q", prefix, e.Ref)
	}
}

func (e *ReferenceError) Unwrap() []error {
	errs := []error{ErrReference}
	switch e.Reason {
	case ReasonInvalidFormat:
		errs = append(errs, ErrInvalidReferenceFormat)
	case ReasonPackageNotFound:
		errs = append(errs, ErrPackageNotFound)
	case ReasonRuleNotFound:
		errs = append(errs, ErrRuleNotFound)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

func (e *DuplicateRuleNameError) Error() string {
	return fmt.Sprintf("rule %q is already defined in package %q", e.Name, "//"+e.Package)
}

func (e *DuplicateRuleNameError) Unwrap() error { return ErrDuplicateRuleName }

func (e *CycleError) Error() string {
	return "cyclic dependency: " + strings.Join(e.Chain, " -> ")
}

func (e *CycleError) Unwrap() error { return ErrCyclicDependency }

func (e *NestedPackageError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("packages cannot be nested: %q lies inside package %q", "//"+e.Nested, "//"+e.Package)
	}
	return fmt.Sprintf("package %q declares %q, which lies inside package %q",
		"//"+e.Package, e.Path, "//"+e.Nested)
}

func (e *NestedPackageError) Unwrap() error { return ErrNestedPackage }
