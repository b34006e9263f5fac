// SPDX-License-Identifier: MPL-2.0

package graph

import (
	"io"
	"slices"

	"github.com/charmbracelet/log"
)

type (
	// Loader populates a package on first reference. Implementations call
	// Context.RegisterPackage and Package.RegisterRule; a Loader that finds
	// no descriptor for path returns (nil, nil) or a ReferenceError.
	Loader interface {
		Load(c *Context, path string) (*Package, error)
	}

	// LoaderFunc adapts a function to the Loader interface.
	LoaderFunc func(c *Context, path string) (*Package, error)

	// Option configures a Context.
	Option func(*Context)

	// Context owns the state of one resolution pass: the package table, the
	// loader, and the stack of rules being expanded. It is not safe for
	// concurrent use.
	Context struct {
		loader   Loader
		logger   *log.Logger
		packages map[string]*Package
		order    []*Package
		stack    []string

		// expansions counts rules whose dependencies were actually walked.
		expansions int
	}
)

// Load calls f(c, path).
func (f LoaderFunc) Load(c *Context, path string) (*Package, error) { return f(c, path) }

// WithLogger sets the logger used for resolution diagnostics.
func WithLogger(logger *log.Logger) Option {
	return func(c *Context) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewContext creates an empty resolution context. loader may be nil when
// every package is registered up front.
func NewContext(loader Loader, opts ...Option) *Context {
	c := &Context{
		loader:   loader,
		logger:   log.New(io.Discard),
		packages: make(map[string]*Package),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Logger returns the context's logger.
func (c *Context) Logger() *log.Logger { return c.logger }

// RegisterPackage creates the package for path. Each path is registered once.
func (c *Context) RegisterPackage(path string) (*Package, error) {
	clean, err := CleanPackagePath(path)
	if err != nil {
		return nil, err
	}
	if _, exists := c.packages[clean]; exists {
		return nil, &ConfigurationError{Package: clean, Message: "package registered twice"}
	}
	p := newPackage(clean)
	c.packages[clean] = p
	c.order = append(c.order, p)
	c.logger.Debug("registered package", "package", p.String())
	return p, nil
}

// Package returns the package for path, invoking the loader the first time
// the path is referenced.
func (c *Context) Package(path string) (*Package, error) {
	clean, err := CleanPackagePath(path)
	if err != nil {
		return nil, err
	}
	if p, ok := c.packages[clean]; ok {
		return p, nil
	}
	if c.loader == nil {
		return nil, &ReferenceError{Reason: ReasonPackageNotFound, Ref: "//" + clean, Package: clean}
	}

	c.logger.Debug("loading package", "package", "//"+clean)
	p, err := c.loader.Load(c, clean)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, &ReferenceError{Reason: ReasonPackageNotFound, Ref: "//" + clean, Package: clean}
	}
	return p, nil
}

// Packages returns every registered package in registration order.
func (c *Context) Packages() []*Package { return slices.Clone(c.order) }

// Lookup returns the rule a label names, loading its package if needed.
// Relative labels are not accepted here; there is no referencing package.
func (c *Context) Lookup(l Label) (*Rule, error) {
	p, err := c.Package(l.Package)
	if err != nil {
		return nil, err
	}
	r, ok := p.Rule(l.Name)
	if !ok {
		return nil, &ReferenceError{Reason: ReasonRuleNotFound, Ref: l.String(), Package: p.Path}
	}
	return r, nil
}
