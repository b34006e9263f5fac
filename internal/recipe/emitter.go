// SPDX-License-Identifier: MPL-2.0

package recipe

import (
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/mkgen/mkgen/internal/artifact"
	"github.com/mkgen/mkgen/internal/graph"
	"github.com/mkgen/mkgen/internal/linkorder"
)

// ErrNotExpanded is returned when Emit is called on a rule whose
// dependencies have not been resolved.
var ErrNotExpanded = errors.New("rule has not been expanded")

type (
	// Toolchain names the programs written into commands. The emitter never
	// runs them.
	Toolchain struct {
		CC     string
		CXX    string
		MPICXX string
		AR     string
		Protoc string
		// PythonLDFlags are appended when linking py_extension rules.
		PythonLDFlags []string
	}

	// Options configures an Emitter.
	Options struct {
		Model artifact.Model
		// Variants are the build variants. The first one is the reference
		// variant whose artifact paths key the emitted set.
		Variants []string
		// VerifyVariants get one static header check per library header.
		VerifyVariants []string
		Toolchain      Toolchain
		// CommonFlags apply to every compile action.
		CommonFlags []string
		// VariantFlags apply to compile and link actions of one variant.
		VariantFlags map[string][]string
		// FrameworkLibs are linked into every test binary unless the rule
		// already lists them.
		FrameworkLibs []string
		// VersionStamp is injected into binary-kind compile lines when set.
		VersionStamp string
		Logger       *log.Logger
	}

	// Emitter produces actions for expanded rules. Each canonical output is
	// emitted at most once per Emitter, however many paths reach it.
	Emitter struct {
		opts    Options
		calc    *linkorder.Calculator
		logger  *log.Logger
		// emitted maps each claimed output to the rule or package that
		// produces it.
		emitted map[string]string
		actions []Action
	}
)

// DefaultToolchain returns the conventional program names.
func DefaultToolchain() Toolchain {
	return Toolchain{CC: "cc", CXX: "c++", MPICXX: "mpicxx", AR: "ar", Protoc: "protoc"}
}

// NewEmitter validates opts and returns an empty Emitter.
func NewEmitter(opts Options) (*Emitter, error) {
	if len(opts.Variants) == 0 {
		return nil, &graph.ConfigurationError{Field: "variants", Message: "at least one build variant is required"}
	}
	for _, v := range slices.Concat(opts.Variants, opts.VerifyVariants) {
		if v == "" {
			return nil, &graph.ConfigurationError{Field: "variants", Message: "variant names must not be empty"}
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Emitter{
		opts:    opts,
		calc:    linkorder.New(opts.Model),
		logger:  logger,
		emitted: make(map[string]string),
	}, nil
}

// Calculator returns the export calculator the emitter links with.
func (e *Emitter) Calculator() *linkorder.Calculator { return e.calc }

// ReferenceVariant returns the variant whose paths key emitted outputs.
func (e *Emitter) ReferenceVariant() string { return e.opts.Variants[0] }

// Variants returns the configured build variants.
func (e *Emitter) Variants() []string { return slices.Clone(e.opts.Variants) }

// Actions returns every action emitted so far, in emission order.
func (e *Emitter) Actions() []Action { return slices.Clone(e.actions) }

// Emitted reports whether the output keyed by id has already been emitted.
func (e *Emitter) Emitted(id string) bool {
	_, ok := e.emitted[id]
	return ok
}

// Emit appends r's actions for every variant and then those of its
// transitive dependencies. Rules already emitted are skipped.
func (e *Emitter) Emit(r *graph.Rule) error {
	if !r.Expanded() {
		return fmt.Errorf("%s: %w", r.ID(), ErrNotExpanded)
	}
	fresh, err := e.claim(e.opts.Model.Path(r, e.ReferenceVariant()), r.ID())
	if err != nil {
		return err
	}
	if !fresh {
		return nil
	}

	if r.Package.PublishOnly {
		if err := e.emitPublished(r); err != nil {
			return err
		}
	} else {
		e.emitRule(r)
	}

	for _, dep := range r.Resolved() {
		if err := e.Emit(dep); err != nil {
			return err
		}
	}
	return nil
}

// claim records owner as the producer of id and reports whether id was
// new. Claiming an id already owned by someone else is an error: both
// would write the same file.
func (e *Emitter) claim(id, owner string) (bool, error) {
	if prev, ok := e.emitted[id]; ok {
		if prev != owner {
			return false, &graph.ConfigurationError{
				Message: fmt.Sprintf("%s and %s both produce %s", prev, owner, id),
			}
		}
		return false, nil
	}
	e.emitted[id] = owner
	return true, nil
}

func (e *Emitter) emitRule(r *graph.Rule) {
	shape := shapeFor(r.Kind)
	before := len(e.actions)
	for _, v := range e.opts.Variants {
		e.actions = append(e.actions, shape(e, r, v)...)
	}
	if r.Kind.IsArchive() && r.Kind != graph.KindProtoLibrary {
		for _, v := range e.opts.VerifyVariants {
			e.actions = append(e.actions, e.verifyActions(r, v)...)
		}
	}
	e.logger.Debug("emitted rule", "rule", r.ID(), "kind", r.Kind, "actions", len(e.actions)-before)
}

// emitPublished links the package directory to the publish tree once per
// package and variant. Nothing is compiled for publish-only packages.
func (e *Emitter) emitPublished(r *graph.Rule) error {
	ref := e.opts.Model.PackageDir(r.Package, e.ReferenceVariant())
	fresh, err := e.claim(ref, r.Package.String())
	if err != nil || !fresh {
		return err
	}
	for _, v := range e.opts.Variants {
		e.actions = append(e.actions, e.symlinkAction(r.Package, v))
	}
	e.logger.Debug("linked publish-only package", "package", r.Package.String())
	return nil
}
