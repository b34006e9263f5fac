// SPDX-License-Identifier: MPL-2.0

package graph

import (
	"fmt"
	"slices"
)

const (
	// KindLibrary is a static C/C++ library producing an archive.
	KindLibrary Kind = "library"
	// KindBinary is a linked executable.
	KindBinary Kind = "binary"
	// KindTest is a linked test executable.
	KindTest Kind = "test"
	// KindProtoLibrary generates C++ sources from .proto files and archives them.
	KindProtoLibrary Kind = "proto_library"
	// KindData is a bundle of data files passed through to dependents.
	KindData Kind = "data"
	// KindScript is a bundle of script files passed through to dependents.
	KindScript Kind = "script"
	// KindScriptTest is a script executed as a test.
	KindScriptTest Kind = "script_test"
	// KindJNILibrary is a shared object loaded by a JVM.
	KindJNILibrary Kind = "jni_library"
	// KindMPILibrary is a static library compiled with the MPI toolchain.
	KindMPILibrary Kind = "mpi_library"
	// KindMPIBinary is an executable compiled and linked with the MPI toolchain.
	KindMPIBinary Kind = "mpi_binary"
	// KindPyExtension is a shared object loaded by a Python interpreter.
	KindPyExtension Kind = "py_extension"
	// KindGenRule runs arbitrary shell commands whenever its package
	// descriptor changes.
	KindGenRule Kind = "gen_rule"
)

type (
	// Kind is the closed tag identifying what a rule builds.
	Kind string

	// traits describe the structural role of a kind. Behaviour that differs
	// between kinds (exports, recipe shape, artifact naming) is dispatched
	// by the consuming packages from these traits or their own kind tables.
	traits struct {
		archive   bool // produces a static archive other rules link against
		linked    bool // produces a linked executable or shared object
		extension bool // linked output is a loadable shared object
		terminal  bool // pass-through only, never compiled or linked
		mpi       bool // uses the MPI compiler driver
	}
)

var kindTraits = map[Kind]traits{
	KindLibrary:      {archive: true},
	KindBinary:       {linked: true},
	KindTest:         {linked: true},
	KindProtoLibrary: {archive: true},
	KindData:         {terminal: true},
	KindScript:       {terminal: true},
	KindScriptTest:   {terminal: true},
	KindJNILibrary:   {linked: true, extension: true},
	KindMPILibrary:   {archive: true, mpi: true},
	KindMPIBinary:    {linked: true, mpi: true},
	KindPyExtension:  {linked: true, extension: true},
	KindGenRule:      {terminal: true},
}

// Kinds returns every known kind in a stable order.
func Kinds() []Kind {
	kinds := make([]Kind, 0, len(kindTraits))
	for k := range kindTraits {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}

// Validate returns a ConfigurationError if k is not a known kind.
func (k Kind) Validate() error {
	if _, ok := kindTraits[k]; !ok {
		return &ConfigurationError{
			Field:   "kind",
			Message: fmt.Sprintf("unknown rule kind %q (expected one of %v)", k, Kinds()),
		}
	}
	return nil
}

// String returns the kind name as written in descriptors.
func (k Kind) String() string { return string(k) }

// IsArchive reports whether the kind produces a static archive.
func (k Kind) IsArchive() bool { return kindTraits[k].archive }

// IsLinked reports whether the kind runs a link step.
func (k Kind) IsLinked() bool { return kindTraits[k].linked }

// IsExtension reports whether the kind's linked output is a loadable shared object.
func (k Kind) IsExtension() bool { return kindTraits[k].extension }

// IsTerminal reports whether the kind is a pass-through bundle.
func (k Kind) IsTerminal() bool { return kindTraits[k].terminal }

// IsCompiled reports whether the kind compiles sources.
func (k Kind) IsCompiled() bool {
	t := kindTraits[k]
	return t.archive || t.linked
}

// UsesMPI reports whether the kind compiles with the MPI driver.
func (k Kind) UsesMPI() bool { return kindTraits[k].mpi }

// IsTest reports whether the kind's output is listed in the test manifest.
func (k Kind) IsTest() bool { return k == KindTest || k == KindScriptTest }
