// SPDX-License-Identifier: MPL-2.0

// Package artifact derives the variant-qualified output locations of rules.
//
// Every path has the shape <build-root>/<variant>/<bucket>/<package>/<file>,
// where bucket separates object files, final artifacts and generated
// sources. Rules of publish-only packages resolve to the publish tree
// instead. All functions are pure: the same rule, variant and roots always
// produce the same path.
package artifact

import (
	"path"
	"strings"

	"github.com/mkgen/mkgen/internal/graph"
)

const (
	// BucketObj holds object files and verification stamps.
	BucketObj = "obj"
	// BucketTarget holds archives, binaries, shared objects and markers.
	BucketTarget = "target"
	// BucketGen holds generated sources and headers.
	BucketGen = "gen"

	archivePrefix   = "lib"
	archiveSuffix   = ".a"
	extensionSuffix = ".so"
	stampSuffix     = ".stamp"
	objectSuffix    = ".o"
	verifiedSuffix  = ".verified"
)

// artifactNames maps each kind to its output file name relative to the
// package's target directory.
var artifactNames = map[graph.Kind]func(name string) string{
	graph.KindLibrary:      archiveName,
	graph.KindMPILibrary:   archiveName,
	graph.KindProtoLibrary: archiveName,
	graph.KindBinary:       binaryName,
	graph.KindTest:         binaryName,
	graph.KindMPIBinary:    binaryName,
	graph.KindJNILibrary:   extensionName,
	graph.KindPyExtension:  extensionName,
	graph.KindData:         stampName,
	graph.KindScript:       stampName,
	graph.KindScriptTest:   stampName,
	graph.KindGenRule:      stampName,
}

func archiveName(name string) string {
	return archivePrefix + strings.ToLower(name) + archiveSuffix
}

func binaryName(name string) string { return path.Join(name, name) }

func extensionName(name string) string { return path.Join(name, name+extensionSuffix) }

func stampName(name string) string { return name + stampSuffix }

// Model holds the roots every path is derived from.
type Model struct {
	// SourceRoot is where package directories live.
	SourceRoot string
	// BuildRoot is the root of all variant output trees.
	BuildRoot string
	// PublishRoot is the separately maintained published artifact tree.
	PublishRoot string
}

// Name returns the artifact file name of r relative to its package's
// target directory.
func Name(r *graph.Rule) string {
	if f, ok := artifactNames[r.Kind]; ok {
		return f(r.Name)
	}
	return stampName(r.Name)
}

// Path returns the canonical output of r in variant.
func (m Model) Path(r *graph.Rule, variant string) string {
	if r.Package.PublishOnly {
		return m.PublishedPath(r, variant)
	}
	return path.Join(m.BuildRoot, variant, BucketTarget, r.Package.Path, Name(r))
}

// PublishedPath returns where r's artifact lives in the publish tree.
func (m Model) PublishedPath(r *graph.Rule, variant string) string {
	return path.Join(m.PublishDir(r.Package, variant), Name(r))
}

// PackageDir returns the package's target directory in the build tree.
func (m Model) PackageDir(p *graph.Package, variant string) string {
	return path.Join(m.BuildRoot, variant, BucketTarget, p.Path)
}

// PublishDir returns the package's directory in the publish tree.
func (m Model) PublishDir(p *graph.Package, variant string) string {
	return path.Join(m.PublishRoot, variant, p.Path)
}

// ObjectPath returns the object file compiled from src. src keeps its
// package-relative directory so same-named files in different
// subdirectories do not collide.
func (m Model) ObjectPath(r *graph.Rule, variant, src string) string {
	return path.Join(m.BuildRoot, variant, BucketObj, r.Package.Path, r.Name, stem(src)+objectSuffix)
}

// GeneratedPath returns a file generated from src with the given suffix,
// e.g. ".pb.cc". Generated files mirror the source tree under the gen
// bucket so the gen directory can serve as an include root.
func (m Model) GeneratedPath(r *graph.Rule, variant, src, suffix string) string {
	return path.Join(m.GenRoot(variant), r.Package.Path, stem(src)+suffix)
}

// GenRoot returns the root of generated files for variant.
func (m Model) GenRoot(variant string) string {
	return path.Join(m.BuildRoot, variant, BucketGen)
}

// VerifiedPath returns the stamp written when header hdr of r passes
// static verification in variant.
func (m Model) VerifiedPath(r *graph.Rule, variant, hdr string) string {
	return path.Join(m.BuildRoot, variant, BucketObj, r.Package.Path, r.Name, hdr+verifiedSuffix)
}

// SourcePath returns the location of a package-relative file in the source tree.
func (m Model) SourcePath(r *graph.Rule, src string) string {
	return path.Join(m.SourceRoot, r.Package.Path, src)
}

func stem(src string) string {
	return strings.TrimSuffix(src, path.Ext(src))
}

// PublishedIncludePath returns where public header hdr of r is published.
// Headers are shared by all variants.
func (m Model) PublishedIncludePath(r *graph.Rule, hdr string) string {
	return path.Join(m.PublishRoot, "include", r.Package.Path, hdr)
}

// PublishedSharePath returns where a data or script file of r is published.
func (m Model) PublishedSharePath(r *graph.Rule, src string) string {
	return path.Join(m.PublishRoot, "share", r.Package.Path, src)
}
