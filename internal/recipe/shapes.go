// SPDX-License-Identifier: MPL-2.0

package recipe

import (
	"path"
	"slices"

	"github.com/mkgen/mkgen/internal/graph"
)

const (
	versionStampMacro = "MKGEN_VERSION_STAMP"

	protoSourceSuffix = ".pb.cc"
	protoHeaderSuffix = ".pb.h"
)

// shapeFunc returns the actions of one rule in one variant.
type shapeFunc func(e *Emitter, r *graph.Rule, variant string) []Action

var shapes = map[graph.Kind]shapeFunc{
	graph.KindLibrary:      archiveShape,
	graph.KindMPILibrary:   archiveShape,
	graph.KindProtoLibrary: protoShape,
	graph.KindBinary:       linkShape,
	graph.KindTest:         linkShape,
	graph.KindMPIBinary:    linkShape,
	graph.KindJNILibrary:   linkShape,
	graph.KindPyExtension:  linkShape,
	graph.KindData:         stampShape,
	graph.KindScript:       stampShape,
	graph.KindScriptTest:   stampShape,
	graph.KindGenRule:      genRuleShape,
}

func shapeFor(k graph.Kind) shapeFunc {
	if s, ok := shapes[k]; ok {
		return s
	}
	return stampShape
}

// archiveShape compiles every source and archives the objects.
func archiveShape(e *Emitter, r *graph.Rule, v string) []Action {
	compiles := e.compileActions(r, v, compilableSources(r))
	return append(compiles, e.archiveAction(r, v, outputsOf(compiles)))
}

// linkShape compiles every source and links against the transitive exports.
func linkShape(e *Emitter, r *graph.Rule, v string) []Action {
	compiles := e.compileActions(r, v, compilableSources(r))
	return append(compiles, e.linkAction(r, v, outputsOf(compiles)))
}

// protoShape generates C++ from each .proto source, compiles the generated
// sources and archives them.
func protoShape(e *Emitter, r *graph.Rule, v string) []Action {
	m := e.opts.Model
	actions := make([]Action, 0, 2*len(r.Attrs.Srcs)+1)
	var objs []string
	for _, src := range r.Attrs.Srcs {
		genSrc := m.GeneratedPath(r, v, src, protoSourceSuffix)
		genHdr := m.GeneratedPath(r, v, src, protoHeaderSuffix)
		pkgGen := path.Join(m.GenRoot(v), r.Package.Path)
		actions = append(actions, Action{
			Kind:    ActionGenerate,
			Outputs: []string{genSrc, genHdr},
			Prereqs: []string{m.SourcePath(r, src)},
			Commands: [][]string{
				mkdir(path.Dir(genSrc)),
				{e.opts.Toolchain.Protoc, "-I" + path.Join(m.SourceRoot, r.Package.Path), "--cpp_out=" + pkgGen, m.SourcePath(r, src)},
			},
			Rule:    r.ID(),
			Variant: v,
		})

		obj := m.ObjectPath(r, v, src)
		actions = append(actions, e.compileAction(r, v, genSrc, obj))
		objs = append(objs, obj)
	}
	return append(actions, e.archiveAction(r, v, objs))
}

// stampShape writes a marker that depends on the rule's files and its
// dependencies' outputs. It orders consumers and feeds the manifests.
func stampShape(e *Emitter, r *graph.Rule, v string) []Action {
	m := e.opts.Model
	out := m.Path(r, v)
	prereqs := make([]string, 0, len(r.Attrs.Srcs)+len(r.Resolved()))
	for _, src := range r.Attrs.Srcs {
		prereqs = append(prereqs, m.SourcePath(r, src))
	}
	for _, dep := range r.Resolved() {
		prereqs = append(prereqs, m.Path(dep, v))
	}
	return []Action{{
		Kind:     ActionStamp,
		Outputs:  []string{out},
		Prereqs:  prereqs,
		Commands: [][]string{mkdir(path.Dir(out)), {"touch", out}},
		Rule:     r.ID(),
		Variant:  v,
	}}
}

// genRuleShape runs the rule's commands in the reference variant whenever
// the package descriptor, a listed file or a dependency changes. The other
// variants only stamp after it, so the commands run once per build.
func genRuleShape(e *Emitter, r *graph.Rule, v string) []Action {
	m := e.opts.Model
	out := m.Path(r, v)
	ref := e.ReferenceVariant()
	if v != ref {
		return []Action{{
			Kind:     ActionStamp,
			Outputs:  []string{out},
			Prereqs:  []string{m.Path(r, ref)},
			Commands: [][]string{mkdir(path.Dir(out)), {"touch", out}},
			Rule:     r.ID(),
			Variant:  v,
		}}
	}

	var prereqs []string
	if r.Package.Descriptor != "" {
		prereqs = append(prereqs, path.Join(m.SourceRoot, r.Package.Descriptor))
	}
	for _, src := range r.Attrs.Srcs {
		prereqs = append(prereqs, m.SourcePath(r, src))
	}
	for _, dep := range r.Resolved() {
		prereqs = append(prereqs, m.Path(dep, v))
	}
	cmds := [][]string{mkdir(path.Dir(out))}
	for _, c := range r.Attrs.Cmds {
		cmds = append(cmds, []string{"sh", "-c", c})
	}
	return []Action{{
		Kind:     ActionGenerate,
		Outputs:  []string{out},
		Prereqs:  prereqs,
		Commands: append(cmds, []string{"touch", out}),
		Rule:     r.ID(),
		Variant:  v,
	}}
}

func (e *Emitter) compileActions(r *graph.Rule, v string, srcs []string) []Action {
	m := e.opts.Model
	actions := make([]Action, 0, len(srcs))
	for _, src := range srcs {
		actions = append(actions, e.compileAction(r, v, m.SourcePath(r, src), m.ObjectPath(r, v, src)))
	}
	return actions
}

// compileAction compiles the file at srcPath into obj. Generated proto
// headers of the whole closure are prerequisites so generation always runs
// first.
func (e *Emitter) compileAction(r *graph.Rule, v, srcPath, obj string) Action {
	m := e.opts.Model
	cmd := []string{e.compilerFor(r.Kind, srcPath)}
	cmd = append(cmd, e.opts.CommonFlags...)
	cmd = append(cmd, e.opts.VariantFlags[v]...)
	cmd = append(cmd, "-I"+m.SourceRoot, "-I"+m.GenRoot(v))
	if r.Kind.IsExtension() {
		cmd = append(cmd, "-fPIC")
	}
	for _, d := range r.Attrs.Defines {
		cmd = append(cmd, "-D"+d)
	}
	if e.opts.VersionStamp != "" && r.Kind.IsLinked() && !r.Kind.IsExtension() {
		cmd = append(cmd, "-D"+versionStampMacro+`="`+e.opts.VersionStamp+`"`)
	}
	cmd = append(cmd, r.Attrs.CFlags...)
	cmd = append(cmd, "-c", srcPath, "-o", obj)

	return Action{
		Kind:     ActionCompile,
		Outputs:  []string{obj},
		Prereqs:  append([]string{srcPath}, e.calc.GeneratedHeaders(r, v)...),
		Commands: [][]string{mkdir(path.Dir(obj)), cmd},
		Rule:     r.ID(),
		Variant:  v,
	}
}

func (e *Emitter) archiveAction(r *graph.Rule, v string, objs []string) Action {
	out := e.opts.Model.Path(r, v)
	return Action{
		Kind:    ActionArchive,
		Outputs: []string{out},
		Prereqs: slices.Concat(objs, e.terminalDeps(r, v)),
		Commands: [][]string{
			mkdir(path.Dir(out)),
			{"rm", "-f", out},
			slices.Concat([]string{e.opts.Toolchain.AR, "rcs", out}, objs),
		},
		Rule:    r.ID(),
		Variant: v,
	}
}

// linkAction links objs with the rule's transitive archives. The archive
// order comes from the export calculator and must not be reordered.
func (e *Emitter) linkAction(r *graph.Rule, v string, objs []string) Action {
	out := e.opts.Model.Path(r, v)
	exports := e.calc.ExportPaths(r, v)

	linker := e.opts.Toolchain.CXX
	if r.Kind.UsesMPI() {
		linker = e.opts.Toolchain.MPICXX
	}
	cmd := []string{linker}
	cmd = append(cmd, e.opts.VariantFlags[v]...)
	if r.Kind.IsExtension() {
		cmd = append(cmd, "-shared")
	}
	cmd = append(cmd, "-o", out)
	cmd = append(cmd, objs...)
	cmd = append(cmd, exports...)
	cmd = append(cmd, e.linkFlags(r)...)

	return Action{
		Kind:     ActionLink,
		Outputs:  []string{out},
		Prereqs:  slices.Concat(objs, exports, e.terminalDeps(r, v)),
		Commands: [][]string{mkdir(path.Dir(out)), cmd},
		Rule:     r.ID(),
		Variant:  v,
	}
}

func (e *Emitter) linkFlags(r *graph.Rule) []string {
	flags := slices.Clone(r.Attrs.LinkFlags)
	switch r.Kind {
	case graph.KindTest:
		for _, lib := range e.opts.FrameworkLibs {
			if !slices.Contains(flags, lib) {
				flags = append(flags, lib)
			}
		}
	case graph.KindPyExtension:
		flags = append(flags, e.opts.Toolchain.PythonLDFlags...)
	}
	return flags
}

// verifyActions checks that every public header of r compiles on its own.
func (e *Emitter) verifyActions(r *graph.Rule, v string) []Action {
	m := e.opts.Model
	actions := make([]Action, 0, len(r.Attrs.Hdrs))
	for _, hdr := range r.Attrs.Hdrs {
		out := m.VerifiedPath(r, v, hdr)
		src := m.SourcePath(r, hdr)
		cmd := []string{e.opts.Toolchain.CXX}
		cmd = append(cmd, e.opts.CommonFlags...)
		cmd = append(cmd, e.opts.VariantFlags[v]...)
		cmd = append(cmd, "-I"+m.SourceRoot, "-I"+m.GenRoot(v), "-fsyntax-only", "-x", "c++", src)
		actions = append(actions, Action{
			Kind:     ActionVerify,
			Outputs:  []string{out},
			Prereqs:  append([]string{src}, e.calc.GeneratedHeaders(r, v)...),
			Commands: [][]string{mkdir(path.Dir(out)), cmd, {"touch", out}},
			Rule:     r.ID(),
			Variant:  v,
		})
	}
	return actions
}

func (e *Emitter) symlinkAction(p *graph.Package, v string) Action {
	m := e.opts.Model
	dir := m.PackageDir(p, v)
	return Action{
		Kind:     ActionSymlink,
		Outputs:  []string{dir},
		Commands: [][]string{mkdir(path.Dir(dir)), {"ln", "-sfn", m.PublishDir(p, v), dir}},
		Rule:     p.String(),
		Variant:  v,
	}
}

// terminalDeps returns the markers of r's direct data and script
// dependencies, which only order the consumer.
func (e *Emitter) terminalDeps(r *graph.Rule, v string) []string {
	var out []string
	for _, dep := range r.Resolved() {
		if dep.Kind.IsTerminal() {
			out = append(out, e.opts.Model.Path(dep, v))
		}
	}
	return out
}

func (e *Emitter) compilerFor(k graph.Kind, src string) string {
	switch {
	case k.UsesMPI():
		return e.opts.Toolchain.MPICXX
	case path.Ext(src) == ".c":
		return e.opts.Toolchain.CC
	default:
		return e.opts.Toolchain.CXX
	}
}

func compilableSources(r *graph.Rule) []string {
	var srcs []string
	for _, src := range r.Attrs.Srcs {
		if graph.IsCompilable(src) {
			srcs = append(srcs, src)
		}
	}
	return srcs
}

func outputsOf(actions []Action) []string {
	out := make([]string, 0, len(actions))
	for _, a := range actions {
		out = append(out, a.Output())
	}
	return out
}

func mkdir(dir string) []string { return []string{"mkdir", "-p", dir} }
