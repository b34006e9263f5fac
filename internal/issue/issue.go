// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

type Id int

const (
	DescriptorNotFoundId Id = iota + 1
	DescriptorParseErrorId
	InvalidRuleId
	InvalidReferenceId
	PackageNotFoundId
	RuleNotFoundId
	DuplicateRuleNameId
	DependencyCycleId
	NestedPackageId
	ConfigLoadFailedId
	OutputWriteFailedId
	PermissionDeniedId
)

type MarkdownMsg string

type Issue struct {
	id    Id          // ID used to lookup the issue
	mdMsg MarkdownMsg // Markdown text that will be rendered
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

// Render renders the issue's Markdown with the named glamour style
// ("dark", "light", "notty", ...).
func (i *Issue) Render(stylePath string) (string, error) {
	return render(string(i.mdMsg), stylePath)
}

var (
	render = glamour.Render

	descriptorNotFoundIssue = &Issue{
		id: DescriptorNotFoundId,
		mdMsg: `
# No package descriptor found!

Every package directory needs a ` + "`BUILD.cue`" + ` or ` + "`BUILD.hcl`" + ` file.

## Things you can try:
- Check that the path is relative to the source root:
~~~
$ mkgen config show
~~~
- Create a descriptor for the package:
~~~cue
rules: [
  {kind: "library", name: "core", srcs: ["core.cc"]},
]
~~~`,
	}

	descriptorParseErrorIssue = &Issue{
		id: DescriptorParseErrorId,
		mdMsg: `
# The package descriptor is invalid!

The file could not be parsed or does not match the descriptor schema.

## Things you can try:
- Read the field path in the message (e.g. ` + "`rules[2].kind`" + `)
- Check that ` + "`kind`" + ` is one of: library, binary, test, proto_library,
  data, script, script_test, jni_library, mpi_library, mpi_binary, py_extension,
  gen_rule
- Remove attributes the rule kind does not support`,
	}

	invalidRuleIssue = &Issue{
		id: InvalidRuleId,
		mdMsg: `
# A rule is misconfigured!

A required attribute is missing, has the wrong type, or two sources would
compile to the same object file.

## Things you can try:
- Give every compiled rule at least one source in ` + "`srcs`" + `
- Rename one of two ` + "`.cc`" + `/` + "`.cpp`" + ` files that share a basename
- Use only ` + "`.proto`" + ` sources in proto_library rules`,
	}

	invalidReferenceIssue = &Issue{
		id: InvalidReferenceId,
		mdMsg: `
# Malformed dependency reference!

Dependencies are written as ` + "`//package/path:name`" + ` or ` + "`:name`" + `
for a rule in the same package.

## Examples:
~~~
deps: ["//base/log:log", ":util"]
~~~`,
	}

	packageNotFoundIssue = &Issue{
		id: PackageNotFoundId,
		mdMsg: `
# Referenced package does not exist!

A dependency names a package directory without a descriptor.

## Things you can try:
- Check the spelling of the package path
- Package paths are relative to the source root, not to the referencing package`,
	}

	ruleNotFoundIssue = &Issue{
		id: RuleNotFoundId,
		mdMsg: `
# Referenced rule does not exist!

The package was found but declares no rule with that name.

## Things you can try:
- List the package's rules:
~~~
$ mkgen deps //package/path:name
~~~
- Check for a renamed or removed rule`,
	}

	duplicateRuleNameIssue = &Issue{
		id: DuplicateRuleNameId,
		mdMsg: `
# Two rules share a name!

Rule names must be unique within a package, whatever their kind.`,
	}

	dependencyCycleIssue = &Issue{
		id: DependencyCycleId,
		mdMsg: `
# Dependency cycle detected!

The rules in the reported chain depend on each other. The build graph must be
acyclic.

## Things you can try:
- Move the code both rules need into a new library they both depend on
- Remove the dependency that closes the loop`,
	}

	nestedPackageIssue = &Issue{
		id: NestedPackageId,
		mdMsg: `
# File belongs to another package!

A subdirectory that has its own descriptor is a separate package. Its files
cannot be listed by the parent package.

## Things you can try:
- Declare the file in the nested package and depend on that rule
- Remove the nested descriptor if the directory is not meant to be a package`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

## Things you can try:
- Check the CUE syntax of ` + "`mkgen.cue`" + `
- Print the effective configuration:
~~~
$ mkgen config show
~~~
- Override single values with ` + "`MKGEN_*`" + ` environment variables`,
	}

	outputWriteFailedIssue = &Issue{
		id: OutputWriteFailedId,
		mdMsg: `
# Failed to write the recipe!

## Things you can try:
- Check that the output directory exists and is writable
- Write to standard output instead:
~~~
$ mkgen gen --stdout
~~~`,
	}

	permissionDeniedIssue = &Issue{
		id: PermissionDeniedId,
		mdMsg: `
# Permission denied!

mkgen could not read a descriptor or write an output file.

## Things you can try:
- Check file and directory permissions
- Run from a directory you own`,
	}

	issues = map[Id]*Issue{
		descriptorNotFoundIssue.Id():   descriptorNotFoundIssue,
		descriptorParseErrorIssue.Id(): descriptorParseErrorIssue,
		invalidRuleIssue.Id():          invalidRuleIssue,
		invalidReferenceIssue.Id():     invalidReferenceIssue,
		packageNotFoundIssue.Id():      packageNotFoundIssue,
		ruleNotFoundIssue.Id():         ruleNotFoundIssue,
		duplicateRuleNameIssue.Id():    duplicateRuleNameIssue,
		dependencyCycleIssue.Id():      dependencyCycleIssue,
		nestedPackageIssue.Id():        nestedPackageIssue,
		configLoadFailedIssue.Id():     configLoadFailedIssue,
		outputWriteFailedIssue.Id():    outputWriteFailedIssue,
		permissionDeniedIssue.Id():     permissionDeniedIssue,
	}
)

// Values returns every issue ordered by id.
func Values() []*Issue {
	out := make([]*Issue, 0, len(issues))
	for _, i := range issues {
		out = append(out, i)
	}
	slices.SortFunc(out, func(a, b *Issue) int { return int(a.id) - int(b.id) })
	return out
}

func Get(id Id) *Issue {
	return issues[id]
}
