// SPDX-License-Identifier: MPL-2.0

package recipe

import "slices"

// Action kinds.
const (
	ActionCompile  ActionKind = "compile"
	ActionArchive  ActionKind = "archive"
	ActionLink     ActionKind = "link"
	ActionGenerate ActionKind = "generate"
	ActionVerify   ActionKind = "verify"
	ActionStamp    ActionKind = "stamp"
	ActionSymlink  ActionKind = "symlink"
	ActionAlias    ActionKind = "alias"
	// ActionGuard stops the build when the recipe is older than its inputs.
	ActionGuard ActionKind = "guard"
)

type (
	// ActionKind classifies what an action produces.
	ActionKind string

	// Action is one recipe stanza: outputs, the files they depend on, and the
	// commands that produce them. Commands are argument vectors; quoting is the
	// writer's job.
	Action struct {
		Kind     ActionKind
		Outputs  []string
		Prereqs  []string
		Commands [][]string
		// Phony outputs name no file.
		Phony bool
		// Rule is the ID of the rule the action was emitted for, empty for
		// actions that belong to no single rule.
		Rule string
		// Variant is the build variant the action belongs to.
		Variant string
	}
)

// Output returns the action's first output.
func (a Action) Output() string {
	if len(a.Outputs) == 0 {
		return ""
	}
	return a.Outputs[0]
}

// Alias returns a phony action that depends on every prereq.
func Alias(name string, prereqs []string) Action {
	return Action{Kind: ActionAlias, Outputs: []string{name}, Prereqs: slices.Clone(prereqs), Phony: true}
}

// Filter returns the actions of the given kind.
func Filter(actions []Action, kind ActionKind) []Action {
	var out []Action
	for _, a := range actions {
		if a.Kind == kind {
			out = append(out, a)
		}
	}
	return out
}
