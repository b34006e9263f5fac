// SPDX-License-Identifier: MPL-2.0

package generate

import (
	"slices"
	"strings"

	"github.com/mkgen/mkgen/internal/config"
	"github.com/mkgen/mkgen/internal/recipe"
)

// Alias names defined by every recipe besides the per-variant ones.
const (
	AliasAll          = "all"
	AliasScriptTest   = "script_test"
	AliasTestUntilDie = "test_until_die"
	testSuffix        = "_test"
	untilDieSuffix    = "_test_until_die"
)

// aliases returns the phony entry points, "all" first so that it is the
// default goal, followed by the guard that rejects a stale recipe.
//
//	all            every root in every build variant
//	<v>            every non-test root in variant v
//	<v>_test           builds and runs the test binaries of variant v
//	script_test        runs every script test through bash -x
//	<v>_test_until_die reruns the tests of variant v until one fails
//	test_until_die     reruns every test of every variant until one fails
func (p *Plan) aliases(cfg *config.Config, configFile string) ([]recipe.Action, error) {
	var (
		all     []string
		perVar  []recipe.Action
		tests   []recipe.Action
		loops   []recipe.Action
		scripts []string
		runs    [][]string
		allRuns [][]string
	)

	for _, v := range cfg.Variants {
		var outs []string
		for _, r := range p.Roots {
			out := p.Model.Path(r, v)
			all = append(all, out)
			if !r.Kind.IsTest() {
				outs = append(outs, out)
			}
		}
		perVar = append(perVar, recipe.Alias(v, outs))

		var bins []string
		var cmds [][]string
		for _, e := range p.Tests.Tests {
			if e.Variant != v {
				continue
			}
			bins = append(bins, e.Path)
			cmds = append(cmds, append([]string{e.Path}, e.Args...))
		}
		a := recipe.Alias(v+testSuffix, append([]string{v}, bins...))
		a.Commands = cmds
		tests = append(tests, a)

		loop, err := untilDie(v+untilDieSuffix, append([]string{v}, bins...), cmds)
		if err != nil {
			return nil, err
		}
		loops = append(loops, loop)
		allRuns = append(allRuns, cmds...)
	}

	for _, e := range p.Tests.Tests {
		if e.Variant == "" {
			scripts = append(scripts, e.Path)
			runs = append(runs, append([]string{"bash", "-x", e.Path}, e.Args...))
		}
	}
	script := recipe.Alias(AliasScriptTest, scripts)
	script.Commands = runs

	loop, err := untilDie(AliasTestUntilDie, slices.Concat(cfg.Variants, scripts), slices.Concat(allRuns, runs))
	if err != nil {
		return nil, err
	}
	loops = append(loops, loop)

	out := []recipe.Action{recipe.Alias(AliasAll, dedup(all))}
	out = append(out, perVar...)
	out = append(out, tests...)
	out = append(out, script)
	out = append(out, loops...)
	if guard, ok := p.guard(cfg, configFile); ok {
		out = append(out, guard)
	}
	return out, nil
}

// untilDie returns an alias that runs cmds in a loop until one of them
// fails, for shaking out flaky tests.
func untilDie(name string, prereqs []string, cmds [][]string) (recipe.Action, error) {
	a := recipe.Alias(name, prereqs)
	if len(cmds) == 0 {
		a.Commands = [][]string{{"echo", "no test defined"}}
		return a, nil
	}
	lines := make([]string, 0, len(cmds))
	for _, argv := range cmds {
		line, err := recipe.ShellLine(argv)
		if err != nil {
			return recipe.Action{}, err
		}
		lines = append(lines, line)
	}
	a.Commands = [][]string{{"sh", "-c", "while :; do " + strings.Join(lines, " && ") + " || exit 1; done"}}
	return a, nil
}

// guard makes the recipe file depend on every descriptor read, so that
// editing one fails the next build with a request to regenerate instead
// of running a recipe for an outdated graph.
func (p *Plan) guard(cfg *config.Config, configFile string) (recipe.Action, bool) {
	if cfg.Output.Recipe == "" || len(p.Descriptors) == 0 {
		return recipe.Action{}, false
	}
	prereqs := slices.Clone(p.Descriptors)
	if configFile != "" {
		prereqs = append(prereqs, configFile)
	}
	return recipe.Action{
		Kind:    recipe.ActionGuard,
		Outputs: []string{cfg.Output.Recipe},
		Prereqs: prereqs,
		Commands: [][]string{
			{"echo", "build descriptors changed; run 'mkgen gen' to update " + cfg.Output.Recipe},
			{"false"},
		},
	}, true
}

func dedup(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := paths[:0:0]
	for _, s := range paths {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
