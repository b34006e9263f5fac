// SPDX-License-Identifier: MPL-2.0

package buildfile

import (
	"path"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
)

const packageBlock = "package"

// hclSchema accepts one optional package block and any number of rule
// blocks, one block type per kind, each labelled with the rule name.
var hclSchema = func() *hcl.BodySchema {
	s := &hcl.BodySchema{Blocks: []hcl.BlockHeaderSchema{{Type: packageBlock}}}
	for _, k := range Kinds {
		s.Blocks = append(s.Blocks, hcl.BlockHeaderSchema{Type: k, LabelNames: []string{"name"}})
	}
	return s
}()

// ParseHCL decodes a BUILD.hcl descriptor. Expressions can read
// package.path and package.name. Errors are hcl.Diagnostics.
func ParseHCL(data []byte, filename, pkgPath string) (*File, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, diags
	}

	content, diags := file.Body.Content(hclSchema)
	if diags.HasErrors() {
		return nil, diags
	}

	evalCtx := &hcl.EvalContext{Variables: map[string]cty.Value{
		packageBlock: cty.ObjectVal(map[string]cty.Value{
			"path": cty.StringVal(pkgPath),
			"name": cty.StringVal(path.Base("/" + pkgPath)),
		}),
	}}

	out := &File{}
	seenPackage := false
	for _, block := range content.Blocks {
		if block.Type == packageBlock {
			if seenPackage {
				return nil, hcl.Diagnostics{{
					Severity: hcl.DiagError,
					Summary:  "Duplicate package block",
					Detail:   "A descriptor may contain at most one package block.",
					Subject:  block.DefRange.Ptr(),
				}}
			}
			seenPackage = true
			if diags := gohcl.DecodeBody(block.Body, evalCtx, &out.Package); diags.HasErrors() {
				return nil, diags
			}
			continue
		}

		r := Rule{Kind: block.Type, Name: block.Labels[0], Line: block.DefRange.Start.Line}
		if diags := gohcl.DecodeBody(block.Body, evalCtx, &r); diags.HasErrors() {
			return nil, diags
		}
		out.Rules = append(out.Rules, r)
	}
	return out, nil
}
