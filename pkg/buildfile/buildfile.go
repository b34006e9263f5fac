// SPDX-License-Identifier: MPL-2.0

package buildfile

import (
	"path"
	"strings"
)

const (
	// CUEName is the file name of a CUE descriptor.
	CUEName = "BUILD.cue"
	// HCLName is the file name of an HCL descriptor.
	HCLName = "BUILD.hcl"
)

// Kinds lists every rule kind a descriptor may declare.
var Kinds = []string{
	"library", "binary", "test", "proto_library", "data", "script",
	"script_test", "jni_library", "mpi_library", "mpi_binary", "py_extension",
	"gen_rule",
}

type (
	// File is a decoded descriptor.
	File struct {
		Package Package
		Rules   []Rule
	}

	// Package holds package-level flags.
	Package struct {
		Private     bool `hcl:"private,optional"`
		PublishOnly bool `hcl:"publish_only,optional"`
	}

	// Rule is one rule declaration, in file order.
	Rule struct {
		Kind      string   `json:"kind"`
		Name      string   `json:"name"`
		Srcs      []string `json:"srcs"      hcl:"srcs,optional"`
		Hdrs      []string `json:"hdrs"      hcl:"hdrs,optional"`
		Deps      []string `json:"deps"      hcl:"deps,optional"`
		Defines   []string `json:"defines"   hcl:"defines,optional"`
		CFlags    []string `json:"cflags"    hcl:"cflags,optional"`
		LinkFlags []string `json:"linkflags" hcl:"linkflags,optional"`
		Args      []string `json:"args"      hcl:"args,optional"`
		Cmds      []string `json:"cmds"      hcl:"cmds,optional"`

		// Line is where the declaration starts, for diagnostics.
		Line int `json:"-"`
	}
)

// Encoding identifies a descriptor format by file name.
func Encoding(name string) (string, bool) {
	switch path.Base(strings.ReplaceAll(name, `\`, "/")) {
	case CUEName:
		return "cue", true
	case HCLName:
		return "hcl", true
	}
	return "", false
}

// Parse decodes data according to the descriptor file name. pkgPath is
// exposed to HCL expressions.
func Parse(name string, data []byte, pkgPath string) (*File, error) {
	enc, ok := Encoding(name)
	if !ok {
		return nil, &UnknownEncodingError{Name: name}
	}
	if enc == "cue" {
		return ParseCUE(data, name)
	}
	return ParseHCL(data, name, pkgPath)
}

// UnknownEncodingError is returned by Parse for unrecognised file names.
type UnknownEncodingError struct {
	Name string
}

func (e *UnknownEncodingError) Error() string {
	return "unrecognised descriptor file " + e.Name + " (want " + CUEName + " or " + HCLName + ")"
}
