// SPDX-License-Identifier: MPL-2.0

// Package cueutil decodes user-supplied CUE documents against an embedded
// schema.
//
// Decoding always follows the same three steps: compile the schema, compile
// the document and unify it with a schema definition, then validate and
// decode into a Go value. Failures come back as *Error, which lists every
// problem with its field path and source line.
//
//	//go:embed build_schema.cue
//	var schema []byte
//
//	res, err := cueutil.ParseAndDecode[File](schema, data, "#File",
//	    cueutil.WithFilename("BUILD.cue"))
package cueutil
