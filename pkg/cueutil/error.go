// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"fmt"
	"strconv"
	"strings"

	cueerrors "cuelang.org/go/cue/errors"
)

type (
	// Issue is one problem found in a document.
	Issue struct {
		// Path is the field path in JSON-path notation, e.g. "rules[0].srcs".
		Path string
		// Line is the 1-based source line, 0 when unknown.
		Line    int
		Message string
	}

	// Error reports every problem found while decoding one document.
	Error struct {
		File   string
		Issues []Issue
		cause  error
	}
)

func (e *Error) Error() string {
	if len(e.Issues) == 1 {
		return e.File + ": " + e.Issues[0].String()
	}
	lines := make([]string, len(e.Issues))
	for i, is := range e.Issues {
		lines[i] = is.String()
	}
	return fmt.Sprintf("%s: %d problems:\n  %s", e.File, len(e.Issues), strings.Join(lines, "\n  "))
}

// Unwrap returns the underlying CUE error, if any.
func (e *Error) Unwrap() error { return e.cause }

func (is Issue) String() string {
	var b strings.Builder
	if is.Line > 0 {
		b.WriteString("line " + strconv.Itoa(is.Line) + ": ")
	}
	if is.Path != "" {
		b.WriteString(is.Path + ": ")
	}
	b.WriteString(is.Message)
	return b.String()
}

// FormatError converts err into an *Error for file. Errors that did not
// come from CUE become a single issue carrying their message.
func FormatError(err error, file string) error {
	if err == nil {
		return nil
	}
	list := cueerrors.Errors(err)
	if len(list) == 0 {
		return &Error{File: file, Issues: []Issue{{Message: err.Error()}}, cause: err}
	}

	out := &Error{File: file, cause: err}
	for _, ce := range list {
		p := JSONPath(ce.Path())
		format, args := ce.Msg()
		is := Issue{Path: p, Message: fmt.Sprintf(format, args...)}
		if pos := ce.Position(); pos.IsValid() {
			is.Line = pos.Line()
		}
		out.Issues = append(out.Issues, is)
	}
	return out
}

// JSONPath renders a CUE path such as ["rules", "0", "srcs"] as
// "rules[0].srcs".
func JSONPath(path []string) string {
	var b strings.Builder
	for i, part := range path {
		if _, err := strconv.Atoi(part); err == nil && i > 0 {
			b.WriteString("[" + part + "]")
			continue
		}
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(part)
	}
	return b.String()
}
