// SPDX-License-Identifier: MPL-2.0

package descriptor

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mkgen/mkgen/internal/graph"
	"github.com/mkgen/mkgen/pkg/buildfile"
)

// PackagePathFor maps a command-line argument naming a package directory or
// a descriptor file to a package path. Relative arguments are taken from
// the working directory, not the source root.
func PackagePathFor(sourceRoot, arg string) (string, error) {
	if _, ok := buildfile.Encoding(arg); ok {
		arg = filepath.Dir(arg)
	}
	root, err := filepath.Abs(sourceRoot)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(arg)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("%s is outside the source root %s", arg, sourceRoot)
	}
	if rel == "." {
		return "", nil
	}
	return graph.CleanPackagePath(rel)
}
