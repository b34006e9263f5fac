// SPDX-License-Identifier: MPL-2.0

// Command mkgen compiles package descriptors into a make recipe.
package main

import cmd "github.com/mkgen/mkgen/cmd/mkgen"

func main() {
	cmd.Execute()
}
