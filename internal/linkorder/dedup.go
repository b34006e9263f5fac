// SPDX-License-Identifier: MPL-2.0

package linkorder

import "slices"

// StableDedupKeepLast removes every occurrence of a repeated value except the
// right-most one. Retained elements keep their relative input order, so
// [A B C A D B] becomes [C A D B]. The input is not modified.
//
// A single-pass static linker only resolves undefined symbols against
// archives that appear later on the command line; keeping the last
// occurrence places each archive after all of its consumers.
func StableDedupKeepLast[T comparable](seq []T) []T {
	seen := make(map[T]struct{}, len(seq))
	out := make([]T, 0, len(seq))
	for i := len(seq) - 1; i >= 0; i-- {
		v := seq[i]
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	slices.Reverse(out)
	return out
}
