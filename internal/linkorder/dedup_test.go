// SPDX-License-Identifier: MPL-2.0

package linkorder

import (
	"slices"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestStableDedupKeepLast(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{name: "empty", in: nil, want: []string{}},
		{name: "no duplicates", in: []string{"A", "B", "C"}, want: []string{"A", "B", "C"}},
		{name: "documented example", in: []string{"A", "B", "C", "A", "D", "B"}, want: []string{"C", "A", "D", "B"}},
		{name: "all equal", in: []string{"Z", "Z", "Z"}, want: []string{"Z"}},
		{name: "adjacent", in: []string{"A", "A", "B", "B"}, want: []string{"A", "B"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			in := slices.Clone(tt.in)
			got := StableDedupKeepLast(tt.in)
			if !slices.Equal(got, tt.want) {
				t.Errorf("StableDedupKeepLast(%v) = %v, want %v", tt.in, got, tt.want)
			}
			if !slices.Equal(tt.in, in) {
				t.Errorf("input was modified: %v", tt.in)
			}
		})
	}
}

func TestStableDedupKeepLastProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	// Small value range so duplicates are common.
	values := gen.SliceOf(gen.IntRange(0, 6))

	properties.Property("no value appears twice", prop.ForAll(
		func(seq []int) bool {
			out := StableDedupKeepLast(seq)
			seen := make(map[int]bool)
			for _, v := range out {
				if seen[v] {
					return false
				}
				seen[v] = true
			}
			return true
		},
		values,
	))

	properties.Property("keeps exactly the last occurrence of each value", prop.ForAll(
		func(seq []int) bool {
			var want []int
			for i, v := range seq {
				if !slices.Contains(seq[i+1:], v) {
					want = append(want, v)
				}
			}
			return slices.Equal(StableDedupKeepLast(seq), want)
		},
		values,
	))

	properties.Property("idempotent", prop.ForAll(
		func(seq []int) bool {
			once := StableDedupKeepLast(seq)
			return slices.Equal(StableDedupKeepLast(once), once)
		},
		values,
	))

	properties.Property("preserves the set of values", prop.ForAll(
		func(seq []int) bool {
			out := StableDedupKeepLast(seq)
			for _, v := range seq {
				if !slices.Contains(out, v) {
					return false
				}
			}
			return len(out) <= len(seq)
		},
		values,
	))

	properties.TestingRun(t)
}
