// Package combination enumerates and validates the topic combinations of a
// paper and stores them as shared TopicCombination nodes.
package combination

import (
	"cmp"
	"slices"

	"github.com/OFFIS-RIT/scholargraph/backend/pkg/canon"
	"github.com/OFFIS-RIT/scholargraph/backend/pkg/common"
	"github.com/OFFIS-RIT/scholargraph/backend/pkg/logger"
)

// Enumerate returns every subset of items with 1..k elements. items is
// canonicalized first. Subsets come ordered by size, then by the position of
// their items, so the output is sorted.
//
//	Enumerate([]string{"a", "b", "c"}, 2) // [a] [b] [c] [a b] [a c] [b c]
func Enumerate(items []string, k int) []common.Combination {
	items = canon.Items(items)
	k = min(k, len(items))
	var out []common.Combination
	for size := 1; size <= k; size++ {
		idx := make([]int, size)
		for i := range idx {
			idx[i] = i
		}
		for {
			combo := make(common.Combination, size)
			for i, j := range idx {
				combo[i] = items[j]
			}
			out = append(out, combo)

			// advance to the next index tuple in lexical order
			i := size - 1
			for i >= 0 && idx[i] == len(items)-size+i {
				i--
			}
			if i < 0 {
				break
			}
			idx[i]++
			for j := i + 1; j < size; j++ {
				idx[j] = idx[j-1] + 1
			}
		}
	}
	return out
}

// Validate keeps the proposals that canonicalize to a non-empty subset of
// items with at most k elements, deduplicated by their sorted form. A
// proposal holding an empty, reserved or repeated item is dropped as a whole.
func Validate(proposals [][]string, items []string, k int) []common.Combination {
	domain := canon.Items(items)
	seen := make(map[string]struct{}, len(proposals))
	out := make([]common.Combination, 0, len(proposals))
	for _, p := range proposals {
		combo, ok := canon.StrictItems(p)
		if !ok {
			logger.Debug("[Combination] Dropping proposal with invalid items", "proposal", p)
			continue
		}
		if len(combo) == 0 || len(combo) > k {
			logger.Debug("[Combination] Dropping proposal with invalid size", "proposal", p, "k", k)
			continue
		}
		if !subset(combo, domain) {
			logger.Debug("[Combination] Dropping proposal outside the paper topics", "proposal", p)
			continue
		}
		key := canon.Key(combo)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, combo)
	}
	return out
}

// Union adds every combination of extra missing from base and returns the
// result sorted by size, then lexically.
func Union(base, extra []common.Combination) []common.Combination {
	seen := make(map[string]struct{}, len(base)+len(extra))
	out := make([]common.Combination, 0, len(base)+len(extra))
	for _, list := range [][]common.Combination{base, extra} {
		for _, c := range list {
			key := canon.Key(c)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, c)
		}
	}
	Sort(out)
	return out
}

// Sort orders combinations by size, then lexically.
func Sort(combos []common.Combination) {
	slices.SortFunc(combos, func(a, b common.Combination) int {
		if c := cmp.Compare(len(a), len(b)); c != 0 {
			return c
		}
		return slices.Compare(a, b)
	})
}

func subset(combo, domain []string) bool {
	for _, item := range combo {
		if !canon.Contains(domain, item) {
			return false
		}
	}
	return true
}
