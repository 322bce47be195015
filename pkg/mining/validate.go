package mining

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/OFFIS-RIT/scholargraph/backend/pkg/canon"
	"github.com/OFFIS-RIT/scholargraph/backend/pkg/common"
)

var (
	ErrEmptyItems      = errors.New("mining: empty item set")
	ErrInvalidItem     = errors.New("mining: item is blank, reserved or repeated")
	ErrSupportCount    = errors.New("mining: support count below 1")
	ErrItemsetTooLarge = errors.New("mining: item set exceeds max size")
	ErrRatioRange      = errors.New("mining: ratio outside [0, 1]")
	ErrOverlappingRule = errors.New("mining: antecedent and consequent overlap")
)

// ValidateItemset canonicalizes the items of set and checks its structure.
// Items are never dropped: a set whose items do not all map to distinct
// topics is rejected, since its support was computed for the raw set.
func ValidateItemset(set common.FrequentItemset, maxSize int) (common.FrequentItemset, error) {
	items, ok := canon.StrictItems(set.Items)
	switch {
	case len(set.Items) == 0:
		return set, ErrEmptyItems
	case !ok:
		return set, fmt.Errorf("%w: %q", ErrInvalidItem, set.Items)
	case set.SupportCount < 1:
		return set, ErrSupportCount
	case maxSize > 0 && len(items) > maxSize:
		return set, fmt.Errorf("%w: %d > %d", ErrItemsetTooLarge, len(items), maxSize)
	case !inUnitRange(set.Support):
		return set, fmt.Errorf("%w: support %v", ErrRatioRange, set.Support)
	}
	set.Items = items
	return set, nil
}

// ValidateRule canonicalizes both sides of rule and checks its structure.
func ValidateRule(rule common.AssociationRule) (common.AssociationRule, error) {
	a, okA := canon.StrictItems(rule.Antecedent)
	b, okB := canon.StrictItems(rule.Consequent)
	switch {
	case len(rule.Antecedent) == 0 || len(rule.Consequent) == 0:
		return rule, ErrEmptyItems
	case !okA || !okB:
		return rule, fmt.Errorf("%w: %q -> %q", ErrInvalidItem, rule.Antecedent, rule.Consequent)
	case overlaps(a, b):
		return rule, ErrOverlappingRule
	case !inUnitRange(rule.Support):
		return rule, fmt.Errorf("%w: support %v", ErrRatioRange, rule.Support)
	case !inUnitRange(rule.Confidence):
		return rule, fmt.Errorf("%w: confidence %v", ErrRatioRange, rule.Confidence)
	}
	rule.Antecedent = a
	rule.Consequent = b
	return rule, nil
}

func inUnitRange(v float64) bool {
	return v >= 0 && v <= 1
}

// overlaps reports whether two sorted item lists share an item.
func overlaps(a, b []string) bool {
	for _, item := range a {
		if canon.Contains(b, item) {
			return true
		}
	}
	return false
}

// SortForAudit orders itemsets by support count ascending, then size
// descending, then lexically by items.
func SortForAudit(sets []common.FrequentItemset) []common.FrequentItemset {
	out := slices.Clone(sets)
	slices.SortStableFunc(out, func(a, b common.FrequentItemset) int {
		if c := cmp.Compare(a.SupportCount, b.SupportCount); c != 0 {
			return c
		}
		if c := cmp.Compare(len(b.Items), len(a.Items)); c != 0 {
			return c
		}
		return slices.Compare(a.Items, b.Items)
	})
	return out
}

// Split is one antecedent/consequent partition of an itemset.
type Split struct {
	Antecedent []string
	Consequent []string
}

// Splits returns every partition of items into two non-empty sides. The
// antecedents follow the bit order of their positions in items.
func Splits(items []string) []Split {
	n := len(items)
	if n < 2 || n > 20 {
		return nil
	}
	var out []Split
	full := 1<<n - 1
	for mask := 1; mask < full; mask++ {
		var a, b []string
		for i, item := range items {
			if mask&(1<<i) != 0 {
				a = append(a, item)
			} else {
				b = append(b, item)
			}
		}
		out = append(out, Split{Antecedent: a, Consequent: b})
	}
	return out
}

// LargestFrequent returns the itemsets of maximal size among those with at
// least minSupportCount supporting transactions.
func LargestFrequent(sets []common.FrequentItemset, minSupportCount int) []common.FrequentItemset {
	best := 0
	for _, s := range sets {
		if s.SupportCount >= minSupportCount {
			best = max(best, len(s.Items))
		}
	}
	if best == 0 {
		return nil
	}
	var out []common.FrequentItemset
	for _, s := range sets {
		if s.SupportCount >= minSupportCount && len(s.Items) == best {
			out = append(out, s)
		}
	}
	return out
}
