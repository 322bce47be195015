package mining

import (
	"context"

	"github.com/OFFIS-RIT/scholargraph/backend/pkg/canon"
	"github.com/OFFIS-RIT/scholargraph/backend/pkg/common"
	"github.com/OFFIS-RIT/scholargraph/backend/pkg/logger"
	"github.com/OFFIS-RIT/scholargraph/backend/pkg/store"
)

// itemSetNode returns the merge function of an item-set node. Existing
// properties are replaced by the new values, so re-running with the same
// result leaves the node unchanged.
func itemSetNode(items []string, extra store.Props) store.MergeFunc {
	return func(current store.Props, exists bool) store.Props {
		next := current.Clone()
		if next == nil {
			next = store.Props{}
		}
		next["items"] = append([]string(nil), items...)
		next["size"] = len(items)
		for k, v := range extra {
			next[k] = v
		}
		return next
	}
}

// persist writes itemsets and rules and returns the number of failed
// writes. A failed item is logged and skipped.
func (m *Miner) persist(ctx context.Context, result *Result) int {
	failed := 0
	for _, set := range result.Itemsets {
		if ctx.Err() != nil {
			return failed
		}
		key := canon.Key(set.Items)
		_, err := m.writer.UpsertNode(ctx, store.LabelFrequentSet, key, itemSetNode(set.Items, store.Props{
			"support_count": set.SupportCount,
			"support":       set.Support,
		}))
		if err != nil {
			logger.Error("[Mining] Failed to persist itemset", "key", key, "err", err)
			failed++
		}
	}

	for _, rule := range result.Rules {
		if ctx.Err() != nil {
			return failed
		}
		if err := m.persistRule(ctx, rule); err != nil {
			logger.Error("[Mining] Failed to persist rule",
				"antecedent", rule.Antecedent,
				"consequent", rule.Consequent,
				"err", err,
			)
			failed++
		}
	}
	return failed
}

func (m *Miner) persistRule(ctx context.Context, rule common.AssociationRule) error {
	left := store.NodeRef{Label: store.LabelLeftSet, Key: canon.Key(rule.Antecedent)}
	right := store.NodeRef{Label: store.LabelRightSet, Key: canon.Key(rule.Consequent)}

	if _, err := m.writer.UpsertNode(ctx, left.Label, left.Key, itemSetNode(rule.Antecedent, nil)); err != nil {
		return err
	}
	if _, err := m.writer.UpsertNode(ctx, right.Label, right.Key, itemSetNode(rule.Consequent, nil)); err != nil {
		return err
	}
	return m.writer.UpsertEdge(ctx, store.Edge{
		Type: store.RelRules,
		From: left,
		To:   right,
		Props: store.Props{
			"support":    rule.Support,
			"confidence": rule.Confidence,
		},
	})
}
