package taxonomy

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/OFFIS-RIT/scholargraph/backend/pkg/canon"
	"github.com/OFFIS-RIT/scholargraph/backend/pkg/logger"
	"github.com/OFFIS-RIT/scholargraph/backend/pkg/store"
)

// MergeReport summarizes one duplicate merge pass.
type MergeReport struct {
	Groups       int `json:"groups"`
	Merged       int `json:"merged"`
	Failed       int `json:"failed"`
	Rekeyed      int `json:"rekeyed"`
	EdgesMoved   int `json:"edges_moved"`
	GroupsFailed int `json:"groups_failed"`
}

// Changed reports whether the pass modified the store.
func (r MergeReport) Changed() bool {
	return r.Merged > 0 || r.Rekeyed > 0
}

type duplicateGroup struct {
	canonical string
	members   []store.Node
}

// MergeDuplicates collapses persisted topics whose keys share a canonical
// label. The first topic of each group in store order survives; every other
// member has its URIs merged into the survivor, its relationships moved onto
// the survivor and is deleted, all in one transaction per member. Survivors
// are finally rekeyed to the canonical label.
//
// Backends that cannot enforce unique keys may hold several topics under one
// key. Those are told apart by NodeRef.ID; a member that cannot be told apart
// from the survivor is skipped, never merged into itself.
//
// The pass must not overlap with imports; callers serialize it with the
// taxonomy lease. A failing group is logged and the pass continues. Running
// it twice in a row changes nothing the second time.
func (i *Importer) MergeDuplicates(ctx context.Context) (MergeReport, error) {
	report := MergeReport{}

	nodes, err := i.store.Nodes(ctx, store.LabelTopic)
	if err != nil {
		return report, fmt.Errorf("failed to read topics: %w", err)
	}

	groups := groupByCanonical(nodes)
	for _, g := range groups {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if len(g.members) == 1 && g.members[0].Key == g.canonical {
			continue
		}
		report.Groups++

		survivor := g.members[0].NodeRef
		failed := false
		for _, dup := range g.members[1:] {
			moved, err := i.mergeInto(ctx, survivor, dup.NodeRef)
			if err != nil {
				logger.Error("[Taxonomy] Failed to merge duplicate topic",
					"canonical", g.canonical,
					"survivor", survivor.Key,
					"duplicate", dup.Key,
					"err", err,
				)
				report.Failed++
				failed = true
				continue
			}
			report.Merged++
			report.EdgesMoved += moved
		}

		if failed {
			report.GroupsFailed++
			continue
		}
		if survivor.Key == g.canonical {
			continue
		}
		err := i.store.Atomic(ctx, func(tx store.Tx) error {
			return tx.RekeyNode(ctx, survivor, g.canonical)
		})
		if err != nil {
			logger.Error("[Taxonomy] Failed to rekey topic", "from", survivor.Key, "to", g.canonical, "err", err)
			report.GroupsFailed++
			continue
		}
		report.Rekeyed++
	}

	logger.Info("[Taxonomy] Duplicate merge finished",
		"groups", report.Groups,
		"merged", report.Merged,
		"failed", report.Failed,
		"rekeyed", report.Rekeyed,
		"edges_moved", report.EdgesMoved,
	)
	return report, nil
}

// mergeInto folds dup into survivor in one transaction.
func (i *Importer) mergeInto(ctx context.Context, survivor, dup store.NodeRef) (int, error) {
	if sameNode(survivor, dup) {
		return 0, fmt.Errorf("refusing to merge topic %q into itself", dup.Key)
	}
	moved := 0
	err := i.store.Atomic(ctx, func(tx store.Tx) error {
		d, err := tx.Node(ctx, dup)
		if err != nil {
			return err
		}
		if _, err := tx.Node(ctx, survivor); err != nil {
			return err
		}

		uris := d.Props.Strings(propURIs)
		_, err = tx.UpdateNode(ctx, survivor, func(current store.Props, exists bool) store.Props {
			next := current.Clone()
			if next == nil {
				next = store.Props{}
			}
			next[propURIs] = store.AppendUnique(current.Strings(propURIs), uris...)
			return next
		})
		if err != nil {
			return err
		}

		moved, err = tx.RedirectEdges(ctx, dup, survivor)
		if err != nil {
			return err
		}
		return tx.DeleteNode(ctx, dup)
	})
	if errors.Is(err, store.ErrNotFound) {
		return 0, fmt.Errorf("topic vanished during merge: %w", err)
	}
	return moved, err
}

func groupByCanonical(nodes []store.Node) []duplicateGroup {
	index := make(map[string]int)
	var groups []duplicateGroup
	for _, n := range nodes {
		c := canon.Canonicalize(n.Key)
		if canon.IsSentinel(c) {
			logger.Warn("[Taxonomy] Topic key has no canonical form", "key", n.Key)
			continue
		}
		i, ok := index[c]
		if !ok {
			index[c] = len(groups)
			groups = append(groups, duplicateGroup{canonical: c, members: []store.Node{n}})
			continue
		}
		if slices.ContainsFunc(groups[i].members, func(m store.Node) bool { return sameNode(m.NodeRef, n.NodeRef) }) {
			logger.Warn("[Taxonomy] Topic listed twice", "key", n.Key)
			continue
		}
		groups[i].members = append(groups[i].members, n)
	}
	return groups
}

// sameNode reports whether a and b may point at the same node. Refs sharing a
// key are only distinct when both carry different backend ids.
func sameNode(a, b store.NodeRef) bool {
	if a.Label != b.Label || a.Key != b.Key {
		return false
	}
	return a.ID == "" || b.ID == "" || a.ID == b.ID
}
