package taxonomy

import (
	"unicode/utf8"

	"github.com/OFFIS-RIT/scholargraph/backend/pkg/canon"
	"github.com/OFFIS-RIT/scholargraph/backend/pkg/common"
	"github.com/OFFIS-RIT/scholargraph/backend/pkg/store"
)

// TopicGroup is every source topic sharing one canonical label.
type TopicGroup struct {
	Canonical string
	Label     string
	Keys      []string
}

// ImportPlan is the canonical view of an ontology snapshot.
type ImportPlan struct {
	Groups []TopicGroup
	Edges  []common.HierarchyEdge

	// SkippedTopics counts topics whose label canonicalized to a sentinel.
	SkippedTopics int
	// DroppedEdges counts edges with an unknown endpoint, self-loops after
	// canonicalization and repeats.
	DroppedEdges int
}

// PlanImport groups topics by canonical label and rewrites the edges onto
// canonical labels. It does not touch the store.
//
// Groups appear in the order their first topic appears. The display label of
// a group is the first raw label seen unless a strictly shorter one follows.
func PlanImport(topics []common.SourceTopic, edges []common.HierarchyEdge) ImportPlan {
	plan := ImportPlan{}
	index := make(map[string]int)
	keyToCanon := make(map[string]string, len(topics))

	for _, t := range topics {
		c := canon.Canonicalize(t.Label)
		if canon.IsSentinel(c) {
			plan.SkippedTopics++
			continue
		}
		if _, ok := keyToCanon[t.Key]; !ok {
			keyToCanon[t.Key] = c
		}

		i, ok := index[c]
		if !ok {
			index[c] = len(plan.Groups)
			plan.Groups = append(plan.Groups, TopicGroup{
				Canonical: c,
				Label:     t.Label,
				Keys:      store.AppendUnique(nil, t.Key),
			})
			continue
		}
		g := &plan.Groups[i]
		g.Keys = store.AppendUnique(g.Keys, t.Key)
		g.Label = preferLabel(g.Label, t.Label)
	}

	seen := make(map[common.HierarchyEdge]struct{}, len(edges))
	for _, e := range edges {
		sub, okSub := keyToCanon[e.Sub]
		super, okSuper := keyToCanon[e.Super]
		if !okSub || !okSuper || sub == super {
			plan.DroppedEdges++
			continue
		}
		mapped := common.HierarchyEdge{Sub: sub, Super: super}
		if _, dup := seen[mapped]; dup {
			plan.DroppedEdges++
			continue
		}
		seen[mapped] = struct{}{}
		plan.Edges = append(plan.Edges, mapped)
	}
	return plan
}

// preferLabel returns incoming only when it is strictly shorter, counted in
// characters, than current.
func preferLabel(current, incoming string) string {
	if current == "" {
		return incoming
	}
	if incoming != "" && utf8.RuneCountInString(incoming) < utf8.RuneCountInString(current) {
		return incoming
	}
	return current
}
