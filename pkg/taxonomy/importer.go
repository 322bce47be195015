// Package taxonomy imports ontology snapshots into the topic graph and keeps
// the graph free of duplicate topics.
package taxonomy

import (
	"context"
	"fmt"

	"github.com/OFFIS-RIT/scholargraph/backend/pkg/common"
	"github.com/OFFIS-RIT/scholargraph/backend/pkg/logger"
	"github.com/OFFIS-RIT/scholargraph/backend/pkg/store"
)

const (
	propLabel = "label"
	propURIs  = "uris"
)

// Importer writes topics and their hierarchy into a graph store.
type Importer struct {
	store store.GraphStore
}

// NewImporter returns an importer backed by s.
func NewImporter(s store.GraphStore) *Importer {
	return &Importer{store: s}
}

// ImportReport summarizes one import run.
type ImportReport struct {
	Topics        int `json:"topics"`
	TopicsFailed  int `json:"topics_failed"`
	TopicsSkipped int `json:"topics_skipped"`
	Edges         int `json:"edges"`
	EdgesFailed   int `json:"edges_failed"`
	EdgesDropped  int `json:"edges_dropped"`
}

// Import upserts every canonical topic of the snapshot and links them with
// SUB_TOPIC_OF edges. Re-importing the same snapshot changes nothing.
//
// A topic group or edge that cannot be written is logged and skipped. Only
// a cancelled context aborts the run.
func (i *Importer) Import(
	ctx context.Context,
	topics []common.SourceTopic,
	edges []common.HierarchyEdge,
) (ImportReport, error) {
	plan := PlanImport(topics, edges)
	report := ImportReport{
		TopicsSkipped: plan.SkippedTopics,
		EdgesDropped:  plan.DroppedEdges,
	}

	logger.Info("[Taxonomy] Importing topics", "topics", len(plan.Groups), "edges", len(plan.Edges))

	for _, g := range plan.Groups {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if _, err := i.store.UpsertNode(ctx, store.LabelTopic, g.Canonical, mergeTopicGroup(g)); err != nil {
			logger.Error("[Taxonomy] Failed to upsert topic", "topic", g.Canonical, "err", err)
			report.TopicsFailed++
			continue
		}
		report.Topics++
	}

	for _, e := range plan.Edges {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		err := i.store.UpsertEdge(ctx, store.Edge{
			Type: store.RelSubTopicOf,
			From: TopicRef(e.Sub),
			To:   TopicRef(e.Super),
		})
		if err != nil {
			logger.Error("[Taxonomy] Failed to upsert hierarchy edge", "sub", e.Sub, "super", e.Super, "err", err)
			report.EdgesFailed++
			continue
		}
		report.Edges++
	}

	logger.Info("[Taxonomy] Import finished",
		"topics", report.Topics,
		"topics_failed", report.TopicsFailed,
		"edges", report.Edges,
		"edges_failed", report.EdgesFailed,
	)
	return report, nil
}

// mergeTopicGroup applies a group to the persisted topic: a new topic takes
// the group's label and keys, an existing one gains the missing keys and the
// group's label if it is strictly shorter.
func mergeTopicGroup(g TopicGroup) store.MergeFunc {
	return func(current store.Props, exists bool) store.Props {
		if !exists {
			return store.Props{
				propLabel: g.Label,
				propURIs:  append([]string(nil), g.Keys...),
			}
		}
		next := current.Clone()
		next[propURIs] = store.AppendUnique(current.Strings(propURIs), g.Keys...)
		next[propLabel] = preferLabel(current.String(propLabel), g.Label)
		return next
	}
}

// TopicRef returns the node reference of a canonical topic.
func TopicRef(canonical string) store.NodeRef {
	return store.NodeRef{Label: store.LabelTopic, Key: canonical}
}

// TopicFromNode converts a persisted Topic node.
func TopicFromNode(n store.Node) common.Topic {
	return common.Topic{
		Canonical: n.Key,
		Label:     n.Props.String(propLabel),
		URIs:      n.Props.Strings(propURIs),
	}
}

// LoadHierarchy reads the persisted SUB_TOPIC_OF edges in store order.
func LoadHierarchy(ctx context.Context, r store.Reader) (*Hierarchy, error) {
	edges, err := r.Edges(ctx, store.EdgeQuery{
		Type:      store.RelSubTopicOf,
		FromLabel: store.LabelTopic,
		ToLabel:   store.LabelTopic,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read hierarchy: %w", err)
	}
	list := make([]common.HierarchyEdge, 0, len(edges))
	for _, e := range edges {
		list = append(list, common.HierarchyEdge{Sub: e.From.Key, Super: e.To.Key})
	}
	return NewHierarchy(list), nil
}

// Topics reads every persisted topic.
func Topics(ctx context.Context, r store.Reader) ([]common.Topic, error) {
	nodes, err := r.Nodes(ctx, store.LabelTopic)
	if err != nil {
		return nil, fmt.Errorf("failed to read topics: %w", err)
	}
	out := make([]common.Topic, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, TopicFromNode(n))
	}
	return out, nil
}
