package memory

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/OFFIS-RIT/scholargraph/backend/pkg/store"
)

func topic(key string) store.NodeRef {
	return store.NodeRef{Label: store.LabelTopic, Key: key}
}

func setProps(p store.Props) store.MergeFunc {
	return func(store.Props, bool) store.Props { return p }
}

func TestUpsertNode_MergeSeesCurrentProps(t *testing.T) {
	ctx := context.Background()
	s := New()

	var sawExists []bool
	merge := func(cur store.Props, exists bool) store.Props {
		sawExists = append(sawExists, exists)
		n := cur.Int("count")
		return store.Props{"count": n + 1, "label_norm": "ignored"}
	}
	if _, err := s.UpsertNode(ctx, store.LabelTopic, "a", merge); err != nil {
		t.Fatalf("UpsertNode() error = %v", err)
	}
	props, err := s.UpsertNode(ctx, store.LabelTopic, "a", merge)
	if err != nil {
		t.Fatalf("UpsertNode() error = %v", err)
	}
	if props.Int("count") != 2 {
		t.Fatalf("expected count 2, got %v", props["count"])
	}
	if !reflect.DeepEqual(sawExists, []bool{false, true}) {
		t.Fatalf("unexpected exists sequence %v", sawExists)
	}
	n, _ := s.Node(ctx, topic("a"))
	if _, ok := n.Props["label_norm"]; ok {
		t.Fatal("key property must not be stored in props")
	}
}

func TestUpsertEdge_RequiresEndpoints(t *testing.T) {
	ctx := context.Background()
	s := New()
	_, _ = s.UpsertNode(ctx, store.LabelTopic, "a", setProps(nil))

	err := s.UpsertEdge(ctx, store.Edge{Type: store.RelSubTopicOf, From: topic("a"), To: topic("b")})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	err = s.UpsertEdge(ctx, store.Edge{Type: "BAD TYPE", From: topic("a"), To: topic("a")})
	if !errors.Is(err, store.ErrInvalidLabel) {
		t.Fatalf("expected ErrInvalidLabel, got %v", err)
	}
}

func TestRedirectEdges(t *testing.T) {
	ctx := context.Background()
	s := New()
	for _, k := range []string{"keep", "dup", "x", "y"} {
		_, _ = s.UpsertNode(ctx, store.LabelTopic, k, setProps(nil))
	}
	edges := []store.Edge{
		{Type: store.RelSubTopicOf, From: topic("dup"), To: topic("x"), Props: store.Props{"w": 1}},
		{Type: store.RelSubTopicOf, From: topic("y"), To: topic("dup")},
		{Type: store.RelSubTopicOf, From: topic("dup"), To: topic("keep")},
		{Type: store.RelSubTopicOf, From: topic("keep"), To: topic("x"), Props: store.Props{"w": 2}},
	}
	for _, e := range edges {
		if err := s.UpsertEdge(ctx, e); err != nil {
			t.Fatalf("UpsertEdge() error = %v", err)
		}
	}

	moved, err := s.RedirectEdges(ctx, topic("dup"), topic("keep"))
	if err != nil {
		t.Fatalf("RedirectEdges() error = %v", err)
	}
	if moved != 2 {
		t.Fatalf("expected 2 moved edges, got %d", moved)
	}

	got, _ := s.Edges(ctx, store.EdgeQuery{Type: store.RelSubTopicOf})
	if len(got) != 2 {
		t.Fatalf("expected 2 edges, got %+v", got)
	}
	for _, e := range got {
		if e.From == topic("dup") || e.To == topic("dup") {
			t.Fatalf("edge still references duplicate: %+v", e)
		}
		if e.From == e.To {
			t.Fatalf("self-loop survived: %+v", e)
		}
		if e.From == topic("keep") && e.To == topic("x") && e.Props.Int("w") != 2 {
			t.Fatalf("existing edge props overwritten: %+v", e.Props)
		}
	}
}

func TestRedirectEdges_OntoItselfIsNoop(t *testing.T) {
	ctx := context.Background()
	s := New()
	for _, k := range []string{"a", "b"} {
		_, _ = s.UpsertNode(ctx, store.LabelTopic, k, setProps(nil))
	}
	if err := s.UpsertEdge(ctx, store.Edge{Type: store.RelSubTopicOf, From: topic("a"), To: topic("b")}); err != nil {
		t.Fatalf("UpsertEdge() error = %v", err)
	}

	moved, err := s.RedirectEdges(ctx, topic("a"), topic("a"))
	if err != nil {
		t.Fatalf("RedirectEdges() error = %v", err)
	}
	if moved != 0 || s.EdgeCount() != 1 {
		t.Fatalf("expected no change, moved %d and %d edges left", moved, s.EdgeCount())
	}
}

func TestUpdateNode(t *testing.T) {
	ctx := context.Background()
	s := New()
	_, _ = s.UpsertNode(ctx, store.LabelTopic, "a", setProps(store.Props{"label": "A", "uris": []string{"u1"}}))

	props, err := s.UpdateNode(ctx, topic("a"), func(cur store.Props, exists bool) store.Props {
		if !exists {
			t.Fatal("UpdateNode must only see existing nodes")
		}
		next := cur.Clone()
		next["uris"] = store.AppendUnique(cur.Strings("uris"), "u2")
		return next
	})
	if err != nil {
		t.Fatalf("UpdateNode() error = %v", err)
	}
	if !reflect.DeepEqual(props.Strings("uris"), []string{"u1", "u2"}) || props.String("label") != "A" {
		t.Fatalf("unexpected props %v", props)
	}

	_, err = s.UpdateNode(ctx, topic("missing"), setProps(nil))
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if nodes, _ := s.Nodes(ctx, store.LabelTopic); len(nodes) != 1 {
		t.Fatalf("UpdateNode must not create nodes, got %+v", nodes)
	}
}

func TestAtomic_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := New()
	_, _ = s.UpsertNode(ctx, store.LabelTopic, "a", setProps(store.Props{"label": "A"}))

	boom := errors.New("boom")
	err := s.Atomic(ctx, func(tx store.Tx) error {
		if err := tx.DeleteNode(ctx, topic("a")); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, err := s.Node(ctx, topic("a")); err != nil {
		t.Fatalf("node lost after rollback: %v", err)
	}
}

func TestRekeyNode(t *testing.T) {
	ctx := context.Background()
	s := New()
	_, _ = s.UpsertNode(ctx, store.LabelTopic, "old", setProps(nil))
	_, _ = s.UpsertNode(ctx, store.LabelTopic, "other", setProps(nil))
	_ = s.UpsertEdge(ctx, store.Edge{Type: store.RelSubTopicOf, From: topic("old"), To: topic("other")})

	if err := s.RekeyNode(ctx, topic("old"), "other"); !errors.Is(err, store.ErrKeyConflict) {
		t.Fatalf("expected ErrKeyConflict, got %v", err)
	}
	if err := s.RekeyNode(ctx, topic("old"), "new"); err != nil {
		t.Fatalf("RekeyNode() error = %v", err)
	}
	edges, _ := s.Edges(ctx, store.EdgeQuery{FromKey: "new"})
	if len(edges) != 1 || edges[0].To != topic("other") {
		t.Fatalf("edge not rekeyed: %+v", edges)
	}
}

func TestDeleteNode_RemovesEdges(t *testing.T) {
	ctx := context.Background()
	s := New()
	_, _ = s.UpsertNode(ctx, store.LabelTopic, "a", setProps(nil))
	_, _ = s.UpsertNode(ctx, store.LabelTopic, "b", setProps(nil))
	_ = s.UpsertEdge(ctx, store.Edge{Type: store.RelSubTopicOf, From: topic("a"), To: topic("b")})

	if err := s.DeleteNode(ctx, topic("a")); err != nil {
		t.Fatalf("DeleteNode() error = %v", err)
	}
	if s.EdgeCount() != 0 {
		t.Fatalf("expected no edges, got %d", s.EdgeCount())
	}
	nodes, _ := s.Nodes(ctx, store.LabelTopic)
	if len(nodes) != 1 || nodes[0].Key != "b" {
		t.Fatalf("unexpected nodes %+v", nodes)
	}
}
