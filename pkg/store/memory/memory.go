// Package memory is an in-process GraphStore used by tests and dry runs.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/OFFIS-RIT/scholargraph/backend/pkg/store"
)

type edgeID struct {
	Type string
	From store.NodeRef
	To   store.NodeRef
}

type state struct {
	nodes     map[store.NodeRef]store.Props
	nodeOrder []store.NodeRef
	edges     map[edgeID]store.Props
	edgeOrder []edgeID
}

// Store keeps the whole graph in memory. Atomic works on a copy of the graph
// that replaces the live one only when the callback succeeds.
type Store struct {
	mu sync.Mutex
	st *state
}

// New returns an empty store.
func New() *Store {
	return &Store{st: newState()}
}

func newState() *state {
	return &state{
		nodes: make(map[store.NodeRef]store.Props),
		edges: make(map[edgeID]store.Props),
	}
}

func (s *state) clone() *state {
	c := &state{
		nodes:     make(map[store.NodeRef]store.Props, len(s.nodes)),
		nodeOrder: slices.Clone(s.nodeOrder),
		edges:     make(map[edgeID]store.Props, len(s.edges)),
		edgeOrder: slices.Clone(s.edgeOrder),
	}
	for k, v := range s.nodes {
		c.nodes[k] = v.Clone()
	}
	for k, v := range s.edges {
		c.edges[k] = v.Clone()
	}
	return c
}

func (s *Store) Atomic(ctx context.Context, fn func(tx store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	if err := fn(work); err != nil {
		return err
	}
	s.st = work
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	return nil
}

func (s *Store) Node(ctx context.Context, ref store.NodeRef) (store.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.Node(ctx, ref)
}

func (s *Store) Nodes(ctx context.Context, label string) ([]store.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.Nodes(ctx, label)
}

func (s *Store) Edges(ctx context.Context, q store.EdgeQuery) ([]store.Edge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.Edges(ctx, q)
}

func (s *Store) UpsertNode(ctx context.Context, label, key string, merge store.MergeFunc) (store.Props, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.UpsertNode(ctx, label, key, merge)
}

func (s *Store) UpdateNode(ctx context.Context, ref store.NodeRef, merge store.MergeFunc) (store.Props, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.UpdateNode(ctx, ref, merge)
}

func (s *Store) UpsertEdge(ctx context.Context, e store.Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.UpsertEdge(ctx, e)
}

func (s *Store) RedirectEdges(ctx context.Context, from, to store.NodeRef) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.RedirectEdges(ctx, from, to)
}

func (s *Store) RekeyNode(ctx context.Context, ref store.NodeRef, newKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.RekeyNode(ctx, ref, newKey)
}

func (s *Store) DeleteNode(ctx context.Context, ref store.NodeRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.DeleteNode(ctx, ref)
}

// EdgeCount returns the number of stored relationships.
func (s *Store) EdgeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.edges)
}

// plain drops the backend handle; keys are unique here.
func plain(ref store.NodeRef) store.NodeRef {
	ref.ID = ""
	return ref
}

func (s *state) Node(ctx context.Context, ref store.NodeRef) (store.Node, error) {
	ref = plain(ref)
	props, ok := s.nodes[ref]
	if !ok {
		return store.Node{}, store.ErrNotFound
	}
	return store.Node{NodeRef: ref, Props: props.Clone()}, nil
}

func (s *state) Nodes(ctx context.Context, label string) ([]store.Node, error) {
	out := make([]store.Node, 0)
	for _, ref := range s.nodeOrder {
		if ref.Label != label {
			continue
		}
		out = append(out, store.Node{NodeRef: ref, Props: s.nodes[ref].Clone()})
	}
	return out, nil
}

func (s *state) Edges(ctx context.Context, q store.EdgeQuery) ([]store.Edge, error) {
	out := make([]store.Edge, 0)
	for _, id := range s.edgeOrder {
		if q.Type != "" && id.Type != q.Type {
			continue
		}
		if q.FromLabel != "" && id.From.Label != q.FromLabel {
			continue
		}
		if q.ToLabel != "" && id.To.Label != q.ToLabel {
			continue
		}
		if q.FromKey != "" && id.From.Key != q.FromKey {
			continue
		}
		out = append(out, store.Edge{Type: id.Type, From: id.From, To: id.To, Props: s.edges[id].Clone()})
	}
	return out, nil
}

func (s *state) UpsertNode(ctx context.Context, label, key string, merge store.MergeFunc) (store.Props, error) {
	if err := store.CheckIdentifiers(label); err != nil {
		return nil, err
	}
	ref := store.NodeRef{Label: label, Key: key}
	current, exists := s.nodes[ref]
	next := merge(current.Clone(), exists)
	if next == nil {
		next = store.Props{}
	}
	delete(next, store.KeyProperty(label))
	if !exists {
		s.nodeOrder = append(s.nodeOrder, ref)
	}
	s.nodes[ref] = next.Clone()
	return next, nil
}

func (s *state) UpdateNode(ctx context.Context, ref store.NodeRef, merge store.MergeFunc) (store.Props, error) {
	ref = plain(ref)
	current, ok := s.nodes[ref]
	if !ok {
		return nil, store.ErrNotFound
	}
	next := merge(current.Clone(), true)
	if next == nil {
		next = store.Props{}
	}
	delete(next, store.KeyProperty(ref.Label))
	s.nodes[ref] = next.Clone()
	return next, nil
}

func (s *state) UpsertEdge(ctx context.Context, e store.Edge) error {
	e.From, e.To = plain(e.From), plain(e.To)
	if err := store.CheckIdentifiers(e.Type, e.From.Label, e.To.Label); err != nil {
		return err
	}
	if _, ok := s.nodes[e.From]; !ok {
		return store.ErrNotFound
	}
	if _, ok := s.nodes[e.To]; !ok {
		return store.ErrNotFound
	}
	id := edgeID{Type: e.Type, From: e.From, To: e.To}
	if _, ok := s.edges[id]; !ok {
		s.edgeOrder = append(s.edgeOrder, id)
	}
	s.edges[id] = e.Props.Clone()
	return nil
}

func (s *state) RedirectEdges(ctx context.Context, from, to store.NodeRef) (int, error) {
	from, to = plain(from), plain(to)
	if _, ok := s.nodes[from]; !ok {
		return 0, store.ErrNotFound
	}
	if _, ok := s.nodes[to]; !ok {
		return 0, store.ErrNotFound
	}
	if from == to {
		return 0, nil
	}

	moved := 0
	kept := make([]edgeID, 0, len(s.edgeOrder))
	var added []edgeID
	for _, id := range s.edgeOrder {
		if id.From != from && id.To != from {
			kept = append(kept, id)
			continue
		}
		props := s.edges[id]
		delete(s.edges, id)

		next := id
		if next.From == from {
			next.From = to
		}
		if next.To == from {
			next.To = to
		}
		if next.From == next.To {
			continue
		}
		if existing, ok := s.edges[next]; ok {
			s.edges[next] = existing.Merge(props)
		} else {
			s.edges[next] = props
			added = append(added, next)
		}
		moved++
	}
	s.edgeOrder = append(kept, added...)
	return moved, nil
}

func (s *state) RekeyNode(ctx context.Context, ref store.NodeRef, newKey string) error {
	ref = plain(ref)
	props, ok := s.nodes[ref]
	if !ok {
		return store.ErrNotFound
	}
	if newKey == ref.Key {
		return nil
	}
	next := store.NodeRef{Label: ref.Label, Key: newKey}
	if _, taken := s.nodes[next]; taken {
		return store.ErrKeyConflict
	}

	delete(s.nodes, ref)
	s.nodes[next] = props
	for i, r := range s.nodeOrder {
		if r == ref {
			s.nodeOrder[i] = next
		}
	}

	edges := make(map[edgeID]store.Props, len(s.edges))
	for i, id := range s.edgeOrder {
		props := s.edges[id]
		if id.From == ref {
			id.From = next
		}
		if id.To == ref {
			id.To = next
		}
		s.edgeOrder[i] = id
		edges[id] = props
	}
	s.edges = edges
	return nil
}

func (s *state) DeleteNode(ctx context.Context, ref store.NodeRef) error {
	ref = plain(ref)
	if _, ok := s.nodes[ref]; !ok {
		return nil
	}
	delete(s.nodes, ref)
	s.nodeOrder = slices.DeleteFunc(s.nodeOrder, func(r store.NodeRef) bool { return r == ref })
	s.edgeOrder = slices.DeleteFunc(s.edgeOrder, func(id edgeID) bool {
		if id.From == ref || id.To == ref {
			delete(s.edges, id)
			return true
		}
		return false
	})
	return nil
}
