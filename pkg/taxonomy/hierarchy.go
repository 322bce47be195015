package taxonomy

import "github.com/OFFIS-RIT/scholargraph/backend/pkg/common"

// DefaultMaxDepth is the deepest level of the ontology kept on import.
const DefaultMaxDepth = 4

// Hierarchy maps every topic key to the parent it walks to when resolving
// depth. A topic listed with several parents keeps the first one of the
// edge list it was built from.
type Hierarchy struct {
	parent map[string]string
}

// NewHierarchy indexes edges in order. Later edges for an already indexed
// sub key are ignored.
func NewHierarchy(edges []common.HierarchyEdge) *Hierarchy {
	h := &Hierarchy{parent: make(map[string]string, len(edges))}
	for _, e := range edges {
		if e.Sub == "" || e.Super == "" {
			continue
		}
		if _, ok := h.parent[e.Sub]; ok {
			continue
		}
		h.parent[e.Sub] = e.Super
	}
	return h
}

// Parent returns the parent of key.
func (h *Hierarchy) Parent(key string) (string, bool) {
	if h == nil {
		return "", false
	}
	p, ok := h.parent[key]
	return p, ok
}

// Len returns the number of topics with a parent.
func (h *Hierarchy) Len() int {
	if h == nil {
		return 0
	}
	return len(h.parent)
}

// Depth walks from key towards the root. A topic without parent has depth 1.
// The walk stops once the depth exceeds maxDepth, so the result is at most
// maxDepth+1 and cycles terminate.
func Depth(key string, h *Hierarchy, maxDepth int) int {
	depth := 1
	cur := key
	for depth <= maxDepth {
		parent, ok := h.Parent(cur)
		if !ok {
			break
		}
		depth++
		cur = parent
	}
	return depth
}

// FilterByDepth keeps the topics whose depth is at most maxDepth, in input
// order. maxDepth <= 0 disables the filter.
func FilterByDepth(topics []common.SourceTopic, h *Hierarchy, maxDepth int) []common.SourceTopic {
	if maxDepth <= 0 {
		return topics
	}
	out := make([]common.SourceTopic, 0, len(topics))
	for _, t := range topics {
		if Depth(t.Key, h, maxDepth) <= maxDepth {
			out = append(out, t)
		}
	}
	return out
}
