package common

import "slices"

// SourceTopic is a topic as it appears in an ontology snapshot, before
// canonicalization. Key is the source identifier, usually the ontology URI.
type SourceTopic struct {
	Key   string `json:"uri"`
	Label string `json:"label"`
}

// HierarchyEdge is a directed sub -> super relation. Before import both ends
// are source identifiers, afterwards canonical labels.
type HierarchyEdge struct {
	Sub   string `json:"sub"`
	Super string `json:"super"`
}

// Topic is a persisted taxonomy node.
//
// A topic is identified by its canonical label. Label is the display form,
// the shortest raw label merged so far, and URIs collects every source
// identifier that canonicalized to this topic.
type Topic struct {
	Canonical string   `json:"label_norm"`
	Label     string   `json:"label"`
	URIs      []string `json:"uris"`
}

// Transaction is one paper together with its canonical topics. Transactions
// are the unit of co-occurrence analysis and are never persisted.
type Transaction struct {
	EntityID string   `json:"paper_id"`
	Items    []string `json:"topics"`
}

// FrequentItemset is a set of canonical topics together with the number of
// transactions containing all of them and that number divided by the total
// number of transactions.
type FrequentItemset struct {
	Items        []string `json:"items"`
	SupportCount int      `json:"support_count"`
	Support      float64  `json:"support"`
}

// AssociationRule states that papers with every item of Antecedent tend to
// carry Consequent as well. The two sides are disjoint and non-empty.
type AssociationRule struct {
	Antecedent []string `json:"antecedent"`
	Consequent []string `json:"consequent"`
	Support    float64  `json:"support"`
	Confidence float64  `json:"confidence"`
}

// Combination is one accepted subset of a paper's topics.
type Combination []string

// Equal reports whether both combinations hold the same items in the same
// order. Combinations produced by this module are always sorted.
func (c Combination) Equal(other Combination) bool {
	return slices.Equal(c, other)
}
