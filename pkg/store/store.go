// Package store defines the graph persistence contract used by the taxonomy,
// mining and combination packages.
//
// Nodes are identified by (label, key). Every backend maps the key onto a
// label-specific property (see KeyProperty) so that the persisted graph reads
// naturally: topics carry label_norm, papers carry id and item-set nodes carry
// key plus the list of items.
package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

const (
	LabelTopic        = "Topic"
	LabelPaper        = "Paper"
	LabelFrequentSet  = "FrequentTopicSet"
	LabelLeftSet      = "LeftTopicSet"
	LabelRightSet     = "RightTopicSet"
	LabelCombination  = "TopicCombination"
	RelSubTopicOf     = "SUB_TOPIC_OF"
	RelHasTopic       = "HAS_TOPIC"
	RelRules          = "RULES"
	RelHasCombination = "HAS_TOPIC_COMBINATION"
)

var (
	ErrNotFound       = errors.New("store: not found")
	ErrInvalidLabel   = errors.New("store: invalid label or relationship type")
	ErrKeyConflict    = errors.New("store: key already in use")
	ErrUnknownBackend = errors.New("store: unknown backend")
)

var reIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// KeyProperty returns the property name that holds the identity key of nodes
// with the given label.
func KeyProperty(label string) string {
	switch label {
	case LabelTopic:
		return "label_norm"
	case LabelPaper:
		return "id"
	default:
		return "key"
	}
}

// ValidIdentifier reports whether s can be used as a node label or
// relationship type. Backends that interpolate identifiers into queries must
// reject everything else.
func ValidIdentifier(s string) bool {
	return reIdentifier.MatchString(s)
}

// CheckIdentifiers returns ErrInvalidLabel for the first invalid identifier.
func CheckIdentifiers(ids ...string) error {
	for _, id := range ids {
		if !ValidIdentifier(id) {
			return fmt.Errorf("%w: %q", ErrInvalidLabel, id)
		}
	}
	return nil
}

// NodeRef identifies a node. ID is a backend handle that tells apart nodes
// sharing one key; it is only set on refs returned by Nodes of backends that
// cannot enforce unique keys. When set, backends address the node by ID.
type NodeRef struct {
	Label string `json:"label"`
	Key   string `json:"key"`
	ID    string `json:"-"`
}

// Node is a persisted node. Props never contain the key property.
type Node struct {
	NodeRef
	Props Props `json:"props"`
}

// Edge is a directed relationship. At most one edge exists per
// (Type, From, To).
type Edge struct {
	Type  string  `json:"type"`
	From  NodeRef `json:"from"`
	To    NodeRef `json:"to"`
	Props Props   `json:"props,omitempty"`
}

// EdgeQuery selects edges of one type between two labels, optionally
// restricted to a single source node.
type EdgeQuery struct {
	Type      string
	FromLabel string
	ToLabel   string
	FromKey   string
}

// MergeFunc computes the properties of a node from its persisted properties.
// exists is false when the node is about to be created, in which case current
// is nil.
type MergeFunc func(current Props, exists bool) Props

// Reader is the read side of the store.
type Reader interface {
	Node(ctx context.Context, ref NodeRef) (Node, error)
	Nodes(ctx context.Context, label string) ([]Node, error)
	Edges(ctx context.Context, q EdgeQuery) ([]Edge, error)
}

// Writer is the write side of the store. All writes are idempotent.
type Writer interface {
	// UpsertNode creates or updates the node (label, key). merge runs inside
	// the same transaction as the write and returns the full property set.
	UpsertNode(ctx context.Context, label, key string, merge MergeFunc) (Props, error)
	// UpdateNode rewrites the properties of the existing node ref. Unlike
	// UpsertNode it honours ref.ID and never creates a node. ErrNotFound is
	// returned when ref does not exist.
	UpdateNode(ctx context.Context, ref NodeRef, merge MergeFunc) (Props, error)
	// UpsertEdge creates the edge if missing and overwrites its properties.
	// Both endpoints must exist, otherwise ErrNotFound is returned.
	UpsertEdge(ctx context.Context, e Edge) error
	// RedirectEdges moves every relationship of from onto to, keeping types
	// and properties. Relationships that would become self-loops on to are
	// dropped. It returns the number of relationships moved. When from and to
	// resolve to the same node nothing changes.
	RedirectEdges(ctx context.Context, from, to NodeRef) (int, error)
	// RekeyNode changes the key of a node. ErrKeyConflict is returned when the
	// new key is taken.
	RekeyNode(ctx context.Context, ref NodeRef, newKey string) error
	// DeleteNode removes the node together with its relationships.
	DeleteNode(ctx context.Context, ref NodeRef) error
}

// Tx is a unit of work against the store.
type Tx interface {
	Reader
	Writer
}

// GraphStore is a graph backend.
type GraphStore interface {
	Tx
	// Atomic runs fn in a single transaction. Nothing fn wrote is visible if
	// it returns an error.
	Atomic(ctx context.Context, fn func(tx Tx) error) error
	Close(ctx context.Context) error
}
