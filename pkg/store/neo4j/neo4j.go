// Package neo4j implements store.GraphStore on top of Neo4j.
package neo4j

import (
	"context"
	"fmt"

	"github.com/OFFIS-RIT/scholargraph/backend/pkg/logger"
	"github.com/OFFIS-RIT/scholargraph/backend/pkg/store"

	neo4jv5 "github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

var schemaLabels = []string{
	store.LabelTopic,
	store.LabelPaper,
	store.LabelFrequentSet,
	store.LabelLeftSet,
	store.LabelRightSet,
	store.LabelCombination,
}

// GraphNeo4jStorage persists the topic graph in Neo4j. Labels and
// relationship types are interpolated into Cypher and therefore validated
// with store.ValidIdentifier first.
type GraphNeo4jStorage struct {
	client *Client
}

// NewGraphNeo4jStorage wraps client and makes sure the uniqueness constraints
// on node keys exist.
func NewGraphNeo4jStorage(ctx context.Context, client *Client) *GraphNeo4jStorage {
	s := &GraphNeo4jStorage{client: client}
	s.EnsureSchema(ctx)
	return s
}

// EnsureSchema creates one uniqueness constraint per node label. Failures are
// logged and ignored.
func (s *GraphNeo4jStorage) EnsureSchema(ctx context.Context) {
	session := s.client.session(ctx, neo4jv5.AccessModeWrite)
	defer session.Close(ctx)

	for _, label := range schemaLabels {
		kp := store.KeyProperty(label)
		q := fmt.Sprintf(
			"CREATE CONSTRAINT %s_%s_unique IF NOT EXISTS FOR (n:%s) REQUIRE n.%s IS UNIQUE",
			label, kp, label, kp,
		)
		res, err := session.Run(ctx, q, nil)
		if err != nil {
			logger.Warn("[Neo4j] Schema init failed (continuing)", "label", label, "err", err)
			continue
		}
		_, _ = res.Consume(ctx)
	}
}

func (s *GraphNeo4jStorage) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}

func (s *GraphNeo4jStorage) write(ctx context.Context, fn func(o *txOps) error) error {
	session := s.client.session(ctx, neo4jv5.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4jv5.ManagedTransaction) (any, error) {
		return nil, fn(&txOps{tx: tx})
	})
	return err
}

func (s *GraphNeo4jStorage) read(ctx context.Context, fn func(o *txOps) error) error {
	session := s.client.session(ctx, neo4jv5.AccessModeRead)
	defer session.Close(ctx)

	_, err := session.ExecuteRead(ctx, func(tx neo4jv5.ManagedTransaction) (any, error) {
		return nil, fn(&txOps{tx: tx})
	})
	return err
}

func (s *GraphNeo4jStorage) Atomic(ctx context.Context, fn func(tx store.Tx) error) error {
	return s.write(ctx, func(o *txOps) error {
		return fn(o)
	})
}

func (s *GraphNeo4jStorage) Node(ctx context.Context, ref store.NodeRef) (store.Node, error) {
	var node store.Node
	err := s.read(ctx, func(o *txOps) error {
		var err error
		node, err = o.Node(ctx, ref)
		return err
	})
	return node, err
}

func (s *GraphNeo4jStorage) Nodes(ctx context.Context, label string) ([]store.Node, error) {
	var nodes []store.Node
	err := s.read(ctx, func(o *txOps) error {
		var err error
		nodes, err = o.Nodes(ctx, label)
		return err
	})
	return nodes, err
}

func (s *GraphNeo4jStorage) Edges(ctx context.Context, q store.EdgeQuery) ([]store.Edge, error) {
	var edges []store.Edge
	err := s.read(ctx, func(o *txOps) error {
		var err error
		edges, err = o.Edges(ctx, q)
		return err
	})
	return edges, err
}

func (s *GraphNeo4jStorage) UpsertNode(ctx context.Context, label, key string, merge store.MergeFunc) (store.Props, error) {
	var props store.Props
	err := s.write(ctx, func(o *txOps) error {
		var err error
		props, err = o.UpsertNode(ctx, label, key, merge)
		return err
	})
	return props, err
}

func (s *GraphNeo4jStorage) UpdateNode(ctx context.Context, ref store.NodeRef, merge store.MergeFunc) (store.Props, error) {
	var props store.Props
	err := s.write(ctx, func(o *txOps) error {
		var err error
		props, err = o.UpdateNode(ctx, ref, merge)
		return err
	})
	return props, err
}

func (s *GraphNeo4jStorage) UpsertEdge(ctx context.Context, e store.Edge) error {
	return s.write(ctx, func(o *txOps) error {
		return o.UpsertEdge(ctx, e)
	})
}

func (s *GraphNeo4jStorage) RedirectEdges(ctx context.Context, from, to store.NodeRef) (int, error) {
	var moved int
	err := s.write(ctx, func(o *txOps) error {
		var err error
		moved, err = o.RedirectEdges(ctx, from, to)
		return err
	})
	return moved, err
}

func (s *GraphNeo4jStorage) RekeyNode(ctx context.Context, ref store.NodeRef, newKey string) error {
	return s.write(ctx, func(o *txOps) error {
		return o.RekeyNode(ctx, ref, newKey)
	})
}

func (s *GraphNeo4jStorage) DeleteNode(ctx context.Context, ref store.NodeRef) error {
	return s.write(ctx, func(o *txOps) error {
		return o.DeleteNode(ctx, ref)
	})
}
