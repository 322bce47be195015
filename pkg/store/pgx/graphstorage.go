package pgx

import (
	"context"

	"github.com/OFFIS-RIT/scholargraph/backend/pkg/store"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
	Begin(ctx context.Context) (pgxv5.Tx, error)
}

// GraphDBStorage implements store.GraphStore on two PostgreSQL tables,
// graph_nodes and graph_edges, with properties kept as JSONB. Every public
// call runs in its own transaction.
type GraphDBStorage struct {
	conn pgxIConn
}

// NewGraphDBStorageWithConnection creates a GraphDBStorage using an existing
// pool or connection. The schema is expected to be migrated already.
func NewGraphDBStorageWithConnection(conn pgxIConn) *GraphDBStorage {
	return &GraphDBStorage{conn: conn}
}

func (s *GraphDBStorage) Close(ctx context.Context) error {
	return nil
}

func (s *GraphDBStorage) Atomic(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(&txOps{q: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *GraphDBStorage) Node(ctx context.Context, ref store.NodeRef) (store.Node, error) {
	return (&txOps{q: s.conn}).Node(ctx, ref)
}

func (s *GraphDBStorage) Nodes(ctx context.Context, label string) ([]store.Node, error) {
	return (&txOps{q: s.conn}).Nodes(ctx, label)
}

func (s *GraphDBStorage) Edges(ctx context.Context, q store.EdgeQuery) ([]store.Edge, error) {
	return (&txOps{q: s.conn}).Edges(ctx, q)
}

func (s *GraphDBStorage) UpsertNode(ctx context.Context, label, key string, merge store.MergeFunc) (store.Props, error) {
	var props store.Props
	err := s.Atomic(ctx, func(tx store.Tx) error {
		var err error
		props, err = tx.UpsertNode(ctx, label, key, merge)
		return err
	})
	return props, err
}

func (s *GraphDBStorage) UpdateNode(ctx context.Context, ref store.NodeRef, merge store.MergeFunc) (store.Props, error) {
	var props store.Props
	err := s.Atomic(ctx, func(tx store.Tx) error {
		var err error
		props, err = tx.UpdateNode(ctx, ref, merge)
		return err
	})
	return props, err
}

func (s *GraphDBStorage) UpsertEdge(ctx context.Context, e store.Edge) error {
	return (&txOps{q: s.conn}).UpsertEdge(ctx, e)
}

func (s *GraphDBStorage) RedirectEdges(ctx context.Context, from, to store.NodeRef) (int, error) {
	var moved int
	err := s.Atomic(ctx, func(tx store.Tx) error {
		var err error
		moved, err = tx.RedirectEdges(ctx, from, to)
		return err
	})
	return moved, err
}

func (s *GraphDBStorage) RekeyNode(ctx context.Context, ref store.NodeRef, newKey string) error {
	return s.Atomic(ctx, func(tx store.Tx) error {
		return tx.RekeyNode(ctx, ref, newKey)
	})
}

func (s *GraphDBStorage) DeleteNode(ctx context.Context, ref store.NodeRef) error {
	return (&txOps{q: s.conn}).DeleteNode(ctx, ref)
}
