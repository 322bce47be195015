package pgx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/OFFIS-RIT/scholargraph/backend/internal/util"
	"github.com/OFFIS-RIT/scholargraph/backend/pkg/store"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
}

type txOps struct {
	q querier
}

func encodeProps(p store.Props) (string, error) {
	clean := make(map[string]any, len(p))
	for k, v := range p {
		clean[k] = sanitizeValue(v)
	}
	data, err := json.Marshal(clean)
	if err != nil {
		return "", fmt.Errorf("failed to encode properties: %w", err)
	}
	return string(data), nil
}

func sanitizeValue(v any) any {
	switch val := v.(type) {
	case string:
		return util.SanitizePostgresText(val)
	case []string:
		out := make([]string, len(val))
		for i, s := range val {
			out[i] = util.SanitizePostgresText(s)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = sanitizeValue(item)
		}
		return out
	}
	return v
}

func decodeProps(data []byte) (store.Props, error) {
	props := store.Props{}
	if len(data) == 0 {
		return props, nil
	}
	if err := json.Unmarshal(data, &props); err != nil {
		return nil, fmt.Errorf("failed to decode properties: %w", err)
	}
	return props, nil
}

// dbKey is the form a node key takes in graph_nodes. Every statement that
// writes or looks up a key goes through it.
func dbKey(key string) string {
	return util.SanitizePostgresText(key)
}

func (o *txOps) nodeID(ctx context.Context, ref store.NodeRef) (int64, error) {
	var id int64
	err := o.q.QueryRow(ctx, selectNodeIDSQL, ref.Label, dbKey(ref.Key)).Scan(&id)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return 0, store.ErrNotFound
	}
	return id, err
}

func (o *txOps) Node(ctx context.Context, ref store.NodeRef) (store.Node, error) {
	var raw []byte
	err := o.q.QueryRow(ctx, selectNodeSQL, ref.Label, dbKey(ref.Key)).Scan(&raw)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return store.Node{}, store.ErrNotFound
	}
	if err != nil {
		return store.Node{}, err
	}
	props, err := decodeProps(raw)
	if err != nil {
		return store.Node{}, err
	}
	return store.Node{NodeRef: ref, Props: props}, nil
}

func (o *txOps) Nodes(ctx context.Context, label string) ([]store.Node, error) {
	rows, err := o.q.Query(ctx, selectNodesSQL, label)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]store.Node, 0)
	for rows.Next() {
		var key string
		var raw []byte
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, err
		}
		props, err := decodeProps(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, store.Node{NodeRef: store.NodeRef{Label: label, Key: key}, Props: props})
	}
	return out, rows.Err()
}

func (o *txOps) Edges(ctx context.Context, q store.EdgeQuery) ([]store.Edge, error) {
	rows, err := o.q.Query(ctx, selectEdgesSQL, q.Type, q.FromLabel, q.ToLabel, dbKey(q.FromKey))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]store.Edge, 0)
	for rows.Next() {
		var e store.Edge
		var raw []byte
		if err := rows.Scan(&e.Type, &e.From.Label, &e.From.Key, &e.To.Label, &e.To.Key, &raw); err != nil {
			return nil, err
		}
		if e.Props, err = decodeProps(raw); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (o *txOps) UpsertNode(ctx context.Context, label, key string, merge store.MergeFunc) (store.Props, error) {
	if err := store.CheckIdentifiers(label); err != nil {
		return nil, err
	}
	key = dbKey(key)

	var current store.Props
	exists := false
	var raw []byte
	err := o.q.QueryRow(ctx, selectNodeForUpdateSQL, label, key).Scan(&raw)
	switch {
	case err == nil:
		if current, err = decodeProps(raw); err != nil {
			return nil, err
		}
		exists = true
	case !errors.Is(err, pgxv5.ErrNoRows):
		return nil, err
	}

	next := merge(current, exists)
	if next == nil {
		next = store.Props{}
	}
	delete(next, store.KeyProperty(label))

	data, err := encodeProps(next)
	if err != nil {
		return nil, err
	}
	if _, err := o.q.Exec(ctx, upsertNodeSQL, label, key, data); err != nil {
		return nil, err
	}
	return next, nil
}

func (o *txOps) UpdateNode(ctx context.Context, ref store.NodeRef, merge store.MergeFunc) (store.Props, error) {
	var raw []byte
	err := o.q.QueryRow(ctx, selectNodeForUpdateSQL, ref.Label, dbKey(ref.Key)).Scan(&raw)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	current, err := decodeProps(raw)
	if err != nil {
		return nil, err
	}

	next := merge(current, true)
	if next == nil {
		next = store.Props{}
	}
	delete(next, store.KeyProperty(ref.Label))

	data, err := encodeProps(next)
	if err != nil {
		return nil, err
	}
	if _, err := o.q.Exec(ctx, updateNodeSQL, ref.Label, dbKey(ref.Key), data); err != nil {
		return nil, err
	}
	return next, nil
}

func (o *txOps) UpsertEdge(ctx context.Context, e store.Edge) error {
	if err := store.CheckIdentifiers(e.Type, e.From.Label, e.To.Label); err != nil {
		return err
	}
	data, err := encodeProps(e.Props)
	if err != nil {
		return err
	}
	tag, err := o.q.Exec(ctx, upsertEdgeSQL, e.Type, e.From.Label, dbKey(e.From.Key), e.To.Label, dbKey(e.To.Key), data)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (o *txOps) RedirectEdges(ctx context.Context, from, to store.NodeRef) (int, error) {
	fromID, err := o.nodeID(ctx, from)
	if err != nil {
		return 0, err
	}
	toID, err := o.nodeID(ctx, to)
	if err != nil {
		return 0, err
	}
	if fromID == toID {
		return 0, nil
	}
	tag, err := o.q.Exec(ctx, redirectEdgesSQL, fromID, toID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (o *txOps) RekeyNode(ctx context.Context, ref store.NodeRef, newKey string) error {
	if _, err := o.nodeID(ctx, ref); err != nil {
		return err
	}
	if dbKey(newKey) == dbKey(ref.Key) {
		return nil
	}
	if _, err := o.nodeID(ctx, store.NodeRef{Label: ref.Label, Key: newKey}); err == nil {
		return store.ErrKeyConflict
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	_, err := o.q.Exec(ctx, rekeyNodeSQL, ref.Label, dbKey(ref.Key), dbKey(newKey))
	return err
}

func (o *txOps) DeleteNode(ctx context.Context, ref store.NodeRef) error {
	_, err := o.q.Exec(ctx, deleteNodeSQL, ref.Label, dbKey(ref.Key))
	return err
}

const selectNodeIDSQL = `
SELECT id FROM graph_nodes WHERE label = $1 AND node_key = $2;
`

const selectNodeSQL = `
SELECT props FROM graph_nodes WHERE label = $1 AND node_key = $2;
`

const selectNodeForUpdateSQL = `
SELECT props FROM graph_nodes WHERE label = $1 AND node_key = $2 FOR UPDATE;
`

const selectNodesSQL = `
SELECT node_key, props FROM graph_nodes WHERE label = $1 ORDER BY id;
`

const selectEdgesSQL = `
SELECT e.rel_type, f.label, f.node_key, t.label, t.node_key, e.props
FROM graph_edges e
JOIN graph_nodes f ON f.id = e.from_id
JOIN graph_nodes t ON t.id = e.to_id
WHERE ($1::text = '' OR e.rel_type = $1)
  AND ($2::text = '' OR f.label = $2)
  AND ($3::text = '' OR t.label = $3)
  AND ($4::text = '' OR f.node_key = $4)
ORDER BY e.id;
`

const upsertNodeSQL = `
INSERT INTO graph_nodes (label, node_key, props)
VALUES ($1, $2, $3::jsonb)
ON CONFLICT (label, node_key) DO UPDATE
SET props      = EXCLUDED.props,
    updated_at = now();
`

const updateNodeSQL = `
UPDATE graph_nodes SET props = $3::jsonb, updated_at = now()
WHERE label = $1 AND node_key = $2;
`

const upsertEdgeSQL = `
WITH a AS (SELECT id FROM graph_nodes WHERE label = $2 AND node_key = $3),
     b AS (SELECT id FROM graph_nodes WHERE label = $4 AND node_key = $5)
INSERT INTO graph_edges (rel_type, from_id, to_id, props)
SELECT $1, a.id, b.id, $6::jsonb FROM a, b
ON CONFLICT (rel_type, from_id, to_id) DO UPDATE
SET props = EXCLUDED.props;
`

// Existing edges of the target keep their properties; keys only present on
// the moved edge are added.
const redirectEdgesSQL = `
WITH moved AS (
    DELETE FROM graph_edges
    WHERE from_id = $1 OR to_id = $1
    RETURNING rel_type,
              CASE WHEN from_id = $1 THEN $2::bigint ELSE from_id END AS from_id,
              CASE WHEN to_id = $1 THEN $2::bigint ELSE to_id END AS to_id,
              props
)
INSERT INTO graph_edges (rel_type, from_id, to_id, props)
SELECT rel_type, from_id, to_id, props FROM moved
WHERE from_id <> to_id
ON CONFLICT (rel_type, from_id, to_id) DO UPDATE
SET props = EXCLUDED.props || graph_edges.props;
`

const rekeyNodeSQL = `
UPDATE graph_nodes SET node_key = $3, updated_at = now()
WHERE label = $1 AND node_key = $2;
`

const deleteNodeSQL = `
DELETE FROM graph_nodes WHERE label = $1 AND node_key = $2;
`
