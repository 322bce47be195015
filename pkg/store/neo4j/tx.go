package neo4j

import (
	"context"
	"fmt"

	"github.com/OFFIS-RIT/scholargraph/backend/pkg/store"

	neo4jv5 "github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// txOps implements store.Tx inside one managed transaction.
type txOps struct {
	tx neo4jv5.ManagedTransaction
}

func (o *txOps) run(ctx context.Context, query string, params map[string]any) ([]*neo4jv5.Record, error) {
	res, err := o.tx.Run(ctx, query, params)
	if err != nil {
		return nil, err
	}
	return res.Collect(ctx)
}

func labelClause(label string) string {
	if label == "" {
		return ""
	}
	return ":" + label
}

func propsOf(rec *neo4jv5.Record, column, keyProp string) store.Props {
	raw, _ := rec.Get(column)
	m, _ := raw.(map[string]any)
	out := make(store.Props, len(m))
	for k, v := range m {
		if k == keyProp {
			continue
		}
		out[k] = v
	}
	return out
}

func stringOf(rec *neo4jv5.Record, column string) string {
	v, _ := rec.Get(column)
	s, _ := v.(string)
	return s
}

func int64Of(rec *neo4jv5.Record, column string) int64 {
	v, _ := rec.Get(column)
	n, _ := v.(int64)
	return n
}

// refOf resolves the node reference from a label and a full property map.
func refOf(label string, props map[string]any) store.NodeRef {
	key, _ := props[store.KeyProperty(label)].(string)
	return store.NodeRef{Label: label, Key: key}
}

// matchNode binds n to the node ref points at: by element id when the ref
// carries one, by key otherwise.
func matchNode(ref store.NodeRef) (string, map[string]any) {
	if ref.ID != "" {
		return fmt.Sprintf("MATCH (n:%s) WHERE elementId(n) = $id", ref.Label), map[string]any{"id": ref.ID}
	}
	return fmt.Sprintf("MATCH (n:%s {%s: $key})", ref.Label, store.KeyProperty(ref.Label)), map[string]any{"key": ref.Key}
}

func (o *txOps) Node(ctx context.Context, ref store.NodeRef) (store.Node, error) {
	if err := store.CheckIdentifiers(ref.Label); err != nil {
		return store.Node{}, err
	}
	kp := store.KeyProperty(ref.Label)
	match, params := matchNode(ref)
	recs, err := o.run(ctx, match+" RETURN properties(n) AS props LIMIT 1", params)
	if err != nil {
		return store.Node{}, err
	}
	if len(recs) == 0 {
		return store.Node{}, store.ErrNotFound
	}
	return store.Node{NodeRef: ref, Props: propsOf(recs[0], "props", kp)}, nil
}

func (o *txOps) Nodes(ctx context.Context, label string) ([]store.Node, error) {
	if err := store.CheckIdentifiers(label); err != nil {
		return nil, err
	}
	kp := store.KeyProperty(label)
	q := fmt.Sprintf("MATCH (n:%s) RETURN n.%s AS key, elementId(n) AS id, properties(n) AS props ORDER BY id(n)", label, kp)
	recs, err := o.run(ctx, q, nil)
	if err != nil {
		return nil, err
	}
	out := make([]store.Node, 0, len(recs))
	for _, rec := range recs {
		out = append(out, store.Node{
			NodeRef: store.NodeRef{Label: label, Key: stringOf(rec, "key"), ID: stringOf(rec, "id")},
			Props:   propsOf(rec, "props", kp),
		})
	}
	return out, nil
}

func (o *txOps) Edges(ctx context.Context, eq store.EdgeQuery) ([]store.Edge, error) {
	for _, id := range []string{eq.Type, eq.FromLabel, eq.ToLabel} {
		if id != "" && !store.ValidIdentifier(id) {
			return nil, store.CheckIdentifiers(id)
		}
	}

	rel := "r"
	if eq.Type != "" {
		rel = "r:" + eq.Type
	}
	where := ""
	params := map[string]any{}
	if eq.FromKey != "" {
		if eq.FromLabel != "" {
			where = fmt.Sprintf("WHERE a.%s = $fromKey", store.KeyProperty(eq.FromLabel))
		} else {
			where = "WHERE $fromKey IN [a.label_norm, a.id, a.key]"
		}
		params["fromKey"] = eq.FromKey
	}

	q := fmt.Sprintf(`MATCH (a%s)-[%s]->(b%s) %s
RETURN type(r) AS type, labels(a)[0] AS fl, properties(a) AS fp,
       labels(b)[0] AS tl, properties(b) AS tp, properties(r) AS props
ORDER BY id(r)`, labelClause(eq.FromLabel), rel, labelClause(eq.ToLabel), where)

	recs, err := o.run(ctx, q, params)
	if err != nil {
		return nil, err
	}
	out := make([]store.Edge, 0, len(recs))
	for _, rec := range recs {
		fp, _ := rec.Get("fp")
		tp, _ := rec.Get("tp")
		fm, _ := fp.(map[string]any)
		tm, _ := tp.(map[string]any)
		out = append(out, store.Edge{
			Type:  stringOf(rec, "type"),
			From:  refOf(stringOf(rec, "fl"), fm),
			To:    refOf(stringOf(rec, "tl"), tm),
			Props: propsOf(rec, "props", ""),
		})
	}
	return out, nil
}

func (o *txOps) UpsertNode(ctx context.Context, label, key string, merge store.MergeFunc) (store.Props, error) {
	if err := store.CheckIdentifiers(label); err != nil {
		return nil, err
	}
	kp := store.KeyProperty(label)

	var current store.Props
	exists := false
	node, err := o.Node(ctx, store.NodeRef{Label: label, Key: key})
	switch {
	case err == nil:
		current, exists = node.Props, true
	case err != store.ErrNotFound:
		return nil, err
	}

	next := merge(current, exists)
	if next == nil {
		next = store.Props{}
	}
	delete(next, kp)

	write := map[string]any(next.Clone())
	if write == nil {
		write = map[string]any{}
	}
	write[kp] = key

	q := fmt.Sprintf("MERGE (n:%s {%s: $key}) SET n = $props", label, kp)
	if _, err := o.run(ctx, q, map[string]any{"key": key, "props": write}); err != nil {
		return nil, err
	}
	return next, nil
}

func (o *txOps) UpdateNode(ctx context.Context, ref store.NodeRef, merge store.MergeFunc) (store.Props, error) {
	node, err := o.Node(ctx, ref)
	if err != nil {
		return nil, err
	}
	kp := store.KeyProperty(ref.Label)

	next := merge(node.Props, true)
	if next == nil {
		next = store.Props{}
	}
	delete(next, kp)

	write := map[string]any(next.Clone())
	if write == nil {
		write = map[string]any{}
	}
	write[kp] = ref.Key

	match, params := matchNode(ref)
	params["props"] = write
	if _, err := o.run(ctx, match+" SET n = $props", params); err != nil {
		return nil, err
	}
	return next, nil
}

func (o *txOps) UpsertEdge(ctx context.Context, e store.Edge) error {
	if err := store.CheckIdentifiers(e.Type, e.From.Label, e.To.Label); err != nil {
		return err
	}
	props := map[string]any(e.Props.Clone())
	if props == nil {
		props = map[string]any{}
	}
	q := fmt.Sprintf(`MATCH (a:%s {%s: $from}), (b:%s {%s: $to})
MERGE (a)-[r:%s]->(b)
SET r = $props
RETURN count(r) AS c`,
		e.From.Label, store.KeyProperty(e.From.Label),
		e.To.Label, store.KeyProperty(e.To.Label),
		e.Type,
	)
	recs, err := o.run(ctx, q, map[string]any{"from": e.From.Key, "to": e.To.Key, "props": props})
	if err != nil {
		return err
	}
	if len(recs) == 0 || int64Of(recs[0], "c") == 0 {
		return store.ErrNotFound
	}
	return nil
}

type relRow struct {
	id    string
	typ   string
	start string
	end   string
	props map[string]any
}

func (o *txOps) elementID(ctx context.Context, ref store.NodeRef) (string, error) {
	if err := store.CheckIdentifiers(ref.Label); err != nil {
		return "", err
	}
	match, params := matchNode(ref)
	recs, err := o.run(ctx, match+" RETURN elementId(n) AS id LIMIT 1", params)
	if err != nil {
		return "", err
	}
	if len(recs) == 0 {
		return "", store.ErrNotFound
	}
	return stringOf(recs[0], "id"), nil
}

// RedirectEdges recreates every relationship of from on to with the same
// type. Where to already has that relationship, its properties win and
// missing ones are copied over.
func (o *txOps) RedirectEdges(ctx context.Context, from, to store.NodeRef) (int, error) {
	fromID, err := o.elementID(ctx, from)
	if err != nil {
		return 0, err
	}
	toID, err := o.elementID(ctx, to)
	if err != nil {
		return 0, err
	}
	if fromID == toID {
		return 0, nil
	}

	recs, err := o.run(ctx, `MATCH (s)-[r]->(e)
WHERE elementId(s) = $id OR elementId(e) = $id
RETURN DISTINCT elementId(r) AS rid, type(r) AS type,
       elementId(s) AS sid, elementId(e) AS eid, properties(r) AS props`,
		map[string]any{"id": fromID})
	if err != nil {
		return 0, err
	}

	rows := make([]relRow, 0, len(recs))
	for _, rec := range recs {
		p, _ := rec.Get("props")
		pm, _ := p.(map[string]any)
		rows = append(rows, relRow{
			id:    stringOf(rec, "rid"),
			typ:   stringOf(rec, "type"),
			start: stringOf(rec, "sid"),
			end:   stringOf(rec, "eid"),
			props: pm,
		})
	}

	moved := 0
	for _, row := range rows {
		if err := store.CheckIdentifiers(row.typ); err != nil {
			return moved, err
		}
		start, end := row.start, row.end
		if start == fromID {
			start = toID
		}
		if end == fromID {
			end = toID
		}

		if start != end {
			if row.props == nil {
				row.props = map[string]any{}
			}
			q := fmt.Sprintf(`MATCH (x), (y) WHERE elementId(x) = $x AND elementId(y) = $y
MERGE (x)-[n:%s]->(y)
WITH n, properties(n) AS existing
SET n += $props
SET n += existing`, row.typ)
			if _, err := o.run(ctx, q, map[string]any{"x": start, "y": end, "props": row.props}); err != nil {
				return moved, err
			}
			moved++
		}

		if _, err := o.run(ctx, "MATCH ()-[r]->() WHERE elementId(r) = $id DELETE r", map[string]any{"id": row.id}); err != nil {
			return moved, err
		}
	}
	return moved, nil
}

func (o *txOps) RekeyNode(ctx context.Context, ref store.NodeRef, newKey string) error {
	if err := store.CheckIdentifiers(ref.Label); err != nil {
		return err
	}
	if _, err := o.Node(ctx, ref); err != nil {
		return err
	}
	if newKey == ref.Key {
		return nil
	}
	if _, err := o.Node(ctx, store.NodeRef{Label: ref.Label, Key: newKey}); err == nil {
		return store.ErrKeyConflict
	} else if err != store.ErrNotFound {
		return err
	}

	match, params := matchNode(ref)
	params["new"] = newKey
	_, err := o.run(ctx, match+fmt.Sprintf(" SET n.%s = $new", store.KeyProperty(ref.Label)), params)
	return err
}

func (o *txOps) DeleteNode(ctx context.Context, ref store.NodeRef) error {
	if err := store.CheckIdentifiers(ref.Label); err != nil {
		return err
	}
	match, params := matchNode(ref)
	_, err := o.run(ctx, match+" DETACH DELETE n", params)
	return err
}
