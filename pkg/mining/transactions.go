package mining

import (
	"context"
	"fmt"

	"github.com/OFFIS-RIT/scholargraph/backend/pkg/common"
	"github.com/OFFIS-RIT/scholargraph/backend/pkg/store"
)

// LoadTransactions builds one transaction per paper from the persisted
// HAS_TOPIC edges, in the order papers first appear. Topic keys are already
// canonical.
func LoadTransactions(ctx context.Context, r store.Reader) ([]common.Transaction, error) {
	edges, err := r.Edges(ctx, store.EdgeQuery{
		Type:      store.RelHasTopic,
		FromLabel: store.LabelPaper,
		ToLabel:   store.LabelTopic,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read paper topics: %w", err)
	}

	index := make(map[string]int)
	var out []common.Transaction
	for _, e := range edges {
		i, ok := index[e.From.Key]
		if !ok {
			i = len(out)
			index[e.From.Key] = i
			out = append(out, common.Transaction{EntityID: e.From.Key})
		}
		out[i].Items = append(out[i].Items, e.To.Key)
	}
	return PrepareTransactions(out), nil
}
