package mining

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/OFFIS-RIT/scholargraph/backend/pkg/ai"
	"github.com/OFFIS-RIT/scholargraph/backend/pkg/common"
)

type proposalResponse struct {
	FrequentItemsets []common.FrequentItemset `json:"frequent_itemsets"`
	Rules            []common.AssociationRule `json:"rules"`
}

// LLMProposer lets a language model run the Apriori analysis.
type LLMProposer struct {
	client ai.GraphAIClient
}

// NewLLMProposer returns a proposer backed by client.
func NewLLMProposer(client ai.GraphAIClient) *LLMProposer {
	return &LLMProposer{client: client}
}

func (p *LLMProposer) Propose(ctx context.Context, transactions []common.Transaction, params Params) (Proposal, error) {
	encoded, err := json.Marshal(transactions)
	if err != nil {
		return Proposal{}, err
	}
	prompt := fmt.Sprintf(
		ai.FrequentItemsetPrompt,
		string(encoded),
		len(transactions),
		params.MinSupportCount,
		params.MinConfidence,
		params.MaxItemsetSize,
	)

	var resp proposalResponse
	if err := p.client.GenerateCompletionWithFormat(
		ctx,
		"frequent_itemsets",
		"Frequent topic sets and association rules over paper transactions",
		prompt,
		&resp,
	); err != nil {
		return Proposal{}, err
	}
	return Proposal{Itemsets: resp.FrequentItemsets, Rules: resp.Rules}, nil
}
