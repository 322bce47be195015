package combination

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/OFFIS-RIT/scholargraph/backend/pkg/ai"
	"github.com/OFFIS-RIT/scholargraph/backend/pkg/logger"
)

type combinationResponse struct {
	PaperID string     `json:"paper_id"`
	Combos  [][]string `json:"combos"`
}

// LLMProposer asks a language model for the combinations.
type LLMProposer struct {
	client ai.GraphAIClient
}

// NewLLMProposer returns a proposer backed by client.
func NewLLMProposer(client ai.GraphAIClient) *LLMProposer {
	return &LLMProposer{client: client}
}

func (p *LLMProposer) Propose(ctx context.Context, paperID string, items []string, k int) ([][]string, error) {
	encoded, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	prompt := fmt.Sprintf(ai.CombinationPrompt, paperID, string(encoded), k, paperID)

	var resp combinationResponse
	if err := p.client.GenerateCompletionWithFormat(
		ctx,
		"topic_combinations",
		"Every combination of the paper topics up to max_k items",
		prompt,
		&resp,
	); err != nil {
		return nil, err
	}
	if resp.PaperID != "" && resp.PaperID != paperID {
		logger.Debug("[Combination] Model answered for another paper", "paper", paperID, "answered", resp.PaperID)
	}
	return resp.Combos, nil
}
