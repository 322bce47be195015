package labels

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/OFFIS-RIT/scholargraph/backend/pkg/ai"
	"github.com/OFFIS-RIT/scholargraph/backend/pkg/canon"
)

type expansionResponse struct {
	Items []Result `json:"items"`
}

// LLMExpander expands labels with a structured completion.
type LLMExpander struct {
	client    ai.GraphAIClient
	rootLabel string
}

// NewLLMExpander returns an expander that tells the model never to answer
// with rootLabel. An empty rootLabel uses the configured canonical root.
func NewLLMExpander(client ai.GraphAIClient, rootLabel string) *LLMExpander {
	if rootLabel == "" {
		rootLabel = canon.RootLabel()
	}
	return &LLMExpander{client: client, rootLabel: rootLabel}
}

func (e *LLMExpander) Expand(ctx context.Context, labels []string) ([]Result, error) {
	encoded, err := json.Marshal(labels)
	if err != nil {
		return nil, err
	}
	prompt := fmt.Sprintf(ai.LabelExpansionPrompt, e.rootLabel, string(encoded))

	var resp expansionResponse
	if err := e.client.GenerateCompletionWithFormat(
		ctx,
		"label_expansion",
		"Expanded form of every ontology label, in input order",
		prompt,
		&resp,
	); err != nil {
		return nil, err
	}
	return resp.Items, nil
}
