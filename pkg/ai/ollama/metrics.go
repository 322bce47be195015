package ollama

import (
	"github.com/OFFIS-RIT/scholargraph/backend/pkg/ai"

	"github.com/ollama/ollama/api"
)

// ResetMetrics clears all accumulated token and timing metrics to zero.
func (c *GraphOllamaClient) ResetMetrics() {
	c.metrics.Reset()
}

// GetMetrics returns the accumulated token usage and timing metrics since the last reset.
func (c *GraphOllamaClient) GetMetrics() ai.ModelMetrics {
	return c.metrics.Get()
}

func (c *GraphOllamaClient) recordMetrics(m api.Metrics) {
	c.metrics.Add(ai.ModelMetrics{
		InputTokens:  m.PromptEvalCount,
		OutputTokens: m.EvalCount,
		TotalTokens:  m.PromptEvalCount + m.EvalCount,
		DurationMs:   m.TotalDuration.Milliseconds(),
	})
}
