package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"

	"github.com/OFFIS-RIT/scholargraph/backend/pkg/ai"
	"github.com/OFFIS-RIT/scholargraph/backend/pkg/logger"

	"github.com/ollama/ollama/api"
)

const (
	defaultContext = 4096
	promptReserve  = 200
)

// contextSize returns the num_ctx needed for prompt, or 0 when the server
// default is large enough.
func contextSize(prompt string, systemPrompts []string) int {
	tokens := promptReserve
	for _, text := range append([]string{prompt}, systemPrompts...) {
		n, err := ai.CountTokens(text)
		if err != nil {
			n = ai.CharEstimator{}.Estimate(text)
		}
		tokens += n
	}
	if tokens > defaultContext {
		return tokens
	}
	return 0
}

func (c *GraphOllamaClient) chat(ctx context.Context, prompt string, format json.RawMessage, options ai.GenerateOptions) (string, error) {
	msgs := []api.Message{}
	for _, sp := range options.SystemPrompts {
		msgs = append(msgs, api.Message{Role: "system", Content: sp})
	}
	msgs = append(msgs, api.Message{Role: "user", Content: prompt})

	stream := false
	req := &api.ChatRequest{
		Model:    options.Model,
		Messages: msgs,
		Stream:   &stream,
		Format:   format,
		Options:  map[string]any{"temperature": options.Temperature},
	}

	if options.Thinking != "" {
		req.Think = &api.ThinkValue{
			Value: options.Thinking,
		}
	}

	if n := contextSize(prompt, options.SystemPrompts); n > 0 {
		req.Options["num_ctx"] = n
	}

	if err := c.reqLock.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer c.reqLock.Release(1)

	var final api.ChatResponse
	if err := c.Client.Chat(ctx, req, func(cr api.ChatResponse) error {
		final.Message.Content += cr.Message.Content
		if cr.Done {
			final.Done = true
			final.Metrics = cr.Metrics
		}
		return nil
	}); err != nil {
		return "", ai.Classify(err)
	}

	c.recordMetrics(final.Metrics)
	return final.Message.Content, nil
}

// GenerateCompletion sends a single-turn prompt and returns assistant text.
func (c *GraphOllamaClient) GenerateCompletion(
	ctx context.Context,
	prompt string,
	opts ...ai.GenerateOption,
) (string, error) {
	options := ai.ApplyOptions(ai.GenerateOptions{
		Model:       c.chatModel,
		Temperature: 0.3,
	}, opts...)

	return c.chat(ctx, prompt, nil, options)
}

// GenerateCompletionWithFormat enforces a JSON schema and unmarshals into out.
func (c *GraphOllamaClient) GenerateCompletionWithFormat(
	ctx context.Context,
	name string,
	description string,
	prompt string,
	out any,
	opts ...ai.GenerateOption,
) error {
	if out == nil {
		return errors.New("out must be a non-nil pointer")
	}
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return errors.New("out must be a non-nil pointer")
	}

	formatBytes, err := json.Marshal(ai.GenerateSchema(out))
	if err != nil {
		return err
	}

	options := ai.ApplyOptions(ai.GenerateOptions{
		Model:       c.chatModel,
		Temperature: c.temperature,
	}, opts...)

	content, err := c.chat(ctx, prompt, json.RawMessage(formatBytes), options)
	if err != nil {
		return err
	}
	if err := ai.UnmarshalFlexible(content, out); err != nil {
		logger.Debug("[Ollama] Could not decode structured output", "schema", name, "err", err)
		return err
	}
	return nil
}
