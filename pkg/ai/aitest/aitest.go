// Package aitest provides a scripted ai.GraphAIClient for tests.
package aitest

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/OFFIS-RIT/scholargraph/backend/pkg/ai"
)

// ErrNoReply is returned when a call arrives and nothing is scripted.
var ErrNoReply = errors.New("aitest: no reply scripted")

// Call records one request.
type Call struct {
	Name        string
	Description string
	Prompt      string
	Options     ai.GenerateOptions
}

// Reply is the scripted outcome of one call.
type Reply struct {
	Text string
	Err  error
}

// JSON scripts a reply with v encoded as JSON.
func JSON(v any) Reply {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return Reply{Text: string(data)}
}

// Text scripts a raw text reply.
func Text(s string) Reply {
	return Reply{Text: s}
}

// Fail scripts an error.
func Fail(err error) Reply {
	return Reply{Err: err}
}

// Client answers calls from Handler if set, otherwise from the scripted
// replies in order.
type Client struct {
	Handler func(call Call) Reply

	mu      sync.Mutex
	replies []Reply
	calls   []Call
	metrics ai.MetricsRecorder
}

// New returns a client that answers with replies in order.
func New(replies ...Reply) *Client {
	return &Client{replies: replies}
}

// Push appends further replies.
func (c *Client) Push(replies ...Reply) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replies = append(c.replies, replies...)
}

// Calls returns a copy of the recorded calls.
func (c *Client) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Call, len(c.calls))
	copy(out, c.calls)
	return out
}

func (c *Client) next(call Call) Reply {
	c.mu.Lock()
	c.calls = append(c.calls, call)
	handler := c.Handler
	var reply Reply
	scripted := false
	if handler == nil && len(c.replies) > 0 {
		reply = c.replies[0]
		c.replies = c.replies[1:]
		scripted = true
	}
	c.mu.Unlock()

	if handler != nil {
		reply = handler(call)
	} else if !scripted {
		reply = Reply{Err: ErrNoReply}
	}
	c.metrics.Add(ai.ModelMetrics{
		InputTokens:  len(call.Prompt) / 4,
		OutputTokens: len(reply.Text) / 4,
		TotalTokens:  (len(call.Prompt) + len(reply.Text)) / 4,
	})
	return reply
}

func (c *Client) GenerateCompletion(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	reply := c.next(Call{Name: "completion", Prompt: prompt, Options: ai.ApplyOptions(ai.GenerateOptions{}, opts...)})
	return reply.Text, reply.Err
}

func (c *Client) GenerateCompletionWithFormat(
	ctx context.Context,
	name string,
	description string,
	prompt string,
	out any,
	opts ...ai.GenerateOption,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	reply := c.next(Call{
		Name:        name,
		Description: description,
		Prompt:      prompt,
		Options:     ai.ApplyOptions(ai.GenerateOptions{}, opts...),
	})
	if reply.Err != nil {
		return reply.Err
	}
	return ai.UnmarshalFlexible(reply.Text, out)
}

func (c *Client) ResetMetrics() {
	c.metrics.Reset()
}

func (c *Client) GetMetrics() ai.ModelMetrics {
	return c.metrics.Get()
}
