package ai

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// CallObserver is notified after every request with the schema name (or
// "completion"), the duration and the classified error.
type CallObserver func(operation string, d time.Duration, err error)

// PacedClient wraps a GraphAIClient with a request rate limit, error
// classification and an optional observer.
type PacedClient struct {
	inner   GraphAIClient
	limiter *rate.Limiter
	observe CallObserver
}

// NewPacedClient limits inner to requestsPerMinute requests. A value <= 0
// disables the limit.
func NewPacedClient(inner GraphAIClient, requestsPerMinute int, observe CallObserver) *PacedClient {
	limit := rate.Inf
	burst := 1
	if requestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(requestsPerMinute))
	}
	return &PacedClient{
		inner:   inner,
		limiter: rate.NewLimiter(limit, burst),
		observe: observe,
	}
}

func (c *PacedClient) done(op string, start time.Time, err error) error {
	err = Classify(err)
	if c.observe != nil {
		c.observe(op, time.Since(start), err)
	}
	return err
}

func (c *PacedClient) GenerateCompletion(ctx context.Context, prompt string, opts ...GenerateOption) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	start := time.Now()
	out, err := c.inner.GenerateCompletion(ctx, prompt, opts...)
	return out, c.done("completion", start, err)
}

func (c *PacedClient) GenerateCompletionWithFormat(
	ctx context.Context,
	name string,
	description string,
	prompt string,
	out any,
	opts ...GenerateOption,
) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	start := time.Now()
	err := c.inner.GenerateCompletionWithFormat(ctx, name, description, prompt, out, opts...)
	return c.done(name, start, err)
}

func (c *PacedClient) ResetMetrics() {
	c.inner.ResetMetrics()
}

func (c *PacedClient) GetMetrics() ModelMetrics {
	return c.inner.GetMetrics()
}
