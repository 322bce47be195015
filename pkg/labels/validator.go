// Package labels expands and validates ontology labels in batches through a
// language model while staying inside a token rate limit.
package labels

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/OFFIS-RIT/scholargraph/backend/internal/util"
	"github.com/OFFIS-RIT/scholargraph/backend/pkg/ai"
	"github.com/OFFIS-RIT/scholargraph/backend/pkg/canon"
	"github.com/OFFIS-RIT/scholargraph/backend/pkg/logger"
)

// Result pairs an input label with its expanded form.
type Result struct {
	Label         string `json:"label"`
	ExpandedLabel string `json:"expanded_label"`
}

// Expander turns a batch of labels into one result per label, in order.
// Errors wrapping ai.ErrTransient are retried unchanged after a cooldown.
type Expander interface {
	Expand(ctx context.Context, labels []string) ([]Result, error)
}

// ItemError reports a label that could not be validated on its own.
type ItemError struct {
	Label string
	Err   error
}

func (e ItemError) Error() string {
	return fmt.Sprintf("label %q: %v", e.Label, e.Err)
}

func (e ItemError) Unwrap() error {
	return e.Err
}

// Options configures a Validator. Zero values take the defaults below.
type Options struct {
	BatchSize       int
	TokensPerMinute int
	SafetyMargin    float64
	PromptTokens    int
	Cooldown        time.Duration
	MaxAttempts     int

	Estimator ai.TokenEstimator
	Clock     Clock
	Budget    *TokenBudget
}

const (
	DefaultBatchSize       = 50
	DefaultTokensPerMinute = 1_000_000
	DefaultSafetyMargin    = 0.9
	DefaultPromptTokens    = 200
	DefaultCooldown        = 60 * time.Second
	DefaultMaxAttempts     = 5
)

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.TokensPerMinute <= 0 {
		o.TokensPerMinute = DefaultTokensPerMinute
	}
	if o.SafetyMargin <= 0 || o.SafetyMargin > 1 {
		o.SafetyMargin = DefaultSafetyMargin
	}
	if o.PromptTokens < 0 {
		o.PromptTokens = 0
	} else if o.PromptTokens == 0 {
		o.PromptTokens = DefaultPromptTokens
	}
	if o.Cooldown <= 0 {
		o.Cooldown = DefaultCooldown
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.Estimator == nil {
		o.Estimator = ai.CharEstimator{}
	}
	if o.Clock == nil {
		o.Clock = SystemClock()
	}
	if o.Budget == nil {
		o.Budget = NewTokenBudget(o.TokensPerMinute, o.SafetyMargin, o.Clock)
	}
	return o
}

// Validator batches labels through an Expander. It remembers every canonical
// form it validated, so a label is sent to the model at most once per
// Validator.
type Validator struct {
	expander Expander
	opts     Options

	mu        sync.Mutex
	validated map[string]Result
}

// NewValidator returns a validator using exp.
func NewValidator(exp Expander, opts Options) *Validator {
	return &Validator{
		expander:  exp,
		opts:      opts.withDefaults(),
		validated: make(map[string]Result),
	}
}

// ValidateBatch expands labels and returns one result per canonical form
// whose expansion is not "unknown", in input order. Labels whose canonical
// form was validated before reuse that result without a model call.
//
// Labels that fail on their own are returned as ItemErrors. The error return
// is reserved for a cancelled context.
func (v *Validator) ValidateBatch(ctx context.Context, labels []string) ([]Result, []ItemError, error) {
	forms := make(map[string]string)
	var order []string
	var pending []string
	for _, label := range labels {
		c := canon.Canonicalize(label)
		if canon.IsSentinel(c) {
			logger.Debug("[Labels] Skipping sentinel label", "label", label)
			continue
		}
		if _, ok := forms[c]; ok {
			continue
		}
		forms[c] = label
		order = append(order, c)
		if _, ok := v.cached(c); !ok {
			pending = append(pending, label)
		}
	}

	var itemErrs []ItemError
	for _, batch := range v.batches(pending) {
		results, errs, err := v.run(ctx, batch)
		if err != nil {
			return nil, nil, err
		}
		itemErrs = append(itemErrs, errs...)
		v.remember(results)
	}

	out := make([]Result, 0, len(order))
	for _, c := range order {
		r, ok := v.cached(c)
		if !ok || isUnknown(r.ExpandedLabel) {
			continue
		}
		out = append(out, r)
	}
	logger.Info("[Labels] Batch validated",
		"labels", len(labels),
		"submitted", len(pending),
		"validated", len(out),
		"failed", len(itemErrs),
	)
	return out, itemErrs, nil
}

func (v *Validator) cached(form string) (Result, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	r, ok := v.validated[form]
	return r, ok
}

func (v *Validator) remember(results []Result) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, r := range results {
		c := canon.Canonicalize(r.Label)
		if _, ok := v.validated[c]; !ok {
			v.validated[c] = r
		}
	}
}

// estimate returns the token cost of sending labels.
func (v *Validator) estimate(labels []string) int {
	return v.opts.PromptTokens + v.opts.Estimator.Estimate(strings.Join(labels, ", "))
}

// batches splits labels by count and by the token limit of the budget.
func (v *Validator) batches(labels []string) [][]string {
	limit := v.opts.Budget.Limit
	var out [][]string
	var cur []string
	for _, label := range labels {
		next := append(cur[:len(cur):len(cur)], label)
		if len(cur) > 0 && (len(next) > v.opts.BatchSize || (limit > 0 && v.estimate(next) > limit)) {
			out = append(out, cur)
			next = []string{label}
		}
		cur = next
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

// run expands one batch. Transient failures are retried after the cooldown,
// other failures split the batch in halves until single labels remain.
func (v *Validator) run(ctx context.Context, batch []string) ([]Result, []ItemError, error) {
	tokens := v.estimate(batch)
	results, err := util.RetryWhile(ctx, v.opts.MaxAttempts, ai.IsTransient, v.cooldown,
		func(ctx context.Context) ([]Result, error) {
			if err := v.opts.Budget.WaitIfNeeded(ctx, tokens); err != nil {
				return nil, err
			}
			v.opts.Budget.Record(tokens)
			res, err := v.expander.Expand(ctx, batch)
			if err != nil {
				return nil, err
			}
			if len(res) != len(batch) {
				return nil, fmt.Errorf("%w: expected %d results, got %d", ai.ErrMalformedResponse, len(batch), len(res))
			}
			return res, nil
		})
	if err == nil {
		return zip(batch, results), nil, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, nil, ctxErr
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil, nil, err
	}

	if ai.IsTransient(err) {
		logger.Warn("[Labels] Giving up on throttled batch", "size", len(batch), "attempts", v.opts.MaxAttempts, "err", err)
		errs := make([]ItemError, 0, len(batch))
		for _, label := range batch {
			errs = append(errs, ItemError{Label: label, Err: err})
		}
		return nil, errs, nil
	}

	if len(batch) == 1 {
		logger.Warn("[Labels] Label failed", "label", batch[0], "err", err)
		return nil, []ItemError{{Label: batch[0], Err: err}}, nil
	}

	logger.Debug("[Labels] Splitting failed batch", "size", len(batch), "err", err)
	mid := len(batch) / 2
	left, leftErrs, err := v.run(ctx, batch[:mid])
	if err != nil {
		return nil, nil, err
	}
	right, rightErrs, err := v.run(ctx, batch[mid:])
	if err != nil {
		return nil, nil, err
	}
	return append(left, right...), append(leftErrs, rightErrs...), nil
}

func (v *Validator) cooldown(ctx context.Context, attempt int) error {
	logger.Warn("[Labels] Rate limited, cooling down", "attempt", attempt, "cooldown", v.opts.Cooldown)
	return v.opts.Clock.Sleep(ctx, v.opts.Cooldown)
}

// zip pairs results with the input labels by position. The input label is
// kept even if the model echoed a different one.
func zip(batch []string, results []Result) []Result {
	out := make([]Result, len(batch))
	for i, label := range batch {
		out[i] = Result{Label: label, ExpandedLabel: strings.TrimSpace(results[i].ExpandedLabel)}
	}
	return out
}

func isUnknown(expanded string) bool {
	c := canon.Canonicalize(expanded)
	return canon.IsSentinel(c)
}
