package labels

import (
	"context"
	"sync"
	"time"
)

// Clock is the time source of a TokenBudget.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type systemClock struct{}

// SystemClock returns the wall clock.
func SystemClock() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now()
}

func (systemClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// TokenBudget is a fixed window token limiter. The window opens with the
// first recorded or requested tokens and lasts Window.
type TokenBudget struct {
	Limit  int
	Window time.Duration

	clock Clock

	mu          sync.Mutex
	windowStart time.Time
	used        int
}

// NewTokenBudget allows tokensPerMinute × safetyMargin tokens per minute.
func NewTokenBudget(tokensPerMinute int, safetyMargin float64, clock Clock) *TokenBudget {
	if clock == nil {
		clock = SystemClock()
	}
	if safetyMargin <= 0 || safetyMargin > 1 {
		safetyMargin = 1
	}
	return &TokenBudget{
		Limit:  int(float64(tokensPerMinute) * safetyMargin),
		Window: time.Minute,
		clock:  clock,
	}
}

func (b *TokenBudget) roll(now time.Time) {
	if b.windowStart.IsZero() || now.Sub(b.windowStart) >= b.Window {
		b.windowStart = now
		b.used = 0
	}
}

// Record adds n tokens to the current window.
func (b *TokenBudget) Record(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.roll(b.clock.Now())
	b.used += n
}

// Used returns the tokens recorded in the current window.
func (b *TokenBudget) Used() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.roll(b.clock.Now())
	return b.used
}

// WaitIfNeeded sleeps until the next window when n more tokens would exceed
// the limit. A request larger than the whole limit only waits for an empty
// window.
func (b *TokenBudget) WaitIfNeeded(ctx context.Context, n int) error {
	b.mu.Lock()
	now := b.clock.Now()
	b.roll(now)
	if b.Limit <= 0 || b.used == 0 || b.used+n <= b.Limit {
		b.mu.Unlock()
		return nil
	}
	wait := b.Window - now.Sub(b.windowStart)
	b.mu.Unlock()

	if err := b.clock.Sleep(ctx, wait); err != nil {
		return err
	}

	b.mu.Lock()
	b.roll(b.clock.Now())
	b.mu.Unlock()
	return nil
}
