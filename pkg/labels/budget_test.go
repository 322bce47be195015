package labels

import (
	"context"
	"testing"
	"time"
)

func TestTokenBudget_Limit(t *testing.T) {
	b := NewTokenBudget(1000, 0.9, newManualClock())
	if b.Limit != 900 {
		t.Fatalf("expected limit 900, got %d", b.Limit)
	}
}

func TestTokenBudget_WaitIfNeeded(t *testing.T) {
	clock := newManualClock()
	b := NewTokenBudget(100, 1, clock)
	ctx := context.Background()

	if err := b.WaitIfNeeded(ctx, 60); err != nil {
		t.Fatalf("WaitIfNeeded() error = %v", err)
	}
	b.Record(60)
	clock.Advance(20 * time.Second)

	if err := b.WaitIfNeeded(ctx, 40); err != nil {
		t.Fatalf("WaitIfNeeded() error = %v", err)
	}
	if len(clock.sleeps) != 0 {
		t.Fatalf("expected no sleep within the limit, got %v", clock.sleeps)
	}
	b.Record(40)

	if err := b.WaitIfNeeded(ctx, 1); err != nil {
		t.Fatalf("WaitIfNeeded() error = %v", err)
	}
	if len(clock.sleeps) != 1 || clock.sleeps[0] != 40*time.Second {
		t.Fatalf("expected to sleep until the window ends, got %v", clock.sleeps)
	}
	if used := b.Used(); used != 0 {
		t.Fatalf("expected a fresh window, used = %d", used)
	}
}

func TestTokenBudget_WindowExpires(t *testing.T) {
	clock := newManualClock()
	b := NewTokenBudget(100, 1, clock)

	b.Record(100)
	clock.Advance(time.Minute)
	if err := b.WaitIfNeeded(context.Background(), 50); err != nil {
		t.Fatalf("WaitIfNeeded() error = %v", err)
	}
	if len(clock.sleeps) != 0 {
		t.Fatalf("expected no sleep after the window expired, got %v", clock.sleeps)
	}
}

func TestTokenBudget_OversizedRequestOnEmptyWindow(t *testing.T) {
	clock := newManualClock()
	b := NewTokenBudget(10, 1, clock)
	if err := b.WaitIfNeeded(context.Background(), 500); err != nil {
		t.Fatalf("WaitIfNeeded() error = %v", err)
	}
	if len(clock.sleeps) != 0 {
		t.Fatalf("expected oversized request to proceed on an empty window, got %v", clock.sleeps)
	}
}

func TestTokenBudget_CancelledWait(t *testing.T) {
	clock := newManualClock()
	b := NewTokenBudget(10, 1, clock)
	b.Record(10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := b.WaitIfNeeded(ctx, 5); err == nil {
		t.Fatal("expected cancellation error")
	}
}
