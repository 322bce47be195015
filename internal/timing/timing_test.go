package timing

import (
	"testing"
	"time"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "00:00:00"},
		{59 * time.Second, "00:00:59"},
		{61 * time.Minute, "01:01:00"},
		{25*time.Hour + 3*time.Second, "25:00:03"},
		{-time.Second, "00:00:00"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.in); got != tt.want {
			t.Fatalf("FormatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStopwatch_UsesClock(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := &Stopwatch{kind: "test", start: base, now: func() time.Time { return base.Add(90 * time.Second) }}
	if got := s.Stop(); got != 90*time.Second {
		t.Fatalf("expected 90s, got %v", got)
	}
}
