// Package timing measures and formats job durations.
package timing

import (
	"fmt"
	"time"

	"github.com/OFFIS-RIT/scholargraph/backend/internal/observability"
)

// FormatDuration renders d as hh:mm:ss.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}

// Stopwatch times one job of a given kind.
type Stopwatch struct {
	kind  string
	start time.Time
	now   func() time.Time
}

// Start begins timing a job.
func Start(kind string) *Stopwatch {
	return &Stopwatch{kind: kind, start: time.Now(), now: time.Now}
}

// Elapsed returns the time since Start.
func (s *Stopwatch) Elapsed() time.Duration {
	return s.now().Sub(s.start)
}

// Stop records the elapsed time in the job duration histogram and returns it.
func (s *Stopwatch) Stop() time.Duration {
	d := s.Elapsed()
	observability.JobDuration.WithLabelValues(s.kind).Observe(d.Seconds())
	return d
}
