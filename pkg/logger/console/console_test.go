package console

import (
	"bytes"
	"strings"
	"testing"
)

func TestConsoleLogger_Logfmt(t *testing.T) {
	var buf bytes.Buffer
	l := NewConsoleLogger(ConsoleLoggerParams{Logfmt: true, Output: &buf, Prefix: "worker"})

	l.Info("[Queue] Running job", "job_id", "j1")
	l.Debug("[Queue] hidden")

	out := buf.String()
	for _, want := range []string{"level=info", "worker", `msg="[Queue] Running job"`, "job_id=j1"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line written at info level: %q", out)
	}
}

func TestConsoleLogger_DebugLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewConsoleLogger(ConsoleLoggerParams{Debug: true, Logfmt: true, Output: &buf})

	l.Debug("[Taxonomy] Topic listed twice", "key", "nn")
	if !strings.Contains(buf.String(), "level=debug") || !strings.Contains(buf.String(), "key=nn") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}
