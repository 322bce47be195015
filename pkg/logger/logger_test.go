package logger

import (
	"reflect"
	"testing"
)

type recorded struct {
	level   string
	message string
	keyvals []any
}

type recorder struct {
	lines []recorded
}

func (r *recorder) add(level, msg string, kv []any) {
	r.lines = append(r.lines, recorded{level, msg, kv})
}

func (r *recorder) Log(m string, kv ...any)   { r.add("log", m, kv) }
func (r *recorder) Debug(m string, kv ...any) { r.add("debug", m, kv) }
func (r *recorder) Info(m string, kv ...any)  { r.add("info", m, kv) }
func (r *recorder) Warn(m string, kv ...any)  { r.add("warn", m, kv) }
func (r *recorder) Error(m string, kv ...any) { r.add("error", m, kv) }
func (r *recorder) Fatal(m string, kv ...any) { r.add("fatal", m, kv) }

func TestDispatchesToAllInstances(t *testing.T) {
	prev := singleton
	defer func() { singleton = prev }()

	a, b := &recorder{}, &recorder{}
	Init(a, b)

	Log("plain", "k", 1)
	Warn("careful", "k", 2)

	want := []recorded{
		{"log", "plain", []any{"k", 1}},
		{"warn", "careful", []any{"k", 2}},
	}
	for _, r := range []*recorder{a, b} {
		if !reflect.DeepEqual(r.lines, want) {
			t.Fatalf("unexpected lines %+v", r.lines)
		}
	}
	if !Enabled() {
		t.Fatal("expected logger to be enabled")
	}
}

func TestNoopBeforeInit(t *testing.T) {
	prev := singleton
	defer func() { singleton = prev }()

	singleton = nil
	Info("dropped")
	if Enabled() {
		t.Fatal("expected logger to be disabled")
	}
}

func TestWith_PrefixesJobFields(t *testing.T) {
	prev := singleton
	defer func() { singleton = prev }()

	r := &recorder{}
	Init(r)

	job := With("kind", "merge", "job_id", "j1")
	job.Info("[Queue] Running job")
	job.With("paper", "p1").Warn("[Queue] Paper failed", "err", "boom")
	job.Error("[Queue] Job failed")

	want := []recorded{
		{"info", "[Queue] Running job", []any{"kind", "merge", "job_id", "j1"}},
		{"warn", "[Queue] Paper failed", []any{"kind", "merge", "job_id", "j1", "paper", "p1", "err", "boom"}},
		{"error", "[Queue] Job failed", []any{"kind", "merge", "job_id", "j1"}},
	}
	if !reflect.DeepEqual(r.lines, want) {
		t.Fatalf("unexpected lines %+v", r.lines)
	}
}
