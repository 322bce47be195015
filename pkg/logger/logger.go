// Package logger is the process-wide logging facade of scholargraph.
//
// Messages start with a bracketed component tag followed by key/value pairs:
//
//	logger.Info("[Taxonomy] Duplicate merge finished", "groups", 2, "merged", 3)
//
// Code that works on behalf of one job logs through With so every line
// carries the job fields (job_id, kind, paper).
package logger

// LoggerInstance is a logging backend.
type LoggerInstance interface {
	Log(message string, keyvals ...any)
	Debug(message string, keyvals ...any)
	Info(message string, keyvals ...any)
	Warn(message string, keyvals ...any)
	Error(message string, keyvals ...any)
	Fatal(message string, keyvals ...any)
}

// Logger fans every call out to its backends.
type Logger struct {
	instances []LoggerInstance
}

var singleton *Logger

// Init installs the backends. Calls made before Init are dropped.
func Init(instances ...LoggerInstance) {
	singleton = &Logger{instances: instances}
}

// Enabled reports whether Init has been called with at least one backend.
func Enabled() bool {
	return singleton != nil && len(singleton.instances) > 0
}

func dispatch(fn func(LoggerInstance)) {
	l := singleton
	if l == nil {
		return
	}
	for _, instance := range l.instances {
		fn(instance)
	}
}

func Log(message string, keyvals ...any) {
	dispatch(func(i LoggerInstance) { i.Log(message, keyvals...) })
}

func Debug(message string, keyvals ...any) {
	dispatch(func(i LoggerInstance) { i.Debug(message, keyvals...) })
}

func Info(message string, keyvals ...any) {
	dispatch(func(i LoggerInstance) { i.Info(message, keyvals...) })
}

func Warn(message string, keyvals ...any) {
	dispatch(func(i LoggerInstance) { i.Warn(message, keyvals...) })
}

func Error(message string, keyvals ...any) {
	dispatch(func(i LoggerInstance) { i.Error(message, keyvals...) })
}

// Fatal logs and exits the process through the backends.
func Fatal(message string, keyvals ...any) {
	dispatch(func(i LoggerInstance) { i.Fatal(message, keyvals...) })
}

// Fields prefixes every message with a fixed set of key/value pairs.
type Fields struct {
	keyvals []any
}

// With returns Fields carrying keyvals.
func With(keyvals ...any) Fields {
	return Fields{keyvals: keyvals}
}

// With returns a copy of f extended by keyvals.
func (f Fields) With(keyvals ...any) Fields {
	out := make([]any, 0, len(f.keyvals)+len(keyvals))
	out = append(out, f.keyvals...)
	return Fields{keyvals: append(out, keyvals...)}
}

func (f Fields) join(keyvals []any) []any {
	if len(keyvals) == 0 {
		return f.keyvals
	}
	out := make([]any, 0, len(f.keyvals)+len(keyvals))
	out = append(out, f.keyvals...)
	return append(out, keyvals...)
}

func (f Fields) Debug(message string, keyvals ...any) { Debug(message, f.join(keyvals)...) }
func (f Fields) Info(message string, keyvals ...any)  { Info(message, f.join(keyvals)...) }
func (f Fields) Warn(message string, keyvals ...any)  { Warn(message, f.join(keyvals)...) }
func (f Fields) Error(message string, keyvals ...any) { Error(message, f.join(keyvals)...) }
