// Package jsonlog is a LoggerInstance that writes one JSON object per line
// using zerolog.
package jsonlog

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
)

// JSONLogger implements LoggerInstance on top of zerolog.
type JSONLogger struct {
	logger zerolog.Logger
}

// JSONLoggerParams contains configuration for creating a JSONLogger.
type JSONLoggerParams struct {
	Debug bool
	// Output defaults to stderr.
	Output  io.Writer
	Service string
}

// NewJSONLogger creates a JSON logger with timestamps.
func NewJSONLogger(params JSONLoggerParams) *JSONLogger {
	out := params.Output
	if out == nil {
		out = os.Stderr
	}
	level := zerolog.InfoLevel
	if params.Debug {
		level = zerolog.DebugLevel
	}
	ctx := zerolog.New(out).Level(level).With().Timestamp()
	if params.Service != "" {
		ctx = ctx.Str("service", params.Service)
	}
	return &JSONLogger{logger: ctx.Logger()}
}

// fields turns alternating key/value pairs into a zerolog field map. A
// trailing key without value is stored under "!BADKEY" like charmbracelet
// does.
func fields(keyvals []any) map[string]any {
	if len(keyvals) == 0 {
		return nil
	}
	out := make(map[string]any, len(keyvals)/2+1)
	for i := 0; i < len(keyvals); i += 2 {
		key := fmt.Sprint(keyvals[i])
		if i+1 >= len(keyvals) {
			out["!BADKEY"] = keyvals[i]
			break
		}
		val := keyvals[i+1]
		if err, ok := val.(error); ok {
			val = err.Error()
		}
		out[key] = val
	}
	return out
}

func (j *JSONLogger) emit(e *zerolog.Event, message string, keyvals []any) {
	if f := fields(keyvals); f != nil {
		e = e.Fields(f)
	}
	e.Msg(message)
}

func (j *JSONLogger) Log(message string, keyvals ...any) {
	j.emit(j.logger.Log(), message, keyvals)
}

func (j *JSONLogger) Info(message string, keyvals ...any) {
	j.emit(j.logger.Info(), message, keyvals)
}

func (j *JSONLogger) Warn(message string, keyvals ...any) {
	j.emit(j.logger.Warn(), message, keyvals)
}

func (j *JSONLogger) Error(message string, keyvals ...any) {
	j.emit(j.logger.Error(), message, keyvals)
}

func (j *JSONLogger) Debug(message string, keyvals ...any) {
	j.emit(j.logger.Debug(), message, keyvals)
}

// Fatal writes a message at FATAL level and exits the process.
func (j *JSONLogger) Fatal(message string, keyvals ...any) {
	j.emit(j.logger.Fatal(), message, keyvals)
}
