// Package console writes human readable log lines through charmbracelet/log.
package console

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// ConsoleLogger is a logger.LoggerInstance for terminals and plain log files.
type ConsoleLogger struct {
	logger *log.Logger
}

type ConsoleLoggerParams struct {
	Debug bool
	// Logfmt switches from colored text to key=value lines.
	Logfmt bool
	// Output defaults to stderr.
	Output io.Writer
	// Prefix names the binary, e.g. "worker" or "cli".
	Prefix string
}

func NewConsoleLogger(params ConsoleLoggerParams) *ConsoleLogger {
	out := params.Output
	if out == nil {
		out = os.Stderr
	}
	opts := log.Options{
		ReportTimestamp: true,
		Level:           log.InfoLevel,
		Prefix:          params.Prefix,
		Formatter:       log.TextFormatter,
	}
	if params.Debug {
		opts.Level = log.DebugLevel
	}
	if params.Logfmt {
		opts.Formatter = log.LogfmtFormatter
	}
	return &ConsoleLogger{logger: log.NewWithOptions(out, opts)}
}

func (c *ConsoleLogger) Log(message string, keyvals ...any)   { c.logger.Print(message, keyvals...) }
func (c *ConsoleLogger) Debug(message string, keyvals ...any) { c.logger.Debug(message, keyvals...) }
func (c *ConsoleLogger) Info(message string, keyvals ...any)  { c.logger.Info(message, keyvals...) }
func (c *ConsoleLogger) Warn(message string, keyvals ...any)  { c.logger.Warn(message, keyvals...) }
func (c *ConsoleLogger) Error(message string, keyvals ...any) { c.logger.Error(message, keyvals...) }

// Fatal logs and exits with status 1.
func (c *ConsoleLogger) Fatal(message string, keyvals ...any) { c.logger.Fatal(message, keyvals...) }
