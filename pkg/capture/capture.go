// Package capture records log events together with the source lines around
// the reported location and, for error-tier severities, blocks on an
// analysis of the event before returning.
package capture

import (
	"context"
	"log/slog"
)

// Analyzer turns an error record into a recommendation. Implementations never fail.
type Analyzer interface {
	Analyze(ctx context.Context, rec Record) string
}

// Capturer is the entry point applications log through.
type Capturer struct {
	logger    *slog.Logger
	analyzer  Analyzer
	framework string
}

// New creates a Capturer. A nil analyzer disables analysis; a nil logger
// discards output.
func New(logger *slog.Logger, analyzer Analyzer, framework string) *Capturer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if framework == "" {
		framework = "generic"
	}
	return &Capturer{logger: logger, analyzer: analyzer, framework: framework}
}

// Logger returns the logger captures are written through. Hosts install it
// with slog.SetDefault when they want their own logging on the same sink.
func (c *Capturer) Logger() *slog.Logger {
	return c.logger
}

// Framework returns the tag attached to every record.
func (c *Capturer) Framework() string {
	return c.framework
}

// Capture logs message at severity and, for ERROR, EXCEPTION and CRITICAL,
// waits for the analysis and returns the recommendation. Other severities
// return "". The only error is ErrUnknownSeverity.
func (c *Capturer) Capture(ctx context.Context, message string, severity Severity, loc Location) (string, error) {
	level, ok := severity.Level()
	if !ok {
		// Round-trip through ParseSeverity for the wrapped error.
		_, err := ParseSeverity(string(severity))
		return "", err
	}

	rec := NewRecord(message, severity, loc, c.framework)
	c.logger.Log(ctx, level, rec.Message, rec.LogAttrs()...)

	if !severity.TriggersAnalysis() || c.analyzer == nil {
		return "", nil
	}
	return c.analyzer.Analyze(ctx, rec), nil
}

// CaptureLevel is Capture with the severity given by name.
func (c *Capturer) CaptureLevel(ctx context.Context, message, level string, loc Location) (string, error) {
	severity, err := ParseSeverity(level)
	if err != nil {
		return "", err
	}
	return c.Capture(ctx, message, severity, loc)
}
