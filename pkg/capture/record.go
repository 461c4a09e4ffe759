package capture

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ngoyal88/logwise/pkg/logsink"
)

// Severity names a log level a caller may capture at.
type Severity string

const (
	SeverityDebug     Severity = "DEBUG"
	SeverityInfo      Severity = "INFO"
	SeverityWarning   Severity = "WARNING"
	SeverityError     Severity = "ERROR"
	SeverityException Severity = "EXCEPTION"
	SeverityCritical  Severity = "CRITICAL"
)

// ErrUnknownSeverity is returned for severity names outside the known set.
var ErrUnknownSeverity = errors.New("unknown severity")

// ParseSeverity validates name against the known severities. Matching is exact
// and case-sensitive.
func ParseSeverity(name string) (Severity, error) {
	s := Severity(name)
	if _, ok := severityLevels[s]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownSeverity, name)
	}
	return s, nil
}

var severityLevels = map[Severity]slog.Level{
	SeverityDebug:     slog.LevelDebug,
	SeverityInfo:      slog.LevelInfo,
	SeverityWarning:   slog.LevelWarn,
	SeverityError:     slog.LevelError,
	SeverityException: slog.LevelError,
	SeverityCritical:  logsink.LevelCritical,
}

// Level maps s to the slog level it is emitted at. EXCEPTION is emitted at ERROR.
func (s Severity) Level() (slog.Level, bool) {
	l, ok := severityLevels[s]
	return l, ok
}

// TriggersAnalysis reports whether captures at s are sent for analysis.
func (s Severity) TriggersAnalysis() bool {
	return s == SeverityError || s == SeverityException || s == SeverityCritical
}

// Sentinels used when the source location or code is not known.
const (
	UnknownFile     = logsink.UnknownFile
	CodeUnavailable = "unavailable"
)

// Location is the reported source position of a log event.
type Location struct {
	File string
	Line int
}

func (l Location) normalize() Location {
	if l.File == "" {
		l.File = UnknownFile
	}
	if l.Line < 0 {
		l.Line = 0
	}
	return l
}

// Known reports whether both the file and a positive line are set.
func (l Location) Known() bool {
	return l.File != "" && l.File != UnknownFile && l.Line > 0
}

// Record is one captured log event enriched with its code context.
// It is built per capture and not mutated afterwards.
type Record struct {
	ID          string
	Message     string
	Severity    Severity
	Timestamp   string
	File        string
	Line        int
	Framework   string
	CodeContext string
}

// NewRecord builds a Record, reading the context window around loc.
func NewRecord(message string, severity Severity, loc Location, framework string) Record {
	loc = loc.normalize()

	code := CodeUnavailable
	if loc.Known() {
		if snippet, ok := ExtractContext(loc.File, loc.Line); ok {
			code = snippet
		}
	}

	return Record{
		ID:          uuid.NewString(),
		Message:     message,
		Severity:    severity,
		Timestamp:   time.Now().Format(time.RFC3339Nano),
		File:        loc.File,
		Line:        loc.Line,
		Framework:   framework,
		CodeContext: code,
	}
}

// LogAttrs returns the location attributes the sink renders as file:line.
func (r Record) LogAttrs() []any {
	return []any{logsink.FileKey, r.File, logsink.LineKey, r.Line}
}
