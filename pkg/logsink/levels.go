package logsink

import (
	"log/slog"
	"strings"
)

// LevelCritical sits above slog.LevelError; slog has no built-in equivalent.
const LevelCritical = slog.Level(12)

// LevelLabel returns the label rendered for level. Levels between the named
// ones round down to the nearest label.
func LevelLabel(level slog.Level) string {
	switch {
	case level >= LevelCritical:
		return "CRITICAL"
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARNING"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}

// ParseLevel converts a threshold name from configuration to a slog.Level.
// Matching is case-insensitive; WARN is accepted as an alias of WARNING.
// Unrecognized names fall back to INFO.
func ParseLevel(name string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARNING", "WARN":
		return slog.LevelWarn
	case "ERROR", "EXCEPTION":
		return slog.LevelError
	case "CRITICAL":
		return LevelCritical
	default:
		return slog.LevelInfo
	}
}

