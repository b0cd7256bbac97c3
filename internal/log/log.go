package log

import (
	"fmt"
	"log/slog"
	"strings"
)

type Key struct{}

var LoggerKey = Key{}

// LevelTrace is a custom trace level for slog
// Using LevelDebug - 4 which equals -8
const LevelTrace = slog.LevelDebug - 4

// ParseLevel maps a configured level name onto a slog level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return LevelTrace, nil
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
	}
}

// LevelName renders lvl using the names accepted by ParseLevel.
func LevelName(lvl slog.Level) string {
	if lvl <= LevelTrace {
		return "trace"
	}
	return strings.ToLower(lvl.String())
}
