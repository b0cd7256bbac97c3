package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/kong/officectl/internal/iostreams"
)

// Options controls how New builds the process logger.
type Options struct {
	// Level is a name accepted by ParseLevel.
	Level string
	// File, when set, receives every record as JSON. Errors are then also
	// mirrored to ErrOut in the friendly format.
	File string
	// ErrOut receives records when File is empty, as text on a terminal and
	// JSON otherwise. It must never be the stream carrying MCP stdio traffic.
	ErrOut io.Writer
}

// New builds the logger for a command invocation. The returned close
// function releases the log file, if any.
func New(opts Options) (*slog.Logger, func() error, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}
	errOut := opts.ErrOut
	if errOut == nil {
		errOut = os.Stderr
	}
	handlerOpts := &slog.HandlerOptions{Level: level, ReplaceAttr: renameTrace}

	if opts.File == "" {
		if iostreams.IsTerminal(errOut) {
			return slog.New(slog.NewTextHandler(errOut, handlerOpts)), noClose, nil
		}
		return slog.New(slog.NewJSONHandler(errOut, handlerOpts)), noClose, nil
	}

	if err := os.MkdirAll(filepath.Dir(opts.File), 0o700); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	handler := NewDualHandler(slog.NewJSONHandler(f, handlerOpts), NewFriendlyErrorHandler(errOut))
	return slog.New(handler), f.Close, nil
}

// FromContext returns the logger stored under LoggerKey, or a no-op logger.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(LoggerKey).(*slog.Logger); ok && logger != nil {
			return logger
		}
	}
	return Nop()
}

// Nop returns a logger that discards everything.
func Nop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func renameTrace(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		if lvl, ok := a.Value.Any().(slog.Level); ok && lvl <= LevelTrace {
			a.Value = slog.StringValue("TRACE")
		}
	}
	return a
}

func noClose() error { return nil }
