package log

import (
	"context"
	"log/slog"
)

// NewDualHandler wraps a primary handler and an optional secondary handler
// that only receives error records. The secondary is typically a friendly
// renderer on stderr while the primary writes to a log file.
func NewDualHandler(primary slog.Handler, secondary slog.Handler) slog.Handler {
	return &dualHandler{
		primary:   primary,
		secondary: secondary,
	}
}

type dualHandler struct {
	primary   slog.Handler
	secondary slog.Handler
}

func (h *dualHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if h.primary != nil && h.primary.Enabled(ctx, level) {
		return true
	}
	return h.mirrors(level) && h.secondary.Enabled(ctx, level)
}

func (h *dualHandler) Handle(ctx context.Context, record slog.Record) error {
	if h.primary != nil && h.primary.Enabled(ctx, record.Level) {
		if err := h.primary.Handle(ctx, record); err != nil {
			return err
		}
	}
	if h.mirrors(record.Level) && h.secondary.Enabled(ctx, record.Level) {
		return h.secondary.Handle(ctx, record.Clone())
	}
	return nil
}

func (h *dualHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.derive(func(inner slog.Handler) slog.Handler { return inner.WithAttrs(attrs) })
}

func (h *dualHandler) WithGroup(name string) slog.Handler {
	return h.derive(func(inner slog.Handler) slog.Handler { return inner.WithGroup(name) })
}

func (h *dualHandler) derive(fn func(slog.Handler) slog.Handler) *dualHandler {
	next := &dualHandler{}
	if h.primary != nil {
		next.primary = fn(h.primary)
	}
	if h.secondary != nil {
		next.secondary = fn(h.secondary)
	}
	return next
}

func (h *dualHandler) mirrors(level slog.Level) bool {
	return h.secondary != nil && level >= slog.LevelError
}
