package log

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
)

// NewFriendlyErrorHandler returns a slog.Handler that renders error records
// as a short "Error: ..." block for humans reading stderr.
func NewFriendlyErrorHandler(w io.Writer) slog.Handler {
	return &friendlyHandler{w: w, mu: &sync.Mutex{}}
}

type friendlyHandler struct {
	w      io.Writer
	mu     *sync.Mutex
	attrs  []attrEntry
	groups []string
}

// attrEntry keeps the attribute's own name next to its group-qualified key.
type attrEntry struct {
	name  string
	key   string
	value string
}

func (h *friendlyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelError
}

func (h *friendlyHandler) Handle(_ context.Context, record slog.Record) error {
	entries := h.entries(record)

	summary := strings.TrimSpace(record.Message)
	if summary == "" {
		if i := slices.IndexFunc(entries, func(e attrEntry) bool { return e.name == "error" }); i >= 0 {
			summary = entries[i].value
		}
	}
	if summary == "" {
		summary = "an unknown error occurred"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Error: %s\n", summary)

	rest := make([]attrEntry, 0, len(entries))
	for _, e := range entries {
		switch {
		case e.value == "", e.name == "error" && e.value == summary:
		case e.name == "suggestion":
			fmt.Fprintf(&sb, "  suggestion: %s\n", e.value)
		default:
			rest = append(rest, e)
		}
	}
	slices.SortStableFunc(rest, func(a, b attrEntry) int { return cmp.Compare(a.key, b.key) })
	for _, e := range rest {
		writeEntry(&sb, e)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, sb.String())
	return err
}

func (h *friendlyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := h.clone()
	for _, a := range attrs {
		next.attrs = append(next.attrs, h.entry(a))
	}
	return next
}

func (h *friendlyHandler) WithGroup(name string) slog.Handler {
	next := h.clone()
	next.groups = append(next.groups, name)
	return next
}

func (h *friendlyHandler) clone() *friendlyHandler {
	return &friendlyHandler{
		w:      h.w,
		mu:     h.mu,
		attrs:  slices.Clone(h.attrs),
		groups: slices.Clone(h.groups),
	}
}

func (h *friendlyHandler) entries(record slog.Record) []attrEntry {
	entries := make([]attrEntry, 0, len(h.attrs)+record.NumAttrs())
	entries = append(entries, h.attrs...)
	record.Attrs(func(a slog.Attr) bool {
		entries = append(entries, h.entry(a))
		return true
	})
	return entries
}

func (h *friendlyHandler) entry(a slog.Attr) attrEntry {
	return attrEntry{name: a.Key, key: h.fullKey(a.Key), value: valueString(a.Value)}
}

func (h *friendlyHandler) fullKey(key string) string {
	if len(h.groups) == 0 {
		return key
	}
	return strings.Join(append(slices.Clone(h.groups), key), ".")
}

func valueString(val slog.Value) string {
	val = val.Resolve()
	switch val.Kind() {
	case slog.KindGroup:
		parts := make([]string, 0, len(val.Group()))
		for _, a := range val.Group() {
			parts = append(parts, a.Key+"="+valueString(a.Value))
		}
		return strings.Join(parts, ", ")
	case slog.KindAny:
		if err, ok := val.Any().(error); ok {
			return err.Error()
		}
		return fmt.Sprint(val.Any())
	default:
		return val.String()
	}
}

func writeEntry(sb *strings.Builder, e attrEntry) {
	first, more, multi := strings.Cut(strings.TrimSpace(e.value), "\n")
	fmt.Fprintf(sb, "  %s: %s\n", e.key, strings.TrimSpace(first))
	if !multi {
		return
	}
	for line := range strings.SplitSeq(more, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			fmt.Fprintf(sb, "    %s\n", trimmed)
		}
	}
}
