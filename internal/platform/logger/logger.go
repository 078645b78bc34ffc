// Package logger builds the service's structured logger. Every record passes
// through a redacting handler so postal codes can never reach the log sink,
// whatever code path emitted them.
package logger

import (
	"context"
	"log/slog"
	"os"

	"address-cri/pkg/privacy"
)

// New returns the production logger: JSON to stdout behind redaction.
func New() *slog.Logger {
	return NewWithHandler(slog.NewJSONHandler(os.Stdout, nil))
}

// NewWithHandler wraps an arbitrary sink handler with redaction. Tests pass
// a handler writing to a buffer.
func NewWithHandler(sink slog.Handler) *slog.Logger {
	return slog.New(&redactingHandler{inner: sink})
}

// redactingHandler sanitizes the message and every string attribute before
// delegating to the wrapped handler. Group attributes are sanitized
// recursively.
type redactingHandler struct {
	inner slog.Handler
}

func (h *redactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *redactingHandler) Handle(ctx context.Context, record slog.Record) error {
	clean := slog.NewRecord(record.Time, record.Level, privacy.Sanitize(record.Message), record.PC)
	record.Attrs(func(attr slog.Attr) bool {
		clean.AddAttrs(sanitizeAttr(attr))
		return true
	})
	return h.inner.Handle(ctx, clean)
}

func (h *redactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	sanitized := make([]slog.Attr, len(attrs))
	for i, attr := range attrs {
		sanitized[i] = sanitizeAttr(attr)
	}
	return &redactingHandler{inner: h.inner.WithAttrs(sanitized)}
}

func (h *redactingHandler) WithGroup(name string) slog.Handler {
	return &redactingHandler{inner: h.inner.WithGroup(name)}
}

func sanitizeAttr(attr slog.Attr) slog.Attr {
	switch attr.Value.Kind() {
	case slog.KindString:
		return slog.String(attr.Key, privacy.Sanitize(attr.Value.String()))
	case slog.KindGroup:
		group := attr.Value.Group()
		sanitized := make([]any, 0, len(group))
		for _, member := range group {
			sanitized = append(sanitized, sanitizeAttr(member))
		}
		return slog.Group(attr.Key, sanitized...)
	default:
		return attr
	}
}
