package telemetry

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/knackw/ai-orchestra-gateway-sub003/pkg/redact"
)

// NewLogger builds the gateway's slog logger. Format is "json" or
// "text"; level accepts debug, info, warn, error. When engine is not
// nil, string attribute values pass through PII redaction before they
// reach the handler, so prompts accidentally logged at debug level do
// not leak identifiers.
func NewLogger(w io.Writer, format, level string, engine *redact.Engine) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}

	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	if strings.ToLower(format) == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	if engine != nil {
		handler = &redactingHandler{inner: handler, engine: engine}
	}
	return slog.New(handler)
}

// redactingHandler scrubs string attribute values with the PII
// engine.
type redactingHandler struct {
	inner  slog.Handler
	engine *redact.Engine
}

func (h *redactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *redactingHandler) Handle(ctx context.Context, record slog.Record) error {
	clean := slog.NewRecord(record.Time, record.Level, record.Message, record.PC)
	record.Attrs(func(a slog.Attr) bool {
		clean.AddAttrs(h.redactAttr(a))
		return true
	})
	return h.inner.Handle(ctx, clean)
}

func (h *redactingHandler) redactAttr(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindString {
		s := a.Value.String()
		if res, err := h.engine.Redact(s); err == nil && res.HasPII {
			return slog.String(a.Key, res.Sanitized)
		}
	}
	return a
}

func (h *redactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clean := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		clean[i] = h.redactAttr(a)
	}
	return &redactingHandler{inner: h.inner.WithAttrs(clean), engine: h.engine}
}

func (h *redactingHandler) WithGroup(name string) slog.Handler {
	return &redactingHandler{inner: h.inner.WithGroup(name), engine: h.engine}
}
