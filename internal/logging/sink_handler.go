package logging

import (
	"context"
	"log/slog"
)

// FieldSessionID ties together every line written by one montage process.
const FieldSessionID = "session_id"

// sink is one log destination. Stamped sinks receive session_id on every
// record; the console sink is left unstamped.
type sink struct {
	handler slog.Handler
	stamped bool
}

// sinkHandler copies each record to every sink whose level admits it.
type sinkHandler struct {
	sinks     []sink
	sessionID string
}

func newSinkHandler(sessionID string, sinks ...sink) slog.Handler {
	kept := make([]sink, 0, len(sinks))
	for _, s := range sinks {
		if s.handler != nil {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		return NoopHandler{}
	}
	return &sinkHandler{sinks: kept, sessionID: sessionID}
}

func (h *sinkHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, s := range h.sinks {
		if s.handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *sinkHandler) Handle(ctx context.Context, record slog.Record) error {
	var firstErr error
	last := len(h.sinks) - 1
	for idx, s := range h.sinks {
		if !s.handler.Enabled(ctx, record.Level) {
			continue
		}
		rec := record
		if idx < last {
			rec = record.Clone()
		}
		if s.stamped && h.sessionID != "" {
			rec.AddAttrs(slog.String(FieldSessionID, h.sessionID))
		}
		if err := s.handler.Handle(ctx, rec); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (h *sinkHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.derive(func(handler slog.Handler) slog.Handler { return handler.WithAttrs(attrs) })
}

func (h *sinkHandler) WithGroup(name string) slog.Handler {
	return h.derive(func(handler slog.Handler) slog.Handler { return handler.WithGroup(name) })
}

func (h *sinkHandler) derive(fn func(slog.Handler) slog.Handler) slog.Handler {
	next := make([]sink, len(h.sinks))
	for i, s := range h.sinks {
		next[i] = sink{handler: fn(s.handler), stamped: s.stamped}
	}
	return &sinkHandler{sinks: next, sessionID: h.sessionID}
}
