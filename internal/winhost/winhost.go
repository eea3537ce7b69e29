// Package winhost runs biosctl as a Windows service and answers host
// questions the SCE tool depends on.
package winhost

import (
	"context"
	"log/slog"
	"strings"
)

// EventWriter is the subset of the Windows event log used by EventLogHandler.
type EventWriter interface {
	Info(eid uint32, msg string) error
	Warning(eid uint32, msg string) error
	Error(eid uint32, msg string) error
}

// Event IDs written by EventLogHandler.
const (
	EventInfo    uint32 = 1
	EventWarning uint32 = 2
	EventError   uint32 = 3
)

// EventLogHandler is a slog.Handler that writes one event per record.
// Event log entries carry their own timestamps, so records are formatted
// without one.
type EventLogHandler struct {
	w     EventWriter
	level slog.Leveler
	attrs []slog.Attr
	group string
}

// NewEventLogHandler returns a handler writing records at or above level
// to w.
func NewEventLogHandler(w EventWriter, level slog.Leveler) *EventLogHandler {
	if level == nil {
		level = slog.LevelInfo
	}
	return &EventLogHandler{w: w, level: level}
}

func (h *EventLogHandler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level.Level()
}

func (h *EventLogHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.WriteString(r.Message)
	write := func(a slog.Attr) {
		if a.Equal(slog.Attr{}) {
			return
		}
		key := a.Key
		if h.group != "" {
			key = h.group + "." + key
		}
		b.WriteString(" ")
		b.WriteString(key)
		b.WriteString("=")
		b.WriteString(a.Value.Resolve().String())
	}
	for _, a := range h.attrs {
		write(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		write(a)
		return true
	})

	msg := b.String()
	switch {
	case r.Level >= slog.LevelError:
		return h.w.Error(EventError, msg)
	case r.Level >= slog.LevelWarn:
		return h.w.Warning(EventWarning, msg)
	default:
		return h.w.Info(EventInfo, msg)
	}
}

func (h *EventLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &c
}

func (h *EventLogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	if c.group != "" {
		c.group += "." + name
	} else {
		c.group = name
	}
	return &c
}
