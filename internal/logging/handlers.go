package logging

import (
	"context"
	"errors"
	"log/slog"
)

// Fanout sends each record to every sink enabled for its level. A failing
// sink does not stop the others; their errors are joined.
type Fanout struct {
	sinks []slog.Handler
}

// NewFanout drops nil sinks.
func NewFanout(sinks ...slog.Handler) *Fanout {
	f := &Fanout{sinks: make([]slog.Handler, 0, len(sinks))}
	for _, s := range sinks {
		if s != nil {
			f.sinks = append(f.sinks, s)
		}
	}
	return f
}

func (f *Fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, s := range f.sinks {
		if s.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f *Fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, s := range f.sinks {
		if !s.Enabled(ctx, r.Level) {
			continue
		}
		if err := s.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *Fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	return f.derive(func(s slog.Handler) slog.Handler { return s.WithAttrs(attrs) })
}

func (f *Fanout) WithGroup(name string) slog.Handler {
	if name == "" {
		return f
	}
	return f.derive(func(s slog.Handler) slog.Handler { return s.WithGroup(name) })
}

func (f *Fanout) derive(fn func(slog.Handler) slog.Handler) *Fanout {
	out := &Fanout{sinks: make([]slog.Handler, len(f.sinks))}
	for i, s := range f.sinks {
		out.sinks[i] = fn(s)
	}
	return out
}

// sessionHandler stamps every record with the live session attributes. The
// values are read per record because the session starts after logging is set
// up.
type sessionHandler struct {
	next  slog.Handler
	attrs func() []slog.Attr
}

func (h *sessionHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *sessionHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(h.attrs()...)
	return h.next.Handle(ctx, r)
}

func (h *sessionHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &sessionHandler{next: h.next.WithAttrs(attrs), attrs: h.attrs}
}

func (h *sessionHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &sessionHandler{next: h.next.WithGroup(name), attrs: h.attrs}
}
