package logging

import (
	"context"
	"log/slog"
	"slices"

	"github.com/myrjola/misttheater/internal/errors"
)

type contextKey string

const slogAttrs contextKey = "slogAttrs"

type ContextHandler struct {
	slog.Handler
}

// NewContextHandler constructs a ContextHandler that adds new [slog.Attr] to the log messages from [context.Context]
// to the underlying [slog.Handler].
func NewContextHandler(h slog.Handler) ContextHandler {
	return ContextHandler{Handler: h}
}

// Handle enriches the log record with [slog.Attr] stored in context with [WithAttrs].
func (h ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if attrs, ok := ctx.Value(slogAttrs).([]slog.Attr); ok {
		r.AddAttrs(attrs...)
	}

	if err := h.Handler.Handle(ctx, r); err != nil {
		return errors.Wrap(err, "handle log record")
	}
	return nil
}

// WithAttrs adds [...slog.Attr] to the [context.Context] that enriches the log messages handled by [ContextHandler].
//
// An attr replaces an earlier one with the same key, so a request that moves to a new play session logs only the
// current session id. Contexts derived from the same parent never see each other's attrs.
func WithAttrs(ctx context.Context, attr ...slog.Attr) context.Context {
	existing, _ := ctx.Value(slogAttrs).([]slog.Attr)
	merged := slices.DeleteFunc(slices.Clone(existing), func(old slog.Attr) bool {
		return slices.ContainsFunc(attr, func(a slog.Attr) bool { return a.Key == old.Key })
	})
	return context.WithValue(ctx, slogAttrs, append(merged, attr...))
}
