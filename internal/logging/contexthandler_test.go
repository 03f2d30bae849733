package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewContextHandler(slog.NewTextHandler(&buf, nil)))

	ctx := WithAttrs(context.Background(), slog.String("profile", "p1"))
	ctx = WithAttrs(ctx, slog.String("session", "s1"))
	logger.LogAttrs(ctx, slog.LevelInfo, "turn appended", slog.String("suspect", "hana"))

	out := buf.String()
	require.Contains(t, out, "profile=p1")
	require.Contains(t, out, "session=s1")
	require.Contains(t, out, "suspect=hana")
}

func TestWithAttrs(t *testing.T) {
	t.Parallel()

	base := WithAttrs(context.Background(), slog.String("profile", "p1"), slog.String("session", "s1"))
	restarted := WithAttrs(base, slog.String("session", "s2"))
	hana := WithAttrs(base, slog.String("suspect", "hana"))
	spirit := WithAttrs(base, slog.String("suspect", "spirit"))

	tests := []struct {
		name string
		ctx  context.Context
		want string
	}{
		{name: "base", ctx: base, want: "profile=p1 session=s1"},
		{name: "replaced key", ctx: restarted, want: "profile=p1 session=s2"},
		{name: "first sibling", ctx: hana, want: "profile=p1 session=s1 suspect=hana"},
		{name: "second sibling", ctx: spirit, want: "profile=p1 session=s1 suspect=spirit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			handler := slog.NewTextHandler(&buf, &slog.HandlerOptions{
				ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
					if a.Key == slog.TimeKey || a.Key == slog.LevelKey || a.Key == slog.MessageKey {
						return slog.Attr{}
					}
					return a
				},
			})
			slog.New(NewContextHandler(handler)).LogAttrs(tt.ctx, slog.LevelInfo, "msg")
			assert.Equal(t, tt.want+"\n", buf.String())
		})
	}
}
