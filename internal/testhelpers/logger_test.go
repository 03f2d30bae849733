package testhelpers

import (
	"context"
	"log/slog"
	"testing"

	"github.com/myrjola/misttheater/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingTB struct {
	testing.TB
	lines []string
}

func (r *recordingTB) Helper() {}

func (r *recordingTB) Log(args ...any) {
	for _, arg := range args {
		if s, ok := arg.(string); ok {
			r.lines = append(r.lines, s)
		}
	}
}

func TestNewTestLogger(t *testing.T) {
	t.Parallel()
	rec := &recordingTB{TB: t, lines: nil}
	logger := NewTestLogger(rec)

	ctx := logging.WithAttrs(context.Background(), slog.String("session_id", "s1"))
	logger.LogAttrs(ctx, slog.LevelDebug, "stress changed", slog.String("suspect", "hana"))

	require.Len(t, rec.lines, 1)
	assert.Contains(t, rec.lines[0], `msg="stress changed"`)
	assert.Contains(t, rec.lines[0], "suspect=hana")
	assert.Contains(t, rec.lines[0], "session_id=s1")
	assert.NotContains(t, rec.lines[0], "\n")
}
