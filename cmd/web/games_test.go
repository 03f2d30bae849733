package main

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/myrjola/misttheater/internal/casefile"
	"github.com/myrjola/misttheater/internal/game"
	"github.com/myrjola/misttheater/internal/session"
	"github.com/myrjola/misttheater/internal/testhelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) (*gameRegistry, *time.Time) {
	t.Helper()
	c, err := casefile.Load()
	require.NoError(t, err)
	reg := newGameRegistry(c, session.NewMemoryStore(), "test", func(string) game.Options {
		return game.Options{}
	}, testhelpers.NewLogger(io.Discard))
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	reg.now = func() time.Time { return now }
	return reg, &now
}

func Test_gameRegistry_Start(t *testing.T) {
	t.Parallel()
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	g := reg.Start(ctx, "alice")
	firstSession := g.SessionID()
	g.InvestigateClue(ctx, "Inspect the trees")
	_, ok := g.Ask(ctx, casefile.Hana, "Where were you?")
	require.True(t, ok)

	assert.Same(t, g, reg.Get(ctx, "alice"))

	// A page load restarts the running game instead of racing it with a second one.
	reloaded := reg.Start(ctx, "alice")
	assert.Same(t, g, reloaded)
	assert.NotEqual(t, firstSession, reloaded.SessionID())
	view := reloaded.View()
	assert.Empty(t, view.Evidence)
	for _, s := range view.Suspects {
		if s.ID == casefile.Hana {
			assert.Len(t, s.History, 1)
		}
	}

	assert.NotSame(t, g, reg.Get(ctx, "bob"))
}

func Test_gameRegistry_Evict(t *testing.T) {
	t.Parallel()
	reg, now := newTestRegistry(t)
	ctx := context.Background()

	idle := reg.Start(ctx, "idle")
	_, ok := idle.Ask(ctx, casefile.Spirit, "Were you a coward?")
	require.True(t, ok)
	*now = now.Add(gameIdleTimeout / 2)
	active := reg.Start(ctx, "active")

	*now = now.Add(gameIdleTimeout/2 + time.Minute)
	assert.Equal(t, 2, reg.Len())
	assert.Equal(t, 1, reg.Evict())
	assert.Equal(t, 1, reg.Len())
	assert.Same(t, active, reg.Get(ctx, "active"))

	// The evicted profile comes back from storage with its conversations.
	restored := reg.Get(ctx, "idle")
	assert.NotSame(t, idle, restored)
	for _, s := range restored.View().Suspects {
		if s.ID == casefile.Spirit {
			assert.Len(t, s.History, 1)
			assert.Equal(t, 2, s.Stress)
		}
	}
	assert.Equal(t, 0, reg.Evict())
}
