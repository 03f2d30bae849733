package interrogation

import (
	"fmt"
	"testing"

	"github.com/myrjola/misttheater/internal/casefile"
	"github.com/myrjola/misttheater/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmotionFor(t *testing.T) {
	tests := []struct {
		stress int
		want   Emotion
	}{
		{stress: 0, want: Calm},
		{stress: 1, want: Calm},
		{stress: 2, want: Tense},
		{stress: 3, want: Anxious},
		{stress: 4, want: Panic},
		{stress: 5, want: Breakdown},
		{stress: 12, want: Breakdown},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.stress), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, EmotionFor(tt.stress))
			assert.NotEmpty(t, tt.want.Label())
		})
	}
}

func TestConversation_TakeInitialStatement(t *testing.T) {
	c := New(casefile.Hana)
	c.Append(models.Turn{Player: "hello", NPC: "sob"})

	got, ok := c.TakeInitialStatement("[Interrogation begins]", "statement")
	require.True(t, ok)
	require.Equal(t, "statement", got)

	got, ok = c.TakeInitialStatement("[Interrogation begins]", "statement")
	require.False(t, ok)
	require.Empty(t, got)

	history := c.History()
	require.Len(t, history, 2)
	require.True(t, history[0].IsInitial)
	require.False(t, history[1].IsInitial)
	require.True(t, c.GaveInitialStatement())
}

func TestConversation_Raise(t *testing.T) {
	c := New(casefile.Onitake)
	previous := c.Stress()
	for _, delta := range []int{2, 0, -3, 1, 5, -1} {
		c.Raise(delta)
		require.GreaterOrEqual(t, c.Stress(), previous)
		previous = c.Stress()
	}
	require.Equal(t, 8, c.Stress())
	require.Equal(t, Breakdown, c.Emotion())
	require.Equal(t, 100, c.StressPercent())
}

func TestConversation_Recent(t *testing.T) {
	c := New(casefile.Spirit)
	_, _ = c.TakeInitialStatement("[Interrogation begins]", "statement")
	for i := range 25 {
		c.Append(models.Turn{Player: fmt.Sprintf("q%d", i), NPC: fmt.Sprintf("a%d", i)})
	}
	recent := c.Recent(ContextTurns)
	require.Len(t, recent, ContextTurns)
	require.Equal(t, "q20", recent[0].Player)
	require.Equal(t, "q24", recent[4].Player)
	require.Len(t, c.History(), 26)

	short := New(casefile.Spirit)
	short.Append(models.Turn{Player: "only"})
	require.Len(t, short.Recent(ContextTurns), 1)
	require.Empty(t, short.Recent(0))
}

func TestRestore(t *testing.T) {
	history := []models.Turn{
		{Player: "[Interrogation begins]", NPC: "statement", IsInitial: true},
		{Player: "q", NPC: "a", IsInitial: true},
	}
	c := Restore(casefile.Woodcutter, history, -2)
	require.True(t, c.GaveInitialStatement())
	require.Equal(t, 0, c.Stress())
	require.False(t, c.History()[1].IsInitial)

	// The caller's slice is not aliased.
	history[0].NPC = "changed"
	require.Equal(t, "statement", c.History()[0].NPC)

	_, ok := c.TakeInitialStatement("[Interrogation begins]", "statement")
	require.False(t, ok)
}
