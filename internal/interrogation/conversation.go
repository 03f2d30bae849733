// Package interrogation tracks each suspect's conversation with the player and how close they are to breaking.
package interrogation

import (
	"github.com/myrjola/misttheater/internal/casefile"
	"github.com/myrjola/misttheater/internal/models"
)

// ContextTurns is the number of recent turns handed to the dialogue model.
const ContextTurns = 5

// MaxDisplayStress is where the stress meter tops out. Stress itself is not capped.
const MaxDisplayStress = 5

// Emotion is derived from the stress level.
type Emotion string

const (
	Calm      Emotion = "calm"
	Tense     Emotion = "tense"
	Anxious   Emotion = "anxious"
	Panic     Emotion = "panic"
	Breakdown Emotion = "breakdown"
)

// EmotionFor maps a stress level to its emotion.
func EmotionFor(stress int) Emotion {
	switch {
	case stress <= 1:
		return Calm
	case stress == 2: //nolint:mnd // thresholds of the stress scale
		return Tense
	case stress == 3: //nolint:mnd
		return Anxious
	case stress == 4: //nolint:mnd
		return Panic
	default:
		return Breakdown
	}
}

// Label is the emotion as shown to the model and the player.
func (e Emotion) Label() string {
	switch e {
	case Calm:
		return "calm"
	case Tense:
		return "tense"
	case Anxious:
		return "anxious"
	case Panic:
		return "panicking"
	case Breakdown:
		return "on the verge of breaking down"
	default:
		return string(e)
	}
}

// Conversation is the interrogation of one suspect.
//
// Stress only ever increases, and the initial statement turn, if present, is always the first and only initial turn.
type Conversation struct {
	suspectID       casefile.SuspectID
	history         []models.Turn
	stress          int
	gaveInitialTurn bool
}

// New starts an empty conversation with suspectID.
func New(suspectID casefile.SuspectID) *Conversation {
	return &Conversation{suspectID: suspectID}
}

// Restore rebuilds a persisted conversation.
//
// Stray initial turns after the first position are demoted so that the initial-turn invariant holds, and a negative
// stress is clamped to zero.
func Restore(suspectID casefile.SuspectID, history []models.Turn, stress int) *Conversation {
	c := &Conversation{
		suspectID: suspectID,
		history:   make([]models.Turn, len(history)),
		stress:    max(stress, 0),
	}
	copy(c.history, history)
	for i := range c.history {
		if i > 0 {
			c.history[i].IsInitial = false
		}
	}
	c.gaveInitialTurn = len(c.history) > 0 && c.history[0].IsInitial
	return c
}

func (c *Conversation) SuspectID() casefile.SuspectID {
	return c.suspectID
}

// Stress is the current stress level.
func (c *Conversation) Stress() int {
	return c.stress
}

// Emotion is derived from Stress.
func (c *Conversation) Emotion() Emotion {
	return EmotionFor(c.stress)
}

// StressPercent is the stress meter fill, capped at 100.
func (c *Conversation) StressPercent() int {
	return StressPercent(c.stress)
}

// StressPercent maps a stress level to the stress meter fill, capped at 100.
func StressPercent(stress int) int {
	return min(max(stress, 0), MaxDisplayStress) * 100 / MaxDisplayStress //nolint:mnd // percent
}

// GaveInitialStatement reports whether the initial statement has been delivered.
func (c *Conversation) GaveInitialStatement() bool {
	return c.gaveInitialTurn
}

// TakeInitialStatement records the statement as the first turn. It returns false after the first call.
func (c *Conversation) TakeInitialStatement(opening, statement string) (string, bool) {
	if c.gaveInitialTurn {
		return "", false
	}
	c.gaveInitialTurn = true
	c.history = append([]models.Turn{{Player: opening, NPC: statement, IsInitial: true}}, c.history...)
	return statement, true
}

// Raise adds delta to the stress level. Non-positive deltas are ignored.
func (c *Conversation) Raise(delta int) {
	if delta > 0 {
		c.stress += delta
	}
}

// Append records a regular turn.
func (c *Conversation) Append(turn models.Turn) {
	turn.IsInitial = false
	c.history = append(c.history, turn)
}

// Recent returns up to n of the latest turns, oldest first.
func (c *Conversation) Recent(n int) []models.Turn {
	if n <= 0 {
		return nil
	}
	start := max(len(c.history)-n, 0)
	return append([]models.Turn(nil), c.history[start:]...)
}

// History returns a copy of every turn.
func (c *Conversation) History() []models.Turn {
	return append([]models.Turn(nil), c.history...)
}
