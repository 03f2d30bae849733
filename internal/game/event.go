package game

import (
	"context"

	"github.com/myrjola/misttheater/internal/accusation"
	"github.com/myrjola/misttheater/internal/casefile"
	"github.com/myrjola/misttheater/internal/models"
)

type EventKind string

const (
	EventEvidenceAdded   EventKind = "evidence-added"
	EventStressChanged   EventKind = "stress-changed"
	EventTurnAppended    EventKind = "turn-appended"
	EventAccusationReady EventKind = "accusation-result-ready"
)

// Event tells the presentation layer that the game state changed. Only the fields of its kind are set.
type Event struct {
	Kind      EventKind          `json:"kind"`
	SuspectID casefile.SuspectID `json:"suspectId,omitempty"`
	Evidence  *models.Evidence   `json:"evidence,omitempty"`
	Turn      *models.Turn       `json:"turn,omitempty"`
	Stress    int                `json:"stress,omitempty"`
	Emotion   string             `json:"emotion,omitempty"`
	Result    *accusation.Result `json:"result,omitempty"`
}

// Notifier receives events in the order the changes happened. Notify must not call back into the Game.
type Notifier interface {
	Notify(ctx context.Context, event Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, event Event)

func (f NotifierFunc) Notify(ctx context.Context, event Event) {
	f(ctx, event)
}

type discardNotifier struct{}

func (discardNotifier) Notify(context.Context, Event) {}
