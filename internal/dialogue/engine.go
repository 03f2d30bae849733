// Package dialogue produces suspect replies and applies the stress they cause.
package dialogue

import (
	"context"
	"log/slog"

	"github.com/myrjola/misttheater/internal/ai"
	"github.com/myrjola/misttheater/internal/casefile"
	"github.com/myrjola/misttheater/internal/errors"
	"github.com/myrjola/misttheater/internal/interrogation"
	"github.com/myrjola/misttheater/internal/models"
	"github.com/myrjola/misttheater/internal/prompt"
	"github.com/myrjola/misttheater/internal/random"
)

// Model generates replies. *ai.Client implements it.
type Model interface {
	Complete(ctx context.Context, req ai.ChatRequest) ai.Outcome
}

// Source tells where a reply came from.
type Source string

const (
	SourceModel    Source = "model"
	SourceFallback Source = "fallback"
)

// Response is the outcome of one player message.
type Response struct {
	Text    string
	Delta   int
	Stress  int
	Emotion interrogation.Emotion
	Source  Source
}

type Engine struct {
	model    Model
	caseFile *casefile.Case
	rand     random.Source
	logger   *slog.Logger
}

// NewEngine creates an Engine. A nil model makes every reply come from the local fallback.
func NewEngine(model Model, caseFile *casefile.Case, rand random.Source, logger *slog.Logger) *Engine {
	return &Engine{
		model:    model,
		caseFile: caseFile,
		rand:     rand,
		logger:   logger.With("source", "dialogue.Engine"),
	}
}

// Respond answers text, optionally accompanied by presented evidence, and records the turn in conv.
//
// Exactly one stress increment is applied: the evidence reaction when evidence is presented, otherwise the first
// matching keyword rule.
func (e *Engine) Respond(
	ctx context.Context,
	conv *interrogation.Conversation,
	text string,
	evidence *models.Evidence,
) Response {
	suspect, ok := e.caseFile.Suspect(conv.SuspectID())
	if !ok {
		e.logger.LogAttrs(ctx, slog.LevelError, "conversation with unknown suspect",
			slog.String("suspect", conv.SuspectID().String()))
		return Response{
			Text:    e.caseFile.Dialogue.Confused,
			Stress:  conv.Stress(),
			Emotion: conv.Emotion(),
			Source:  SourceFallback,
		}
	}

	req := ai.ChatRequest{
		System:  prompt.Build(e.caseFile.Title, suspect, conv.Stress(), evidence),
		History: conv.Recent(interrogation.ContextTurns),
		Text:    text,
	}

	var (
		reply  string
		source Source
	)
	switch outcome := e.complete(ctx, req).(type) {
	case ai.Reply:
		reply, source = outcome.Text, SourceModel
	case ai.Failure:
		attrs := []slog.Attr{slog.String("suspect", suspect.ID.String()), slog.String("reason", outcome.Reason)}
		if outcome.Err != nil {
			attrs = append(attrs, errors.SlogError(outcome.Err))
		}
		e.logger.LogAttrs(ctx, slog.LevelWarn, "dialogue model failed, using fallback", attrs...)
		reply, source = e.fallback(suspect, text, evidence), SourceFallback
	}

	delta := StressDelta(suspect, text, evidence)
	conv.Raise(delta)

	var presented *models.Evidence
	if evidence != nil {
		cp := *evidence
		presented = &cp
	}
	conv.Append(models.Turn{Player: text, NPC: reply, Evidence: presented})

	return Response{
		Text:    reply,
		Delta:   delta,
		Stress:  conv.Stress(),
		Emotion: conv.Emotion(),
		Source:  source,
	}
}

func (e *Engine) complete(ctx context.Context, req ai.ChatRequest) ai.Outcome {
	if e.model == nil {
		return ai.Failure{Reason: "offline"}
	}
	return e.model.Complete(ctx, req)
}

// StressDelta is the stress caused by a message. Presenting evidence suppresses keyword scanning.
func StressDelta(suspect *casefile.Suspect, text string, evidence *models.Evidence) int {
	if evidence != nil {
		return suspect.Reaction(evidence.ID).Stress
	}
	return suspect.KeywordStress(text)
}

// fallback answers without the model: a confused filler for evidence, then a canned keyword response, then a random
// line from the suspect's pool.
func (e *Engine) fallback(suspect *casefile.Suspect, text string, evidence *models.Evidence) string {
	if evidence != nil {
		return e.caseFile.Dialogue.Confused
	}
	if line, ok := suspect.CannedResponse(text); ok {
		return line
	}
	return suspect.Fallback[e.rand.Intn(len(suspect.Fallback))]
}
