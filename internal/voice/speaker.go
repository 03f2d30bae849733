// Package voice turns suspect lines into speech.
package voice

import (
	"context"
	"log/slog"

	"github.com/myrjola/misttheater/internal/casefile"
	"github.com/myrjola/misttheater/internal/errors"
)

// DefaultVoice is used for suspects without a configured voice.
const DefaultVoice = "alloy"

// Synthesizer renders text as audio. *ai.Client implements it.
type Synthesizer interface {
	Speak(ctx context.Context, text string, voice string) ([]byte, error)
}

type Speaker struct {
	synth    Synthesizer
	caseFile *casefile.Case
	logger   *slog.Logger
}

// NewSpeaker creates a Speaker. A nil synth disables speech.
func NewSpeaker(synth Synthesizer, caseFile *casefile.Case, logger *slog.Logger) *Speaker {
	return &Speaker{
		synth:    synth,
		caseFile: caseFile,
		logger:   logger.With("source", "voice.Speaker"),
	}
}

// VoiceFor returns the speech voice of suspectID.
func (s *Speaker) VoiceFor(suspectID casefile.SuspectID) string {
	if suspect, ok := s.caseFile.Suspect(suspectID); ok && suspect.Voice != "" {
		return suspect.Voice
	}
	return DefaultVoice
}

// Say synthesizes text in the voice of suspectID. Failures are logged and yield nil audio.
func (s *Speaker) Say(ctx context.Context, suspectID casefile.SuspectID, text string) []byte {
	if s.synth == nil || text == "" {
		return nil
	}
	voice := s.VoiceFor(suspectID)
	audio, err := s.synth.Speak(ctx, text, voice)
	if err != nil {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "speech synthesis failed",
			slog.String("suspect", suspectID.String()), slog.String("voice", voice), errors.SlogError(err))
		return nil
	}
	return audio
}
