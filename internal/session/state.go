package session

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/myrjola/misttheater/internal/errors"
	"github.com/myrjola/misttheater/internal/models"
)

// SchemaVersion is written with every saved state. Unversioned payloads are the legacy browser format.
const SchemaVersion = 2

var ErrCorrupt = errors.NewSentinel("corrupt session state")

// ConversationState is the persisted part of a conversation.
type ConversationState struct {
	History              []models.Turn `json:"history"`
	GaveInitialStatement bool         `json:"gaveInitialStatement"`
	Stress               int          `json:"stress"`
}

// State is everything persisted about a play session.
type State struct {
	Version        int                          `json:"version"`
	SessionID      string                       `json:"sessionId"`
	Evidence       []models.Evidence            `json:"evidence"`
	Conversations  map[string]ConversationState `json:"conversations"`
	Investigations []models.InvestigationRecord `json:"investigations"`
	Completed      bool                         `json:"completed"`
	HasSeenIntro   bool                         `json:"hasSeenIntro"`
	VoiceEnabled   bool                         `json:"voiceEnabled"`
}

// NewState returns an empty state for sessionID.
func NewState(sessionID string) State {
	return State{
		Version:       SchemaVersion,
		SessionID:     sessionID,
		Conversations: make(map[string]ConversationState),
	}
}

// Encode serializes s in the current schema.
func Encode(s State) (string, error) {
	s.Version = SchemaVersion
	data, err := json.Marshal(s)
	if err != nil {
		return "", errors.Wrap(err, "marshal state")
	}
	return string(data), nil
}

// Decode parses a stored state, migrating older schemas. Unparseable input returns ErrCorrupt.
func Decode(data string) (State, error) {
	var header struct {
		Version int `json:"version"`
	}
	if err := json.Unmarshal([]byte(data), &header); err != nil {
		return State{}, errors.Wrap(ErrCorrupt, "decode header", slog.String("cause", err.Error()))
	}

	var (
		s   State
		err error
	)
	switch header.Version {
	case 0:
		s, err = decodeLegacy(data)
	case SchemaVersion:
		err = json.Unmarshal([]byte(data), &s)
	default:
		return State{}, errors.Wrap(ErrCorrupt, "unsupported schema version", slog.Int("version", header.Version))
	}
	if err != nil {
		return State{}, errors.Wrap(ErrCorrupt, "decode state",
			slog.Int("version", header.Version), slog.String("cause", err.Error()))
	}
	if s.Conversations == nil {
		s.Conversations = make(map[string]ConversationState)
	}
	s.Version = SchemaVersion
	return s, nil
}

// legacyState is the unversioned format written by the browser edition of the game.
type legacyState struct {
	Evidence      []models.Evidence `json:"evidence"`
	Conversations map[string]struct {
		ConversationHistory      []models.Turn `json:"conversationHistory"`
		HasGivenInitialStatement bool          `json:"hasGivenInitialStatement"`
		StressLevel              int           `json:"stressLevel"`
	} `json:"conversations"`
	SceneInvestigations []struct {
		Command   string `json:"command"`
		Timestamp string `json:"timestamp"`
		Result    string `json:"result"`
		Evidence  string `json:"evidence"`
		IsRepeat  bool   `json:"isRepeat"`
	} `json:"sceneInvestigations"`
	GameCompleted bool   `json:"gameCompleted"`
	SessionID     string `json:"sessionId"`
	HasSeenCover  bool   `json:"hasSeenCover"`
	VoiceEnabled  bool   `json:"voiceEnabled"`
}

func decodeLegacy(data string) (State, error) {
	var legacy legacyState
	if err := json.Unmarshal([]byte(data), &legacy); err != nil {
		return State{}, err //nolint:wrapcheck // wrapped by Decode
	}
	s := NewState(legacy.SessionID)
	s.Evidence = legacy.Evidence
	s.Completed = legacy.GameCompleted
	s.HasSeenIntro = legacy.HasSeenCover
	s.VoiceEnabled = legacy.VoiceEnabled
	for id, c := range legacy.Conversations {
		s.Conversations[id] = ConversationState{
			History:              c.ConversationHistory,
			GaveInitialStatement: c.HasGivenInitialStatement,
			Stress:               c.StressLevel,
		}
	}
	for _, r := range legacy.SceneInvestigations {
		s.Investigations = append(s.Investigations, models.InvestigationRecord{
			ClueKey:      r.Command,
			Result:       r.Result,
			EvidenceName: r.Evidence,
			// The legacy timestamps are locale formatted clock times without a date.
			Timestamp: time.Time{},
			IsRepeat:  r.IsRepeat,
		})
	}
	return s, nil
}
