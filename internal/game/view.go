package game

import (
	"github.com/myrjola/misttheater/internal/casefile"
	"github.com/myrjola/misttheater/internal/interrogation"
	"github.com/myrjola/misttheater/internal/models"
)

// SuspectView is the public state of one suspect. The truth, motive and reaction tables stay hidden.
type SuspectView struct {
	ID                   casefile.SuspectID `json:"id"`
	Name                 string             `json:"name"`
	Image                string             `json:"image"`
	Stress               int                `json:"stress"`
	StressPercent        int                `json:"stressPercent"`
	Emotion              string             `json:"emotion"`
	GaveInitialStatement bool               `json:"gaveInitialStatement"`
	History              []models.Turn      `json:"history"`
}

// View is a snapshot of the game for rendering.
type View struct {
	SessionID      string                       `json:"sessionId"`
	Title          string                       `json:"title"`
	Scene          string                       `json:"scene"`
	Evidence       []models.Evidence            `json:"evidence"`
	Suspects       []SuspectView                `json:"suspects"`
	Clues          []string                     `json:"clues"`
	Investigated   []string                     `json:"investigated"`
	Investigations []models.InvestigationRecord `json:"investigations"`
	Completed      bool                         `json:"completed"`
	HasSeenIntro   bool                         `json:"hasSeenIntro"`
	VoiceEnabled   bool                         `json:"voiceEnabled"`
}

// View returns a snapshot of the current state.
func (g *Game) View() View {
	g.mu.Lock()
	defer g.mu.Unlock()

	v := View{
		SessionID:      g.sessionID,
		Title:          g.caseFile.Title,
		Scene:          g.caseFile.Scene,
		Evidence:       g.ledger.Items(),
		Suspects:       make([]SuspectView, 0, len(casefile.SuspectIDs)),
		Clues:          []string{},
		Investigated:   []string{},
		Investigations: append([]models.InvestigationRecord{}, g.investigations...),
		Completed:      g.completed,
		HasSeenIntro:   g.hasSeenIntro,
		VoiceEnabled:   g.voiceEnabled,
	}
	for _, s := range g.caseFile.Suspects() {
		sv := SuspectView{ID: s.ID, Name: s.Name, Image: s.Image, History: []models.Turn{}}
		if conv, ok := g.conversations[s.ID]; ok {
			sv.Stress = conv.Stress()
			sv.StressPercent = conv.StressPercent()
			sv.GaveInitialStatement = conv.GaveInitialStatement()
			sv.History = conv.History()
		}
		sv.Emotion = interrogation.EmotionFor(sv.Stress).Label()
		v.Suspects = append(v.Suspects, sv)
	}
	for _, clue := range g.caseFile.Clues() {
		v.Clues = append(v.Clues, clue.Key)
		if g.investigated[clue.Key] {
			v.Investigated = append(v.Investigated, clue.Key)
		}
	}
	return v
}
