package main

import (
	"context"
	"net/http"

	"github.com/myrjola/misttheater/internal/accusation"
	"github.com/myrjola/misttheater/internal/casefile"
	"github.com/myrjola/misttheater/internal/contexthelpers"
	"github.com/myrjola/misttheater/internal/dialogue"
	"github.com/myrjola/misttheater/internal/errors"
	"github.com/myrjola/misttheater/internal/game"
	"github.com/myrjola/misttheater/internal/interrogation"
)

// actionContext detaches a game action from the request. A started action always runs to completion and is
// persisted, even when the player navigates away.
func actionContext(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

func (app *application) currentGame(r *http.Request) *game.Game {
	return app.games.Get(r.Context(), contexthelpers.ProfileID(r.Context()))
}

func (app *application) suspectFromPath(w http.ResponseWriter, r *http.Request) (casefile.SuspectID, bool) {
	id, ok := casefile.ParseSuspectID(r.PathValue("suspectID"))
	if !ok {
		app.notFound(w, r, "Unknown suspect.")
	}
	return id, ok
}

func (app *application) csrfToken(w http.ResponseWriter, r *http.Request) {
	app.writeJSON(w, r, http.StatusOK, map[string]string{"token": contexthelpers.CSRFToken(r.Context())})
}

func (app *application) loadGame(w http.ResponseWriter, r *http.Request) {
	g := app.games.Start(actionContext(r), contexthelpers.ProfileID(r.Context()))
	app.writeJSON(w, r, http.StatusOK, g.View())
}

func (app *application) viewGame(w http.ResponseWriter, r *http.Request) {
	app.writeJSON(w, r, http.StatusOK, app.currentGame(r).View())
}

func (app *application) saveGame(w http.ResponseWriter, r *http.Request) {
	g := app.currentGame(r)
	if err := g.Save(actionContext(r)); err != nil {
		app.serverError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, g.View())
}

func (app *application) resetGame(w http.ResponseWriter, r *http.Request) {
	g := app.currentGame(r)
	if err := g.Reset(actionContext(r)); err != nil {
		app.serverError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, g.View())
}

func (app *application) markIntroSeen(w http.ResponseWriter, r *http.Request) {
	g := app.currentGame(r)
	g.MarkIntroSeen(actionContext(r))
	app.writeJSON(w, r, http.StatusOK, g.View())
}

type voiceRequest struct {
	Enabled bool `json:"enabled"`
}

func (app *application) setVoice(w http.ResponseWriter, r *http.Request) {
	var req voiceRequest
	if !app.readJSON(w, r, &req) {
		return
	}
	g := app.currentGame(r)
	g.SetVoiceEnabled(actionContext(r), req.Enabled)
	app.writeJSON(w, r, http.StatusOK, g.View())
}

func (app *application) listSuspects(w http.ResponseWriter, r *http.Request) {
	app.writeJSON(w, r, http.StatusOK, app.currentGame(r).View().Suspects)
}

type statementResponse struct {
	Statement string `json:"statement"`
	// Given is false when the statement had already been given in this conversation.
	Given bool `json:"given"`
}

func (app *application) initialStatement(w http.ResponseWriter, r *http.Request) {
	suspectID, ok := app.suspectFromPath(w, r)
	if !ok {
		return
	}
	statement, given := app.currentGame(r).InitialStatement(actionContext(r), suspectID)
	app.writeJSON(w, r, http.StatusOK, statementResponse{Statement: statement, Given: given})
}

type questionRequest struct {
	Text string `json:"text"`
}

type replyResponse struct {
	Text          string          `json:"text"`
	Delta         int             `json:"delta"`
	Stress        int             `json:"stress"`
	StressPercent int             `json:"stressPercent"`
	Emotion       string          `json:"emotion"`
	Source        dialogue.Source `json:"source"`
}

func newReplyResponse(resp dialogue.Response) replyResponse {
	return replyResponse{
		Text:          resp.Text,
		Delta:         resp.Delta,
		Stress:        resp.Stress,
		StressPercent: interrogation.StressPercent(resp.Stress),
		Emotion:       resp.Emotion.Label(),
		Source:        resp.Source,
	}
}

func (app *application) askQuestion(w http.ResponseWriter, r *http.Request) {
	suspectID, ok := app.suspectFromPath(w, r)
	if !ok {
		return
	}
	var req questionRequest
	if !app.readJSON(w, r, &req) {
		return
	}
	resp, ok := app.currentGame(r).Ask(actionContext(r), suspectID, req.Text)
	if !ok {
		app.clientError(w, r, http.StatusBadRequest, "Please enter a question.")
		return
	}
	app.writeJSON(w, r, http.StatusOK, newReplyResponse(resp))
}

func (app *application) presentEvidence(w http.ResponseWriter, r *http.Request) {
	suspectID, ok := app.suspectFromPath(w, r)
	if !ok {
		return
	}
	evidenceID := r.PathValue("evidenceID")
	resp, ok := app.currentGame(r).PresentEvidence(actionContext(r), suspectID, evidenceID)
	if !ok {
		app.notFound(w, r, "You have not found that evidence yet.")
		return
	}
	app.writeJSON(w, r, http.StatusOK, newReplyResponse(resp))
}

func (app *application) speak(w http.ResponseWriter, r *http.Request) {
	suspectID, ok := app.suspectFromPath(w, r)
	if !ok {
		return
	}
	var req questionRequest
	if !app.readJSON(w, r, &req) {
		return
	}
	audio := app.currentGame(r).Speak(r.Context(), suspectID, req.Text)
	if len(audio) == 0 {
		// Voice is best effort. The player keeps reading the text.
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "audio/mpeg")
	_, _ = w.Write(audio)
}

type clueResponse struct {
	Key          string `json:"key"`
	Investigated bool   `json:"investigated"`
}

func (app *application) listClues(w http.ResponseWriter, r *http.Request) {
	view := app.currentGame(r).View()
	investigated := make(map[string]bool, len(view.Investigated))
	for _, key := range view.Investigated {
		investigated[key] = true
	}
	clues := make([]clueResponse, 0, len(view.Clues))
	for _, key := range view.Clues {
		clues = append(clues, clueResponse{Key: key, Investigated: investigated[key]})
	}
	app.writeJSON(w, r, http.StatusOK, clues)
}

func (app *application) investigateClue(w http.ResponseWriter, r *http.Request) {
	record := app.currentGame(r).InvestigateClue(actionContext(r), r.PathValue("clueKey"))
	app.writeJSON(w, r, http.StatusOK, record)
}

func (app *application) submitAccusation(w http.ResponseWriter, r *http.Request) {
	var req accusation.Submission
	if !app.readJSON(w, r, &req) {
		return
	}
	res, err := app.currentGame(r).SubmitAccusation(actionContext(r), req.Killer, req.Method, req.Motive)
	switch {
	case errors.Is(err, accusation.ErrIncomplete):
		app.clientError(w, r, http.StatusBadRequest,
			"Please choose a suspect and describe both the method and the motive.")
		return
	case err != nil:
		app.serverError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, res)
}
