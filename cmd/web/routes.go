package main

import (
	"net/http"

	"github.com/justinas/alice"
)

func (app *application) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/healthy", app.healthy)

	dynamic := alice.New(app.timeout, app.sessionManager.LoadAndSave, app.profile)

	mux.Handle("GET /api/csrf", dynamic.ThenFunc(app.csrfToken))

	mux.Handle("POST /api/game/load", dynamic.ThenFunc(app.loadGame))
	mux.Handle("GET /api/game", dynamic.ThenFunc(app.viewGame))
	mux.Handle("POST /api/game/save", dynamic.ThenFunc(app.saveGame))
	mux.Handle("POST /api/game/reset", dynamic.ThenFunc(app.resetGame))
	mux.Handle("POST /api/game/intro", dynamic.ThenFunc(app.markIntroSeen))
	mux.Handle("PUT /api/game/voice", dynamic.ThenFunc(app.setVoice))

	mux.Handle("GET /api/suspects", dynamic.ThenFunc(app.listSuspects))
	mux.Handle("POST /api/suspects/{suspectID}/statement", dynamic.ThenFunc(app.initialStatement))
	mux.Handle("POST /api/suspects/{suspectID}/questions", dynamic.ThenFunc(app.askQuestion))
	mux.Handle("POST /api/suspects/{suspectID}/evidence/{evidenceID}", dynamic.ThenFunc(app.presentEvidence))
	mux.Handle("POST /api/suspects/{suspectID}/speech", dynamic.ThenFunc(app.speak))

	mux.Handle("GET /api/clues", dynamic.ThenFunc(app.listClues))
	mux.Handle("POST /api/clues/{clueKey}", dynamic.ThenFunc(app.investigateClue))

	mux.Handle("POST /api/accusation", dynamic.ThenFunc(app.submitAccusation))

	// Websockets need the raw connection, so neither the timeout nor the session saving may wrap the writer.
	stream := alice.New(app.streamSession, app.existingProfile)
	mux.Handle("GET /api/events", stream.ThenFunc(app.gameEvents))

	return app.recoverPanic(app.logRequest(secureHeaders(app.noSurf(commonContext(mux)))))
}

func (app *application) timeout(next http.Handler) http.Handler {
	return timeoutHandler(next, app.requestTimeout())
}
