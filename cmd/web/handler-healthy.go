package main

import "net/http"

type healthResponse struct {
	Status string `json:"status"`
	Case   string `json:"case"`
	Games  int    `json:"games"`
}

// healthy reports the loaded case and how many games are in memory.
func (app *application) healthy(w http.ResponseWriter, r *http.Request) {
	app.writeJSON(w, r, http.StatusOK, healthResponse{
		Status: "ok",
		Case:   app.caseFile.Title,
		Games:  app.games.Len(),
	})
}
