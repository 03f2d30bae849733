package main

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/myrjola/misttheater/internal/contexthelpers"
	"github.com/myrjola/misttheater/internal/errors"
)

const (
	eventBuffer = 32
	writeWait   = 10 * time.Second
	pongWait    = 60 * time.Second
	pingPeriod  = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// gameEvents streams the game events of the player profile over a websocket until either side goes away.
func (app *application) gameEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	profileID := contexthelpers.ProfileID(ctx)
	events, unsubscribe := app.events.Subscribe(profileID)
	defer unsubscribe()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already responded.
		app.logger.LogAttrs(ctx, slog.LevelDebug, "websocket upgrade failed", errors.SlogError(err))
		return
	}
	defer func() {
		_ = conn.Close()
	}()
	app.logger.LogAttrs(ctx, slog.LevelDebug, "event stream opened", slog.String("profile_id", profileID))

	// The reader only handles control frames and notices when the client hangs up.
	closed := make(chan struct{})
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go func() {
		defer close(closed)
		for {
			if _, _, readErr := conn.NextReader(); readErr != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-closed:
			app.logger.LogAttrs(ctx, slog.LevelDebug, "event stream closed by client")
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err = conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case event, ok := <-events:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
					time.Now().Add(writeWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err = conn.WriteJSON(event); err != nil {
				app.logger.LogAttrs(ctx, slog.LevelDebug, "failed to write event", errors.SlogError(err))
				return
			}
		}
	}
}
