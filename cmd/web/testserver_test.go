package main

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"testing"

	"github.com/myrjola/misttheater/internal/e2etest"
	"github.com/myrjola/misttheater/internal/game"
	"github.com/myrjola/misttheater/internal/testhelpers"
	"github.com/stretchr/testify/require"
)

// startTestServer runs the server on a free port with an in-memory database. A nil model runs it offline.
func startTestServer(t *testing.T, model *testhelpers.FakeModel) *e2etest.Server {
	t.Helper()
	environ := []string{
		"MIST_ADDR=localhost:0",
		"MIST_SQLITE_URL=:memory:",
	}
	if model != nil {
		environ = append(environ, "MIST_AI_API_KEY=test-key", "MIST_AI_BASE_URL="+model.BaseURL())
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	server, err := e2etest.StartServer(ctx, io.Discard, environ, run)
	require.NoError(t, err)
	return server
}

func loadGame(t *testing.T, client *e2etest.Client) game.View {
	t.Helper()
	var view game.View
	status, err := client.Call(context.Background(), http.MethodPost, "/api/game/load", nil, &view)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
	return view
}

func investigate(t *testing.T, client *e2etest.Client, clueKey string) {
	t.Helper()
	status, err := client.Call(context.Background(), http.MethodPost, "/api/clues/"+url.PathEscape(clueKey), nil, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
}
