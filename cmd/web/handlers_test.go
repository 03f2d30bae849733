package main

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/myrjola/misttheater/internal/accusation"
	"github.com/myrjola/misttheater/internal/game"
	"github.com/myrjola/misttheater/internal/models"
	"github.com/myrjola/misttheater/internal/testhelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_application_healthy(t *testing.T) {
	t.Parallel()
	server := startTestServer(t, nil)

	resp, err := server.Client().Get(context.Background(), "/api/healthy")
	require.NoError(t, err)
	defer func() {
		_ = resp.Body.Close()
	}()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok","case":"In a Grove","games":0}`, string(body))

	loadGame(t, server.Client())
	var health healthResponse
	status, err := server.Client().Call(context.Background(), http.MethodGet, "/api/healthy", nil, &health)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, health.Games)
}

func Test_application_csrfRequired(t *testing.T) {
	t.Parallel()
	server := startTestServer(t, nil)

	resp, err := http.Post(server.URL()+"/api/game/load", "application/json", nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func Test_application_playThrough(t *testing.T) {
	t.Parallel()
	model := testhelpers.NewFakeModel(t)
	server := startTestServer(t, model)
	client := server.Client()
	ctx := context.Background()

	view := loadGame(t, client)
	require.Len(t, view.Suspects, 4)
	assert.Empty(t, view.Evidence)
	assert.Len(t, view.Clues, 6)

	var statement statementResponse
	status, err := client.Call(ctx, http.MethodPost, "/api/suspects/woodcutter/statement", nil, &statement)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, statement.Given)
	assert.NotEmpty(t, statement.Statement)

	status, err = client.Call(ctx, http.MethodPost, "/api/suspects/woodcutter/statement", nil, &statement)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
	assert.False(t, statement.Given)
	assert.Empty(t, statement.Statement)

	var record models.InvestigationRecord
	status, err = client.Call(ctx, http.MethodPost, "/api/clues/"+url.PathEscape("Look for the dagger"), nil, &record)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Missing dagger", record.EvidenceName)
	assert.False(t, record.IsRepeat)

	status, err = client.Call(ctx, http.MethodPost, "/api/clues/"+url.PathEscape("Look for the dagger"), nil, &record)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, record.IsRepeat)

	model.Reply("Ahh... I... I didn't take anything!")
	var reply replyResponse
	status, err = client.Call(ctx, http.MethodPost, "/api/suspects/woodcutter/evidence/missing_dagger", nil, &reply)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Ahh... I... I didn't take anything!", reply.Text)
	assert.Equal(t, 5, reply.Stress)
	assert.Equal(t, 100, reply.StressPercent)
	assert.Equal(t, "model", string(reply.Source))

	requests := model.Requests()
	require.NotEmpty(t, requests)
	last := requests[len(requests)-1]
	assert.Equal(t, "[Presented evidence: Missing dagger]", last.Messages[len(last.Messages)-1].Content)

	var res accusation.Result
	status, err = client.Call(ctx, http.MethodPost, "/api/accusation", accusation.Submission{
		Killer: "onitake",
		Method: "his sword failed and there was chaotic scuffling",
		Motive: "he cared about his reputation and image",
	}, &res)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, res.Correct)
	assert.NotEmpty(t, res.Truth)

	status, err = client.Call(ctx, http.MethodGet, "/api/game", nil, &view)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, view.Completed)
	assert.Len(t, view.Evidence, 1)
	assert.Equal(t, []string{"Look for the dagger"}, view.Investigated)
}

func Test_application_validation(t *testing.T) {
	t.Parallel()
	server := startTestServer(t, nil)
	client := server.Client()
	loadGame(t, client)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{name: "unknown suspect", method: http.MethodPost, path: "/api/suspects/ghost/statement", want: http.StatusNotFound},
		{name: "undiscovered evidence", method: http.MethodPost, path: "/api/suspects/hana/evidence/missing_dagger",
			want: http.StatusNotFound},
		{name: "blank question", method: http.MethodPost, path: "/api/suspects/hana/questions",
			body: questionRequest{Text: "  "}, want: http.StatusBadRequest},
		{name: "missing body", method: http.MethodPost, path: "/api/suspects/hana/questions",
			want: http.StatusBadRequest},
		{name: "incomplete accusation", method: http.MethodPost, path: "/api/accusation",
			body: accusation.Submission{Killer: "onitake", Method: "chaos"}, want: http.StatusBadRequest},
		{name: "unknown route", method: http.MethodGet, path: "/api/nope", want: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, err := client.Call(context.Background(), tt.method, tt.path, tt.body, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, status)
		})
	}

	// None of the rejected actions changed the game.
	var view game.View
	_, err := client.Call(context.Background(), http.MethodGet, "/api/game", nil, &view)
	require.NoError(t, err)
	assert.False(t, view.Completed)
	for _, s := range view.Suspects {
		assert.Empty(t, s.History)
	}
}

func Test_application_modelFailureFallsBack(t *testing.T) {
	t.Parallel()
	model := testhelpers.NewFakeModel(t)
	model.SetFailing(true)
	server := startTestServer(t, model)
	client := server.Client()
	loadGame(t, client)

	var reply replyResponse
	status, err := client.Call(context.Background(), http.MethodPost, "/api/suspects/spirit/questions",
		questionRequest{Text: "Did you beg for your life?"}, &reply)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "fallback", string(reply.Source))
	assert.NotEmpty(t, reply.Text)
	assert.Equal(t, 2, reply.Stress)
}

func Test_application_pageLoadResetsProgress(t *testing.T) {
	t.Parallel()
	server := startTestServer(t, nil)
	client := server.Client()
	ctx := context.Background()

	loadGame(t, client)
	investigate(t, client, "Check the weapons")
	status, err := client.Call(ctx, http.MethodPost, "/api/suspects/spirit/evidence/broken_sword", nil, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
	status, err = client.Call(ctx, http.MethodPost, "/api/game/intro", nil, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)

	view := loadGame(t, client)
	assert.Empty(t, view.Evidence)
	assert.Empty(t, view.Investigations)
	assert.True(t, view.HasSeenIntro)
	for _, s := range view.Suspects {
		if s.ID == "spirit" {
			assert.Len(t, s.History, 1)
			assert.Equal(t, 4, s.Stress)
		}
	}

	// Another player does not see any of it.
	other, err := server.NewClient()
	require.NoError(t, err)
	otherView := loadGame(t, other)
	assert.False(t, otherView.HasSeenIntro)
	for _, s := range otherView.Suspects {
		assert.Empty(t, s.History)
	}

	var reset game.View
	status, err = client.Call(ctx, http.MethodPost, "/api/game/reset", nil, &reset)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
	assert.False(t, reset.HasSeenIntro)
	view = loadGame(t, client)
	for _, s := range view.Suspects {
		assert.Empty(t, s.History)
	}
}

func Test_application_speech(t *testing.T) {
	t.Parallel()
	model := testhelpers.NewFakeModel(t)
	server := startTestServer(t, model)
	client := server.Client()
	ctx := context.Background()
	loadGame(t, client)

	resp, err := client.Do(ctx, http.MethodPost, "/api/suspects/hana/speech", questionRequest{Text: "Sob..."})
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	status, err := client.Call(ctx, http.MethodPut, "/api/game/voice", voiceRequest{Enabled: true}, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)

	resp, err = client.Do(ctx, http.MethodPost, "/api/suspects/hana/speech", questionRequest{Text: "Sob..."})
	require.NoError(t, err)
	defer func() {
		_ = resp.Body.Close()
	}()
	audio, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "audio/mpeg", resp.Header.Get("Content-Type"))
	assert.Equal(t, testhelpers.FakeAudio, audio)

	speeches := model.Speeches()
	require.Len(t, speeches, 1)
	assert.Equal(t, "shimmer", string(speeches[0].Voice))
}

func Test_application_events(t *testing.T) {
	t.Parallel()
	server := startTestServer(t, nil)
	client := server.Client()
	ctx := context.Background()

	// Without a profile there is nothing to stream.
	_, err := client.Events(ctx)
	require.Error(t, err)

	loadGame(t, client)
	conn, err := client.Events(ctx)
	require.NoError(t, err)
	defer func() {
		_ = conn.Close()
	}()

	investigate(t, client, "Inspect the trees")
	status, err := client.Call(ctx, http.MethodPost, "/api/suspects/hana/questions",
		questionRequest{Text: "Did you plan the attack?"}, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var kinds []game.EventKind
	for len(kinds) < 3 {
		var event game.Event
		require.NoError(t, conn.ReadJSON(&event))
		kinds = append(kinds, event.Kind)
		if event.Kind == game.EventEvidenceAdded {
			require.NotNil(t, event.Evidence)
			assert.Equal(t, "rope_marks", event.Evidence.ID)
		}
		if event.Kind == game.EventTurnAppended {
			require.NotNil(t, event.Turn)
			assert.True(t, strings.Contains(event.Turn.Player, "plan"))
		}
	}
	assert.Equal(t, []game.EventKind{game.EventEvidenceAdded, game.EventTurnAppended, game.EventStressChanged}, kinds)
}
