package main

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/myrjola/misttheater/internal/e2etest"
	"github.com/myrjola/misttheater/internal/errors"
	"github.com/myrjola/misttheater/internal/game"
	"github.com/myrjola/misttheater/internal/logging"
)

// expectOK calls the API and fails on anything but 200 OK.
func expectOK(ctx context.Context, client *e2etest.Client, method, path string, body, out any) error {
	status, err := client.Call(ctx, method, path, body, out)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return errors.New("unexpected status", slog.String("path", path), slog.Int("status", status))
	}
	return nil
}

// TestGame walks through a short session: load, investigate a spot and question a suspect about the finding.
func TestGame(client *e2etest.Client) error {
	ctx := context.Background()
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second) //nolint:mnd // the model may be slow
	defer cancel()
	var (
		err  error
		view game.View
	)

	if err = expectOK(ctx, client, http.MethodPost, "/api/game/load", nil, &view); err != nil {
		return errors.Wrap(err, "load game")
	}
	if len(view.Suspects) == 0 || len(view.Clues) == 0 {
		return errors.New("empty game", slog.Int("suspects", len(view.Suspects)))
	}
	if err = expectOK(ctx, client, http.MethodPost, "/api/suspects/woodcutter/statement", nil, nil); err != nil {
		return errors.Wrap(err, "initial statement")
	}
	if err = expectOK(ctx, client, http.MethodPost, "/api/clues/"+url.PathEscape("Look for the dagger"), nil,
		nil); err != nil {
		return errors.Wrap(err, "investigate clue")
	}
	if err = expectOK(ctx, client, http.MethodPost, "/api/suspects/woodcutter/evidence/missing_dagger", nil,
		nil); err != nil {
		return errors.Wrap(err, "present evidence")
	}
	if err = expectOK(ctx, client, http.MethodGet, "/api/game", nil, &view); err != nil {
		return errors.Wrap(err, "view game")
	}
	if len(view.Evidence) != 1 {
		return errors.New("evidence not recorded", slog.Int("evidence", len(view.Evidence)))
	}
	if err = expectOK(ctx, client, http.MethodPost, "/api/game/reset", nil, nil); err != nil {
		return errors.Wrap(err, "reset game")
	}
	return nil
}

func main() {
	loggerHandler := logging.NewContextHandler(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource:   false,
		Level:       slog.LevelDebug,
		ReplaceAttr: nil,
	}))
	logger := slog.New(loggerHandler)
	ctx := context.Background()

	if len(os.Args) != 2 { //nolint:mnd // we expect only hostname to be passed as argument.
		logger.LogAttrs(ctx, slog.LevelError, "usage: smoketest <hostname>")
		os.Exit(1)
	}

	var (
		hostname = os.Args[1]
		baseURL  = "https://" + hostname
		client   *e2etest.Client
		err      error
	)
	ctx = logging.WithAttrs(ctx, slog.String("hostname", baseURL))

	if client, err = e2etest.NewClient(baseURL); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating client", errors.SlogError(err))
		os.Exit(1)
	}
	if err = client.WaitForReady(ctx, "/api/healthy"); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "server not ready", errors.SlogError(err))
		os.Exit(1)
	}
	if err = TestGame(client); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error testing game", errors.SlogError(err))
		os.Exit(1)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "Smoke test successful 🙌")
	os.Exit(0)
}
