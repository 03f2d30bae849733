package main

import (
	"context"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/joho/godotenv"
	"github.com/myrjola/misttheater/internal/ai"
	"github.com/myrjola/misttheater/internal/broker"
	"github.com/myrjola/misttheater/internal/casefile"
	"github.com/myrjola/misttheater/internal/config"
	"github.com/myrjola/misttheater/internal/errors"
	"github.com/myrjola/misttheater/internal/game"
	"github.com/myrjola/misttheater/internal/logging"
	"github.com/myrjola/misttheater/internal/pprofserver"
	"github.com/myrjola/misttheater/internal/repositories"
	"github.com/myrjola/misttheater/internal/sqlite"
	"golang.org/x/sync/errgroup"
)

type application struct {
	logger         *slog.Logger
	cfg            config.Config
	caseFile       *casefile.Case
	sessionManager *scs.SessionManager
	games          *gameRegistry
	events         *broker.Broker[string, game.Event]
}

func run(ctx context.Context, logger *slog.Logger, environ []string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Parse(environ)
	if err != nil {
		return errors.Wrap(err, "parse config")
	}

	var caseFile *casefile.Case
	if caseFile, err = casefile.Load(); err != nil {
		return errors.Wrap(err, "load case")
	}

	var db *sqlite.Database
	if db, err = sqlite.NewDatabase(ctx, cfg.SqliteURL, logger); err != nil {
		return errors.Wrap(err, "open db", slog.String("url", cfg.SqliteURL))
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.LogAttrs(ctx, slog.LevelError, "failed to close db", errors.SlogError(closeErr))
		}
	}()
	logger.LogAttrs(ctx, slog.LevelInfo, "connected to db", slog.String("url", cfg.SqliteURL))

	sessionManager := scs.New()
	sessionManager.Store = sqlite3store.NewWithCleanupInterval(db.ReadWrite.DB, 24*time.Hour) //nolint:mnd // daily
	sessionManager.Lifetime = 30 * 24 * time.Hour                                            //nolint:mnd // 30 days
	sessionManager.Cookie.Name = "misttheater_session"
	sessionManager.Cookie.SameSite = http.SameSiteLaxMode

	if cfg.AI.APIKey == "" {
		logger.LogAttrs(ctx, slog.LevelWarn, "no model API key configured, suspects answer from the offline script")
	}

	events := broker.New[string, game.Event](eventBuffer)
	store := repositories.NewKeyValueRepository(db, logger)
	app := application{
		logger:         logger,
		cfg:            cfg,
		caseFile:       caseFile,
		sessionManager: sessionManager,
		events:         events,
	}
	app.games = newGameRegistry(caseFile, store, cfg.Namespace, app.gameOptions, logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return events.Start(ctx)
	})
	g.Go(func() error {
		return db.StartDatabaseOptimizer(ctx, time.Hour)
	})
	g.Go(func() error {
		return app.games.StartEvictor(ctx, time.Hour)
	})
	if cfg.PprofAddr != "" {
		g.Go(func() error {
			return pprofserver.Serve(ctx, cfg.PprofAddr, logger)
		})
	}
	g.Go(func() error {
		return app.configureAndStartServer(ctx, cfg.Addr)
	})
	if err = g.Wait(); err != nil {
		return errors.Wrap(err, "run")
	}
	return nil
}

// gameOptions wires the model, speech and event stream of a new game for profileID.
func (app *application) gameOptions(profileID string) game.Options {
	opts := game.Options{
		Notifier: game.NotifierFunc(func(_ context.Context, event game.Event) {
			app.events.Publish(profileID, event)
		}),
	}
	if app.cfg.AI.APIKey != "" {
		client := ai.NewClient(app.cfg.AI, app.logger)
		opts.Model = client
		opts.Synth = client
	}
	return opts
}

func main() {
	ctx := context.Background()
	loggerHandler := logging.NewContextHandler(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource:   true,
		Level:       slog.LevelDebug,
		ReplaceAttr: nil,
	}))
	logger := slog.New(loggerHandler)

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.LogAttrs(ctx, slog.LevelWarn, "failed to load .env", errors.SlogError(err))
	}

	if err := run(ctx, logger, os.Environ()); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failure starting application", errors.SlogError(err))
		os.Exit(1)
	}
}
