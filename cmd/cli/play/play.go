// Package play runs the game in a terminal against the same storage the web server uses.
package play

import (
	"context"
	"log/slog"
	"os"

	"github.com/myrjola/misttheater/internal/ai"
	"github.com/myrjola/misttheater/internal/casefile"
	"github.com/myrjola/misttheater/internal/config"
	"github.com/myrjola/misttheater/internal/errors"
	"github.com/myrjola/misttheater/internal/game"
	"github.com/myrjola/misttheater/internal/logging"
	"github.com/myrjola/misttheater/internal/repositories"
	"github.com/myrjola/misttheater/internal/session"
	"github.com/myrjola/misttheater/internal/sqlite"
	"github.com/spf13/cobra"
)

var Group = &cobra.Group{
	ID:    "game",
	Title: "Game operations",
}

func init() {
	Play.Flags().String("profile", "cli", "player profile whose progress is loaded")
	Play.Flags().Bool("memory", false, "keep progress in memory only, nothing is read from or written to the database")
	Reset.Flags().String("profile", "cli", "player profile whose progress is removed")
}

var Play = &cobra.Command{
	Use:     "play",
	GroupID: "game",
	Short:   "Play in the terminal",
	Long:    `Starts a new session and reads commands from stdin. Type "help" for the list of commands.`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		profile, err := cmd.Flags().GetString("profile")
		if err != nil {
			return errors.Wrap(err, "invalid profile flag")
		}
		var memory bool
		if memory, err = cmd.Flags().GetBool("memory"); err != nil {
			return errors.Wrap(err, "invalid memory flag")
		}
		return withGame(cmd.Context(), profile, memory, func(ctx context.Context, g *game.Game, c *casefile.Case) error {
			return newREPL(g, c, cmd.InOrStdin(), cmd.OutOrStdout()).Run(ctx)
		})
	},
}

var Reset = &cobra.Command{
	Use:     "reset",
	GroupID: "game",
	Short:   "Forget all progress",
	Long:    `Removes the stored conversations, evidence and intro flag of the profile.`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		profile, err := cmd.Flags().GetString("profile")
		if err != nil {
			return errors.Wrap(err, "invalid profile flag")
		}
		return withGame(cmd.Context(), profile, false, func(ctx context.Context, g *game.Game, _ *casefile.Case) error {
			if err = g.Reset(ctx); err != nil {
				return errors.Wrap(err, "reset game")
			}
			cmd.Println("Progress removed.")
			return nil
		})
	},
}

// withGame opens the configured database and calls fn with a loaded game of profile. In memory mode the database
// is not opened.
func withGame(
	ctx context.Context,
	profile string,
	memory bool,
	fn func(context.Context, *game.Game, *casefile.Case) error,
) error {
	logger := slog.New(logging.NewContextHandler(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		AddSource:   false,
		Level:       slog.LevelWarn,
		ReplaceAttr: nil,
	})))

	cfg, err := config.Parse(os.Environ())
	if err != nil {
		return errors.Wrap(err, "parse config")
	}
	var caseFile *casefile.Case
	if caseFile, err = casefile.Load(); err != nil {
		return errors.Wrap(err, "load case")
	}
	var store session.Store = session.NewMemoryStore()
	if !memory {
		var db *sqlite.Database
		if db, err = sqlite.NewDatabase(ctx, cfg.SqliteURL, logger); err != nil {
			return errors.Wrap(err, "open db", slog.String("url", cfg.SqliteURL))
		}
		defer func() {
			_ = db.Close()
		}()
		store = repositories.NewKeyValueRepository(db, logger)
	}

	var opts game.Options
	if cfg.AI.APIKey != "" {
		client := ai.NewClient(cfg.AI, logger)
		opts.Model = client
		opts.Synth = client
	}
	manager := session.NewManager(store, cfg.Namespace+"/"+profile, logger)
	g := game.New(caseFile, manager, opts, logger)
	if err = g.Load(ctx); err != nil {
		logger.LogAttrs(ctx, slog.LevelWarn, "continuing without stored progress", errors.SlogError(err))
	}
	return fn(ctx, g, caseFile)
}
