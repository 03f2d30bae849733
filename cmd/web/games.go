package main

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/myrjola/misttheater/internal/casefile"
	"github.com/myrjola/misttheater/internal/errors"
	"github.com/myrjola/misttheater/internal/game"
	"github.com/myrjola/misttheater/internal/session"
)

// gameIdleTimeout is how long an untouched game stays in memory. Its progress is persisted after every action, so an
// evicted game is restored from storage on the next page load.
const gameIdleTimeout = 24 * time.Hour

type registeredGame struct {
	game     *game.Game
	lastUsed time.Time
}

// gameRegistry keeps the running game of every player profile. Each profile has its own storage namespace.
type gameRegistry struct {
	caseFile  *casefile.Case
	store     session.Store
	namespace string
	options   func(profileID string) game.Options
	logger    *slog.Logger
	now       func() time.Time

	mu    sync.Mutex
	games map[string]*registeredGame
}

func newGameRegistry(
	caseFile *casefile.Case,
	store session.Store,
	namespace string,
	options func(profileID string) game.Options,
	logger *slog.Logger,
) *gameRegistry {
	return &gameRegistry{
		caseFile:  caseFile,
		store:     store,
		namespace: namespace,
		options:   options,
		logger:    logger,
		now:       time.Now,
		games:     make(map[string]*registeredGame),
	}
}

// Start begins a new session for profileID. This is what a page load does.
//
// A running game is restarted in place. The restart waits for the action in progress so that a reload never races a
// pending answer for the same storage.
func (reg *gameRegistry) Start(ctx context.Context, profileID string) *game.Game {
	g, existing := reg.lookup(ctx, profileID)
	if existing {
		if err := g.Restart(ctx); err != nil {
			// The game is playable without the stored progress.
			reg.logger.LogAttrs(ctx, slog.LevelError, "failed to restart game", errors.SlogError(err))
		}
	}
	return g
}

// Get returns the running game of profileID, starting one if the profile has none yet.
func (reg *gameRegistry) Get(ctx context.Context, profileID string) *game.Game {
	g, _ := reg.lookup(ctx, profileID)
	return g
}

// lookup returns the game of profileID and whether it was already running. A missing game is created and loaded
// before it is handed out, so concurrent requests of one profile share one loaded game.
func (reg *gameRegistry) lookup(ctx context.Context, profileID string) (*game.Game, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	now := reg.now()
	if entry, ok := reg.games[profileID]; ok {
		entry.lastUsed = now
		return entry.game, true
	}
	g := game.New(
		reg.caseFile,
		session.NewManager(reg.store, reg.namespace+"/"+profileID, reg.logger),
		reg.options(profileID),
		reg.logger,
	)
	if err := g.Load(ctx); err != nil {
		// The game is playable without the stored progress.
		reg.logger.LogAttrs(ctx, slog.LevelError, "failed to load game", errors.SlogError(err))
	}
	reg.games[profileID] = &registeredGame{game: g, lastUsed: now}
	return g, false
}

// Len returns the number of games in memory.
func (reg *gameRegistry) Len() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.games)
}

// Evict drops the games that have not been used for gameIdleTimeout and returns how many were dropped.
func (reg *gameRegistry) Evict() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	cutoff := reg.now().Add(-gameIdleTimeout)
	evicted := 0
	for profileID, entry := range reg.games {
		if entry.lastUsed.Before(cutoff) {
			delete(reg.games, profileID)
			evicted++
		}
	}
	return evicted
}

// StartEvictor evicts idle games every interval until ctx is done.
func (reg *gameRegistry) StartEvictor(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := reg.Evict(); n > 0 {
				reg.logger.LogAttrs(ctx, slog.LevelDebug, "evicted idle games", slog.Int("count", n))
			}
		}
	}
}
