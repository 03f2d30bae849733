// Package game is the play session: it owns the mutable state of one player and exposes every action the
// presentation layer can take.
package game

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/myrjola/misttheater/internal/accusation"
	"github.com/myrjola/misttheater/internal/casefile"
	"github.com/myrjola/misttheater/internal/dialogue"
	"github.com/myrjola/misttheater/internal/errors"
	"github.com/myrjola/misttheater/internal/interrogation"
	"github.com/myrjola/misttheater/internal/models"
	"github.com/myrjola/misttheater/internal/random"
	"github.com/myrjola/misttheater/internal/session"
	"github.com/myrjola/misttheater/internal/voice"
)

// Options are the optional collaborators of a Game. Zero values select offline defaults.
type Options struct {
	// Model generates suspect replies. Nil answers from the local fallback only.
	Model dialogue.Model
	// Synth renders speech. Nil disables speech.
	Synth voice.Synthesizer
	// Notifier receives state change events.
	Notifier Notifier
	// Now is the clock for investigation records.
	Now func() time.Time
	// Rand picks fallback and repeat lines.
	Rand random.Source
	// NewSessionID is called by New and Restart.
	NewSessionID func() string
}

// Game holds one play session. All methods are safe for concurrent use; actions are processed one at a time in
// arrival order and each is persisted before the next starts.
type Game struct {
	mu sync.Mutex

	caseFile *casefile.Case
	manager  *session.Manager
	engine   *dialogue.Engine
	speaker  *voice.Speaker
	notifier Notifier
	now      func() time.Time
	rand     random.Source
	newID    func() string
	logger   *slog.Logger

	sessionID      string
	ledger         *Ledger
	conversations  map[casefile.SuspectID]*interrogation.Conversation
	investigations []models.InvestigationRecord
	investigated   map[string]bool
	completed      bool
	hasSeenIntro   bool
	voiceEnabled   bool
}

// New creates a game with empty state and a new session id. Call Load to restore the stored progress.
func New(caseFile *casefile.Case, manager *session.Manager, opts Options, logger *slog.Logger) *Game {
	if opts.Notifier == nil {
		opts.Notifier = discardNotifier{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Rand == nil {
		opts.Rand = random.CryptoSource{}
	}
	if opts.NewSessionID == nil {
		opts.NewSessionID = session.NewSessionID
	}
	g := &Game{
		caseFile: caseFile,
		manager:  manager,
		engine:   dialogue.NewEngine(opts.Model, caseFile, opts.Rand, logger),
		speaker:  voice.NewSpeaker(opts.Synth, caseFile, logger),
		notifier: opts.Notifier,
		now:      opts.Now,
		rand:     opts.Rand,
		newID:    opts.NewSessionID,
		logger:   logger.With("source", "game.Game"),

		sessionID: opts.NewSessionID(),
	}
	g.clear()
	return g
}

func (g *Game) clear() {
	g.ledger = NewLedger()
	g.conversations = make(map[casefile.SuspectID]*interrogation.Conversation)
	g.investigations = nil
	g.investigated = make(map[string]bool)
	g.completed = false
	g.hasSeenIntro = false
	g.voiceEnabled = false
}

// Load reconciles the session of the game with the stored state. Loading again within the same session restores
// everything that was saved.
//
// A storage failure is returned but leaves the game playable from whatever could be restored.
func (g *Game) Load(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.load(ctx)
}

// Restart begins a new session on the same storage, as a fresh start of the game does. It waits for the action in
// progress, so whatever that action persists is reconciled into the new session.
func (g *Game) Restart(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sessionID = g.newID()
	return g.load(ctx)
}

func (g *Game) load(ctx context.Context) error {
	state, err := g.manager.Load(ctx, g.sessionID)
	g.apply(state)
	g.logger.LogAttrs(ctx, slog.LevelInfo, "session loaded",
		slog.String("session_id", g.sessionID),
		slog.Int("evidence", g.ledger.Len()),
		slog.Int("conversations", len(g.conversations)))
	if err != nil {
		return errors.Wrap(err, "load session", slog.String("session_id", g.sessionID))
	}
	return nil
}

func (g *Game) apply(state session.State) {
	g.clear()
	for _, e := range state.Evidence {
		g.ledger.Add(e)
	}
	for key, cs := range state.Conversations {
		id, ok := casefile.ParseSuspectID(key)
		if !ok {
			continue
		}
		g.conversations[id] = interrogation.Restore(id, cs.History, cs.Stress)
	}
	g.investigations = slices.Clone(state.Investigations)
	for _, r := range g.investigations {
		if _, ok := g.caseFile.Clue(r.ClueKey); ok {
			g.investigated[r.ClueKey] = true
		}
	}
	g.completed = state.Completed
	g.hasSeenIntro = state.HasSeenIntro
	g.voiceEnabled = state.VoiceEnabled
}

func (g *Game) state() session.State {
	s := session.NewState(g.sessionID)
	s.Evidence = g.ledger.Items()
	for id, conv := range g.conversations {
		s.Conversations[id.String()] = session.ConversationState{
			History:              conv.History(),
			GaveInitialStatement: conv.GaveInitialStatement(),
			Stress:               conv.Stress(),
		}
	}
	s.Investigations = slices.Clone(g.investigations)
	s.Completed = g.completed
	s.HasSeenIntro = g.hasSeenIntro
	s.VoiceEnabled = g.voiceEnabled
	return s
}

// persist saves the current state. Failures are logged and the game carries on from memory.
func (g *Game) persist(ctx context.Context) {
	if err := g.manager.Save(ctx, g.state()); err != nil {
		g.logger.LogAttrs(ctx, slog.LevelError, "failed to persist session", errors.SlogError(err))
	}
}

// Save persists the current state.
func (g *Game) Save(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.manager.Save(ctx, g.state()); err != nil {
		return errors.Wrap(err, "save session")
	}
	return nil
}

// Reset forgets the stored progress and the intro flag and starts over with empty state in the same session.
func (g *Game) Reset(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.clear()
	if err := g.manager.Reset(ctx); err != nil {
		return errors.Wrap(err, "reset session")
	}
	g.logger.LogAttrs(ctx, slog.LevelInfo, "session reset", slog.String("session_id", g.sessionID))
	return nil
}

func (g *Game) SessionID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sessionID
}

func (g *Game) conversation(id casefile.SuspectID) *interrogation.Conversation {
	conv, ok := g.conversations[id]
	if !ok {
		conv = interrogation.New(id)
		g.conversations[id] = conv
	}
	return conv
}

// InitialStatement returns the public statement of suspectID the first time it is asked for in a conversation.
// Later calls and unknown suspects return false.
func (g *Game) InitialStatement(ctx context.Context, suspectID casefile.SuspectID) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	suspect, ok := g.caseFile.Suspect(suspectID)
	if !ok {
		return "", false
	}
	conv := g.conversation(suspectID)
	statement, ok := conv.TakeInitialStatement(g.caseFile.Dialogue.Opening, suspect.Statement)
	if !ok {
		return "", false
	}
	g.persist(ctx)
	turn := conv.History()[0]
	g.notifier.Notify(ctx, Event{Kind: EventTurnAppended, SuspectID: suspectID, Turn: &turn})
	return statement, true
}

// Ask sends a free-text question to suspectID. Unknown suspects and blank questions return false.
func (g *Game) Ask(ctx context.Context, suspectID casefile.SuspectID, text string) (dialogue.Response, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.caseFile.Suspect(suspectID); !ok || strings.TrimSpace(text) == "" {
		return dialogue.Response{}, false
	}
	return g.respond(ctx, suspectID, text, nil), true
}

// PresentEvidence shows discovered evidence to suspectID. Unknown suspects and evidence missing from the ledger
// return false.
func (g *Game) PresentEvidence(ctx context.Context, suspectID casefile.SuspectID, evidenceID string) (
	dialogue.Response, bool,
) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.caseFile.Suspect(suspectID); !ok {
		return dialogue.Response{}, false
	}
	evidence, ok := g.ledger.Get(evidenceID)
	if !ok {
		g.logger.LogAttrs(ctx, slog.LevelDebug, "evidence not discovered",
			slog.String("suspect", suspectID.String()), slog.String("evidence", evidenceID))
		return dialogue.Response{}, false
	}
	text := fmt.Sprintf(g.caseFile.Dialogue.Presented, evidence.Name)
	return g.respond(ctx, suspectID, text, &evidence), true
}

func (g *Game) respond(
	ctx context.Context,
	suspectID casefile.SuspectID,
	text string,
	evidence *models.Evidence,
) dialogue.Response {
	conv := g.conversation(suspectID)
	resp := g.engine.Respond(ctx, conv, text, evidence)
	g.persist(ctx)

	history := conv.History()
	turn := history[len(history)-1]
	g.notifier.Notify(ctx, Event{Kind: EventTurnAppended, SuspectID: suspectID, Turn: &turn})
	if resp.Delta > 0 {
		g.notifier.Notify(ctx, Event{
			Kind:      EventStressChanged,
			SuspectID: suspectID,
			Stress:    resp.Stress,
			Emotion:   resp.Emotion.Label(),
		})
	}
	return resp
}

// AddEvidence records e in the ledger and reports whether it was new.
func (g *Game) AddEvidence(ctx context.Context, e models.Evidence) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.ledger.Add(e) {
		return false
	}
	g.persist(ctx)
	g.notifier.Notify(ctx, Event{Kind: EventEvidenceAdded, Evidence: &e})
	return true
}

// InvestigateClue searches the scene at clueKey. The first visit of a clue yields its text and evidence, later
// visits one of the repeat lines. Every visit is recorded, unknown clues included.
func (g *Game) InvestigateClue(ctx context.Context, clueKey string) models.InvestigationRecord {
	g.mu.Lock()
	defer g.mu.Unlock()

	record := models.InvestigationRecord{ClueKey: clueKey, Timestamp: g.now()}
	var found *models.Evidence
	clue, known := g.caseFile.Clue(clueKey)
	switch {
	case !known:
		record.Result = g.caseFile.Investigation.Unknown
	case g.investigated[clueKey]:
		repeats := g.caseFile.Investigation.Repeat
		record.Result = repeats[g.rand.Intn(len(repeats))]
		record.IsRepeat = true
	default:
		g.investigated[clueKey] = true
		record.Result = clue.Result
		if e, ok := g.caseFile.Evidence(clue.EvidenceID); ok {
			record.EvidenceName = e.Name
			if g.ledger.Add(e) {
				found = &e
			}
		}
	}
	g.investigations = append(g.investigations, record)
	g.persist(ctx)

	g.logger.LogAttrs(ctx, slog.LevelDebug, "clue investigated",
		slog.String("clue", clueKey), slog.Bool("known", known), slog.Bool("repeat", record.IsRepeat))
	if found != nil {
		g.notifier.Notify(ctx, Event{Kind: EventEvidenceAdded, Evidence: found})
	}
	return record
}

// SubmitAccusation grades the accusation and completes the game. Incomplete accusations return
// accusation.ErrIncomplete and change nothing.
func (g *Game) SubmitAccusation(ctx context.Context, killer, method, motive string) (accusation.Result, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	res, err := accusation.Evaluate(g.caseFile, accusation.Submission{Killer: killer, Method: method, Motive: motive})
	if err != nil {
		return accusation.Result{}, err
	}
	g.completed = true
	g.persist(ctx)
	g.logger.LogAttrs(ctx, slog.LevelInfo, "accusation submitted",
		slog.String("killer", res.Submission.Killer), slog.Bool("correct", res.Correct))
	g.notifier.Notify(ctx, Event{Kind: EventAccusationReady, Result: &res})
	return res, nil
}

// MarkIntroSeen remembers that the player has seen the intro.
func (g *Game) MarkIntroSeen(ctx context.Context) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.hasSeenIntro = true
	if err := g.manager.MarkIntroSeen(ctx); err != nil {
		g.logger.LogAttrs(ctx, slog.LevelError, "failed to persist intro flag", errors.SlogError(err))
	}
	g.persist(ctx)
}

// SetVoiceEnabled turns speech on or off.
func (g *Game) SetVoiceEnabled(ctx context.Context, enabled bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.voiceEnabled = enabled
	g.persist(ctx)
}

// Speak renders text in the voice of suspectID. It returns nil when voice is disabled or synthesis fails.
func (g *Game) Speak(ctx context.Context, suspectID casefile.SuspectID, text string) []byte {
	g.mu.Lock()
	enabled := g.voiceEnabled
	g.mu.Unlock()

	if !enabled {
		return nil
	}
	return g.speaker.Say(ctx, suspectID, text)
}
