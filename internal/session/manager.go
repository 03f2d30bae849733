// Package session persists play sessions and reconciles them when the game starts again.
package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/myrjola/misttheater/internal/errors"
)

// Store is a durable string key-value store.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	// SetMany stores all values atomically.
	SetMany(ctx context.Context, values map[string]string) error
	Remove(ctx context.Context, keys ...string) error
}

// NewSessionID returns a fresh random session id.
func NewSessionID() string {
	return uuid.NewString()
}

type Manager struct {
	store     Store
	namespace string
	logger    *slog.Logger
}

func NewManager(store Store, namespace string, logger *slog.Logger) *Manager {
	return &Manager{
		store:     store,
		namespace: namespace,
		logger:    logger.With("source", "session.Manager"),
	}
}

func (m *Manager) stateKey() string { return m.namespace + "_gameState" }
func (m *Manager) idKey() string    { return m.namespace + "_sessionId" }
func (m *Manager) introKey() string { return m.namespace + "_hasSeenIntro" }

// Load reconciles the stored state with a session that has just started with sessionID.
//
// When the stored session id equals sessionID everything is restored. Otherwise only the conversations and the intro
// and voice preferences carry over; the evidence, the investigation records and the completion flag start empty and
// the reset state is saved right away. Missing or corrupt state counts as a new session.
//
// The returned state is always usable. A non-nil error reports a storage failure.
func (m *Manager) Load(ctx context.Context, sessionID string) (State, error) {
	fresh := NewState(sessionID)

	intro, _, err := m.store.Get(ctx, m.introKey())
	if err != nil {
		return fresh, errors.Wrap(err, "get intro flag")
	}
	fresh.HasSeenIntro = intro == "true"

	data, found, err := m.store.Get(ctx, m.stateKey())
	if err != nil {
		return fresh, errors.Wrap(err, "get game state")
	}
	storedID, _, err := m.store.Get(ctx, m.idKey())
	if err != nil {
		return fresh, errors.Wrap(err, "get session id")
	}

	var stored State
	if found {
		if stored, err = Decode(data); err != nil {
			m.logger.LogAttrs(ctx, slog.LevelWarn, "discarding unreadable game state", errors.SlogError(err))
			found = false
		}
	}

	if found && storedID == sessionID {
		stored.SessionID = sessionID
		stored.HasSeenIntro = stored.HasSeenIntro || fresh.HasSeenIntro
		return stored, nil
	}

	if found {
		fresh.Conversations = stored.Conversations
		fresh.HasSeenIntro = stored.HasSeenIntro || fresh.HasSeenIntro
		fresh.VoiceEnabled = stored.VoiceEnabled
	}
	m.logger.LogAttrs(ctx, slog.LevelInfo, "started new session",
		slog.String("session_id", sessionID), slog.Bool("restored_conversations", len(fresh.Conversations) > 0))
	if err = m.Save(ctx, fresh); err != nil {
		return fresh, err
	}
	return fresh, nil
}

// Save persists s and marks its session as the current one.
func (m *Manager) Save(ctx context.Context, s State) error {
	data, err := Encode(s)
	if err != nil {
		return err
	}
	if err = m.store.SetMany(ctx, map[string]string{
		m.stateKey(): data,
		m.idKey():    s.SessionID,
	}); err != nil {
		return errors.Wrap(err, "set game state")
	}
	return nil
}

// MarkIntroSeen remembers that the intro was shown, independently of the game state.
func (m *Manager) MarkIntroSeen(ctx context.Context) error {
	if err := m.store.Set(ctx, m.introKey(), "true"); err != nil {
		return errors.Wrap(err, "set intro flag")
	}
	return nil
}

// Reset forgets the game state and the intro flag.
func (m *Manager) Reset(ctx context.Context) error {
	if err := m.store.Remove(ctx, m.stateKey(), m.introKey()); err != nil {
		return errors.Wrap(err, "remove game state")
	}
	return nil
}

// MemoryStore is a Store that lives as long as the process.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *MemoryStore) SetMany(_ context.Context, values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, value := range values {
		s.values[key] = value
	}
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.values, key)
	}
	return nil
}
