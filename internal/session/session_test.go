package session

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/myrjola/misttheater/internal/errors"
	"github.com/myrjola/misttheater/internal/models"
	"github.com/myrjola/misttheater/internal/testhelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleState(sessionID string) State {
	dagger := models.Evidence{ID: "missing_dagger", Name: "Missing dagger", Description: "Gone."}
	s := NewState(sessionID)
	s.Evidence = []models.Evidence{dagger}
	s.Conversations["woodcutter"] = ConversationState{
		History: []models.Turn{
			{Player: "[Interrogation begins]", NPC: "I'm innocent!", IsInitial: true},
			{Player: "[Presented evidence: Missing dagger]", NPC: "Ahh!", Evidence: &dagger},
		},
		GaveInitialStatement: true,
		Stress:               5,
	}
	s.Investigations = []models.InvestigationRecord{{
		ClueKey:      "Look for the dagger",
		Result:       "It has vanished.",
		EvidenceName: dagger.Name,
		Timestamp:    time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}}
	s.Completed = true
	s.HasSeenIntro = true
	s.VoiceEnabled = true
	return s
}

func TestEncodeDecode(t *testing.T) {
	want := sampleState("s1")
	data, err := Encode(want)
	require.NoError(t, err)
	got, err := Decode(data)
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Decode(Encode()) mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode_legacy(t *testing.T) {
	legacy := `{
  "evidence": [{"id": "rope_marks", "name": "Rope marks", "description": "Chafed bark", "image": "images/items/rope_marks.png"}],
  "conversations": {
    "hana": {
      "conversationHistory": [
        {"player": "[Interrogation begins]", "npc": "Sob...", "evidence": null, "isInitial": true},
        {"player": "Why?", "npc": "Ah...", "evidence": null, "isInitial": false}
      ],
      "hasGivenInitialStatement": true,
      "stressLevel": 3
    }
  },
  "sceneInvestigations": [
    {"command": "Inspect the trees", "timestamp": "10:31:22", "result": "Rope marks.", "evidence": "Rope marks"},
    {"command": "Inspect the trees", "timestamp": "10:32:00", "result": "Nothing new.", "isRepeat": true}
  ],
  "gameCompleted": false,
  "sessionId": "session_1700000000000_abc",
  "hasSeenCover": true,
  "voiceEnabled": true
}`
	got, err := Decode(legacy)
	require.NoError(t, err)

	want := NewState("session_1700000000000_abc")
	want.Evidence = []models.Evidence{{ID: "rope_marks", Name: "Rope marks", Description: "Chafed bark",
		Image: "images/items/rope_marks.png"}}
	want.Conversations["hana"] = ConversationState{
		History: []models.Turn{
			{Player: "[Interrogation begins]", NPC: "Sob...", IsInitial: true},
			{Player: "Why?", NPC: "Ah..."},
		},
		GaveInitialStatement: true,
		Stress:               3,
	}
	want.Investigations = []models.InvestigationRecord{
		{ClueKey: "Inspect the trees", Result: "Rope marks.", EvidenceName: "Rope marks"},
		{ClueKey: "Inspect the trees", Result: "Nothing new.", IsRepeat: true},
	}
	want.HasSeenIntro = true
	want.VoiceEnabled = true
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("legacy migration mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode_corrupt(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "not json", data: "{not json"},
		{name: "empty", data: ""},
		{name: "future version", data: `{"version": 99}`},
		{name: "wrong types", data: `{"version": 2, "conversations": []}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Decode(tt.data)
			require.ErrorIs(t, err, ErrCorrupt)
		})
	}
}

func newManager(store Store) *Manager {
	return NewManager(store, "mistTheater", testhelpers.NewLogger(io.Discard))
}

func TestManager_Load_sameSession(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m := newManager(store)

	saved := sampleState("s1")
	require.NoError(t, m.Save(ctx, saved))

	got, err := m.Load(ctx, "s1")
	require.NoError(t, err)
	if diff := cmp.Diff(saved, got); diff != "" {
		t.Errorf("same session should restore everything (-want +got):\n%s", diff)
	}
}

func TestManager_Load_newSession(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m := newManager(store)

	saved := sampleState("s1")
	require.NoError(t, m.Save(ctx, saved))

	got, err := m.Load(ctx, "s2")
	require.NoError(t, err)
	assert.Equal(t, "s2", got.SessionID)
	assert.Empty(t, got.Evidence)
	assert.Empty(t, got.Investigations)
	assert.False(t, got.Completed)
	assert.True(t, got.HasSeenIntro)
	assert.True(t, got.VoiceEnabled)
	if diff := cmp.Diff(saved.Conversations, got.Conversations); diff != "" {
		t.Errorf("conversations should carry over (-want +got):\n%s", diff)
	}

	// The reset state was persisted immediately.
	storedID, _, err := store.Get(ctx, "mistTheater_sessionId")
	require.NoError(t, err)
	assert.Equal(t, "s2", storedID)
	data, _, err := store.Get(ctx, "mistTheater_gameState")
	require.NoError(t, err)
	persisted, err := Decode(data)
	require.NoError(t, err)
	if diff := cmp.Diff(got, persisted); diff != "" {
		t.Errorf("persisted state mismatch (-want +got):\n%s", diff)
	}
}

func TestManager_Load_emptyAndCorrupt(t *testing.T) {
	ctx := context.Background()

	store := NewMemoryStore()
	m := newManager(store)
	got, err := m.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, NewState("s1"), got)

	require.NoError(t, store.Set(ctx, "mistTheater_gameState", "{garbage"))
	require.NoError(t, store.Set(ctx, "mistTheater_sessionId", "s2"))
	require.NoError(t, m.MarkIntroSeen(ctx))
	got, err = m.Load(ctx, "s2")
	require.NoError(t, err)
	assert.Empty(t, got.Conversations)
	assert.True(t, got.HasSeenIntro)

	// The unreadable payload was replaced.
	data, _, err := store.Get(ctx, "mistTheater_gameState")
	require.NoError(t, err)
	_, err = Decode(data)
	require.NoError(t, err)
}

func TestManager_Reset(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m := newManager(store)

	require.NoError(t, m.Save(ctx, sampleState("s1")))
	require.NoError(t, m.MarkIntroSeen(ctx))
	require.NoError(t, m.Reset(ctx))

	got, err := m.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, got.Conversations)
	assert.False(t, got.HasSeenIntro)
}

// batchOnlyStore refuses single writes and can be told to fail batches.
type batchOnlyStore struct {
	*MemoryStore
	failBatch bool
}

func (s *batchOnlyStore) Set(context.Context, string, string) error {
	return errors.New("single writes are not allowed")
}

func (s *batchOnlyStore) SetMany(ctx context.Context, values map[string]string) error {
	if s.failBatch {
		return errors.New("disk full")
	}
	return s.MemoryStore.SetMany(ctx, values)
}

func TestManager_Save_writesStateAndIDTogether(t *testing.T) {
	ctx := context.Background()
	store := &batchOnlyStore{MemoryStore: NewMemoryStore()}
	m := newManager(store)

	require.NoError(t, m.Save(ctx, sampleState("s1")))

	store.failBatch = true
	require.Error(t, m.Save(ctx, NewState("s2")))

	storedID, _, err := store.Get(ctx, "mistTheater_sessionId")
	require.NoError(t, err)
	assert.Equal(t, "s1", storedID)
	data, _, err := store.Get(ctx, "mistTheater_gameState")
	require.NoError(t, err)
	persisted, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "s1", persisted.SessionID)
	assert.Len(t, persisted.Evidence, 1)
}

func TestNewSessionID(t *testing.T) {
	assert.NotEqual(t, NewSessionID(), NewSessionID())
}
