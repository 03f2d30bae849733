package testhelpers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/sashabaranov/go-openai"
)

// FakeAudio is the payload the fake speech endpoint returns.
var FakeAudio = []byte("ID3 fake mp3")

// FakeModel is an OpenAI-compatible test server for chat completions and speech.
type FakeModel struct {
	server *httptest.Server

	mu           sync.Mutex
	replies      []string
	defaultReply string
	failing      bool
	requests     []openai.ChatCompletionRequest
	speeches     []openai.CreateSpeechRequest
}

// NewFakeModel starts a fake model server that is closed when the test ends.
func NewFakeModel(t testing.TB) *FakeModel {
	t.Helper()
	f := &FakeModel{defaultReply: "Hmph! I have nothing more to say."}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/chat/completions", f.chatCompletions)
	mux.HandleFunc("POST /v1/audio/speech", f.speech)
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

// BaseURL is the value for the client's base URL.
func (f *FakeModel) BaseURL() string {
	return f.server.URL + "/v1"
}

// Reply queues replies returned in order before falling back to the default reply.
func (f *FakeModel) Reply(texts ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, texts...)
}

// SetFailing makes every endpoint respond with 500.
func (f *FakeModel) SetFailing(failing bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing = failing
}

// Requests returns the received chat completion requests.
func (f *FakeModel) Requests() []openai.ChatCompletionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]openai.ChatCompletionRequest(nil), f.requests...)
}

// Speeches returns the received speech requests.
func (f *FakeModel) Speeches() []openai.CreateSpeechRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]openai.CreateSpeechRequest(nil), f.speeches...)
}

func (f *FakeModel) fail(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write([]byte(`{"error":{"message":"model unavailable","type":"server_error"}}`))
}

func (f *FakeModel) chatCompletions(w http.ResponseWriter, r *http.Request) {
	var req openai.ChatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.requests = append(f.requests, req)
	failing := f.failing
	reply := f.defaultReply
	if len(f.replies) > 0 {
		reply, f.replies = f.replies[0], f.replies[1:]
	}
	f.mu.Unlock()

	if failing {
		f.fail(w)
		return
	}
	res := openai.ChatCompletionResponse{ //nolint:exhaustruct // only what the client reads
		ID:     "chatcmpl-fake",
		Object: "chat.completion",
		Model:  req.Model,
		Choices: []openai.ChatCompletionChoice{{ //nolint:exhaustruct // only what the client reads
			Index:        0,
			Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: reply},
			FinishReason: openai.FinishReasonStop,
		}},
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(res)
}

func (f *FakeModel) speech(w http.ResponseWriter, r *http.Request) {
	var req openai.CreateSpeechRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.speeches = append(f.speeches, req)
	failing := f.failing
	f.mu.Unlock()

	if failing {
		f.fail(w)
		return
	}
	w.Header().Set("Content-Type", "audio/mpeg")
	_, _ = w.Write(FakeAudio)
}
