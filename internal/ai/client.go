// Package ai talks to the OpenAI-compatible dialogue and speech endpoints.
package ai

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/myrjola/misttheater/internal/config"
	"github.com/myrjola/misttheater/internal/errors"
	"github.com/myrjola/misttheater/internal/models"
	"github.com/sashabaranov/go-openai"
)

type Client struct {
	client      *openai.Client
	model       string
	speechModel string
	temperature float32
	maxTokens   int
	timeout     time.Duration
	logger      *slog.Logger
}

func NewClient(cfg config.AI, logger *slog.Logger) *Client {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	return &Client{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       cfg.Model,
		speechModel: cfg.SpeechModel,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     cfg.Timeout,
		logger:      logger.With("source", "ai.Client"),
	}
}

// ChatRequest is everything the model sees for one reply.
type ChatRequest struct {
	System  string
	History []models.Turn
	Text    string
}

// Outcome is either a Reply or a Failure.
type Outcome interface {
	outcome()
}

// Reply is the model's answer.
type Reply struct {
	Text string
}

// Failure means no usable answer was produced.
type Failure struct {
	Reason string
	Err    error
}

func (Reply) outcome()   {}
func (Failure) outcome() {}

// Messages renders req in chat completion form: the system prompt, each turn as a user and assistant pair, and the
// current text last.
func Messages(req ChatRequest) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, 2+2*len(req.History)) //nolint:mnd // system, user and pairs
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	for _, turn := range req.History {
		messages = append(messages,
			openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: turn.Player},
			openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: turn.NPC},
		)
	}
	return append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Text})
}

// Complete asks the model for a single reply. It makes one attempt bounded by the configured timeout.
func (c *Client) Complete(ctx context.Context, req ChatRequest) Outcome {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	completion, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{ //nolint:exhaustruct // this is better for readability
			Model:       c.model,
			MaxTokens:   c.maxTokens,
			Temperature: c.temperature,
			Messages:    Messages(req),
		},
	)
	if err != nil {
		return Failure{Reason: failureReason(err), Err: errors.Wrap(err, "create chat completion")}
	}
	c.logger.LogAttrs(ctx, slog.LevelDebug, "chat completion",
		slog.Duration("duration", time.Since(start)), slog.Int("total_tokens", completion.Usage.TotalTokens))
	if len(completion.Choices) == 0 {
		return Failure{Reason: "malformed", Err: errors.New("completion has no choices")}
	}
	text := strings.TrimSpace(completion.Choices[0].Message.Content)
	if text == "" {
		return Failure{Reason: "malformed", Err: errors.New("completion is empty")}
	}
	return Reply{Text: text}
}

func failureReason(err error) string {
	var (
		apiErr *openai.APIError
		reqErr *openai.RequestError
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.As(err, &apiErr), errors.As(err, &reqErr):
		return "status"
	default:
		return "network"
	}
}

// Speak synthesizes text as mp3 audio with the given voice.
func (c *Client) Speak(ctx context.Context, text string, voice string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	speech, err := c.client.CreateSpeech(ctx, openai.CreateSpeechRequest{ //nolint:exhaustruct // readability
		Model:          openai.SpeechModel(c.speechModel),
		Input:          text,
		Voice:          openai.SpeechVoice(voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create speech", slog.String("voice", voice))
	}
	defer speech.Close()
	audio, err := io.ReadAll(speech)
	if err != nil {
		return nil, errors.Wrap(err, "read speech")
	}
	return audio, nil
}
