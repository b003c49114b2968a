package script

import (
	"context"
	"errors"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Base URLs for the OpenAI-compatible chat endpoints of each vendor.
const (
	GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"
	GroqBaseURL   = "https://api.groq.com/openai/v1/"
)

// Prompt is one chat completion request.
type Prompt struct {
	System      string
	User        string
	Temperature float64
}

// Completer returns the text of a single chat completion.
type Completer interface {
	Complete(ctx context.Context, p Prompt) (string, error)
}

// ChatBackend talks to any OpenAI-compatible chat completions endpoint.
type ChatBackend struct {
	Model     string
	MaxTokens int64
	Opts      []option.RequestOption
}

// NewChatBackend builds a backend for apiKey. An empty baseURL means api.openai.com.
func NewChatBackend(apiKey, baseURL, model string, maxTokens int64) (*ChatBackend, error) {
	if apiKey == "" {
		return nil, errors.New("chat backend: api key missing")
	}
	if model == "" {
		return nil, errors.New("chat backend: model is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(2)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &ChatBackend{Model: model, MaxTokens: maxTokens, Opts: opts}, nil
}

func (b *ChatBackend) Complete(ctx context.Context, p Prompt) (string, error) {
	client := openai.NewClient(b.Opts...)

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(b.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(p.System),
			openai.UserMessage(p.User),
		},
	}
	if p.Temperature > 0 {
		params.Temperature = openai.Float(p.Temperature)
	}
	if b.MaxTokens > 0 {
		params.MaxTokens = openai.Int(b.MaxTokens)
	}

	resp, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat backend: empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}
