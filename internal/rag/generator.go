package rag

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/alexeiveselov92/geological-tiff-search/internal/config"
)

// Generator submits one chat-style request and returns the reply text.
// The concrete backend is resolved once at construction; callers never
// branch on backend versions.
type Generator interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// OpenAIGenerator backs Generator with a chat-completion model.
type OpenAIGenerator struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
	timeout     time.Duration
}

// NewOpenAIGenerator fails fast when the API key is absent or still the
// placeholder value; a misconfigured generator must never get as far as a
// query.
func NewOpenAIGenerator(cfg config.GeneratorConfig) (*OpenAIGenerator, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" || key == "your_api_key_here" {
		return nil, fmt.Errorf("OpenAI API key not configured: set %s in .env or the environment", cfg.APIKeyEnv)
	}
	return &OpenAIGenerator{
		client:      openai.NewClient(key),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		timeout:     time.Duration(cfg.TimeoutSecs) * time.Second,
	}, nil
}

// Complete makes at most one request; failures are returned, not retried.
func (g *OpenAIGenerator) Complete(ctx context.Context, system, user string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		MaxTokens:   g.maxTokens,
		Temperature: g.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no completion choices returned")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
