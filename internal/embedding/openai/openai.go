package openai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Known dimensions for OpenAI embedding models. Unknown models get their
// dimension from the first response.
var modelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// Config configures the remote embeddings client.
type Config struct {
	BaseURL   string
	APIKeyEnv string
	Model     string
	Timeout   time.Duration
}

// Client embeds text through an OpenAI-compatible embeddings endpoint.
// Calls are synchronous, one attempt each; a failure is reported to the
// caller, not retried.
type Client struct {
	client    *openai.Client
	model     string
	timeout   time.Duration
	dimension int
}

// NewClient creates a remote embedder. A missing API key is a
// configuration error surfaced at construction.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = "OPENAI_API_KEY"
	}
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	clientCfg := openai.DefaultConfig(key)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Client{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     cfg.Model,
		timeout:   cfg.Timeout,
		dimension: modelDimensions[cfg.Model],
	}, nil
}

// Name returns the model identifier recorded in index snapshots.
func (c *Client) Name() string { return c.model }

// Prepare is a no-op for remote embedding; the model is already trained.
func (c *Client) Prepare(corpus []string) error { return nil }

// Dimension returns the vector size, zero until known.
func (c *Client) Dimension() int { return c.dimension }

// Embed returns an embedding vector for the given text.
func (c *Client) Embed(text string) ([]float64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(c.model),
		Input: []string{text},
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("no embedding returned")
	}

	v32 := resp.Data[0].Embedding
	vec := make([]float64, len(v32))
	for i, v := range v32 {
		vec[i] = float64(v)
	}
	if c.dimension == 0 {
		c.dimension = len(vec)
	}
	return vec, nil
}
