package embedding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexeiveselov92/geological-tiff-search/internal/config"
)

func TestNewDefaultsToTFIDF(t *testing.T) {
	emb, err := New(config.EmbedderConfig{})
	require.NoError(t, err)
	assert.Equal(t, "tfidf", emb.Name())

	emb, err = New(config.EmbedderConfig{Type: "tfidf"})
	require.NoError(t, err)
	assert.Equal(t, "tfidf", emb.Name())
}

func TestNewOpenAI(t *testing.T) {
	t.Setenv("TEST_EMBED_KEY", "sk-test")

	emb, err := New(config.EmbedderConfig{
		Type: "openai",
		OpenAI: &config.OpenAIEmbedderConfig{
			APIKeyEnv: "TEST_EMBED_KEY",
			Model:     "text-embedding-3-small",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "text-embedding-3-small", emb.Name())
	assert.Equal(t, 1536, emb.Dimension())
}

func TestNewOpenAIWithoutConfig(t *testing.T) {
	_, err := New(config.EmbedderConfig{Type: "openai"})
	assert.Error(t, err)
}

func TestNewOpenAIWithoutKey(t *testing.T) {
	t.Setenv("TEST_EMBED_KEY", "")

	_, err := New(config.EmbedderConfig{
		Type:   "openai",
		OpenAI: &config.OpenAIEmbedderConfig{APIKeyEnv: "TEST_EMBED_KEY"},
	})
	assert.Error(t, err)
}

func TestNewUnknownType(t *testing.T) {
	_, err := New(config.EmbedderConfig{Type: "word2vec"})
	assert.Error(t, err)
}
