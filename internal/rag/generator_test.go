package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexeiveselov92/geological-tiff-search/internal/config"
)

func TestNewOpenAIGeneratorMissingKey(t *testing.T) {
	t.Setenv("TEST_GEN_KEY", "")

	_, err := NewOpenAIGenerator(config.GeneratorConfig{APIKeyEnv: "TEST_GEN_KEY"})
	assert.Error(t, err)
}

func TestNewOpenAIGeneratorPlaceholderKey(t *testing.T) {
	t.Setenv("TEST_GEN_KEY", "your_api_key_here")

	_, err := NewOpenAIGenerator(config.GeneratorConfig{APIKeyEnv: "TEST_GEN_KEY"})
	assert.Error(t, err)
}

func TestNewOpenAIGeneratorConfigured(t *testing.T) {
	t.Setenv("TEST_GEN_KEY", "sk-test")

	g, err := NewOpenAIGenerator(config.GeneratorConfig{
		APIKeyEnv:   "TEST_GEN_KEY",
		Model:       "gpt-3.5-turbo",
		MaxTokens:   1500,
		Temperature: 0.3,
		TimeoutSecs: 60,
	})
	require.NoError(t, err)
	assert.Equal(t, "gpt-3.5-turbo", g.model)
	assert.Equal(t, 1500, g.maxTokens)
}
