package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "tesseract", cfg.OCR.Binary)
	assert.Equal(t, "rus", cfg.OCR.Languages)
	assert.Equal(t, 1000, cfg.Chunker.ChunkSize)
	assert.Equal(t, 200, cfg.Chunker.Overlap)
	assert.Equal(t, "tfidf", cfg.Embedder.Type)
	assert.Equal(t, 5, cfg.Search.TopK)
	assert.Equal(t, 0.01, cfg.Search.MinSimilarity)
	assert.Equal(t, 6000, cfg.Context.MaxTokens)
	assert.Equal(t, "data/embeddings/search_index.gob", cfg.Paths.Index)
}

func TestLoadPartialConfigFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
chunker:
  chunk_size: 500
search:
  top_k: 10
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 500, cfg.Chunker.ChunkSize)
	assert.Equal(t, 10, cfg.Search.TopK)
	// untouched sections fall back to defaults
	assert.Equal(t, 200, cfg.Chunker.Overlap)
	assert.Equal(t, "tesseract", cfg.OCR.Binary)
	assert.Equal(t, 0.01, cfg.Search.MinSimilarity)
}

func TestLoadKeepsExplicitZeros(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
chunker:
  overlap: 0
search:
  min_similarity: 0
generator:
  temperature: 0
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 0, cfg.Chunker.Overlap)
	assert.Equal(t, 0.0, cfg.Search.MinSimilarity)
	assert.Equal(t, float32(0), cfg.Generator.Temperature)
	// neighbours in the same sections still default
	assert.Equal(t, 1000, cfg.Chunker.ChunkSize)
	assert.Equal(t, 5, cfg.Search.TopK)
	assert.Equal(t, 1500, cfg.Generator.MaxTokens)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("paths: [broken"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := defaultConfig()
	cfg.OCR.Languages = "rus+eng"
	cfg.Embedder.Type = "openai"
	cfg.Embedder.OpenAI = &OpenAIEmbedderConfig{Model: "text-embedding-3-large"}

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "rus+eng", loaded.OCR.Languages)
	assert.Equal(t, "openai", loaded.Embedder.Type)
	require.NotNil(t, loaded.Embedder.OpenAI)
	assert.Equal(t, "text-embedding-3-large", loaded.Embedder.OpenAI.Model)
	// openai sub-defaults applied on load
	assert.Equal(t, "OPENAI_API_KEY", loaded.Embedder.OpenAI.APIKeyEnv)
	assert.Equal(t, 30, loaded.Embedder.OpenAI.TimeoutSecs)
}

func TestDefaultIndexPathFollowsEmbeddingsDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
paths:
  embeddings: /srv/georag/vectors
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/srv/georag/vectors", "search_index.gob"), cfg.Paths.Index)
}
