package index

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexeiveselov92/geological-tiff-search/internal/domain"
)

func writeEmbeddings(t *testing.T, dir, fileID string, chunks []domain.EmbeddedChunk) {
	t.Helper()
	data, err := json.Marshal(chunks)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, fileID+"_embeddings.json"), data, 0o644))
}

func embedded(chunkID, fileID string, vec []float64) domain.EmbeddedChunk {
	return domain.EmbeddedChunk{
		Chunk:        domain.Chunk{ChunkID: chunkID, FileID: fileID, Text: "фрагмент"},
		Embedding:    vec,
		EmbeddingDim: len(vec),
	}
}

func TestBuildConcatenatesAllDocuments(t *testing.T) {
	dir := t.TempDir()
	writeEmbeddings(t, dir, "b_doc", []domain.EmbeddedChunk{
		embedded("b_doc_chunk_000", "b_doc", []float64{0, 1}),
	})
	writeEmbeddings(t, dir, "a_doc", []domain.EmbeddedChunk{
		embedded("a_doc_chunk_000", "a_doc", []float64{1, 0}),
		embedded("a_doc_chunk_001", "a_doc", []float64{0.5, 0.5}),
	})

	snap, err := NewBuilder(dir).Build("tfidf", nil)
	require.NoError(t, err)

	assert.Equal(t, 3, snap.TotalChunks)
	assert.Equal(t, 2, snap.EmbeddingDim)
	assert.Equal(t, "tfidf", snap.ModelName)
	// files are read in sorted order
	assert.Equal(t, "a_doc_chunk_000", snap.Chunks[0].ChunkID)
	assert.Equal(t, "b_doc_chunk_000", snap.Chunks[2].ChunkID)
	assert.NoError(t, snap.Validate())
}

func TestBuildEmptyDirectory(t *testing.T) {
	_, err := NewBuilder(t.TempDir()).Build("tfidf", nil)
	assert.ErrorIs(t, err, ErrNoEmbeddings)
}

func TestBuildMissingDirectory(t *testing.T) {
	_, err := NewBuilder(filepath.Join(t.TempDir(), "absent")).Build("tfidf", nil)
	assert.ErrorIs(t, err, ErrNoEmbeddings)
}

func TestBuildRejectsDimensionMismatch(t *testing.T) {
	dir := t.TempDir()
	writeEmbeddings(t, dir, "doc1", []domain.EmbeddedChunk{
		embedded("doc1_chunk_000", "doc1", []float64{1, 0, 0}),
	})
	writeEmbeddings(t, dir, "doc2", []domain.EmbeddedChunk{
		embedded("doc2_chunk_000", "doc2", []float64{1, 0}),
	})

	_, err := NewBuilder(dir).Build("tfidf", nil)
	assert.Error(t, err)
}

func TestBuildIgnoresForeignFiles(t *testing.T) {
	dir := t.TempDir()
	writeEmbeddings(t, dir, "doc1", []domain.EmbeddedChunk{
		embedded("doc1_chunk_000", "doc1", []float64{1}),
	})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	snap, err := NewBuilder(dir).Build("tfidf", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.TotalChunks)
}
