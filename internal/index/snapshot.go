package index

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/alexeiveselov92/geological-tiff-search/internal/domain"
	"github.com/alexeiveselov92/geological-tiff-search/internal/embedding/tfidf"
)

// ErrNoSnapshot is returned when the index file does not exist yet.
var ErrNoSnapshot = errors.New("search index not found")

// Snapshot is the complete searchable corpus: every chunk, the parallel
// embedding matrix and the name of the model that produced it.
// Embeddings[i] corresponds to Chunks[i] for all i. A snapshot is
// read-only once loaded and replaced wholesale on rebuild.
type Snapshot struct {
	Chunks       []domain.Chunk
	Embeddings   [][]float64
	ModelName    string
	TotalChunks  int
	EmbeddingDim int

	// TFIDF carries the fitted vectorizer when ModelName is "tfidf", so
	// queries can be embedded in the snapshot's own vector space.
	TFIDF *tfidf.Model
}

// Validate checks the parallel-slice invariants.
func (s *Snapshot) Validate() error {
	if len(s.Chunks) != len(s.Embeddings) {
		return fmt.Errorf("snapshot corrupt: %d chunks but %d embeddings", len(s.Chunks), len(s.Embeddings))
	}
	if s.TotalChunks != len(s.Chunks) {
		return fmt.Errorf("snapshot corrupt: total_chunks=%d but %d chunks stored", s.TotalChunks, len(s.Chunks))
	}
	for i, vec := range s.Embeddings {
		if len(vec) != s.EmbeddingDim {
			return fmt.Errorf("snapshot corrupt: embedding %d has dim %d, want %d", i, len(vec), s.EmbeddingDim)
		}
	}
	return nil
}

// Save writes the snapshot as a gob blob. It writes to a temporary file
// and renames, so a crash mid-save never corrupts the last good index.
func (s *Snapshot) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := gob.NewEncoder(f).Encode(s); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("encode index: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// Load reads a snapshot from disk and validates it.
func Load(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoSnapshot, path)
		}
		return nil, err
	}
	defer f.Close()

	var snap Snapshot
	if err := gob.NewDecoder(f).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode index %s: %w", path, err)
	}
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	return &snap, nil
}
