package index

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/alexeiveselov92/geological-tiff-search/internal/domain"
	"github.com/alexeiveselov92/geological-tiff-search/internal/embedding/tfidf"
)

// ErrNoEmbeddings is returned when no embedded-chunk artifacts exist to
// build an index from.
var ErrNoEmbeddings = errors.New("no embedding files found")

// Builder assembles one snapshot from all per-document embedding
// artifacts. Rebuilding is always whole-corpus; there is no incremental
// update path.
type Builder struct {
	embeddingsDir string
	log           *slog.Logger
}

func NewBuilder(embeddingsDir string) *Builder {
	return &Builder{
		embeddingsDir: embeddingsDir,
		log:           slog.Default().With("component", "index"),
	}
}

// Build concatenates the embedded chunks of every document, in file
// enumeration order, into a snapshot. The tfidf model may be nil for
// remote embedders.
func (b *Builder) Build(modelName string, tfidfModel *tfidf.Model) (*Snapshot, error) {
	files, err := b.embeddingFiles()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoEmbeddings, b.embeddingsDir)
	}

	snap := &Snapshot{ModelName: modelName, TFIDF: tfidfModel}
	for _, name := range files {
		path := filepath.Join(b.embeddingsDir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		var embedded []domain.EmbeddedChunk
		if err := json.Unmarshal(data, &embedded); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		for _, ec := range embedded {
			if snap.EmbeddingDim == 0 {
				snap.EmbeddingDim = ec.EmbeddingDim
			}
			if len(ec.Embedding) != snap.EmbeddingDim {
				return nil, fmt.Errorf("%s: chunk %s has dim %d, index has dim %d",
					path, ec.ChunkID, len(ec.Embedding), snap.EmbeddingDim)
			}
			snap.Chunks = append(snap.Chunks, ec.Chunk)
			snap.Embeddings = append(snap.Embeddings, ec.Embedding)
		}
	}
	snap.TotalChunks = len(snap.Chunks)

	b.log.Info("index built",
		"files", len(files),
		"chunks", snap.TotalChunks,
		"dimension", snap.EmbeddingDim,
		"model", snap.ModelName)
	return snap, nil
}

func (b *Builder) embeddingFiles() ([]string, error) {
	entries, err := os.ReadDir(b.embeddingsDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), "_embeddings.json") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}
