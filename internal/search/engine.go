package search

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/alexeiveselov92/geological-tiff-search/internal/domain"
	"github.com/alexeiveselov92/geological-tiff-search/internal/index"
)

// ErrModelMismatch means the query embedder does not match the model that
// produced the snapshot. Searching anyway would silently return
// meaningless scores, so it is rejected at construction.
var ErrModelMismatch = errors.New("embedder does not match index model")

// Engine ranks indexed chunks against query vectors with a linear cosine
// scan. It holds one loaded snapshot and the matching query embedder.
type Engine struct {
	snap     *index.Snapshot
	embedder domain.Embedder
}

// New creates an engine over a loaded snapshot. The embedder's model name
// must equal the snapshot's.
func New(snap *index.Snapshot, embedder domain.Embedder) (*Engine, error) {
	if snap == nil {
		return nil, errors.New("no index snapshot loaded")
	}
	if embedder == nil {
		return nil, errors.New("no query embedder provided")
	}
	if embedder.Name() != snap.ModelName {
		return nil, fmt.Errorf("%w: index built with %q, embedder is %q",
			ErrModelMismatch, snap.ModelName, embedder.Name())
	}
	return &Engine{snap: snap, embedder: embedder}, nil
}

// Snapshot exposes the loaded index for statistics display.
func (e *Engine) Snapshot() *index.Snapshot { return e.snap }

// Search embeds the query, scores every indexed chunk by cosine
// similarity and returns up to topK results. Emission stops at the first
// candidate below minSimilarity: the list is sorted descending, so
// nothing after it can qualify. Ties order by chunk id ascending.
func (e *Engine) Search(query string, topK int, minSimilarity float64) ([]domain.SearchResult, error) {
	queryVec, err := e.embedder.Embed(query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	similarities := make([]float64, len(e.snap.Embeddings))
	for i, vec := range e.snap.Embeddings {
		similarities[i] = cosineSimilarity(queryVec, vec)
	}

	order := make([]int, len(similarities))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		ia, ib := order[a], order[b]
		if similarities[ia] != similarities[ib] {
			return similarities[ia] > similarities[ib]
		}
		return e.snap.Chunks[ia].ChunkID < e.snap.Chunks[ib].ChunkID
	})

	var results []domain.SearchResult
	for _, idx := range order {
		if len(results) >= topK {
			break
		}
		if similarities[idx] < minSimilarity {
			break
		}
		results = append(results, domain.SearchResult{
			Chunk:      e.snap.Chunks[idx],
			Similarity: similarities[idx],
			Rank:       len(results) + 1,
		})
	}
	return results, nil
}

// SearchWithDetails wraps Search, grouping results by source document and
// adding aggregate statistics. Ranking is unchanged.
func (e *Engine) SearchWithDetails(query string, topK int) (*domain.SearchDetails, error) {
	results, err := e.Search(query, topK, 0)
	if err != nil {
		return nil, err
	}

	filesFound := make(map[string][]domain.SearchResult)
	for _, r := range results {
		filesFound[r.FileID] = append(filesFound[r.FileID], r)
	}

	var stats domain.SearchStats
	if len(results) > 0 {
		sum := 0.0
		for _, r := range results {
			sum += r.Similarity
			if r.Similarity > stats.MaxSimilarity {
				stats.MaxSimilarity = r.Similarity
			}
		}
		stats.AverageSimilarity = sum / float64(len(results))
	}
	stats.FilesCount = len(filesFound)

	return &domain.SearchDetails{
		Query:        query,
		TotalResults: len(results),
		Results:      results,
		FilesFound:   filesFound,
		Stats:        stats,
	}, nil
}

// ChunkContext returns a window of contextSize chunks on each side of the
// given chunk within its own document, ordered by chunk index and clipped
// at document boundaries. The target chunk is flagged.
func (e *Engine) ChunkContext(chunkID string, contextSize int) ([]domain.ContextChunk, error) {
	var target *domain.Chunk
	for i := range e.snap.Chunks {
		if e.snap.Chunks[i].ChunkID == chunkID {
			target = &e.snap.Chunks[i]
			break
		}
	}
	if target == nil {
		return nil, fmt.Errorf("chunk %s not found in index", chunkID)
	}

	var fileChunks []domain.Chunk
	for _, c := range e.snap.Chunks {
		if c.FileID == target.FileID {
			fileChunks = append(fileChunks, c)
		}
	}
	sort.Slice(fileChunks, func(i, j int) bool {
		return fileChunks[i].ChunkIndex < fileChunks[j].ChunkIndex
	})

	pos := -1
	for i, c := range fileChunks {
		if c.ChunkID == chunkID {
			pos = i
			break
		}
	}
	if pos == -1 {
		return []domain.ContextChunk{{Chunk: *target, IsTarget: true}}, nil
	}

	start := pos - contextSize
	if start < 0 {
		start = 0
	}
	end := pos + contextSize + 1
	if end > len(fileChunks) {
		end = len(fileChunks)
	}

	window := make([]domain.ContextChunk, 0, end-start)
	for _, c := range fileChunks[start:end] {
		window = append(window, domain.ContextChunk{Chunk: c, IsTarget: c.ChunkID == chunkID})
	}
	return window, nil
}

// cosineSimilarity returns the normalized dot product of two vectors, 0
// when either has no magnitude or the lengths differ.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
