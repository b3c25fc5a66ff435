package domain

// Document is one OCR'd source unit: a single scanned page or report
// extracted from an archive.
type Document struct {
	FileID     string `json:"file_id"`
	Filename   string `json:"filename"`
	Text       string `json:"text"`
	TextLength int    `json:"text_length"`

	// Archive provenance, present when the document came out of a bundle.
	OriginalName  string `json:"original_name,omitempty"`
	OriginalPath  string `json:"original_path,omitempty"`
	ArchiveSource string `json:"archive_source,omitempty"`
	ArchiveID     string `json:"archive_id,omitempty"`
}

// ChunkMetadata carries per-document aggregates denormalized onto every chunk.
type ChunkMetadata struct {
	TotalChunks        int `json:"total_chunks"`
	OriginalTextLength int `json:"original_text_length"`
	CleanedTextLength  int `json:"cleaned_text_length"`
}

// Chunk is a contiguous passage of a document's cleaned text, the unit of
// indexing and retrieval.
type Chunk struct {
	ChunkID    string        `json:"chunk_id"`
	FileID     string        `json:"file_id"`
	Filename   string        `json:"filename"`
	ChunkIndex int           `json:"chunk_index"`
	Text       string        `json:"text"`
	TextLength int           `json:"text_length"`
	Metadata   ChunkMetadata `json:"metadata"`
}

// EmbeddedChunk is a chunk plus its vector representation.
type EmbeddedChunk struct {
	Chunk
	Embedding    []float64 `json:"embedding"`
	EmbeddingDim int       `json:"embedding_dim"`
}

// SearchResult is a chunk annotated with its similarity to a query and its
// 1-based rank in the result list.
type SearchResult struct {
	Chunk
	Similarity float64 `json:"similarity"`
	Rank       int     `json:"rank"`
}

// SearchStats summarizes one query's result set.
type SearchStats struct {
	AverageSimilarity float64 `json:"average_similarity"`
	MaxSimilarity     float64 `json:"max_similarity"`
	FilesCount        int     `json:"files_count"`
}

// SearchDetails groups results by source document and adds aggregate stats.
type SearchDetails struct {
	Query        string                    `json:"query"`
	TotalResults int                       `json:"total_results"`
	Results      []SearchResult            `json:"results"`
	FilesFound   map[string][]SearchResult `json:"files_found"`
	Stats        SearchStats               `json:"stats"`
}

// ContextChunk is a chunk within a context window around a search hit.
type ContextChunk struct {
	Chunk
	IsTarget bool `json:"is_target"`
}

// Embedder converts free text into a numeric vector representation.
// Implementations may require a preparation phase over the corpus.
// Name identifies the model; vectors produced under different names are
// never comparable.
type Embedder interface {
	Name() string
	Prepare(corpus []string) error
	Dimension() int
	Embed(text string) ([]float64, error)
}
