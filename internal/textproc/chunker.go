package textproc

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/alexeiveselov92/geological-tiff-search/internal/domain"
)

// DefaultChunkSize is the default chunk window in characters.
const DefaultChunkSize = 1000

// DefaultOverlap is the default overlap between consecutive chunks.
const DefaultOverlap = 200

// Chunker splits cleaned text into overlapping, size-bounded passages.
// Positions are measured in runes so multi-byte scripts never split
// mid-character.
type Chunker struct {
	chunkSize int
	overlap   int
}

func NewChunker(chunkSize, overlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	return &Chunker{chunkSize: chunkSize, overlap: overlap}
}

// Split breaks text into chunks of at most chunkSize characters. A text
// that fits in one window is returned whole. Otherwise each window is
// shortened to the last space, newline or period inside it so breaks land
// on natural boundaries, and consecutive chunks share the configured
// overlap.
func (c *Chunker) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	runes := []rune(text)
	if len(runes) <= c.chunkSize {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + c.chunkSize
		if end > len(runes) {
			end = len(runes)
		}

		if end < len(runes) {
			if best := lastBreak(runes, start, end); best > start {
				end = best + 1
			}
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		if end >= len(runes) {
			break
		}

		next := start + c.chunkSize - c.overlap
		if alt := end - c.overlap; alt > next {
			next = alt
		}
		// The break-point search can pull end far backward; the advance
		// must still be strictly positive or the scan never terminates.
		if next <= start {
			next = start + 1
		}
		start = next
	}
	return chunks
}

// ChunkDocument cleans nothing; it takes already-cleaned text and produces
// identified chunks for one document. Chunk ids are deterministic:
// {file_id}_chunk_{index:03d}, zero-padded to at least three digits.
func (c *Chunker) ChunkDocument(doc domain.Document, cleaned string) []domain.Chunk {
	parts := c.Split(cleaned)
	meta := domain.ChunkMetadata{
		TotalChunks:        len(parts),
		OriginalTextLength: utf8.RuneCountInString(doc.Text),
		CleanedTextLength:  utf8.RuneCountInString(cleaned),
	}
	chunks := make([]domain.Chunk, 0, len(parts))
	for i, text := range parts {
		chunks = append(chunks, domain.Chunk{
			ChunkID:    fmt.Sprintf("%s_chunk_%03d", doc.FileID, i),
			FileID:     doc.FileID,
			Filename:   doc.Filename,
			ChunkIndex: i,
			Text:       text,
			TextLength: utf8.RuneCountInString(text),
			Metadata:   meta,
		})
	}
	return chunks
}

// lastBreak returns the rightmost space, newline or period in
// runes[start:end], or -1 when none exists.
func lastBreak(runes []rune, start, end int) int {
	for i := end - 1; i >= start; i-- {
		switch runes[i] {
		case ' ', '\n', '.':
			return i
		}
	}
	return -1
}
