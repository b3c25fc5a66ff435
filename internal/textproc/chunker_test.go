package textproc

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexeiveselov92/geological-tiff-search/internal/domain"
)

func TestSplitShortTextIsOneChunk(t *testing.T) {
	c := NewChunker(1000, 200)
	text := strings.Repeat("а", 500)

	chunks := c.Split(text)

	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0])
}

func TestSplitExactWindowIsOneChunk(t *testing.T) {
	c := NewChunker(1000, 200)
	text := strings.Repeat("б", 1000)

	chunks := c.Split(text)

	require.Len(t, chunks, 1)
}

func TestSplitEmptyTextIsNoChunks(t *testing.T) {
	c := NewChunker(1000, 200)

	assert.Empty(t, c.Split(""))
	assert.Empty(t, c.Split("   \n  "))
}

func TestSplitRespectsWindowSize(t *testing.T) {
	c := NewChunker(100, 20)
	text := strings.Repeat("скважина глубиной триста метров ", 40)

	chunks := c.Split(text)

	require.Greater(t, len(chunks), 1)
	for i, chunk := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(chunk), 100, "chunk %d too long", i)
		assert.NotEmpty(t, chunk)
	}
}

func TestSplitBreaksOnWordBoundaries(t *testing.T) {
	c := NewChunker(100, 20)
	text := strings.Repeat("разведка месторождения продолжается ", 30)

	for _, chunk := range c.Split(text) {
		assert.False(t, strings.HasPrefix(chunk, " "))
		assert.False(t, strings.HasSuffix(chunk, " "))
	}
}

func TestSplitTerminatesWithoutSeparators(t *testing.T) {
	// no space, newline or period anywhere: the scan must still advance
	c := NewChunker(50, 40)
	text := strings.Repeat("ж", 500)

	chunks := c.Split(text)

	require.NotEmpty(t, chunks)
	total := 0
	for _, chunk := range chunks {
		total += utf8.RuneCountInString(chunk)
	}
	assert.GreaterOrEqual(t, total, 500)
}

func TestSplitConsecutiveChunksOverlap(t *testing.T) {
	// unique numbered tokens, 10 runes each, so every occurrence is
	// unambiguous
	var b strings.Builder
	for i := 0; i < 100; i++ {
		fmt.Fprintf(&b, "слово%04d ", i)
	}
	c := NewChunker(100, 20)

	chunks := c.Split(b.String())
	require.Greater(t, len(chunks), 1)

	for i := 1; i < len(chunks); i++ {
		head := string([]rune(chunks[i])[:19]) // two full tokens
		assert.Contains(t, chunks[i-1], head,
			"chunk %d must start with text shared with chunk %d", i, i-1)
	}
}

func TestSplitProseChunksShareBoundaries(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 30; i++ {
		fmt.Fprintf(&b, "Пласт песчаника номер %d залегает под глинами. ", i)
	}
	c := NewChunker(100, 20)

	chunks := c.Split(b.String())
	require.Greater(t, len(chunks), 1)

	// the break-point search can trim the previous chunk, shrinking the
	// shared span below the configured overlap, but a short head of each
	// chunk always appears in its predecessor
	for i := 1; i < len(chunks); i++ {
		head := string([]rune(chunks[i])[:10])
		assert.Contains(t, chunks[i-1], head)
	}
}

func TestSplitLosesNoWords(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 100; i++ {
		fmt.Fprintf(&b, "слово%04d ", i)
	}
	c := NewChunker(100, 20)

	joined := strings.Join(c.Split(b.String()), "\n")
	for i := 0; i < 100; i++ {
		assert.Contains(t, joined, fmt.Sprintf("слово%04d", i))
	}
}

func TestSplitCoversFullText(t *testing.T) {
	c := NewChunker(120, 30)
	text := strings.Repeat("в интервале от ста до двухсот метров вскрыт песчаник. ", 25)

	chunks := c.Split(text)

	// last chunk reaches the end of the text
	last := chunks[len(chunks)-1]
	assert.True(t, strings.HasSuffix(strings.TrimSpace(text), last))
}

func TestChunkDocumentIDs(t *testing.T) {
	c := NewChunker(100, 20)
	doc := domain.Document{FileID: "arch_0001_report", Filename: "report.tif", Text: "raw"}
	cleaned := strings.Repeat("геологический отчёт о скважине номер семь ", 20)

	chunks := c.ChunkDocument(doc, cleaned)

	require.NotEmpty(t, chunks)
	seen := make(map[string]struct{})
	for i, ch := range chunks {
		assert.Equal(t, fmt.Sprintf("arch_0001_report_chunk_%03d", i), ch.ChunkID)
		assert.Equal(t, i, ch.ChunkIndex)
		assert.Equal(t, "arch_0001_report", ch.FileID)
		assert.Equal(t, "report.tif", ch.Filename)
		_, dup := seen[ch.ChunkID]
		assert.False(t, dup, "duplicate id %s", ch.ChunkID)
		seen[ch.ChunkID] = struct{}{}
	}
}

func TestChunkDocumentMetadata(t *testing.T) {
	c := NewChunker(1000, 200)
	doc := domain.Document{FileID: "f1", Text: "сырой   текст"}
	cleaned := "сырой текст о породах и пластах"

	chunks := c.ChunkDocument(doc, cleaned)

	require.Len(t, chunks, 1)
	meta := chunks[0].Metadata
	assert.Equal(t, 1, meta.TotalChunks)
	assert.Equal(t, utf8.RuneCountInString(doc.Text), meta.OriginalTextLength)
	assert.Equal(t, utf8.RuneCountInString(cleaned), meta.CleanedTextLength)
	assert.Equal(t, utf8.RuneCountInString(cleaned), chunks[0].TextLength)
}

func TestChunkDocumentEmptyCleanText(t *testing.T) {
	c := NewChunker(1000, 200)
	doc := domain.Document{FileID: "f2", Text: "|||"}

	assert.Empty(t, c.ChunkDocument(doc, ""))
}
