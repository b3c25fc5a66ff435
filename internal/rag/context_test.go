package rag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexeiveselov92/geological-tiff-search/internal/domain"
)

func result(filename string, idx int, text string) domain.SearchResult {
	return domain.SearchResult{
		Chunk: domain.Chunk{
			ChunkID:    "id",
			Filename:   filename,
			ChunkIndex: idx,
			Text:       text,
		},
	}
}

func TestBuildLabelsEachChunk(t *testing.T) {
	b := NewContextBuilder(6000, nil)

	got := b.Build([]domain.SearchResult{
		result("report1.tif", 0, "песчаник на глубине"),
		result("report2.tif", 3, "аргиллит ниже"),
	})

	assert.Contains(t, got, "--- Документ report1.tif, фрагмент 0 ---")
	assert.Contains(t, got, "--- Документ report2.tif, фрагмент 3 ---")
	assert.Contains(t, got, "песчаник на глубине")
	assert.Contains(t, got, "аргиллит ниже")
}

func TestBuildPreservesRankOrder(t *testing.T) {
	b := NewContextBuilder(6000, nil)

	got := b.Build([]domain.SearchResult{
		result("a.tif", 0, "первый фрагмент"),
		result("b.tif", 0, "второй фрагмент"),
	})

	first := strings.Index(got, "первый фрагмент")
	second := strings.Index(got, "второй фрагмент")
	require.GreaterOrEqual(t, first, 0)
	require.GreaterOrEqual(t, second, 0)
	assert.Less(t, first, second)
}

func TestBuildStopsAtBudget(t *testing.T) {
	// each labeled part costs about 33 tokens with chars/4
	b := NewContextBuilder(40, nil)

	got := b.Build([]domain.SearchResult{
		result("a.tif", 0, strings.Repeat("п", 100)),
		result("b.tif", 0, strings.Repeat("р", 100)),
	})

	assert.Contains(t, got, "a.tif")
	assert.NotContains(t, got, "b.tif")
}

func TestBuildNeverTruncatesChunks(t *testing.T) {
	text := strings.Repeat("слово ", 50)
	b := NewContextBuilder(100, nil)

	got := b.Build([]domain.SearchResult{
		result("a.tif", 0, text),
		result("b.tif", 0, text),
	})

	// the chunk that made it in is present whole, the next is absent
	assert.Contains(t, got, "a.tif")
	assert.Contains(t, got, text)
	assert.NotContains(t, got, "b.tif")
}

func TestBuildEmptyResults(t *testing.T) {
	b := NewContextBuilder(6000, nil)
	assert.Equal(t, "", b.Build(nil))
}

func TestBuildCustomEstimator(t *testing.T) {
	// an estimator that makes every part cost the whole budget
	b := NewContextBuilder(10, func(string) int { return 10 })

	got := b.Build([]domain.SearchResult{
		result("a.tif", 0, "текст"),
		result("b.tif", 0, "текст"),
	})

	assert.Contains(t, got, "a.tif")
	assert.NotContains(t, got, "b.tif")
}

func TestEstimateByLength(t *testing.T) {
	assert.Equal(t, 25, EstimateByLength(strings.Repeat("х", 100)))
	assert.Equal(t, 0, EstimateByLength(""))
}
