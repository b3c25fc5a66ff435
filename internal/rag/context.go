package rag

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/alexeiveselov92/geological-tiff-search/internal/domain"
)

// TokenEstimator estimates the token cost of a piece of text. The default
// is a chars/4 heuristic; swap in a real tokenizer here without touching
// the assembler.
type TokenEstimator func(text string) int

// EstimateByLength approximates one token per four characters, which
// holds roughly for Cyrillic text under common tokenizers.
func EstimateByLength(text string) int {
	return utf8.RuneCountInString(text) / 4
}

// ContextBuilder assembles ranked chunks into a token-bounded context
// string for the generator.
type ContextBuilder struct {
	maxTokens int
	estimate  TokenEstimator
}

func NewContextBuilder(maxTokens int, estimate TokenEstimator) *ContextBuilder {
	if maxTokens <= 0 {
		maxTokens = 6000
	}
	if estimate == nil {
		estimate = EstimateByLength
	}
	return &ContextBuilder{maxTokens: maxTokens, estimate: estimate}
}

// Build walks results in rank order and appends each, labeled with its
// source document and position, until the next chunk would exceed the
// budget. Chunks are never truncated mid-text to fit.
func (b *ContextBuilder) Build(results []domain.SearchResult) string {
	var parts []string
	used := 0
	for _, r := range results {
		part := fmt.Sprintf("\n--- Документ %s, фрагмент %d ---\n%s\n", r.Filename, r.ChunkIndex, r.Text)
		cost := b.estimate(part)
		if used+cost > b.maxTokens {
			break
		}
		parts = append(parts, part)
		used += cost
	}
	return strings.Join(parts, "\n")
}
