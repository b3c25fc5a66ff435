package tfidf

import (
	"errors"
	"math"
	"regexp"
	"sort"
	"strings"
)

// ModelName identifies TF-IDF snapshots. A snapshot built with this
// embedder can only be queried through an embedder restored from the
// snapshot's own fitted state.
const ModelName = "tfidf"

// Model is the fitted vectorizer state: the vocabulary in stable order and
// the smoothed IDF value per term. It is persisted inside the index
// snapshot so queries are embedded in the exact same space.
type Model struct {
	Terms []string
	IDF   []float64
}

// Embedder implements a TF-IDF vectorizer over the ingested corpus.
// Embedding the same text against the same fitted state is fully
// deterministic.
type Embedder struct {
	vocabulary   map[string]int
	idf          []float64
	dimension    int
	prepared     bool
	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}
}

func NewEmbedder() *Embedder {
	return &Embedder{
		vocabulary:   make(map[string]int),
		tokenPattern: regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`),
		stopwords:    defaultStopwords(),
	}
}

func (e *Embedder) Name() string { return ModelName }

// Prepare builds the vocabulary and IDF table from the corpus.
func (e *Embedder) Prepare(corpus []string) error {
	if len(corpus) == 0 {
		return errors.New("empty corpus for TF-IDF prepare")
	}
	df := make(map[string]int)
	for _, text := range corpus {
		seen := make(map[string]struct{})
		for _, tok := range e.tokenize(text) {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}
	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	if len(terms) == 0 {
		return errors.New("no tokens found in corpus; ensure tokenizer supports your language")
	}
	e.vocabulary = make(map[string]int, len(terms))
	e.idf = make([]float64, len(terms))
	n := float64(len(corpus))
	for i, term := range terms {
		e.vocabulary[term] = i
		// Smoothed IDF
		e.idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1.0
	}
	e.dimension = len(terms)
	e.prepared = true
	return nil
}

func (e *Embedder) Dimension() int { return e.dimension }

// Embed produces an L2-normalized TF-IDF vector. A text with no known
// tokens maps to the zero vector, never an error.
func (e *Embedder) Embed(text string) ([]float64, error) {
	if !e.prepared {
		return nil, errors.New("tfidf embedder not prepared")
	}
	vec := make([]float64, e.dimension)
	tf := make(map[int]int)
	total := 0
	for _, tok := range e.tokenize(text) {
		if idx, ok := e.vocabulary[tok]; ok {
			tf[idx]++
			total++
		}
	}
	if total == 0 {
		return vec, nil
	}
	for idx, count := range tf {
		vec[idx] = float64(count) / float64(total) * e.idf[idx]
	}
	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec, nil
}

// State exports the fitted vectorizer for snapshot persistence.
func (e *Embedder) State() *Model {
	if !e.prepared {
		return nil
	}
	terms := make([]string, len(e.vocabulary))
	for term, i := range e.vocabulary {
		terms[i] = term
	}
	return &Model{Terms: terms, IDF: append([]float64(nil), e.idf...)}
}

// Restore rebuilds a prepared embedder from persisted state.
func Restore(m *Model) (*Embedder, error) {
	if m == nil || len(m.Terms) == 0 || len(m.Terms) != len(m.IDF) {
		return nil, errors.New("invalid tfidf model state")
	}
	e := NewEmbedder()
	e.vocabulary = make(map[string]int, len(m.Terms))
	for i, term := range m.Terms {
		e.vocabulary[term] = i
	}
	e.idf = append([]float64(nil), m.IDF...)
	e.dimension = len(m.Terms)
	e.prepared = true
	return e, nil
}

func (e *Embedder) tokenize(text string) []string {
	lower := strings.ToLower(text)
	raw := e.tokenPattern.FindAllString(lower, -1)
	if len(raw) == 0 {
		return nil
	}
	out := raw[:0]
	for _, t := range raw {
		if _, isStop := e.stopwords[t]; isStop {
			continue
		}
		out = append(out, t)
	}
	return out
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"и", "в", "во", "не", "что", "он", "на", "я", "с", "со", "как", "а", "то", "все", "она", "так", "его", "но", "да", "ты", "к", "у", "же", "вы", "за", "бы", "по", "только", "ее", "мне", "было", "вот", "от", "меня", "еще", "нет", "о", "из", "ему", "при", "для", "мы", "тебя", "их", "чем", "была", "сам", "чтоб", "без", "будто", "чего", "раз", "тоже", "себе", "под", "будет", "тогда", "кто", "этот", "того", "потому", "этого", "какой", "ним", "здесь", "этом", "один", "почти", "мой", "тем", "чтобы", "нее", "были", "куда", "зачем", "всех", "можно", "при", "об", "хотя", "это",
		"a", "an", "the", "and", "or", "but", "if", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "it", "this", "that", "from",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
