package rag

import (
	"context"
	"fmt"
	"math"

	"github.com/alexeiveselov92/geological-tiff-search/internal/search"
)

// Confidence labels derived from mean retrieval similarity.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

const notFoundAnswer = "К сожалению, я не нашел релевантной информации в доступных геологических документах для ответа на ваш вопрос."

const systemPrompt = `Ты - эксперт-геолог, который анализирует исторические геологические отчеты.

Твоя задача:
1. Внимательно изучить предоставленные фрагменты геологических документов
2. Ответить на вопрос пользователя на основе информации из документов
3. Если информации недостаточно, честно сказать об этом
4. Указать, из каких документов взята информация
5. Использовать профессиональную геологическую терминологию

Правила ответа:
- Отвечай только на русском языке
- Будь точен и конкретен
- Ссылайся на источники информации
- Если в документах нет ответа на вопрос, так и скажи
- Не придумывай информацию, которой нет в документах`

// Source points at one retrieved passage backing an answer.
type Source struct {
	Filename   string  `json:"filename"`
	ChunkID    string  `json:"chunk_id"`
	Similarity float64 `json:"similarity"`
}

// Answer is the packaged reply of the question-answering pipeline. A
// failed generator call degrades to a visible Err plus a readable Answer,
// never a crash past the caller.
type Answer struct {
	Question   string   `json:"question"`
	Answer     string   `json:"answer"`
	Sources    []Source `json:"sources"`
	Confidence string   `json:"confidence"`
	ChunksUsed int      `json:"chunks_used"`
	Err        string   `json:"error,omitempty"`
}

// Answerer retrieves passages for a question, assembles a bounded
// context and asks the generator.
type Answerer struct {
	engine        *search.Engine
	generator     Generator
	contexts      *ContextBuilder
	topK          int
	minSimilarity float64
}

func NewAnswerer(engine *search.Engine, generator Generator, contexts *ContextBuilder, topK int, minSimilarity float64) *Answerer {
	if topK <= 0 {
		topK = 5
	}
	if minSimilarity < 0 {
		minSimilarity = 0
	}
	return &Answerer{
		engine:        engine,
		generator:     generator,
		contexts:      contexts,
		topK:          topK,
		minSimilarity: minSimilarity,
	}
}

// Ask answers one question. Zero search hits short-circuit to a fixed
// not-found reply with low confidence and no generator call.
func (a *Answerer) Ask(ctx context.Context, question string) Answer {
	results, err := a.engine.Search(question, a.topK, a.minSimilarity)
	if err != nil {
		return Answer{
			Question:   question,
			Answer:     fmt.Sprintf("Произошла ошибка при обработке вопроса: %v", err),
			Confidence: ConfidenceLow,
			Err:        err.Error(),
		}
	}
	if len(results) == 0 {
		return Answer{
			Question:   question,
			Answer:     notFoundAnswer,
			Sources:    []Source{},
			Confidence: ConfidenceLow,
		}
	}

	contextText := a.contexts.Build(results)
	userPrompt := fmt.Sprintf(`
Контекст из геологических документов:
%s

Вопрос пользователя: %s

Проанализируй предоставленные документы и дай развернутый ответ на вопрос. Обязательно укажи, из каких документов взята информация.
`, contextText, question)

	sources := make([]Source, 0, len(results))
	sum := 0.0
	for _, r := range results {
		sources = append(sources, Source{
			Filename:   r.Filename,
			ChunkID:    r.ChunkID,
			Similarity: math.Round(r.Similarity*1000) / 1000,
		})
		sum += r.Similarity
	}
	confidence := confidenceLabel(sum / float64(len(results)))

	reply, err := a.generator.Complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		return Answer{
			Question:   question,
			Answer:     fmt.Sprintf("Произошла ошибка при обращении к генератору ответов: %v", err),
			Sources:    sources,
			Confidence: confidence,
			ChunksUsed: len(results),
			Err:        err.Error(),
		}
	}

	return Answer{
		Question:   question,
		Answer:     reply,
		Sources:    sources,
		Confidence: confidence,
		ChunksUsed: len(results),
	}
}

func confidenceLabel(meanSimilarity float64) string {
	switch {
	case meanSimilarity > 0.3:
		return ConfidenceHigh
	case meanSimilarity > 0.1:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}
