package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/alexeiveselov92/geological-tiff-search/internal/config"
	"github.com/alexeiveselov92/geological-tiff-search/internal/domain"
	"github.com/alexeiveselov92/geological-tiff-search/internal/embedding/openai"
	"github.com/alexeiveselov92/geological-tiff-search/internal/embedding/tfidf"
	"github.com/alexeiveselov92/geological-tiff-search/internal/index"
	"github.com/alexeiveselov92/geological-tiff-search/internal/rag"
	"github.com/alexeiveselov92/geological-tiff-search/internal/search"
	"github.com/alexeiveselov92/geological-tiff-search/internal/tui"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/georag/config.yaml if not provided)")
	flag.Parse()

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	snap, err := index.Load(cfg.Paths.Index)
	if err != nil {
		if errors.Is(err, index.ErrNoSnapshot) {
			log.Fatalf("no search index at %s: run georag-process first", cfg.Paths.Index)
		}
		log.Fatalf("failed to load index: %v", err)
	}

	emb, err := queryEmbedder(snap, cfg)
	if err != nil {
		log.Fatalf("embedder init failed: %v", err)
	}
	engine, err := search.New(snap, emb)
	if err != nil {
		log.Fatalf("search engine init failed: %v", err)
	}

	// The answer mode needs an API key; without one the console still
	// serves plain search.
	var asker tui.Asker
	if generator, err := rag.NewOpenAIGenerator(cfg.Generator); err == nil {
		contexts := rag.NewContextBuilder(cfg.Context.MaxTokens, rag.EstimateByLength)
		asker = rag.NewAnswerer(engine, generator, contexts, cfg.Search.TopK, cfg.Search.MinSimilarity)
	} else {
		log.Printf("answer mode disabled: %v", err)
	}

	stats := indexStats(snap)
	m := tui.New(engine, asker, cfg.Search.TopK, stats)
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		log.Fatal(err)
	}
}

// queryEmbedder rebuilds the embedder the index was built with, so query
// vectors live in the same space as the stored ones.
func queryEmbedder(snap *index.Snapshot, cfg *config.AppConfig) (domain.Embedder, error) {
	if snap.ModelName == tfidf.ModelName {
		return tfidf.Restore(snap.TFIDF)
	}
	ocfg := openai.Config{Model: snap.ModelName}
	if cfg.Embedder.OpenAI != nil {
		ocfg.BaseURL = cfg.Embedder.OpenAI.BaseURL
		ocfg.APIKeyEnv = cfg.Embedder.OpenAI.APIKeyEnv
		ocfg.Timeout = time.Duration(cfg.Embedder.OpenAI.TimeoutSecs) * time.Second
	}
	return openai.NewClient(ocfg)
}

func indexStats(snap *index.Snapshot) string {
	files := make(map[string]int)
	for _, c := range snap.Chunks {
		files[c.FileID]++
	}
	return fmt.Sprintf(
		"Модель: %s\nФрагментов: %d\nДокументов: %d\nРазмерность векторов: %d",
		snap.ModelName, snap.TotalChunks, len(files), snap.EmbeddingDim,
	)
}
