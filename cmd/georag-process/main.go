package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/alexeiveselov92/geological-tiff-search/internal/config"
	"github.com/alexeiveselov92/geological-tiff-search/internal/embedding"
	"github.com/alexeiveselov92/geological-tiff-search/internal/ocr"
	"github.com/alexeiveselov92/geological-tiff-search/internal/pipeline"
)

const usage = `Usage: georag-process [--config=config.yaml] [stage ...]

Stages (default: all, in order):
  extract   unpack ZIP archives into extracted files + manifest
  ocr       run OCR over every image, one JSON document per file
  chunk     clean text and split into overlapping chunks
  embed     vectorize chunks with the configured embedder
  index     assemble all embeddings into the search index snapshot
`

func main() {
	_ = godotenv.Load()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/georag/config.yaml if not provided)")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
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

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	emb, err := embedding.New(cfg.Embedder)
	if err != nil {
		log.Fatalf("embedder init failed: %v", err)
	}
	engine := ocr.NewTesseract(cfg.OCR.Binary, cfg.OCR.Languages, time.Duration(cfg.OCR.TimeoutSecs)*time.Second)
	p := pipeline.New(cfg, engine, emb)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stages := flag.Args()
	if len(stages) == 0 {
		summaries, err := p.RunAll(ctx)
		printSummaries(summaries)
		if err != nil {
			log.Fatalf("pipeline failed: %v", err)
		}
		return
	}

	var summaries []pipeline.Summary
	for _, stage := range stages {
		var summary pipeline.Summary
		var err error
		switch stage {
		case "extract":
			summary, err = p.ExtractArchives()
		case "ocr":
			summary, err = p.RunOCR(ctx)
		case "chunk":
			summary, err = p.ChunkTexts()
		case "embed":
			summary, err = p.EmbedChunks()
		case "index":
			summary, err = p.BuildIndex()
		default:
			fmt.Fprint(os.Stderr, usage)
			log.Fatalf("unknown stage: %s", stage)
		}
		summaries = append(summaries, summary)
		if err != nil {
			printSummaries(summaries)
			log.Fatalf("stage %s failed: %v", stage, err)
		}
	}
	printSummaries(summaries)
}

func printSummaries(summaries []pipeline.Summary) {
	for _, s := range summaries {
		fmt.Println(s)
	}
}
