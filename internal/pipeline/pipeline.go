package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/alexeiveselov92/geological-tiff-search/internal/archive"
	"github.com/alexeiveselov92/geological-tiff-search/internal/config"
	"github.com/alexeiveselov92/geological-tiff-search/internal/domain"
	"github.com/alexeiveselov92/geological-tiff-search/internal/embedding/tfidf"
	"github.com/alexeiveselov92/geological-tiff-search/internal/index"
	"github.com/alexeiveselov92/geological-tiff-search/internal/ocr"
	"github.com/alexeiveselov92/geological-tiff-search/internal/textproc"
)

// Summary reports one completed stage. Batches always finish and report,
// even when individual items failed.
type Summary struct {
	Stage     string
	Total     int
	Processed int
	Skipped   int
	Failed    []string
	Extracted int // documents with non-empty OCR text
	Chunks    int // chunks produced or embedded
	AvgLength int // mean text length per processed item, in runes
	Duration  time.Duration
}

func (s Summary) String() string {
	line := fmt.Sprintf("[%s] total=%d processed=%d skipped=%d failed=%d",
		s.Stage, s.Total, s.Processed, s.Skipped, len(s.Failed))
	if s.Extracted > 0 {
		line += fmt.Sprintf(" extracted=%d", s.Extracted)
	}
	if s.Chunks > 0 {
		line += fmt.Sprintf(" chunks=%d", s.Chunks)
	}
	if s.AvgLength > 0 {
		line += fmt.Sprintf(" avg_len=%d", s.AvgLength)
	}
	line += fmt.Sprintf(" in %s", s.Duration.Round(time.Millisecond))
	if len(s.Failed) > 0 {
		show := s.Failed
		if len(show) > 10 {
			show = show[:10]
		}
		line += "\n  failed: " + strings.Join(show, ", ")
		if len(s.Failed) > 10 {
			line += ", ..."
		}
	}
	return line
}

// Pipeline runs the batch stages strictly sequentially: extract archives,
// OCR, clean+chunk, embed, build index. Each stage is resumable: a
// document whose output artifact already exists by file id is skipped.
type Pipeline struct {
	cfg       *config.AppConfig
	extractor *archive.Extractor
	engine    ocr.Engine
	chunker   *textproc.Chunker
	embedder  domain.Embedder
	log       *slog.Logger
}

func New(cfg *config.AppConfig, engine ocr.Engine, embedder domain.Embedder) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		extractor: archive.NewExtractor(cfg.Paths.Archives, cfg.Paths.ExtractedFiles),
		engine:    engine,
		chunker:   textproc.NewChunker(cfg.Chunker.ChunkSize, cfg.Chunker.Overlap),
		embedder:  embedder,
		log:       slog.Default().With("component", "pipeline"),
	}
}

// RunAll executes every stage in order and returns their summaries.
func (p *Pipeline) RunAll(ctx context.Context) ([]Summary, error) {
	var summaries []Summary
	stages := []func(context.Context) (Summary, error){
		func(context.Context) (Summary, error) { return p.ExtractArchives() },
		p.RunOCR,
		func(context.Context) (Summary, error) { return p.ChunkTexts() },
		func(context.Context) (Summary, error) { return p.EmbedChunks() },
		func(context.Context) (Summary, error) { return p.BuildIndex() },
	}
	for _, stage := range stages {
		summary, err := stage(ctx)
		if err != nil {
			return summaries, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// ExtractArchives unpacks every ZIP bundle into the extracted-files
// directory and writes the manifest.
func (p *Pipeline) ExtractArchives() (Summary, error) {
	start := time.Now()
	manifest, err := p.extractor.ExtractAll()
	if err != nil {
		return Summary{Stage: "extract"}, err
	}
	summary := Summary{
		Stage:     "extract",
		Total:     manifest.TotalArchives,
		Processed: manifest.TotalArchives,
		Chunks:    manifest.TotalFiles,
		Duration:  time.Since(start),
	}
	for _, a := range manifest.Archives {
		if a.Err != "" {
			summary.Failed = append(summary.Failed, a.ArchiveID)
			summary.Processed--
		}
	}
	return summary, nil
}

// ocrTarget is one image queued for text extraction.
type ocrTarget struct {
	fileID string
	path   string
	doc    domain.Document
}

// RunOCR extracts text from every image, one JSON artifact per document.
// Images whose artifact already exists are skipped, which makes a
// restarted batch pick up where it stopped.
func (p *Pipeline) RunOCR(ctx context.Context) (Summary, error) {
	start := time.Now()
	summary := Summary{Stage: "ocr"}

	targets, err := p.ocrTargets()
	if err != nil {
		return summary, err
	}
	if len(targets) == 0 {
		p.log.Warn("no images found to process", "dir", p.cfg.Paths.Archives)
		return summary, nil
	}
	summary.Total = len(targets)

	if err := os.MkdirAll(p.cfg.Paths.ExtractedText, 0o755); err != nil {
		return summary, err
	}

	totalLen := 0
	for _, t := range targets {
		artifact := filepath.Join(p.cfg.Paths.ExtractedText, t.fileID+".json")
		if fileExists(artifact) {
			summary.Skipped++
			continue
		}

		text, err := p.engine.ExtractText(ctx, t.path)
		if err != nil {
			p.log.Error("ocr failed", "file", t.fileID, "err", err)
			summary.Failed = append(summary.Failed, t.fileID)
			continue
		}
		if text == "" {
			p.log.Warn("no text extracted", "file", t.fileID)
		}

		doc := t.doc
		doc.Text = text
		doc.TextLength = utf8.RuneCountInString(text)
		if err := writeJSON(artifact, doc); err != nil {
			summary.Failed = append(summary.Failed, t.fileID)
			continue
		}
		summary.Processed++
		totalLen += doc.TextLength
		if doc.TextLength > 0 {
			summary.Extracted++
		}
	}
	if summary.Processed > 0 {
		summary.AvgLength = totalLen / summary.Processed
	}

	summary.Duration = time.Since(start)
	p.log.Info("ocr stage done", "processed", summary.Processed, "skipped", summary.Skipped, "failed", len(summary.Failed))
	return summary, nil
}

// ocrTargets prefers the archive manifest; without one it falls back to
// loose TIFF files dropped directly into the archives directory.
func (p *Pipeline) ocrTargets() ([]ocrTarget, error) {
	manifest, err := p.extractor.LoadManifest()
	if err != nil {
		return nil, err
	}
	if manifest != nil {
		files := manifest.AllFiles()
		targets := make([]ocrTarget, 0, len(files))
		for _, f := range files {
			targets = append(targets, ocrTarget{
				fileID: f.UniqueID,
				path:   f.ExtractedPath,
				doc: domain.Document{
					FileID:        f.UniqueID,
					Filename:      f.OriginalName,
					OriginalName:  f.OriginalName,
					OriginalPath:  f.OriginalPath,
					ArchiveSource: f.ArchiveSource,
					ArchiveID:     f.ArchiveID,
				},
			})
		}
		return targets, nil
	}

	entries, err := os.ReadDir(p.cfg.Paths.Archives)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var targets []ocrTarget
	for _, e := range entries {
		name := strings.ToLower(e.Name())
		if e.IsDir() || (!strings.HasSuffix(name, ".tif") && !strings.HasSuffix(name, ".tiff")) {
			continue
		}
		fileID := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		targets = append(targets, ocrTarget{
			fileID: fileID,
			path:   filepath.Join(p.cfg.Paths.Archives, e.Name()),
			doc:    domain.Document{FileID: fileID, Filename: e.Name()},
		})
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i].fileID < targets[j].fileID })
	return targets, nil
}

// ChunkTexts cleans every extracted document and splits it into
// identified chunks, one artifact per document.
func (p *Pipeline) ChunkTexts() (Summary, error) {
	start := time.Now()
	summary := Summary{Stage: "chunk"}

	docFiles, err := listJSON(p.cfg.Paths.ExtractedText, ".json")
	if err != nil {
		return summary, err
	}
	if len(docFiles) == 0 {
		p.log.Warn("no extracted text found", "dir", p.cfg.Paths.ExtractedText)
		return summary, nil
	}
	summary.Total = len(docFiles)

	if err := os.MkdirAll(p.cfg.Paths.Chunks, 0o755); err != nil {
		return summary, err
	}

	totalLen := 0
	for _, name := range docFiles {
		var doc domain.Document
		if err := readJSON(filepath.Join(p.cfg.Paths.ExtractedText, name), &doc); err != nil {
			p.log.Error("cannot read document", "file", name, "err", err)
			summary.Failed = append(summary.Failed, name)
			continue
		}

		artifact := filepath.Join(p.cfg.Paths.Chunks, doc.FileID+"_chunks.json")
		if fileExists(artifact) {
			summary.Skipped++
			continue
		}

		cleaned := textproc.Clean(doc.Text)
		chunks := p.chunker.ChunkDocument(doc, cleaned)
		if len(chunks) == 0 {
			p.log.Warn("document produced no chunks", "file", doc.FileID)
		}
		if err := writeJSON(artifact, chunks); err != nil {
			summary.Failed = append(summary.Failed, doc.FileID)
			continue
		}
		summary.Processed++
		summary.Chunks += len(chunks)
		for _, c := range chunks {
			totalLen += c.TextLength
		}
	}
	if summary.Chunks > 0 {
		summary.AvgLength = totalLen / summary.Chunks
	}

	summary.Duration = time.Since(start)
	p.log.Info("chunk stage done", "documents", summary.Processed, "chunks", summary.Chunks)
	return summary, nil
}

// EmbedChunks vectorizes every chunk, one artifact per document. The
// TF-IDF embedder is corpus-fitted, so its vector space changes whenever
// the corpus does: its artifacts are always rewritten. Remote embedders
// are deterministic per text and skip documents already embedded.
func (p *Pipeline) EmbedChunks() (Summary, error) {
	start := time.Now()
	summary := Summary{Stage: "embed"}

	chunkFiles, err := listJSON(p.cfg.Paths.Chunks, "_chunks.json")
	if err != nil {
		return summary, err
	}
	if len(chunkFiles) == 0 {
		return summary, fmt.Errorf("no chunk files found in %s", p.cfg.Paths.Chunks)
	}
	summary.Total = len(chunkFiles)

	if err := os.MkdirAll(p.cfg.Paths.Embeddings, 0o755); err != nil {
		return summary, err
	}

	corpusFitted := p.embedder.Name() == tfidf.ModelName
	if corpusFitted {
		if err := p.prepareOnCorpus(chunkFiles); err != nil {
			return summary, err
		}
	}

	for _, name := range chunkFiles {
		fileID := strings.TrimSuffix(name, "_chunks.json")
		artifact := filepath.Join(p.cfg.Paths.Embeddings, fileID+"_embeddings.json")
		if !corpusFitted && fileExists(artifact) {
			summary.Skipped++
			continue
		}

		var chunks []domain.Chunk
		if err := readJSON(filepath.Join(p.cfg.Paths.Chunks, name), &chunks); err != nil {
			summary.Failed = append(summary.Failed, fileID)
			continue
		}

		embedded := make([]domain.EmbeddedChunk, 0, len(chunks))
		embedErr := false
		for _, c := range chunks {
			vec, err := p.embedder.Embed(c.Text)
			if err != nil {
				p.log.Error("embedding failed", "chunk", c.ChunkID, "err", err)
				embedErr = true
				break
			}
			embedded = append(embedded, domain.EmbeddedChunk{
				Chunk:        c,
				Embedding:    vec,
				EmbeddingDim: len(vec),
			})
		}
		if embedErr {
			summary.Failed = append(summary.Failed, fileID)
			continue
		}

		if err := writeJSON(artifact, embedded); err != nil {
			summary.Failed = append(summary.Failed, fileID)
			continue
		}
		summary.Processed++
		summary.Chunks += len(embedded)
	}

	summary.Duration = time.Since(start)
	p.log.Info("embed stage done", "documents", summary.Processed, "chunks", summary.Chunks, "model", p.embedder.Name())
	return summary, nil
}

// BuildIndex concatenates all embedding artifacts into one snapshot and
// writes it atomically.
func (p *Pipeline) BuildIndex() (Summary, error) {
	start := time.Now()
	summary := Summary{Stage: "index"}

	var state *tfidf.Model
	if tf, ok := p.embedder.(*tfidf.Embedder); ok {
		if state = tf.State(); state == nil {
			// Stage run on its own: refit on the chunk artifacts. The fit is
			// deterministic, so the space matches the stored vectors.
			chunkFiles, err := listJSON(p.cfg.Paths.Chunks, "_chunks.json")
			if err != nil {
				return summary, err
			}
			if err := p.prepareOnCorpus(chunkFiles); err != nil {
				return summary, err
			}
			state = tf.State()
		}
	}

	snap, err := index.NewBuilder(p.cfg.Paths.Embeddings).Build(p.embedder.Name(), state)
	if err != nil {
		return summary, err
	}
	if err := snap.Save(p.cfg.Paths.Index); err != nil {
		return summary, err
	}

	summary.Total = snap.TotalChunks
	summary.Processed = snap.TotalChunks
	summary.Duration = time.Since(start)
	p.log.Info("index saved", "path", p.cfg.Paths.Index, "chunks", snap.TotalChunks, "dim", snap.EmbeddingDim)
	return summary, nil
}

func (p *Pipeline) prepareOnCorpus(chunkFiles []string) error {
	var corpus []string
	for _, name := range chunkFiles {
		var chunks []domain.Chunk
		if err := readJSON(filepath.Join(p.cfg.Paths.Chunks, name), &chunks); err != nil {
			return fmt.Errorf("read chunks %s: %w", name, err)
		}
		for _, c := range chunks {
			corpus = append(corpus, c.Text)
		}
	}
	if err := p.embedder.Prepare(corpus); err != nil {
		return fmt.Errorf("prepare embedder: %w", err)
	}
	return nil
}

func listJSON(dir, suffix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), suffix) {
			continue
		}
		// The raw-text listing must not pick up manifest or chunk files.
		if suffix == ".json" && (strings.HasSuffix(e.Name(), "_chunks.json") || strings.HasSuffix(e.Name(), "_embeddings.json") || e.Name() == "metadata.json") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
