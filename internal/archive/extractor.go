package archive

import (
	"archive/zip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ExtractedFile records one TIFF pulled out of a bundle.
type ExtractedFile struct {
	UniqueID      string `json:"unique_id"`
	OriginalPath  string `json:"original_path"`
	OriginalName  string `json:"original_name"`
	ExtractedPath string `json:"extracted_path"`
	ArchiveSource string `json:"archive_source"`
	ArchiveID     string `json:"archive_id"`
	FileSize      int64  `json:"file_size"`
}

// ArchiveResult is the outcome of extracting one bundle. A corrupt
// archive is recorded with Err set; it never aborts the batch.
type ArchiveResult struct {
	ArchiveID   string          `json:"archive_id"`
	ArchivePath string          `json:"archive_path"`
	Files       []ExtractedFile `json:"files"`
	TotalFiles  int             `json:"total_files"`
	Err         string          `json:"error,omitempty"`
}

// Manifest lists everything extracted across all bundles. It is the
// input of the OCR stage.
type Manifest struct {
	Archives      []ArchiveResult `json:"archives"`
	TotalArchives int             `json:"total_archives"`
	TotalFiles    int             `json:"total_files"`
}

// Extractor unpacks TIFF scans from ZIP bundles into per-archive
// directories and maintains the metadata manifest.
type Extractor struct {
	archivesDir  string
	extractedDir string
	log          *slog.Logger
}

func NewExtractor(archivesDir, extractedDir string) *Extractor {
	return &Extractor{
		archivesDir:  archivesDir,
		extractedDir: extractedDir,
		log:          slog.Default().With("component", "archive"),
	}
}

func (e *Extractor) manifestPath() string {
	return filepath.Join(e.extractedDir, "metadata.json")
}

// ScanArchives lists ZIP bundles in the archives directory, creating it
// when missing so the user has a place to drop files.
func (e *Extractor) ScanArchives() ([]string, error) {
	if err := os.MkdirAll(e.archivesDir, 0o755); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(e.archivesDir)
	if err != nil {
		return nil, err
	}
	var zips []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.EqualFold(filepath.Ext(entry.Name()), ".zip") {
			zips = append(zips, filepath.Join(e.archivesDir, entry.Name()))
		}
	}
	sort.Strings(zips)
	e.log.Info("archives found", "count", len(zips), "dir", e.archivesDir)
	return zips, nil
}

// ExtractAll processes every bundle and saves the manifest. Per-archive
// and per-entry failures are logged and recorded; the batch continues.
func (e *Extractor) ExtractAll() (*Manifest, error) {
	archives, err := e.ScanArchives()
	if err != nil {
		return nil, err
	}

	manifest := &Manifest{TotalArchives: len(archives)}
	for _, path := range archives {
		result := e.extractTIFFs(path)
		manifest.Archives = append(manifest.Archives, result)
		manifest.TotalFiles += result.TotalFiles
	}

	if err := e.saveManifest(manifest); err != nil {
		return nil, err
	}
	e.log.Info("extraction finished", "archives", manifest.TotalArchives, "files", manifest.TotalFiles)
	return manifest, nil
}

func (e *Extractor) extractTIFFs(archivePath string) ArchiveResult {
	archiveID := archiveID(archivePath)
	result := ArchiveResult{ArchiveID: archiveID, ArchivePath: archivePath}

	dir := filepath.Join(e.extractedDir, archiveID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		result.Err = err.Error()
		return result
	}

	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		e.log.Error("cannot open archive", "archive", archivePath, "err", err)
		result.Err = err.Error()
		return result
	}
	defer reader.Close()

	counter := 0
	for _, entry := range reader.File {
		name := strings.ToLower(entry.Name)
		if !strings.HasSuffix(name, ".tif") && !strings.HasSuffix(name, ".tiff") {
			continue
		}
		counter++
		originalName := filepath.Base(entry.Name)
		uniqueID := fmt.Sprintf("%s_%04d_%s", archiveID, counter, stem(originalName))
		extractedPath := filepath.Join(dir, uniqueID+".tiff")

		if err := copyEntry(entry, extractedPath); err != nil {
			e.log.Error("cannot extract entry", "entry", entry.Name, "err", err)
			continue
		}

		result.Files = append(result.Files, ExtractedFile{
			UniqueID:      uniqueID,
			OriginalPath:  entry.Name,
			OriginalName:  originalName,
			ExtractedPath: extractedPath,
			ArchiveSource: archivePath,
			ArchiveID:     archiveID,
			FileSize:      int64(entry.UncompressedSize64),
		})
	}
	result.TotalFiles = len(result.Files)
	e.log.Info("archive extracted", "archive", filepath.Base(archivePath), "tiffs", result.TotalFiles)
	return result
}

func copyEntry(entry *zip.File, dst string) error {
	src, err := entry.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func (e *Extractor) saveManifest(m *Manifest) error {
	if err := os.MkdirAll(e.extractedDir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(e.manifestPath(), data, 0o644)
}

// LoadManifest reads the manifest from a previous extraction run. A
// missing manifest returns nil, nil.
func (e *Extractor) LoadManifest() (*Manifest, error) {
	data, err := os.ReadFile(e.manifestPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}

// AllFiles flattens the manifest into one file list.
func (m *Manifest) AllFiles() []ExtractedFile {
	if m == nil {
		return nil
	}
	var files []ExtractedFile
	for _, a := range m.Archives {
		files = append(files, a.Files...)
	}
	return files
}

func archiveID(path string) string {
	id := stem(filepath.Base(path))
	id = strings.ReplaceAll(id, " ", "_")
	id = strings.ReplaceAll(id, "(", "")
	id = strings.ReplaceAll(id, ")", "")
	return id
}

func stem(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}
