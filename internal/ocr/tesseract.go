package ocr

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Engine extracts raw text from one scanned image. Implementations are
// external collaborators; the pipeline treats a failed extraction as
// empty text, not a crash.
type Engine interface {
	ExtractText(ctx context.Context, imagePath string) (string, error)
}

// Tesseract shells out to the tesseract binary. Page segmentation mode 4
// (single column of variable-size text) matches old typewritten reports.
type Tesseract struct {
	binary    string
	languages string
	timeout   time.Duration
}

func NewTesseract(binary, languages string, timeout time.Duration) *Tesseract {
	if binary == "" {
		binary = "tesseract"
	}
	if languages == "" {
		languages = "rus"
	}
	if timeout == 0 {
		timeout = 2 * time.Minute
	}
	return &Tesseract{binary: binary, languages: languages, timeout: timeout}
}

func (t *Tesseract) ExtractText(ctx context.Context, imagePath string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, t.binary, imagePath, "stdout",
		"--oem", "3",
		"--psm", "4",
		"-l", t.languages,
		"-c", "preserve_interword_spaces=1",
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("tesseract %s: %w: %s", imagePath, err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}
