package ocr

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractTextTrimsOutput(t *testing.T) {
	// echo stands in for tesseract and prints its own arguments
	e := NewTesseract("echo", "rus", time.Second)

	got, err := e.ExtractText(context.Background(), "scan.tiff")
	require.NoError(t, err)

	assert.Contains(t, got, "scan.tiff stdout")
	assert.Contains(t, got, "-l rus")
	assert.Contains(t, got, "--psm 4")
	assert.NotContains(t, got, "\n")
}

func TestExtractTextMissingBinary(t *testing.T) {
	e := NewTesseract("definitely-not-a-real-binary", "rus", time.Second)

	_, err := e.ExtractText(context.Background(), "scan.tiff")
	assert.Error(t, err)
}

func TestExtractTextCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := NewTesseract("echo", "rus", time.Second)
	_, err := e.ExtractText(ctx, "scan.tiff")
	assert.Error(t, err)
}

func TestNewTesseractDefaults(t *testing.T) {
	e := NewTesseract("", "", 0)
	assert.Equal(t, "tesseract", e.binary)
	assert.Equal(t, "rus", e.languages)
	assert.Equal(t, 2*time.Minute, e.timeout)
}
