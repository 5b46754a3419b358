// Package extract turns input documents into plain text the detection
// pipeline can scan.
package extract

import (
	"context"
	"fmt"
	"html"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/microcosm-cc/bluemonday"

	anonotel "github.com/Gunoch/anonimatizacao/internal/otel"
)

var tracer = anonotel.Tracer("github.com/Gunoch/anonimatizacao/internal/extract")

// Extractor extracts text content from supported file formats.
type Extractor struct {
	maxSize int64
}

// NewExtractor creates an extractor with a size limit.
func NewExtractor(maxSizeMB int) *Extractor {
	return &Extractor{
		maxSize: int64(maxSizeMB) * 1024 * 1024,
	}
}

// Extract reads and extracts plain text from a file.
// Supported formats: .txt, .md, .csv, .html/.htm, .pdf.
func (e *Extractor) Extract(ctx context.Context, path string) (string, error) {
	_, span := tracer.Start(ctx, "extract.file")
	defer span.End()

	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat file %s: %w", path, err)
	}
	if info.Size() > e.maxSize {
		return "", fmt.Errorf("file size %d exceeds limit %d bytes", info.Size(), e.maxSize)
	}

	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".txt", ".md", ".csv":
		content, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("reading file %s: %w", path, err)
		}
		return string(content), nil

	case ".html", ".htm":
		content, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("reading file %s: %w", path, err)
		}
		p := bluemonday.StrictPolicy()
		return html.UnescapeString(p.Sanitize(string(content))), nil

	case ".pdf":
		return extractPDF(path)

	default:
		return "", fmt.Errorf("unsupported file type: %s", ext)
	}
}

// extractPDF pulls plain text out of every page, pages separated by blank
// lines.
func extractPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening pdf %s: %w", path, err)
	}
	defer f.Close()

	reader, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extracting pdf text: %w", err)
	}
	var b strings.Builder
	if _, err := io.Copy(&b, reader); err != nil {
		return "", fmt.Errorf("reading pdf text: %w", err)
	}
	return b.String(), nil
}
