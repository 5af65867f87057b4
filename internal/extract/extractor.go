// Package extract turns uploaded documents into pages of plain text. Lines within a
// page are separated by '\n'; page i of the result is page i+1 of the document.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/docqa/internal/errs"
)

// Extractor extracts page text from document bytes.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// SupportedExtensions lists the extensions ExtractPages accepts.
var SupportedExtensions = []string{".pdf", ".docx", ".xlsx", ".pptx", ".odp", ".ods", ".txt", ".md", ".rst"}

// Supported reports whether filename has an extension ExtractPages can handle.
func Supported(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, s := range SupportedExtensions {
		if s == ext {
			return true
		}
	}
	return false
}

// ExtractFile reads the file at path and extracts its pages.
func (e *Extractor) ExtractFile(path string) ([]string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return e.ExtractPages(content, filepath.Ext(path))
}

// ExtractPages extracts pages from content based on ext (with leading dot, e.g. ".pdf").
// PDF pages, presentation slides and spreadsheet sheets each become a page; word
// processing documents are split at explicit page breaks; plain text is one page.
// All failures, including unsupported formats, are errs.ErrExtractionFailure.
func (e *Extractor) ExtractPages(content []byte, ext string) ([]string, error) {
	var (
		pages []string
		err   error
	)
	switch strings.ToLower(ext) {
	case ".pdf":
		pages, err = extractPDF(content)
	case ".docx":
		pages, err = extractDOCX(content)
	case ".xlsx":
		pages, err = extractExcel(content)
	case ".pptx":
		pages, err = extractPPTX(content)
	case ".odp":
		pages, err = extractODP(content)
	case ".ods":
		pages, err = extractODS(content)
	case ".txt", ".md", ".rst":
		pages, err = extractPlain(content)
	default:
		return nil, fmt.Errorf("%w: unsupported file type %q", errs.ErrExtractionFailure, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrExtractionFailure, err)
	}
	return pages, nil
}
