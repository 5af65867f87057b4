// Package indexer turns uploads into line-level documents and feeds them to the
// retrieval engine in fixed-size batches.
package indexer

import (
	"github.com/hyperjump/docqa/internal/models"
	"github.com/hyperjump/docqa/pkg/utils"
)

// Chunker splits page text into one document per non-blank line.
type Chunker struct{}

// NewChunker returns a line chunker.
func NewChunker() *Chunker {
	return &Chunker{}
}

// Chunk returns a document for every non-blank line of pages. Page and line numbers
// are 1-based and count blank lines, so they match the source document.
func (c *Chunker) Chunk(source string, pages []string) []models.Document {
	var docs []models.Document
	for p, text := range pages {
		for l, line := range utils.SplitLines(text) {
			content := Preprocess(line)
			if content == "" {
				continue
			}
			docs = append(docs, models.Document{
				Content: content,
				Metadata: models.Metadata{
					Page:   p + 1,
					Line:   l + 1,
					Source: source,
				},
			})
		}
	}
	return docs
}

// Batches splits docs into consecutive slices of at most size documents.
// A non-positive size yields a single batch.
func Batches(docs []models.Document, size int) [][]models.Document {
	if len(docs) == 0 {
		return nil
	}
	if size <= 0 {
		size = len(docs)
	}
	batches := make([][]models.Document, 0, (len(docs)+size-1)/size)
	for start := 0; start < len(docs); start += size {
		end := min(start+size, len(docs))
		batches = append(batches, docs[start:end:end])
	}
	return batches
}
