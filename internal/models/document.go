// Package models defines core data structures for documents, queries, and answers.
package models

import "time"

// Metadata is the provenance of a chunk inside its source document.
type Metadata struct {
	Page   int    `json:"page"`
	Line   int    `json:"line"`
	Source string `json:"source"`
}

// Document is one indexed passage. Its identity is its position in the document store.
type Document struct {
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata"`
}

// UploadRecord describes one processed upload in the upload registry.
type UploadRecord struct {
	ID          string    `json:"id" db:"id"`
	Filename    string    `json:"filename" db:"filename"`
	ContentHash string    `json:"content_hash" db:"content_hash"`
	Chunks      int       `json:"chunks" db:"chunks"`
	Batches     int       `json:"batches" db:"batches"`
	Generation  uint64    `json:"generation" db:"generation"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
