// Package docstore provides the positional document store whose ids are aligned with vector index ids.
package docstore

import (
	"fmt"

	"github.com/hyperjump/docqa/internal/errs"
	"github.com/hyperjump/docqa/internal/models"
)

// Store is an immutable ordered sequence of documents. Position i is the id of the
// document's vector in the index of the same generation. Append never mutates the
// receiver, so a Store can be shared with concurrent readers.
type Store struct {
	docs []models.Document
}

// New returns a store holding a copy of docs, in order.
func New(docs []models.Document) *Store {
	cp := make([]models.Document, len(docs))
	copy(cp, docs)
	return &Store{docs: cp}
}

// Append returns a new store with docs added after the existing documents.
// The ids of existing documents do not change.
func (s *Store) Append(docs []models.Document) *Store {
	next := make([]models.Document, 0, s.Size()+len(docs))
	if s != nil {
		next = append(next, s.docs...)
	}
	next = append(next, docs...)
	return &Store{docs: next}
}

// Get returns the document with the given id.
func (s *Store) Get(id int) (models.Document, error) {
	if id < 0 || id >= s.Size() {
		return models.Document{}, fmt.Errorf("document %d (store size %d): %w", id, s.Size(), errs.ErrNotFound)
	}
	return s.docs[id], nil
}

// Size returns the number of documents.
func (s *Store) Size() int {
	if s == nil {
		return 0
	}
	return len(s.docs)
}

// All returns a copy of every document in id order.
func (s *Store) All() []models.Document {
	out := make([]models.Document, s.Size())
	if s != nil {
		copy(out, s.docs)
	}
	return out
}
