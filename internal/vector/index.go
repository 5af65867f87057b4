// Package vector provides nearest-neighbour indexes over unit-length embeddings.
package vector

import (
	"context"
	"fmt"

	"github.com/hyperjump/docqa/internal/errs"
)

// Index is an immutable, queryable set of vectors with ids 0..Size()-1.
// Implementations are safe for concurrent Search calls.
type Index interface {
	// Search returns at most k ids ordered by ascending angular distance to query.
	// An empty index returns no results and no error.
	Search(ctx context.Context, query []float32, k int) ([]Result, error)
	Size() int
	Dimensions() int
	Type() string
}

// Builder builds an Index from the full vector set in one pass. Vector i gets id i.
type Builder interface {
	Build(ctx context.Context, vectors [][]float32) (Index, error)
	Type() string
}

// Result is a single search hit.
type Result struct {
	ID       int
	Distance float64 // angular distance sqrt(2-2cos), 0 for identical direction
}

// checkDimensions returns the shared dimension of vectors, or ErrDimensionMismatch
// if any vector differs from the first one.
func checkDimensions(vectors [][]float32) (int, error) {
	if len(vectors) == 0 {
		return 0, nil
	}
	dim := len(vectors[0])
	if dim == 0 {
		return 0, fmt.Errorf("vector 0 is empty: %w", errs.ErrDimensionMismatch)
	}
	for i, v := range vectors {
		if len(v) != dim {
			return 0, fmt.Errorf("vector %d has dimension %d, expected %d: %w", i, len(v), dim, errs.ErrDimensionMismatch)
		}
	}
	return dim, nil
}

func checkQuery(query []float32, dim int) error {
	if len(query) != dim {
		return fmt.Errorf("query dimension %d, index dimension %d: %w", len(query), dim, errs.ErrDimensionMismatch)
	}
	return nil
}
